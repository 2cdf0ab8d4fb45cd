package cart

import (
	"bytes"
	"encoding/json"

	"github.com/sonaskin/storefront-backend/pkg/types"
)

// StorageKey is the fixed name carts are persisted under.
const StorageKey = "cart-storage"

// Item is one cart line. Price is in VND.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    int64   `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
	Tagline  *string `json:"tagline,omitempty"`
}

// legacyEnvelope is the {"items": [...]} shape written by earlier builds.
type legacyEnvelope struct {
	Items []Item `json:"items"`
}

// decodeItems reads the persisted JSON array of lines, also accepting the legacy envelope.
func decodeItems(raw []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var legacy legacyEnvelope
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, err
		}
		return legacy.Items, nil
	}
	list, err := types.DecodeList[Item](trimmed)
	if err != nil {
		return nil, err
	}
	return list, nil
}
