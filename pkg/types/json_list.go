package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONList is a list column persisted as a JSON array. Decoding accepts either
// a raw array or a string holding an encoded array, so rows written by older
// clients that double-encoded their lists still load.
type JSONList[T any] []T

// Value implements driver.Valuer.
func (l JSONList[T]) Value() (driver.Value, error) {
	encoded, err := json.Marshal(l.items())
	if err != nil {
		return nil, fmt.Errorf("encode json list: %w", err)
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner.
func (l *JSONList[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = JSONList[T]{}
		return nil
	case []byte:
		return l.decode(v)
	case string:
		return l.decode([]byte(v))
	default:
		return fmt.Errorf("unsupported json list source %T", src)
	}
}

// MarshalJSON always renders an array, never null.
func (l JSONList[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.items())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *JSONList[T]) UnmarshalJSON(data []byte) error {
	return l.decode(data)
}

func (l JSONList[T]) items() []T {
	if l == nil {
		return []T{}
	}
	return []T(l)
}

func (l *JSONList[T]) decode(data []byte) error {
	items, err := DecodeList[T](data)
	if err != nil {
		return err
	}
	*l = items
	return nil
}

// DecodeList parses an array, a JSON string containing an array, or null/empty input.
func DecodeList[T any](data []byte) (JSONList[T], error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return JSONList[T]{}, nil
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, fmt.Errorf("decode json list string: %w", err)
		}
		return DecodeList[T]([]byte(inner))
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode json list: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
