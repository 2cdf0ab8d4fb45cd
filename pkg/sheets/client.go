package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/gcp"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

const (
	valueInputUserEntered = "USER_ENTERED"
	insertRows            = "INSERT_ROWS"
)

var (
	errSpreadsheetRequired  = errors.New("sheets spreadsheet id is required")
	errClientNotInitialized = errors.New("sheets client not initialized")
)

// Client appends rows to one spreadsheet.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// NewClient builds a Sheets v4 client and verifies the spreadsheet is reachable.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.SheetsConfig, logg *logger.Logger) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errSpreadsheetRequired
	}
	svc, err := gsheets.NewService(ctx, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}
	c := &Client{svc: svc, spreadsheetID: id}
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	if logg != nil {
		logg.Info(ctx, "sheets client initialized")
	}
	return c, nil
}

// Ping reads the spreadsheet id back from the API.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return fmt.Errorf("spreadsheet %q does not exist", c.spreadsheetID)
		}
		return fmt.Errorf("checking spreadsheet: %w", err)
	}
	return nil
}

// Append adds rows after the last populated row of rng.
func (c *Client) Append(ctx context.Context, rng string, rows [][]any) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	return nil
}

// IsPermanent reports API failures that retrying will not fix.
func IsPermanent(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 400, 403, 404:
		return true
	}
	return false
}
