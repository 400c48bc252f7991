// Package google mirrors transactions into a Google Spreadsheet.
//
// The sheet holds one row per transaction with the columns
// ID, Date, Description, Amount and Category. Row 1 is a header.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// DefaultSheetName is used when no sheet name is configured.
const DefaultSheetName = "Transactions"

var header = []any{"ID", "Date", "Description", "Amount", "Category"}

var _ ports.TransactionMirror = (*Client)(nil)

// Values is the subset of the Sheets values API the client needs.
type Values interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
}

type Client struct {
	values        Values
	spreadsheetID string
	sheet         string
}

// Config selects the spreadsheet and the service account credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New connects to the Sheets API with service account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithValues(&apiValues{svc: svc}, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithValues builds a client over an existing values API.
func NewWithValues(values Values, spreadsheetID, sheet string) *Client {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &Client{values: values, spreadsheetID: spreadsheetID, sheet: sheet}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline service account credentials")
	case file != "":
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", file)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// apiValues adapts the generated Sheets client to Values.
type apiValues struct {
	svc *gsheet.Service
}

func (a *apiValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (a *apiValues) Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

func (a *apiValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := a.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (c *Client) Upsert(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("transaction without id")
	}
	ids, err := c.values.Get(ctx, c.spreadsheetID, c.sheet+"!A:A")
	if err != nil {
		return "", fmt.Errorf("read ids from %s: %w", c.sheet, err)
	}

	if len(ids) == 0 {
		if err := c.values.Update(ctx, c.spreadsheetID, c.sheet+"!A1:E1", [][]any{header}); err != nil {
			return "", fmt.Errorf("write header in %s: %w", c.sheet, err)
		}
		ids = [][]any{header[:1]}
	}

	row := rowIndexOf(ids, t.ID)
	if row == 0 {
		row = len(ids) + 1
	}
	ref := rowRange(c.sheet, row)
	if err := c.values.Update(ctx, c.spreadsheetID, ref, [][]any{rowValues(t)}); err != nil {
		return "", fmt.Errorf("write %s: %w", ref, err)
	}
	return ref, nil
}

func (c *Client) Remove(ctx context.Context, id string) error {
	ids, err := c.values.Get(ctx, c.spreadsheetID, c.sheet+"!A:A")
	if err != nil {
		return fmt.Errorf("read ids from %s: %w", c.sheet, err)
	}
	row := rowIndexOf(ids, id)
	if row == 0 {
		slog.WarnContext(ctx, "Transaction not present in sheet", "id", id, "sheet", c.sheet)
		return nil
	}
	ref := rowRange(c.sheet, row)
	if err := c.values.Clear(ctx, c.spreadsheetID, ref); err != nil {
		return fmt.Errorf("clear %s: %w", ref, err)
	}
	return nil
}

// rowIndexOf returns the 1-based row whose first cell is id, or 0.
func rowIndexOf(rows [][]any, id string) int {
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(r[0])) == id {
			return i + 1
		}
	}
	return 0
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:E%d", sheet, row, row)
}

func rowValues(t core.Transaction) []any {
	return []any{t.ID, t.Date.String(), t.Description, t.Amount.String(), t.Category}
}
