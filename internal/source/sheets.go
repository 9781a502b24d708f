package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"otsync/internal"
	"otsync/internal/config"
)

// SheetsSource reads the live PTS spreadsheet through the Google Sheets API
// with a read-only service account.
type SheetsSource struct {
	service       *sheets.Service
	spreadsheetID string
	timeout       time.Duration
	limiter       *RateLimiter
}

func NewSheetsSource(cfg config.Config) (*SheetsSource, error) {
	if err := cfg.Require("PTS_SPREADSHEET_ID", cfg.SheetsSpreadsheetID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GOOGLE_SERVICE_ACCOUNT_KEY", cfg.SheetsCredentialsKey); err != nil {
		return nil, err
	}

	creds, err := google.CredentialsFromJSON(context.Background(), []byte(cfg.SheetsCredentialsKey), sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	svc, err := sheets.NewService(context.Background(), option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, err
	}

	return &SheetsSource{
		service:       svc,
		spreadsheetID: cfg.SheetsSpreadsheetID,
		timeout:       time.Duration(cfg.SheetsTimeoutMs) * time.Millisecond,
		limiter:       NewRateLimiter(cfg.SheetsRateLimitRPS),
	}, nil
}

func (s *SheetsSource) FetchRows(ctx context.Context, sheet string) ([]internal.SourceRow, error) {
	s.limiter.WaitTurn()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, fmt.Sprintf("'%s'!A1:Z", sheet)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch sheet %q: %w", sheet, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	headers := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(v))
	}

	data := make([][]string, 0, len(resp.Values)-1)
	for _, record := range resp.Values[1:] {
		cells := make([]string, len(record))
		for i, v := range record {
			cells[i] = strings.TrimSpace(fmt.Sprint(v))
		}
		data = append(data, cells)
	}

	return rowsFromCells(headers, data, 2), nil
}
