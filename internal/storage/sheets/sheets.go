// Package sheetsstorage uploads the per-fight player rows and the high-score
// tables to a Google spreadsheet when the run ends.
package sheetsstorage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/eitopstats/topstats/internal/classify"
	"github.com/eitopstats/topstats/internal/config"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/pkg/core"
)

var (
	ErrNoRun         = errors.New("no run started")
	ErrNoSpreadsheet = errors.New("no spreadsheet configured")
)

// HighScoreSheetSuffix names the tab holding the leaderboards.
const HighScoreSheetSuffix = " High Scores"

// RowHeader is the first line of the rows tab.
var RowHeader = []any{
	"Fight", "Name", "Profession", "Account", "Role", "Party", "Commander", "Skipped",
	"Active Time (s)", "Damage", "Power Damage", "Condi Damage", "Downs", "Kills",
	"Healing", "Barrier", "Chunk Damage 5", "Burst Damage 5",
}

var (
	urlPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	idPattern  = regexp.MustCompile(`^[a-zA-Z0-9-_]+$`)
)

// SpreadsheetID accepts a bare id or a spreadsheet URL.
func SpreadsheetID(s string) (string, error) {
	if s == "" {
		return "", ErrNoSpreadsheet
	}
	if m := urlPattern.FindStringSubmatch(s); len(m) == 2 {
		return m[1], nil
	}
	if idPattern.MatchString(s) {
		return s, nil
	}
	return "", fmt.Errorf("could not extract spreadsheet ID from %q", s)
}

// Row converts a player row into sheet cells.
func Row(r core.PlayerFight) []any {
	return []any{
		r.Fight, r.Name, r.Profession, r.Account, r.Role.String(), r.Group, r.Commander, r.Skipped,
		r.ActiveTimeMS / 1000, r.Damage, r.PowerDamage, r.CondiDamage, r.Downs, r.Kills,
		r.Healing, r.Barrier, r.Chunk5, r.Burst5,
	}
}

// HighScoreRows lays out every metric as a block of rank, key and value,
// metrics in name order.
func HighScoreRows(scores map[string][]classify.Score) [][]any {
	metrics := make([]string, 0, len(scores))
	for m := range scores {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	rows := [][]any{{"Metric", "Rank", "Player", "Value"}}
	for _, m := range metrics {
		for i, s := range scores[m] {
			rows = append(rows, []any{m, i + 1, s.Key, s.Value})
		}
	}
	return rows
}

// Backend implements storage.Backend over the Sheets API.
type Backend struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	rows          [][]any
	started       bool
}

// New builds a service authorized with the service account credentials file.
func New(ctx context.Context, cfg config.SheetsConfig) (*Backend, error) {
	creds, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return NewWithOptions(ctx, cfg, option.WithHTTPClient(jwt.Client(ctx)))
}

// NewWithOptions builds the backend with explicit client options.
func NewWithOptions(ctx context.Context, cfg config.SheetsConfig, opts ...option.ClientOption) (*Backend, error) {
	id, err := SpreadsheetID(cfg.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	name := cfg.Sheet
	if name == "" {
		name = "Fights"
	}
	return &Backend{service: srv, spreadsheetID: id, sheetName: name}, nil
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

func (b *Backend) StartRun(context.Context, *core.Run) error {
	b.rows = [][]any{RowHeader}
	b.started = true
	return nil
}

// RecordFight buffers the rows; the API is called once on EndRun.
func (b *Backend) RecordFight(_ context.Context, f *engine.FightResult) error {
	if !b.started {
		return ErrNoRun
	}
	for _, r := range f.Rows {
		b.rows = append(b.rows, Row(r))
	}
	return nil
}

func (b *Backend) replace(ctx context.Context, sheet string, rows [][]any) error {
	_, err := b.service.Spreadsheets.Values.Clear(b.spreadsheetID, sheet+"!A:ZZ", &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear sheet %s: %w", sheet, err)
	}
	_, err = b.service.Spreadsheets.Values.Update(b.spreadsheetID, sheet+"!A1", &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write to sheet %s: %w", sheet, err)
	}
	return nil
}

// EndRun overwrites the rows tab and the high-score tab.
func (b *Backend) EndRun(ctx context.Context, res *engine.Result) error {
	if !b.started {
		return ErrNoRun
	}
	b.started = false
	if err := b.replace(ctx, b.sheetName, b.rows); err != nil {
		return err
	}
	return b.replace(ctx, b.sheetName+HighScoreSheetSuffix, HighScoreRows(res.HighScores))
}
