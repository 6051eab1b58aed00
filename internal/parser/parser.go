package parser

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/xeipuuv/gojsonschema"

	"github.com/eitopstats/topstats/pkg/core"
)

// ErrUnsupportedFile is returned for inputs that are not JSON exports.
var ErrUnsupportedFile = errors.New("unsupported log file")

// Output files written next to the logs by earlier runs. They are JSON too
// and must not be read back as fights.
var skippedPrefixes = []string{"Drag_and_Drop_", "TW5_top_stats_"}

var supportedExtensions = []string{".json", ".gz", ".lz4"}

// Parser reads Elite Insights exports into core.Log values.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
	schema *gojsonschema.Schema
}

// NewParser creates a parser. When validate is true every input is checked
// against the export schema before decoding.
func NewParser(logger *slog.Logger, validate bool) (*Parser, error) {
	p := &Parser{logger: logger}
	if validate {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(logSchema))
		if err != nil {
			return nil, fmt.Errorf("error compiling log schema: %w", err)
		}
		p.schema = schema
	}
	return p, nil
}

// ParseFile reads, decompresses and decodes one log file.
func (p *Parser) ParseFile(path string) (*core.Log, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFile)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	r, err := decompress(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	l, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.logger.Debug("parsed log", "file", filepath.Base(path), "players", len(l.Players), "targets", len(l.Targets))
	return l, nil
}

// Parse validates and decodes one uncompressed export.
func (p *Parser) Parse(data []byte) (*core.Log, error) {
	if p.schema != nil {
		res, err := p.schema.Validate(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("error unmarshalling log: %w", err)
		}
		if !res.Valid() {
			msgs := make([]string, 0, len(res.Errors()))
			for _, e := range res.Errors() {
				msgs = append(msgs, e.String())
			}
			return nil, fmt.Errorf("log does not match export schema: %s", strings.Join(msgs, "; "))
		}
	}

	var l core.Log
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("error unmarshalling log: %w", err)
	}
	return &l, nil
}

// decompress sniffs the stream and unwraps gzip or lz4 frames.
func decompress(r *bufio.Reader) (io.Reader, error) {
	magic, err := r.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(magic, []byte{0x1f, 0x8b}):
		return gzip.NewReader(r)
	case bytes.HasPrefix(magic, []byte{0x04, 0x22, 0x4d, 0x18}):
		return lz4.NewReader(r), nil
	default:
		return r, nil
	}
}

// Supported reports whether path looks like a log export.
func Supported(path string) bool {
	base := filepath.Base(path)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(base, prefix) {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range supportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DiscoverLogs lists the supported files of dir in file name order.
func DiscoverLogs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading input directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// DetermineLogType classifies a fight by its name. WvW fights are named
// "Detailed WvW - <map>" or "World vs World - <map>" and return the map
// part as name.
func DetermineLogType(fightName string) (string, string) {
	if !strings.Contains(fightName, "Detailed WvW") && !strings.Contains(fightName, "World vs World") {
		return core.LogTypePvE, fightName
	}
	if _, name, ok := strings.Cut(fightName, " - "); ok {
		if before, _, found := strings.Cut(name, " - "); found {
			name = before
		}
		return core.LogTypeWvW, name
	}
	return core.LogTypeWvW, fightName
}
