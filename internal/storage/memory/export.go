package memory

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/pkg/core"
	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"
)

// Output formats and compressions.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"

	CompressionGzip = "gzip"
	CompressionLZ4  = "lz4"
)

// File name prefixes. Log discovery skips both.
const (
	exportPrefix  = "TW5_top_stats_"
	summaryPrefix = "Drag_and_Drop_Log_Summary_for_"
)

// Export is the root document of the aggregate export
type Export struct {
	Run         *core.Run `json:"run"`
	GeneratedAt time.Time `json:"generatedAt"`
	RowCount    int       `json:"rowCount"`
	*engine.Result
}

// FightList is the root document of the fight summary file
type FightList struct {
	Run    *core.Run           `json:"run"`
	Fights []core.FightSummary `json:"fights"`
}

func (b *Backend) stamp() string {
	t := b.run.StartedAt
	if t.IsZero() {
		t = b.now()
	}
	return t.Format("20060102_150405")
}

// exportName builds the aggregate export file name for the configured
// format and compression
func (b *Backend) exportName(stamp string) string {
	ext := ".json"
	if b.cfg.Format == FormatYAML {
		ext = ".yaml"
	}
	if b.cfg.CompressOutput {
		switch b.cfg.Compression {
		case CompressionLZ4:
			ext += ".lz4"
		default:
			ext += ".gz"
		}
	}
	return exportPrefix + stamp + ext
}

func (b *Backend) export(res *engine.Result) error {
	if err := os.MkdirAll(b.outputDir(), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	stamp := b.stamp()

	summaryPath := filepath.Join(b.outputDir(), summaryPrefix+stamp+".json")
	if err := writeFile(summaryPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(FightList{Run: b.run, Fights: b.fights})
	}); err != nil {
		return err
	}

	exportPath := filepath.Join(b.outputDir(), b.exportName(stamp))
	doc := Export{
		Run:         b.run,
		GeneratedAt: b.now().UTC(),
		RowCount:    b.rows,
		Result:      res,
	}
	if err := writeFile(exportPath, func(w io.Writer) error {
		cw, err := b.compress(w)
		if err != nil {
			return err
		}
		if err := b.encode(cw, doc); err != nil {
			cw.Close()
			return err
		}
		return cw.Close()
	}); err != nil {
		return err
	}

	b.exported = []string{summaryPath, exportPath}
	return nil
}

func (b *Backend) outputDir() string {
	if b.cfg.OutputDir != "" {
		return b.cfg.OutputDir
	}
	if b.run != nil && b.run.InputDir != "" {
		return b.run.InputDir
	}
	return "."
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func (b *Backend) compress(w io.Writer) (io.WriteCloser, error) {
	if !b.cfg.CompressOutput {
		return nopCloser{w}, nil
	}
	switch b.cfg.Compression {
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionGzip, "":
		return gzip.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown compression: %s", b.cfg.Compression)
	}
}

func (b *Backend) encode(w io.Writer, doc Export) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if b.cfg.Format != FormatYAML {
		if b.cfg.CompressOutput {
			_, err = w.Write(data)
			return err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "    "); err != nil {
			return err
		}
		_, err = out.WriteTo(w)
		return err
	}

	// YAML goes through the JSON tree so field names match the JSON export
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("failed to encode yaml export: %w", err)
	}
	return enc.Close()
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
