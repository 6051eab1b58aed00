package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFSink ships JSON records to a Graylog UDP input at addr.
func NewGELFSink(addr, level string) (Sink, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return Sink{}, fmt.Errorf("error connecting to graylog at %s: %w", addr, err)
	}
	w.Facility = "topstats"
	return Sink{
		Handler: slog.NewJSONHandler(w, handlerOptions(parseLevel(level))),
		Closer:  w,
	}, nil
}
