// Package output renders run summaries and reports for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/rohankatakam/aicodebase/internal/pipeline"
)

// Formatter writes a run summary.
type Formatter interface {
	Format(s *pipeline.Summary, w io.Writer) error
}

// Options tune text output.
type Options struct {
	Decorate bool // emoji markers, only for interactive terminals
	Warnings bool // list diagnostics after the summary
}

// NewFormatter returns the JSON formatter for "json" and the text one otherwise.
func NewFormatter(format string, opts Options) Formatter {
	if strings.EqualFold(format, "json") {
		return &JSONFormatter{}
	}
	return &TextFormatter{opts: opts}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// TextFormatter prints a human readable summary.
type TextFormatter struct {
	opts Options
}

// Format implements Formatter.
func (f *TextFormatter) Format(s *pipeline.Summary, w io.Writer) error {
	p := &printer{w: w, decorate: f.opts.Decorate}

	p.linef("🚀 ", "aicodebase build (run %s)", shortID(s.RunID))
	for _, g := range s.Groups {
		p.linef("📦 ", "Group %s: %d projects, %d libraries", g.Group, g.Projects, g.Libraries)
		p.linef("", "  rebuilt %d, skipped %d, not found %d, failed %d", g.Rebuilt, g.Skipped, g.NotFound, g.Failed)
		p.linef("", "  linked %d, copied %d, reused %d, removed %d", g.Linked, g.Copied, g.Reused, g.Removed)
		p.linef("", "  took %s", roundDuration(g.Duration))
	}
	if len(s.Groups) == 0 {
		p.linef("⚠️  ", "No group processed")
	} else {
		p.linef("✅ ", "Done in %s", roundDuration(s.Duration))
	}

	if f.opts.Warnings && len(s.Diagnostics) > 0 {
		p.linef("", "")
		p.linef("⚠️  ", "Warnings (%d):", len(s.Diagnostics))
		for _, d := range s.Diagnostics {
			p.linef("", " - %s", d)
		}
	}
	return p.err
}

// JSONFormatter prints the summary as indented JSON.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(s *pipeline.Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// printer writes lines and keeps the first error.
type printer struct {
	w        io.Writer
	decorate bool
	err      error
}

func (p *printer) linef(marker, format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	if !p.decorate {
		marker = ""
	}
	_, p.err = fmt.Fprintf(p.w, marker+format+"\n", args...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func roundDuration(d time.Duration) time.Duration {
	if d > time.Second {
		return d.Round(10 * time.Millisecond)
	}
	return d.Round(time.Millisecond)
}
