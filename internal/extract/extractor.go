// Package extract turns stored document files into normalized comparable text.
//
// Two implementations share the same fail-open contract: FullExtractor handles
// PDF, legacy .doc, .docx and plain text; MinimalExtractor handles plain text
// only. Extraction never returns an error; failures are logged and yield "".
package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/gcbaptista/go-document-repository/model"
	"github.com/gcbaptista/go-document-repository/services"
)

// Extractor modes accepted by New.
const (
	ModeAuto    = "auto"
	ModeFull    = "full"
	ModeMinimal = "minimal"
)

// Ensure both implementations satisfy the port.
var (
	_ services.TextExtractor = (*FullExtractor)(nil)
	_ services.TextExtractor = (*MinimalExtractor)(nil)
)

// handler returns the raw, un-normalized text of the file at path.
type handler func(path string) (string, error)

// registry dispatches extraction to per-format handlers and enforces the
// never-fail contract around them.
type registry struct {
	name     string
	handlers map[model.Format]handler
	logger   *slog.Logger
}

func (r *registry) Name() string { return r.name }

func (r *registry) Supports(format model.Format) bool {
	_, ok := r.handlers[format]
	return ok
}

// Extract runs the handler registered for format and normalizes the result.
func (r *registry) Extract(path string, format model.Format) (text string) {
	h, ok := r.handlers[format]
	if !ok {
		return ""
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("text extraction panicked",
				"extractor", r.name, "format", format, "path", path, "panic", fmt.Sprint(rec))
			text = ""
		}
	}()

	raw, err := h(path)
	if err != nil {
		r.logger.Warn("text extraction failed",
			"extractor", r.name, "format", format, "path", path, "error", err)
		return ""
	}
	return Normalize(raw)
}

// FullExtractor supports every format whose parser is linked into the binary.
type FullExtractor struct {
	registry
}

// NewFull creates an extractor for all linked formats.
func NewFull(logger *slog.Logger) *FullExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	handlers := map[model.Format]handler{
		model.FormatPlainText: extractPlainText,
	}
	for format, h := range richHandlers() {
		handlers[format] = h
	}
	return &FullExtractor{registry{name: ModeFull, handlers: handlers, logger: logger}}
}

// MinimalExtractor only reads plain text; every other format yields "".
type MinimalExtractor struct {
	registry
}

// NewMinimal creates the plain-text-only extractor.
func NewMinimal(logger *slog.Logger) *MinimalExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &MinimalExtractor{registry{
		name:     ModeMinimal,
		handlers: map[model.Format]handler{model.FormatPlainText: extractPlainText},
		logger:   logger,
	}}
}

// RichFormatsAvailable reports whether the PDF and word-processor parsers are
// compiled in. Builds tagged "minimal" leave them out.
func RichFormatsAvailable() bool {
	return len(richHandlers()) > 0
}

// New selects an implementation for the configured mode.
func New(mode string, logger *slog.Logger) (services.TextExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var ext services.TextExtractor
	switch mode {
	case ModeFull:
		if !RichFormatsAvailable() {
			return nil, fmt.Errorf("extractor mode %q requested but rich format parsers are not linked into this build", mode)
		}
		ext = NewFull(logger)
	case ModeMinimal:
		ext = NewMinimal(logger)
	case ModeAuto, "":
		if RichFormatsAvailable() {
			ext = NewFull(logger)
		} else {
			ext = NewMinimal(logger)
		}
	default:
		return nil, fmt.Errorf("unknown extractor mode %q", mode)
	}

	logger.Info("text extractor selected", "mode", mode, "extractor", ext.Name())
	return ext, nil
}

// Normalize converts raw extracted text into the canonical comparable form:
// only letters, digits, whitespace and . , ! ? ; : are kept, whitespace runs
// collapse to a single space, and the result is lowercased and trimmed.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	pendingSpace := false
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case unicode.IsLetter(r) || unicode.IsNumber(r) || isKeptPunctuation(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func isKeptPunctuation(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':':
		return true
	}
	return false
}
