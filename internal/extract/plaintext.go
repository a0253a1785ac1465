package extract

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// extractPlainText reads the whole file as text. A UTF-8 or UTF-16 byte order
// mark selects the decoding; without one the content is read as UTF-8 and
// invalid sequences are replaced with U+FFFD.
func extractPlainText(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- path points into the blob store
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	content, err := io.ReadAll(transform.NewReader(f, decoder))
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return string(content), nil
}
