//go:build !minimal

package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxMainPart = "word/document.xml"
	// maxDocxPartSize bounds how much decompressed XML is read from one part.
	maxDocxPartSize = 256 << 20
)

var errNoDocumentPart = errors.New("word/document.xml not found")

// extractDocx walks word/document.xml in document order. Text runs are
// concatenated, tabs and breaks become spaces and every paragraph and table
// cell is followed by a separating space.
func extractDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != docxMainPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", docxMainPart, err)
		}
		defer rc.Close()
		return parseDocumentXML(io.LimitReader(rc, maxDocxPartSize))
	}
	return "", errNoDocumentPart
}

func parseDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var b strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", docxMainPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab", "br", "cr":
				b.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "tc":
				b.WriteByte(' ')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}
