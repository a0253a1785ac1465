package model

import (
	"path/filepath"
	"strings"
)

// Format identifies a file type that text can be extracted from.
// The empty Format means the file takes no part in version detection.
type Format string

const (
	FormatPDF       Format = "pdf"
	FormatLegacyDoc Format = "doc"
	FormatModernDoc Format = "docx"
	FormatPlainText Format = "txt"
)

// Formats lists every extractable format.
var Formats = []Format{FormatPDF, FormatLegacyDoc, FormatModernDoc, FormatPlainText}

// FormatFromFilename maps a file extension (case-insensitive) to its Format.
// Unknown extensions yield the empty Format.
func FormatFromFilename(name string) Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, f := range Formats {
		if ext == string(f) {
			return f
		}
	}
	return ""
}
