//go:build !minimal

package extract

import "github.com/gcbaptista/go-document-repository/model"

// richHandlers returns the parsers for the binary document formats.
func richHandlers() map[model.Format]handler {
	return map[model.Format]handler{
		model.FormatPDF:       extractPDF,
		model.FormatLegacyDoc: extractLegacyDoc,
		model.FormatModernDoc: extractDocx,
	}
}
