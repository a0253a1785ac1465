package extract

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-document-repository/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
		{"collapses whitespace", "Hello   \n\tWorld", "hello world"},
		{"trims", "  Quarterly Report.  ", "quarterly report."},
		{"keeps allowed punctuation", "Wait, what?! Yes; no: maybe.", "wait, what?! yes; no: maybe."},
		{"removes other symbols", "Price: $100 (approx) - final #2", "price: 100 approx final 2"},
		{"removes in-word symbols", "e-mail re@ch", "email rech"},
		{"keeps non-latin scripts", "Relatório ÜBER Ελληνικά 日本語", "relatório über ελληνικά 日本語"},
		{"keeps unicode digits", "٣ items", "٣ items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"  Mixed CASE\ttext -- with [brackets] and {braces} ",
		"Line one.\r\nLine two!\r\n\r\n",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0600))
	return path
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types/>`))
	require.NoError(t, err)
	w, err = zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Annual</w:t></w:r><w:r><w:t xml:space="preserve"> Budget</w:t></w:r></w:p>
    <w:p><w:r><w:t>Revenue</w:t><w:tab/><w:t>Costs</w:t></w:r></w:p>
    <w:tbl><w:tr>
      <w:tc><w:p><w:r><w:t>Cell</w:t></w:r></w:p></w:tc>
      <w:tc><w:p><w:r><w:t>Value</w:t></w:r></w:p></w:tc>
    </w:tr></w:tbl>
    <w:p><w:r><w:instrText>PAGE</w:instrText><w:t>End</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestFullExtractor_Docx(t *testing.T) {
	if !RichFormatsAvailable() {
		t.Skip("built without rich format parsers")
	}
	path := writeFile(t, "report.docx", buildDocx(t, sampleDocumentXML))

	ext := NewFull(nil)
	require.True(t, ext.Supports(model.FormatModernDoc))

	assert.Equal(t, "annual budget revenue costs cell value end", ext.Extract(path, model.FormatModernDoc))
}

func TestFullExtractor_PlainText(t *testing.T) {
	t.Run("utf-8", func(t *testing.T) {
		path := writeFile(t, "notes.txt", []byte("Meeting NOTES:\n\n  agenda, actions!"))
		assert.Equal(t, "meeting notes: agenda, actions!", NewFull(nil).Extract(path, model.FormatPlainText))
	})

	t.Run("utf-16 with bom", func(t *testing.T) {
		content := []byte{0xFF, 0xFE}
		for _, r := range "Grüße" {
			content = binary.LittleEndian.AppendUint16(content, uint16(r))
		}
		path := writeFile(t, "utf16.txt", content)
		assert.Equal(t, "grüße", NewFull(nil).Extract(path, model.FormatPlainText))
	})

	t.Run("invalid utf-8 is replaced", func(t *testing.T) {
		path := writeFile(t, "bad.txt", []byte("abc\xffdef"))
		assert.Equal(t, "abcdef", NewFull(nil).Extract(path, model.FormatPlainText))
	})
}

func TestExtract_FailuresYieldEmptyText(t *testing.T) {
	ext := NewFull(nil)
	dir := t.TempDir()

	tests := []struct {
		name   string
		path   string
		format model.Format
	}{
		{"missing file", filepath.Join(dir, "missing.txt"), model.FormatPlainText},
		{"corrupt docx", writeFile(t, "broken.docx", []byte("not a zip")), model.FormatModernDoc},
		{"docx without body", writeFile(t, "empty.docx", buildEmptyZip(t)), model.FormatModernDoc},
		{"malformed docx xml", writeFile(t, "bad.docx", buildDocx(t, "<w:document><w:body>")), model.FormatModernDoc},
		{"corrupt pdf", writeFile(t, "broken.pdf", []byte("%PDF-1.4 garbage")), model.FormatPDF},
		{"corrupt doc", writeFile(t, "broken.doc", []byte("definitely not OLE")), model.FormatLegacyDoc},
		{"unsupported format", writeFile(t, "image.png", []byte{0x89, 'P', 'N', 'G'}), model.Format("png")},
		{"empty format", writeFile(t, "archive.zip", []byte("PK")), model.Format("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, "", ext.Extract(tt.path, tt.format))
			})
		})
	}
}

func buildEmptyZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("docProps/core.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_RecoversFromPanic(t *testing.T) {
	ext := &FullExtractor{registry{
		name: "test",
		handlers: map[model.Format]handler{
			model.FormatPDF: func(string) (string, error) { panic("boom") },
		},
		logger: NewFull(nil).logger,
	}}

	assert.Equal(t, "", ext.Extract("whatever.pdf", model.FormatPDF))
}

func TestMinimalExtractor(t *testing.T) {
	ext := NewMinimal(nil)
	assert.Equal(t, ModeMinimal, ext.Name())

	docx := writeFile(t, "report.docx", buildDocx(t, sampleDocumentXML))
	txt := writeFile(t, "report.txt", []byte("Plain Text"))

	for _, format := range []model.Format{model.FormatPDF, model.FormatLegacyDoc, model.FormatModernDoc} {
		assert.False(t, ext.Supports(format), format)
		assert.Equal(t, "", ext.Extract(docx, format), format)
	}
	assert.True(t, ext.Supports(model.FormatPlainText))
	assert.Equal(t, "plain text", ext.Extract(txt, model.FormatPlainText))
}

func TestNew(t *testing.T) {
	ext, err := New(ModeMinimal, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeMinimal, ext.Name())

	if !RichFormatsAvailable() {
		_, err = New(ModeFull, nil)
		assert.Error(t, err)
		return
	}

	ext, err = New(ModeAuto, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeFull, ext.Name())

	ext, err = New(ModeFull, nil)
	require.NoError(t, err)
	for _, format := range model.Formats {
		assert.True(t, ext.Supports(format), format)
	}

	_, err = New("ocr", nil)
	assert.Error(t, err)
}
