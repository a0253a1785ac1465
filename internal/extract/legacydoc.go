//go:build !minimal

package extract

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Word 97-2003 binary layout offsets (File Information Block).
const (
	fibMagic          = 0xA5EC
	fibFlagsOffset    = 0x000A
	fibWhichTblStm    = 0x0200
	fibFcClxOffset    = 0x01A2
	fibLcbClxOffset   = 0x01A6
	fibMinLength      = 0x01AA
	pcdSize           = 8
	pieceCompressedFc = 0x40000000
)

// Word control characters.
const (
	fieldBegin     = 0x13
	fieldSeparator = 0x14
	fieldEnd       = 0x15
)

var (
	errNotWordDocument = errors.New("not a Word 97-2003 document")
	errCorruptPieces   = errors.New("corrupt piece table")
)

// extractLegacyDoc reads the text of a .doc file by walking its piece table.
func extractLegacyDoc(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- path points into the blob store
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	doc, err := mscfb.New(f)
	if err != nil {
		return "", fmt.Errorf("open compound file: %w", err)
	}

	streams := make(map[string][]byte, 3)
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if len(entry.Path) != 0 {
			continue // embedded objects carry their own streams
		}
		switch entry.Name {
		case "WordDocument", "0Table", "1Table":
			data, err := io.ReadAll(entry)
			if err != nil {
				return "", fmt.Errorf("read %s stream: %w", entry.Name, err)
			}
			streams[entry.Name] = data
		}
	}

	wordDocument, ok := streams["WordDocument"]
	if !ok {
		return "", errNotWordDocument
	}
	return parseWordDocument(wordDocument, streams["0Table"], streams["1Table"])
}

// parseWordDocument decodes every text piece referenced by the CLX in order.
func parseWordDocument(wordDocument, table0, table1 []byte) (string, error) {
	if len(wordDocument) < fibMinLength || binary.LittleEndian.Uint16(wordDocument) != fibMagic {
		return "", errNotWordDocument
	}

	table := table0
	if binary.LittleEndian.Uint16(wordDocument[fibFlagsOffset:])&fibWhichTblStm != 0 {
		table = table1
	}

	fcClx := int(binary.LittleEndian.Uint32(wordDocument[fibFcClxOffset:]))
	lcbClx := int(binary.LittleEndian.Uint32(wordDocument[fibLcbClxOffset:]))
	if lcbClx == 0 || fcClx < 0 || lcbClx < 0 || fcClx+lcbClx > len(table) {
		return "", fmt.Errorf("%w: clx out of range", errCorruptPieces)
	}

	plcPcd, err := pieceDescriptors(table[fcClx : fcClx+lcbClx])
	if err != nil {
		return "", err
	}

	n := (len(plcPcd) - 4) / (4 + pcdSize)
	if n <= 0 {
		return "", nil
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		cpStart := binary.LittleEndian.Uint32(plcPcd[4*i:])
		cpEnd := binary.LittleEndian.Uint32(plcPcd[4*(i+1):])
		if cpEnd < cpStart {
			return "", fmt.Errorf("%w: piece %d ends before it starts", errCorruptPieces, i)
		}
		chars := int(cpEnd - cpStart)

		pcd := plcPcd[4*(n+1)+i*pcdSize:]
		fc := binary.LittleEndian.Uint32(pcd[2:])

		text, err := decodePiece(wordDocument, fc, chars)
		if err != nil {
			return "", fmt.Errorf("piece %d: %w", i, err)
		}
		b.WriteString(text)
	}

	return stripControlCharacters(b.String()), nil
}

// pieceDescriptors skips the Prc entries of a CLX and returns the PlcPcd.
func pieceDescriptors(clx []byte) ([]byte, error) {
	pos := 0
	for pos < len(clx) && clx[pos] == 0x01 {
		if pos+3 > len(clx) {
			return nil, fmt.Errorf("%w: truncated prc", errCorruptPieces)
		}
		size := int(int16(binary.LittleEndian.Uint16(clx[pos+1:])))
		if size < 0 {
			return nil, fmt.Errorf("%w: negative prc size", errCorruptPieces)
		}
		pos += 3 + size
	}

	if pos+5 > len(clx) || clx[pos] != 0x02 {
		return nil, fmt.Errorf("%w: missing pcdt", errCorruptPieces)
	}
	lcb := int(binary.LittleEndian.Uint32(clx[pos+1:]))
	start := pos + 5
	if lcb < 4 || start+lcb > len(clx) || (lcb-4)%(4+pcdSize) != 0 {
		return nil, fmt.Errorf("%w: bad plcpcd length %d", errCorruptPieces, lcb)
	}
	return clx[start : start+lcb], nil
}

// decodePiece reads chars characters at fc. Compressed pieces hold one
// Windows-1252 byte per character, the others UTF-16LE code units.
func decodePiece(wordDocument []byte, fc uint32, chars int) (string, error) {
	if fc&pieceCompressedFc != 0 {
		offset := int((fc &^ pieceCompressedFc) / 2)
		if offset+chars > len(wordDocument) {
			return "", errCorruptPieces
		}
		out, err := charmap.Windows1252.NewDecoder().Bytes(wordDocument[offset : offset+chars])
		if err != nil {
			return "", err
		}
		return string(out), nil
	}

	offset := int(fc)
	if offset+2*chars > len(wordDocument) {
		return "", errCorruptPieces
	}
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	out, err := utf16.NewDecoder().Bytes(wordDocument[offset : offset+2*chars])
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// stripControlCharacters drops field instructions and turns Word's control
// marks (paragraph, cell, page break) into spaces.
func stripControlCharacters(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	// One entry per open field; true while still in its instruction part.
	var fields []bool
	for _, r := range text {
		switch {
		case r == fieldBegin:
			fields = append(fields, true)
			continue
		case r == fieldSeparator:
			if len(fields) > 0 {
				fields[len(fields)-1] = false
			}
			continue
		case r == fieldEnd:
			if len(fields) > 0 {
				fields = fields[:len(fields)-1]
			}
			b.WriteByte(' ')
			continue
		}

		if len(fields) > 0 && fields[len(fields)-1] {
			continue
		}
		if r < 0x20 {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
