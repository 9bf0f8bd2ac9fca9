package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadCSV loads a delimited text export as a single-sheet workbook.
//
// The byte order mark is skipped. Input that is not valid UTF-8 is decoded
// as Windows-1251, the usual encoding of Russian broker exports. The field
// delimiter is guessed from the first line (';', ',' or tab).
func ReadCSV(name string, data []byte) (*Workbook, error) {
	var dec encoding.Encoding = unicode.UTF8
	if !utf8.Valid(trimBOM(data)) {
		dec = charmap.Windows1251
	}
	r := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(dec.NewDecoder()))

	br := bufio.NewReader(r)
	head, err := br.Peek(br.Size())
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var grid [][]Cell
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		cells := make([]Cell, len(rec))
		for i, v := range rec {
			cells[i] = TextCell(cleanCSVCell(v))
		}
		grid = append(grid, cells)
	}

	return NewWorkbook(name, New(sheetNameFor(name), grid)), nil
}

func trimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// sniffDelimiter picks the separator that occurs most often on the first line.
func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{';', '\t', ','} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// cleanCSVCell strips spreadsheet text-forcing wrappers such as ="00123".
func cleanCSVCell(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, `="`) && strings.HasSuffix(v, `"`) && len(v) >= 3 {
		v = v[2 : len(v)-1]
	}
	return v
}

func sheetNameFor(file string) string {
	base := file
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		return "Sheet1"
	}
	return base
}
