package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEmptyDocument is returned when the input has no bytes at all.
var ErrEmptyDocument = errors.New("empty document")

var (
	zipMagic = []byte("PK\x03\x04")
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Format identifies a supported container format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

// Sniff detects the container format from the leading bytes.
// Anything that is neither a zip package nor a compound document is csv.
func Sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, cfbMagic):
		return FormatXLS
	default:
		return FormatCSV
	}
}

// Open parses an in-memory document. The name is only used for messages and
// for naming the sheet of a csv file.
func Open(name string, data []byte) (*Workbook, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	var (
		wb  *Workbook
		err error
	)
	switch Sniff(data) {
	case FormatXLSX:
		wb, err = ReadXLSX(bytes.NewReader(data))
	case FormatXLS:
		wb, err = ReadXLS(bytes.NewReader(data))
	default:
		wb, err = ReadCSV(name, data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	wb.Name = name
	return wb, nil
}

// OpenFile reads and parses a document from disk.
func OpenFile(path string) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(filepath.Base(path), data)
}
