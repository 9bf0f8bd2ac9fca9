package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides adjusts registered layouts without a rebuild, for brokers that
// reword a header or a section title between statement versions.
//
//	formats:
//	  psb:
//	    tables:
//	      derivative_expirations:
//	        start: "Исполнение фьючерсов и опционов"
//	        columns:
//	          CONTRACT:
//	            - ["код", "контракта"]
//
// Column phrases are appended after the built-in candidates, so they only
// apply when none of those match.
type Overrides struct {
	Formats map[string]FormatOverride `yaml:"formats"`
}

type FormatOverride struct {
	PortfolioMarker string                   `yaml:"portfolio_marker"`
	Tables          map[string]TableOverride `yaml:"tables"`
}

type TableOverride struct {
	Start      *string               `yaml:"start"`
	End        *string               `yaml:"end"`
	HeaderRows *int                  `yaml:"header_rows"`
	Columns    map[string][][]string `yaml:"columns"`
}

// LoadOverrides reads an overrides file.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes overrides YAML. Unknown keys are rejected.
func ParseOverrides(data []byte) (Overrides, error) {
	var ov Overrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil && !errors.Is(err, io.EOF) {
		return Overrides{}, fmt.Errorf("parse overrides: %w", err)
	}
	return ov, nil
}

// ApplyOverrides changes registered formats in place. It must run before
// any statement is parsed. Every referenced format, table and column must
// exist; nothing is changed when one does not.
func ApplyOverrides(ov Overrides) error {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	type change func()
	var changes []change

	for key, fo := range ov.Formats {
		f, ok := formats[key]
		if !ok {
			return fmt.Errorf("overrides: %w: %s", ErrUnknownFormat, key)
		}
		if fo.PortfolioMarker != "" {
			marker := fo.PortfolioMarker
			changes = append(changes, func() { f.PortfolioMarker = marker })
		}

		for name, to := range fo.Tables {
			l := layoutByName(f, name)
			if l == nil {
				return fmt.Errorf("overrides: format %s has no table %q", key, name)
			}
			for colID, phrases := range to.Columns {
				idx := columnIndex(l, ColumnID(colID))
				if idx < 0 {
					return fmt.Errorf("overrides: table %q has no column %s", name, colID)
				}
				for _, p := range phrases {
					if len(p) == 0 {
						return fmt.Errorf("overrides: table %q column %s: empty phrase", name, colID)
					}
					phrase := Phrase(p)
					changes = append(changes, func() { l.Columns[idx] = l.Columns[idx].Or(phrase...) })
				}
			}
			if to.Start != nil {
				v := *to.Start
				changes = append(changes, func() { l.Start = v })
			}
			if to.End != nil {
				v := *to.End
				changes = append(changes, func() { l.End = v })
			}
			if to.HeaderRows != nil {
				if *to.HeaderRows < 1 {
					return fmt.Errorf("overrides: table %q: header_rows must be positive", name)
				}
				v := *to.HeaderRows
				changes = append(changes, func() { l.HeaderRows = v })
			}
		}
	}

	for _, c := range changes {
		c()
	}
	return nil
}

func layoutByName(f *Format, name string) *Layout {
	for _, l := range f.Layouts {
		if l.Name == name {
			return l
		}
	}
	return nil
}

func columnIndex(l *Layout, id ColumnID) int {
	for i, c := range l.Columns {
		if c.ID == id {
			return i
		}
	}
	return -1
}
