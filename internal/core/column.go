package core

import (
	"fmt"
	"strings"
)

// ColumnID is the logical name of a table column, e.g. "DIRECTION".
type ColumnID string

// ColumnType is the type a column's cells are coerced into.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInt
	TypeInt64
	TypeDecimal
	TypeCurrency
	TypeTimestamp
)

func (t ColumnType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInt:
		return "integer"
	case TypeInt64:
		return "long integer"
	case TypeDecimal:
		return "decimal"
	case TypeCurrency:
		return "currency"
	case TypeTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Phrase is one acceptable header wording: every word must appear in the
// header text, in this order.
type Phrase []string

func (p Phrase) String() string {
	return strings.Join(p, " ")
}

// Column declares one logical column and the header phrases that identify it.
// Candidates are tried in order; the first that matches anywhere wins.
type Column struct {
	ID         ColumnID
	Type       ColumnType
	Required   bool
	Candidates []Phrase
	// DeferErrors reports coercion failures through Row.Err instead of
	// aborting the table, for columns a mapper reads only for some rows.
	DeferErrors bool
}

// Col declares a required column identified by a single phrase.
func Col(id ColumnID, typ ColumnType, words ...string) Column {
	return Column{
		ID:         id,
		Type:       typ,
		Required:   true,
		Candidates: []Phrase{words},
	}
}

// Or adds a lower-priority alternative phrase.
func (c Column) Or(words ...string) Column {
	cands := make([]Phrase, len(c.Candidates), len(c.Candidates)+1)
	copy(cands, c.Candidates)
	c.Candidates = append(cands, words)
	return c
}

// Optional marks the column optional: when no header matches, every row
// reads an empty value for it instead of the table failing.
func (c Column) Optional() Column {
	c.Required = false
	return c
}

// Lenient defers coercion failures of this column to the mapper.
func (c Column) Lenient() Column {
	c.DeferErrors = true
	return c
}

// validateColumns checks a table's descriptors for configuration mistakes.
func validateColumns(table string, cols []Column) error {
	if len(cols) == 0 {
		return fmt.Errorf("table %q: no columns declared", table)
	}

	seen := make(map[ColumnID]bool, len(cols))
	for _, c := range cols {
		if c.ID == "" {
			return fmt.Errorf("table %q: column with empty id", table)
		}
		if seen[c.ID] {
			return fmt.Errorf("table %q: duplicate column %s", table, c.ID)
		}
		seen[c.ID] = true

		if len(c.Candidates) == 0 {
			return fmt.Errorf("table %q: column %s has no header phrases", table, c.ID)
		}
		for _, p := range c.Candidates {
			if len(p) == 0 {
				return fmt.Errorf("table %q: column %s has an empty phrase", table, c.ID)
			}
			for _, w := range p {
				if normalize(w) == "" {
					return fmt.Errorf("table %q: column %s has a blank word", table, c.ID)
				}
			}
		}
	}
	return nil
}
