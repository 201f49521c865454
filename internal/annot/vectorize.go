package annot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bsmlab/annotmerge/internal/table"
)

// DefaultNoneToken marks the absence of any token in a set-valued cell.
const DefaultNoneToken = "None"

// VectorizeSpec names one set-valued column to expand and its
// none-sentinel token.
type VectorizeSpec struct {
	Column string
	None   string // DefaultNoneToken when empty
}

// Vectorize expands one colon-delimited set-valued column into boolean
// indicator columns, modifying t in place; call it on a copy (or use
// VectorizeMultiple). One column is added per distinct token observed in
// the column, except the none token, iterated in lexicographic order.
//
// Indicator columns are named by their bare token unless a token
// collides with an existing column name, in which case every indicator
// of this invocation is namespaced as "<column>_<token>". The new
// columns are inserted immediately before the original column, which is
// retained unchanged.
func Vectorize(t *table.Table, column, noneToken string) error {
	if noneToken == "" {
		noneToken = DefaultNoneToken
	}
	j := t.ColumnIndexFlat(column)
	if j == -1 {
		return fmt.Errorf("cannot vectorize %q: no such column", column)
	}

	// token lists per row, in row order
	sets := make([][]string, t.NumRows())
	seen := make(map[string]struct{})
	for i := 0; i < t.NumRows(); i++ {
		cell := t.Cell(i, j)
		if cell.IsMissing() {
			continue
		}
		if !cell.IsText() {
			return &SchemaError{Column: column, Value: cell.String()}
		}
		tokens := strings.Split(cell.Text(), ":")
		sets[i] = tokens
		for _, tok := range tokens {
			seen[tok] = struct{}{}
		}
	}
	delete(seen, noneToken)

	// The dedup set has no defined order; impose one.
	tokens := make([]string, 0, len(seen))
	for tok := range seen {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	prefix := ""
	for _, tok := range tokens {
		if t.ColumnIndexFlat(tok) != -1 {
			prefix = column + "_"
			break
		}
	}

	at := j
	for _, tok := range tokens {
		t.InsertColumn(at, table.Column{
			Label: table.Label{Name: prefix + tok},
			Kind:  table.Bool,
		})
		for i := 0; i < t.NumRows(); i++ {
			t.SetCell(i, at, table.BoolCell(contains(sets[i], tok)))
		}
		at++
	}
	return nil
}

// VectorizeMultiple applies Vectorize for each spec in order on a single
// copy of t, so a token of a later column that collides with an
// indicator added by an earlier one is namespaced too.
func VectorizeMultiple(t *table.Table, specs []VectorizeSpec) (*table.Table, error) {
	out := t.Copy()
	for _, s := range specs {
		if err := Vectorize(out, s.Column, s.None); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func contains(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}
