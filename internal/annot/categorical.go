package annot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bsmlab/annotmerge/internal/table"
)

// DefaultFallback is the category assigned to cells that are missing
// after regularization.
const DefaultFallback = "other"

// CategorySpec maps flattened column names to their ordered category
// lists, highest priority first. The regularizer never mutates a spec.
type CategorySpec map[string][]string

// SchemaError reports a cell that the categorical policy cannot handle:
// a non-missing value that is not text. This is a caller-configuration
// error, so the whole regularization call aborts.
type SchemaError struct {
	Column string
	Value  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("column %q: expected text or missing, found %q", e.Column, e.Value)
}

// RegularizeCategories collapses multi-valued categorical cells to
// scalars under the spec's priority order. Each listed column gets the
// fallback label appended as its lowest-priority category; a cell that
// holds a colon-separated token list becomes the highest-priority
// category occurring among its tokens.
//
// A non-missing cell matching no listed category keeps its raw value
// verbatim rather than the fallback; only cells that are truly missing
// are filled with the fallback.
//
// The column becomes an ordered category column over the extended
// category list. RegularizeCategories returns a new table and mutates
// neither the input table nor the spec.
func RegularizeCategories(spec CategorySpec, annot *table.Table, fallback string) (*table.Table, error) {
	if fallback == "" {
		fallback = DefaultFallback
	}

	names := make([]string, 0, len(spec))
	for name := range spec {
		names = append(names, name)
	}
	sort.Strings(names)

	val := annot.Copy()
	for _, name := range names {
		j := val.ColumnIndexFlat(name)
		if j == -1 {
			return nil, fmt.Errorf("cannot regularize %q: no such column", name)
		}
		categories := append(append([]string(nil), spec[name]...), fallback)

		for i := 0; i < val.NumRows(); i++ {
			cell := val.Cell(i, j)
			if cell.IsMissing() {
				val.SetCell(i, j, table.TextCell(fallback))
				continue
			}
			if !cell.IsText() {
				return nil, &SchemaError{Column: name, Value: cell.String()}
			}
			tokens := strings.Split(cell.Text(), ":")
			if cat, ok := firstCategory(categories, tokens); ok {
				val.SetCell(i, j, table.TextCell(cat))
			}
			// no listed category matched: keep the raw value
		}

		val.SetColumn(j, table.Column{
			Label:      val.Column(j).Label,
			Kind:       table.Category,
			Categories: categories,
		})
	}
	return val, nil
}

// firstCategory returns the first category, in priority order, that
// occurs among tokens.
func firstCategory(categories, tokens []string) (string, bool) {
	for _, cat := range categories {
		for _, tok := range tokens {
			if tok == cat {
				return cat, true
			}
		}
	}
	return "", false
}
