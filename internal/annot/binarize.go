package annot

import (
	"fmt"

	"github.com/bsmlab/annotmerge/internal/table"
)

// DefaultBinSuffix names the indicator column derived from a binarized
// column.
const DefaultBinSuffix = "_bin"

// BinarizeConfig configures the binarizer.
type BinarizeConfig struct {
	// Suffix of the indicator column names, DefaultBinSuffix when empty.
	Suffix string

	// Categorical exposes the indicators as ordered categories over
	// {"0", "1"} instead of numeric 0/1.
	Categorical bool
}

// Binarize reindexes annot against the reference call set's key index
// and adds, after each selected column, an indicator column that is 1
// where the column is missing after reindexing and 0 otherwise. The
// indicator flags absence of annotation coverage for a variant, not the
// annotation's value: a call-set row the unified table never saw gets 1
// in every indicator column.
//
// Indicator values fit an int8. Binarize returns a new table and does
// not mutate its inputs.
func Binarize(cols []table.Label, annot, calls *table.Table, cfg BinarizeConfig) (*table.Table, error) {
	suffix := cfg.Suffix
	if suffix == "" {
		suffix = DefaultBinSuffix
	}

	val := annot.Copy()
	for _, l := range cols {
		j := val.ColumnIndex(l)
		if j == -1 {
			return nil, fmt.Errorf("cannot binarize %q: no such column", l.Flat())
		}
		col := table.Column{
			Label: table.Label{Source: l.Source, Name: l.Name + suffix},
			Kind:  table.Number,
		}
		if cfg.Categorical {
			col.Kind = table.Category
			col.Categories = []string{"0", "1"}
		}
		val.InsertColumn(j+1, col)
	}

	val = val.ReindexRows(calls.Keys())

	for _, l := range cols {
		j := val.ColumnIndex(l)
		bin := val.ColumnIndex(table.Label{Source: l.Source, Name: l.Name + suffix})
		for i := 0; i < val.NumRows(); i++ {
			val.SetCell(i, bin, indicator(val.Cell(i, j).IsMissing(), cfg.Categorical))
		}
	}
	return val, nil
}

func indicator(missing, categorical bool) table.Cell {
	v := 0
	if missing {
		v = 1
	}
	if categorical {
		return table.TextCell(fmt.Sprintf("%d", v))
	}
	return table.NumberCell(float64(v))
}
