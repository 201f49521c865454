package annot

import (
	"sort"
	"strings"

	"github.com/bsmlab/annotmerge/internal/table"
	"github.com/bsmlab/annotmerge/internal/variant"
)

// DefaultSeparator joins the collapsed text values of duplicated rows.
const DefaultSeparator = ":"

// Deduplicate collapses a table that may hold several rows per variant
// key into exactly one row per key. Duplicated keys occur for example
// when a variant overlaps more than one gene and the annotation service
// emits one row per gene.
//
// Text and category columns of a duplicated key are concatenated in
// their original row order, joined by sep; other columns keep the first
// row's value. Rows of the result are sorted by key so the output is
// deterministic.
//
// When no key is duplicated the input table is returned unchanged,
// without copying.
func Deduplicate(t *table.Table, sep string) *table.Table {
	if !t.HasDuplicateKeys() {
		return t
	}
	if sep == "" {
		sep = DefaultSeparator
	}

	groups := make(map[variant.Key][]int, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		k := t.Key(i)
		groups[k] = append(groups[k], i)
	}
	keys := make([]variant.Key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a].Less(keys[b]) })

	cols := t.Columns()
	out := table.New(cols...)
	for _, k := range keys {
		rows := groups[k]
		merged := make(table.Row, len(cols))
		for j := range cols {
			merged[j] = t.Cell(rows[0], j)
		}
		if len(rows) > 1 {
			for j, c := range cols {
				if c.Kind != table.Text && c.Kind != table.Category {
					continue
				}
				var parts []string
				for _, i := range rows {
					if cell := t.Cell(i, j); !cell.IsMissing() {
						parts = append(parts, cell.String())
					}
				}
				if len(parts) == 0 {
					merged[j] = table.MissingCell()
				} else {
					merged[j] = table.TextCell(strings.Join(parts, sep))
				}
			}
		}
		out.Append(k, merged)
	}
	return out
}
