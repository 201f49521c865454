// Package table implements the in-memory table model shared by the
// annotation pipeline: ordered, kind-aware columns over rows indexed by
// variant keys. Tables are small enough to hold fully in memory; there
// is no streaming contract.
package table

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/bsmlab/annotmerge/internal/variant"
)

// Kind enumerates the column value kinds. The duplicate-collapsing policy
// and the categorical schema check dispatch on Kind rather than on the
// runtime representation of individual cells.
type Kind uint8

const (
	Text Kind = iota
	Number
	Bool
	Category
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Category:
		return "category"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Label names one column, optionally namespaced by its annotation source.
// A label with an empty Source is already flat (e.g. "near_gens_Overlapped Gene").
type Label struct {
	Source string
	Name   string
}

// Flat returns the flattened "Source_Name" rendering of the label.
func (l Label) Flat() string {
	if l.Source == "" {
		return l.Name
	}
	return l.Source + "_" + l.Name
}

// Column describes one table column. Categories is the ordered category
// list and is set only for Category columns.
type Column struct {
	Label      Label
	Kind       Kind
	Categories []string
}

type cellState uint8

const (
	missingCell cellState = iota
	textCell
	numberCell
	boolCell
)

// Cell holds one table value: text, number, boolean, or missing.
type Cell struct {
	state cellState
	text  string
	num   float64
	b     bool
}

// TextCell returns a cell holding a text value.
func TextCell(s string) Cell { return Cell{state: textCell, text: s} }

// NumberCell returns a cell holding a numeric value.
func NumberCell(f float64) Cell { return Cell{state: numberCell, num: f} }

// BoolCell returns a cell holding a boolean value.
func BoolCell(b bool) Cell { return Cell{state: boolCell, b: b} }

// MissingCell returns a missing cell.
func MissingCell() Cell { return Cell{} }

// IsMissing reports whether the cell is missing.
func (c Cell) IsMissing() bool { return c.state == missingCell }

// IsText reports whether the cell holds a text value.
func (c Cell) IsText() bool { return c.state == textCell }

// Text returns the text value; it is the zero string for non-text cells.
func (c Cell) Text() string { return c.text }

// Number returns the numeric value; it is zero for non-number cells.
func (c Cell) Number() float64 { return c.num }

// Bool returns the boolean value; it is false for non-bool cells.
func (c Cell) Bool() bool { return c.b }

// String renders the cell for display and for text concatenation of
// collapsed duplicates. Missing cells render empty.
func (c Cell) String() string {
	switch c.state {
	case textCell:
		return c.text
	case numberCell:
		return strconv.FormatFloat(c.num, 'g', -1, 64)
	case boolCell:
		return strconv.FormatBool(c.b)
	}
	return ""
}

// Row is one table row, parallel to the table's columns.
type Row []Cell

// Table is a mapping from variant keys to rows of kind-aware columns.
// The key index may contain duplicates until resolved by the duplicate
// resolver. All transformations in this module return new tables; the
// few in-place mutators say so explicitly.
type Table struct {
	cols []Column
	keys []variant.Key
	rows []Row
}

// New creates an empty table with the given columns.
func New(cols ...Column) *Table {
	return &Table{cols: append([]Column(nil), cols...)}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns a copy of the column descriptors in order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.cols...)
}

// Column returns the descriptor of column j.
func (t *Table) Column(j int) Column { return t.cols[j] }

// SetColumn replaces the descriptor of column j in place.
func (t *Table) SetColumn(j int, c Column) { t.cols[j] = c }

// Keys returns a copy of the row index in order.
func (t *Table) Keys() []variant.Key {
	return append([]variant.Key(nil), t.keys...)
}

// Key returns the key of row i.
func (t *Table) Key(i int) variant.Key { return t.keys[i] }

// Cell returns the value at row i, column j.
func (t *Table) Cell(i, j int) Cell { return t.rows[i][j] }

// SetCell replaces the value at row i, column j in place.
func (t *Table) SetCell(i, j int, c Cell) { t.rows[i][j] = c }

// Append adds a row for the given key. It panics when the row length
// does not match the column count.
func (t *Table) Append(k variant.Key, row Row) {
	if len(row) != len(t.cols) {
		panic(fmt.Sprintf("table: row has %d cells, table has %d columns", len(row), len(t.cols)))
	}
	t.keys = append(t.keys, k)
	t.rows = append(t.rows, append(Row(nil), row...))
}

// ColumnIndex returns the index of the column with the given label, or -1.
func (t *Table) ColumnIndex(l Label) int {
	for j, c := range t.cols {
		if c.Label == l {
			return j
		}
	}
	return -1
}

// ColumnIndexFlat returns the index of the column whose flattened label
// equals name, or -1.
func (t *Table) ColumnIndexFlat(name string) int {
	for j, c := range t.cols {
		if c.Label.Flat() == name {
			return j
		}
	}
	return -1
}

// HasDuplicateKeys reports whether any key indexes more than one row.
func (t *Table) HasDuplicateKeys() bool {
	seen := make(map[variant.Key]struct{}, len(t.keys))
	for _, k := range t.keys {
		if _, ok := seen[k]; ok {
			return true
		}
		seen[k] = struct{}{}
	}
	return false
}

// Copy returns a deep copy of the table.
func (t *Table) Copy() *Table {
	c := &Table{
		cols: make([]Column, len(t.cols)),
		keys: append([]variant.Key(nil), t.keys...),
		rows: make([]Row, len(t.rows)),
	}
	for j, col := range t.cols {
		col.Categories = append([]string(nil), col.Categories...)
		c.cols[j] = col
	}
	for i, r := range t.rows {
		c.rows[i] = append(Row(nil), r...)
	}
	return c
}

// SortByKey sorts the rows by key in place, preserving the relative
// order of rows sharing a key.
func (t *Table) SortByKey() {
	idx := make([]int, len(t.keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.keys[idx[a]].Less(t.keys[idx[b]])
	})
	keys := make([]variant.Key, len(t.keys))
	rows := make([]Row, len(t.rows))
	for i, p := range idx {
		keys[i] = t.keys[p]
		rows[i] = t.rows[p]
	}
	t.keys, t.rows = keys, rows
}

// InsertColumn inserts a column at position j, filling existing rows
// with missing cells. The table is modified in place.
func (t *Table) InsertColumn(j int, c Column) {
	t.cols = append(t.cols, Column{})
	copy(t.cols[j+1:], t.cols[j:])
	t.cols[j] = c
	for i, r := range t.rows {
		r = append(r, Cell{})
		copy(r[j+1:], r[j:])
		r[j] = MissingCell()
		t.rows[i] = r
	}
}

// ReindexRows returns a new table whose rows match keys exactly and in
// order: keys absent from t become fully-missing rows and rows of t not
// named by keys are dropped. When a key indexes several rows of t the
// first one wins, so callers should resolve duplicates beforehand.
func (t *Table) ReindexRows(keys []variant.Key) *Table {
	pos := make(map[variant.Key]int, len(t.keys))
	for i, k := range t.keys {
		if _, ok := pos[k]; !ok {
			pos[k] = i
		}
	}
	out := New(t.Columns()...)
	empty := make(Row, len(t.cols))
	for i := range empty {
		empty[i] = MissingCell()
	}
	for _, k := range keys {
		if i, ok := pos[k]; ok {
			out.Append(k, t.rows[i])
		} else {
			out.Append(k, empty)
		}
	}
	return out
}

// ConcatRows stacks tables row-wise into a new table. Columns are
// aligned by label; the output column order is first-seen order across
// the inputs and cells of columns a table does not carry are missing.
// Columns sharing a label but not a kind widen to Text.
func ConcatRows(tables ...*Table) *Table {
	var cols []Column
	index := make(map[Label]int)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.cols {
			if j, ok := index[c.Label]; ok {
				if cols[j].Kind != c.Kind {
					cols[j].Kind = Text
					cols[j].Categories = nil
				}
				continue
			}
			index[c.Label] = len(cols)
			cols = append(cols, Column{Label: c.Label, Kind: c.Kind, Categories: append([]string(nil), c.Categories...)})
		}
	}
	out := New(cols...)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for i := range t.rows {
			row := make(Row, len(cols))
			for j := range row {
				row[j] = MissingCell()
			}
			for j, c := range t.cols {
				row[index[c.Label]] = t.rows[i][j]
			}
			out.Append(t.keys[i], row)
		}
	}
	return out
}

// ConcatCols outer-joins tables column-wise by key into a new table.
// The output key set is the union of the inputs' keys in first-seen
// order; keys covered by only some inputs get missing cells for the
// others' columns. Inputs must have unique keys and pairwise-distinct
// column labels.
func ConcatCols(tables ...*Table) (*Table, error) {
	var keys []variant.Key
	seen := make(map[variant.Key]struct{})
	var cols []Column
	labels := make(map[Label]struct{})
	for _, t := range tables {
		if t == nil {
			continue
		}
		if t.HasDuplicateKeys() {
			return nil, fmt.Errorf("cannot join a table with duplicate keys")
		}
		for _, k := range t.keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
		for _, c := range t.cols {
			if _, ok := labels[c.Label]; ok {
				return nil, fmt.Errorf("duplicate column %q across joined tables", c.Label.Flat())
			}
			labels[c.Label] = struct{}{}
			cols = append(cols, Column{Label: c.Label, Kind: c.Kind, Categories: append([]string(nil), c.Categories...)})
		}
	}
	out := New(cols...)
	for _, k := range keys {
		row := make(Row, len(cols))
		for j := range row {
			row[j] = MissingCell()
		}
		out.Append(k, row)
	}
	at := make(map[variant.Key]int, len(keys))
	for i, k := range keys {
		at[k] = i
	}
	off := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		for i, k := range t.keys {
			for j := range t.cols {
				out.rows[at[k]][off+j] = t.rows[i][j]
			}
		}
		off += len(t.cols)
	}
	return out, nil
}
