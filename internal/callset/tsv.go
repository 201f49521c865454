// Package callset reads and writes call-set tables indexed by the
// five-part variant key: the reference call set consumed by the
// binarizer, and the annotated-calls table the pipeline produces.
// Tab-delimited files round trip; DuckDB backs the queryable store.
package callset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bsmlab/annotmerge/internal/table"
	"github.com/bsmlab/annotmerge/internal/variant"
)

// Key column names of a persisted call-set table.
var keyColumns = []string{"Individual ID", "Tissue", "CHROM", "POS", "Mutation"}

// missing value markers recognized when reading a call-set table.
var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {},
}

// ReadTSV reads a tab-delimited call-set table. The header must carry
// the five key columns; all other columns are data columns, Number when
// every non-missing value parses as a float and Text otherwise.
func ReadTSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open call set: %w", err)
	}
	defer f.Close()
	t, err := ParseTSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseTSV parses tab-delimited call-set content.
func ParseTSV(r io.Reader) (*table.Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, fmt.Errorf("no header line found")
	}
	header := strings.Split(strings.TrimRight(sc.Text(), "\r\n"), "\t")

	keyAt := make([]int, len(keyColumns))
	for i := range keyAt {
		keyAt[i] = -1
	}
	var dataCols []int
	var dataNames []string
	for i, name := range header {
		found := false
		for k, want := range keyColumns {
			if name == want {
				keyAt[k] = i
				found = true
				break
			}
		}
		if !found {
			dataCols = append(dataCols, i)
			dataNames = append(dataNames, name)
		}
	}
	for k, at := range keyAt {
		if at == -1 {
			return nil, fmt.Errorf("required column %q not found in header", keyColumns[k])
		}
	}

	var keys []variant.Key
	raw := make([][]string, len(dataCols))
	isNA := make([][]bool, len(dataCols))
	line := 1
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		k, err := parseKey(fields, keyAt)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		keys = append(keys, k)
		for j, at := range dataCols {
			var v string
			if at < len(fields) {
				v = fields[at]
			}
			_, na := missingTokens[v]
			raw[j] = append(raw[j], v)
			isNA[j] = append(isNA[j], na)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan call set: %w", err)
	}

	cols := make([]table.Column, len(dataCols))
	for j, name := range dataNames {
		cols[j] = table.Column{Label: table.Label{Name: name}, Kind: inferKind(raw[j], isNA[j])}
	}
	out := table.New(cols...)
	for i, k := range keys {
		row := make(table.Row, len(cols))
		for j := range cols {
			switch {
			case isNA[j][i]:
				row[j] = table.MissingCell()
			case cols[j].Kind == table.Number:
				f, _ := strconv.ParseFloat(raw[j][i], 64)
				row[j] = table.NumberCell(f)
			default:
				row[j] = table.TextCell(raw[j][i])
			}
		}
		out.Append(k, row)
	}
	return out, nil
}

func parseKey(fields []string, keyAt []int) (variant.Key, error) {
	for _, at := range keyAt {
		if at >= len(fields) {
			return variant.Key{}, fmt.Errorf("expected at least %d columns, found %d", at+1, len(fields))
		}
	}
	tissue, err := variant.ParseTissue(fields[keyAt[1]])
	if err != nil {
		return variant.Key{}, err
	}
	pos, err := strconv.ParseInt(fields[keyAt[3]], 10, 64)
	if err != nil {
		return variant.Key{}, fmt.Errorf("invalid position %q", fields[keyAt[3]])
	}
	return variant.Key{
		Individual: fields[keyAt[0]],
		Tissue:     tissue,
		Chrom:      fields[keyAt[2]],
		Pos:        pos,
		Mutation:   fields[keyAt[4]],
	}, nil
}

// WriteTSV writes a call-set table with the five key columns first and
// the data columns after, under their flattened names. Missing cells
// are written empty, so a written table reads back with an identical
// index and content (boolean columns read back as text).
func WriteTSV(w io.Writer, t *table.Table) error {
	bw := bufio.NewWriter(w)
	cols := t.Columns()
	header := append([]string(nil), keyColumns...)
	for _, c := range cols {
		header = append(header, c.Label.Flat())
	}
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}
	for i := 0; i < t.NumRows(); i++ {
		k := t.Key(i)
		fields := []string{k.Individual, string(k.Tissue), k.Chrom, strconv.FormatInt(k.Pos, 10), k.Mutation}
		for j := range cols {
			fields = append(fields, t.Cell(i, j).String())
		}
		if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteTSVFile writes the table to a file path.
func WriteTSVFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create call set: %w", err)
	}
	if err := WriteTSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func inferKind(values []string, isNA []bool) table.Kind {
	any := false
	for i, v := range values {
		if isNA[i] {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return table.Text
		}
		any = true
	}
	if any {
		return table.Number
	}
	return table.Text
}
