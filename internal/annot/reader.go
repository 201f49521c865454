// Package annot implements the annotation-merging pipeline: reading
// per-source annotation tables, resolving duplicated variants, joining
// sources across a sample manifest, and recoding the merged columns.
package annot

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bsmlab/annotmerge/internal/table"
	"github.com/bsmlab/annotmerge/internal/variant"
)

// Identity columns of an annotation service file. VariationIDColumn is
// required; the other two duplicate information carried by the variant
// ID and are dropped from the data columns.
const (
	VariationIDColumn = "Variation ID"
	ChromosomeColumn  = "Chromosome"
	PositionColumn    = "Position"
)

// defaultMissing are the string markers always recognized as missing
// values, in addition to any per-source markers.
var defaultMissing = []string{"", "NA", "N/A", "NaN", "nan", "null"}

// ReaderConfig configures parsing of one annotation source file.
type ReaderConfig struct {
	// Source overrides the annotation source name; when empty it is the
	// file's base name without extension.
	Source string

	// NAValues are extra missing-value markers for this source.
	NAValues []string

	// TwoLevel keeps two-level (source, feature) column labels instead
	// of flattened "source_feature" names.
	TwoLevel bool
}

// ParseError reports a malformed annotation table with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("annotation parse error at line %d: %s", e.Line, e.Message)
}

// SourceName derives the annotation source name from a file path: the
// base name without its extension.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadTable parses one annotation source file into a table keyed by
// (individual, tissue, chromosome, position, mutation). Plain and
// gzipped files are both accepted.
func ReadTable(path, individual string, tissue variant.Tissue, cfg ReaderConfig) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotation file: %w", err)
	}
	defer f.Close()

	if cfg.Source == "" {
		cfg.Source = SourceName(path)
	}

	var r io.Reader
	br := bufio.NewReader(f)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	} else {
		r = br
	}

	return ParseTable(r, individual, tissue, cfg)
}

// ParseTable parses tab-delimited annotation content. The header row
// must carry the variant-identity column; every retained feature column
// is renamed by prefixing with the source name. Rows whose variant ID
// does not parse yield a ParseError.
func ParseTable(r io.Reader, individual string, tissue variant.Tissue, cfg ReaderConfig) (*table.Table, error) {
	missing := make(map[string]struct{}, len(defaultMissing)+len(cfg.NAValues))
	for _, m := range defaultMissing {
		missing[m] = struct{}{}
	}
	for _, m := range cfg.NAValues {
		missing[m] = struct{}{}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, &ParseError{Line: line, Message: "no header line found"}
	}
	line++
	header := strings.Split(strings.TrimRight(sc.Text(), "\r\n"), "\t")

	idCol := -1
	var featCols []int
	var featNames []string
	for i, name := range header {
		switch name {
		case VariationIDColumn:
			idCol = i
		case ChromosomeColumn, PositionColumn:
			// identity duplicates, dropped
		default:
			featCols = append(featCols, i)
			featNames = append(featNames, name)
		}
	}
	if idCol == -1 {
		return nil, &ParseError{Line: line, Message: fmt.Sprintf("required column %q not found in header", VariationIDColumn)}
	}

	var keys []variant.Key
	raw := make([][]string, len(featCols))
	isNA := make([][]bool, len(featCols))

	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if idCol >= len(fields) {
			return nil, &ParseError{Line: line, Message: fmt.Sprintf("expected at least %d columns, found %d", idCol+1, len(fields))}
		}
		chrom, pos, mutation, err := variant.ParseVariantID(fields[idCol])
		if err != nil {
			return nil, &ParseError{Line: line, Message: err.Error()}
		}
		keys = append(keys, variant.Key{
			Individual: individual,
			Tissue:     tissue,
			Chrom:      chrom,
			Pos:        pos,
			Mutation:   mutation,
		})
		for j, fc := range featCols {
			var v string
			if fc < len(fields) {
				v = fields[fc]
			}
			_, na := missing[v]
			raw[j] = append(raw[j], v)
			isNA[j] = append(isNA[j], na)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan annotation file: %w", err)
	}

	cols := make([]table.Column, len(featCols))
	for j, name := range featNames {
		label := table.Label{Source: cfg.Source, Name: name}
		if !cfg.TwoLevel {
			label = table.Label{Name: cfg.Source + "_" + name}
		}
		cols[j] = table.Column{Label: label, Kind: inferKind(raw[j], isNA[j])}
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

// inferKind classifies a column as Number when every non-missing value
// parses as a float and at least one value is non-missing; otherwise the
// column is Text.
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
