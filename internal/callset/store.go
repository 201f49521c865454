package callset

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/bsmlab/annotmerge/internal/table"
	"github.com/bsmlab/annotmerge/internal/variant"
)

// Store manages a DuckDB database holding annotated call tables.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path. Use an
// empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Save writes t into the named DuckDB table, replacing any previous
// contents. The schema is the five key columns plus one column per data
// column: VARCHAR for text and category columns, DOUBLE for numeric
// ones, BOOLEAN for booleans. A leading row-number column preserves row
// order, since DuckDB does not guarantee scan order.
func (s *Store) Save(name string, t *table.Table) error {
	cols := t.Columns()

	ddl := []string{
		"rowno BIGINT",
		"individual VARCHAR",
		"tissue VARCHAR",
		"chrom VARCHAR",
		"pos BIGINT",
		"mutation VARCHAR",
	}
	for _, c := range cols {
		ddl = append(ddl, fmt.Sprintf("%s %s", quoteIdent(c.Label.Flat()), sqlType(c.Kind)))
	}

	if _, err := s.db.Exec("DROP TABLE IF EXISTS " + quoteIdent(name)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(ddl, ", "))); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", name)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i := 0; i < t.NumRows(); i++ {
		k := t.Key(i)
		row := []driver.Value{int64(i), k.Individual, string(k.Tissue), k.Chrom, k.Pos, k.Mutation}
		for j, c := range cols {
			row = append(row, cellValue(t.Cell(i, j), c.Kind))
		}
		if err := appender.AppendRow(row...); err != nil {
			return fmt.Errorf("append call row: %w", err)
		}
	}
	return appender.Flush()
}

// Load reads the named table back, preserving row order and the key
// index. Category columns come back as Text; the ordered category list
// is not persisted.
func (s *Store) Load(name string) (*table.Table, error) {
	rows, err := s.db.Query("SELECT * FROM " + quoteIdent(name) + " ORDER BY rowno")
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	const nfixed = 6 // rowno + five key columns
	if len(types) < nfixed {
		return nil, fmt.Errorf("table %q has no key columns", name)
	}

	cols := make([]table.Column, 0, len(types)-nfixed)
	for _, ct := range types[nfixed:] {
		cols = append(cols, table.Column{
			Label: table.Label{Name: ct.Name()},
			Kind:  kindOf(ct.DatabaseTypeName()),
		})
	}
	out := table.New(cols...)

	for rows.Next() {
		var rowno, pos int64
		var individual, tissue, chrom, mutation string
		dest := []any{&rowno, &individual, &tissue, &chrom, &pos, &mutation}
		texts := make([]sql.NullString, len(cols))
		nums := make([]sql.NullFloat64, len(cols))
		bools := make([]sql.NullBool, len(cols))
		for j, c := range cols {
			switch c.Kind {
			case table.Number:
				dest = append(dest, &nums[j])
			case table.Bool:
				dest = append(dest, &bools[j])
			default:
				dest = append(dest, &texts[j])
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan call row: %w", err)
		}

		ts, err := variant.ParseTissue(tissue)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowno, err)
		}
		row := make(table.Row, len(cols))
		for j, c := range cols {
			switch {
			case c.Kind == table.Number && nums[j].Valid:
				row[j] = table.NumberCell(nums[j].Float64)
			case c.Kind == table.Bool && bools[j].Valid:
				row[j] = table.BoolCell(bools[j].Bool)
			case c.Kind == table.Text && texts[j].Valid:
				row[j] = table.TextCell(texts[j].String)
			default:
				row[j] = table.MissingCell()
			}
		}
		out.Append(variant.Key{
			Individual: individual,
			Tissue:     ts,
			Chrom:      chrom,
			Pos:        pos,
			Mutation:   mutation,
		}, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call rows: %w", err)
	}
	return out, nil
}

func sqlType(k table.Kind) string {
	switch k {
	case table.Number:
		return "DOUBLE"
	case table.Bool:
		return "BOOLEAN"
	}
	return "VARCHAR"
}

func kindOf(dbType string) table.Kind {
	switch strings.ToUpper(dbType) {
	case "DOUBLE", "FLOAT", "BIGINT", "INTEGER":
		return table.Number
	case "BOOLEAN":
		return table.Bool
	}
	return table.Text
}

func cellValue(c table.Cell, k table.Kind) driver.Value {
	if c.IsMissing() {
		return nil
	}
	switch k {
	case table.Number:
		return c.Number()
	case table.Bool:
		return c.Bool()
	}
	return c.String()
}

// quoteIdent quotes a SQL identifier; feature names carry spaces and
// arbitrary punctuation.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
