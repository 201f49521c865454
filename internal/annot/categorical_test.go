package annot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsmlab/annotmerge/internal/table"
	"github.com/bsmlab/annotmerge/internal/variant"
)

func catTable(cells ...table.Cell) *table.Table {
	tb := table.New(table.Column{Label: table.Label{Name: "biotype"}, Kind: table.Text})
	for i, c := range cells {
		k := variant.Key{
			Individual: "CMC_MSSM_106",
			Tissue:     variant.NeuNPlus,
			Chrom:      "1",
			Pos:        int64(100 + i),
			Mutation:   "A>G",
		}
		tb.Append(k, table.Row{c})
	}
	return tb
}

func TestRegularizeCategories_PriorityOrder(t *testing.T) {
	tb := catTable(
		table.TextCell("B:A"),
		table.TextCell("C"),
		table.TextCell("B"),
	)

	out, err := RegularizeCategories(CategorySpec{"biotype": {"A", "B", "C"}}, tb, "")
	require.NoError(t, err)

	// "B:A" holds both A and B; A is listed first so A wins
	assert.Equal(t, "A", out.Cell(0, 0).Text())
	assert.Equal(t, "C", out.Cell(1, 0).Text())
	assert.Equal(t, "B", out.Cell(2, 0).Text())
}

func TestRegularizeCategories_PriorityNotTokenOrder(t *testing.T) {
	tb := catTable(table.TextCell("C:B"))

	out, err := RegularizeCategories(CategorySpec{"biotype": {"B", "C"}}, tb, "")
	require.NoError(t, err)
	assert.Equal(t, "B", out.Cell(0, 0).Text())
}

func TestRegularizeCategories_MissingGetsFallback(t *testing.T) {
	tb := catTable(table.MissingCell())

	out, err := RegularizeCategories(CategorySpec{"biotype": {"A"}}, tb, "")
	require.NoError(t, err)
	assert.Equal(t, "other", out.Cell(0, 0).Text())
}

func TestRegularizeCategories_UnmatchedKeptVerbatim(t *testing.T) {
	// soft fallback: an unrecognized value is preserved, not replaced
	tb := catTable(table.TextCell("zzz"))

	out, err := RegularizeCategories(CategorySpec{"biotype": {"A", "B"}}, tb, "")
	require.NoError(t, err)
	assert.Equal(t, "zzz", out.Cell(0, 0).Text())
}

func TestRegularizeCategories_ColumnBecomesOrderedCategory(t *testing.T) {
	tb := catTable(table.TextCell("A"))

	out, err := RegularizeCategories(CategorySpec{"biotype": {"A", "B"}}, tb, "")
	require.NoError(t, err)

	col := out.Column(0)
	assert.Equal(t, table.Category, col.Kind)
	assert.Equal(t, []string{"A", "B", "other"}, col.Categories)
}

func TestRegularizeCategories_SchemaError(t *testing.T) {
	tb := table.New(table.Column{Label: table.Label{Name: "biotype"}, Kind: table.Number})
	tb.Append(variant.Key{Individual: "CMC_MSSM_106", Tissue: variant.NeuNPlus, Chrom: "1", Pos: 100, Mutation: "A>G"},
		table.Row{table.NumberCell(3)})

	_, err := RegularizeCategories(CategorySpec{"biotype": {"A"}}, tb, "")
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "biotype", schemaErr.Column)
}

func TestRegularizeCategories_UnknownColumn(t *testing.T) {
	tb := catTable(table.TextCell("A"))
	_, err := RegularizeCategories(CategorySpec{"nope": {"A"}}, tb, "")
	assert.Error(t, err)
}

func TestRegularizeCategories_DoesNotMutateArguments(t *testing.T) {
	tb := catTable(table.TextCell("B:A"), table.MissingCell())
	spec := CategorySpec{"biotype": {"A", "B"}}

	_, err := RegularizeCategories(spec, tb, "")
	require.NoError(t, err)

	// the spec keeps its categories, without the appended fallback
	assert.Equal(t, []string{"A", "B"}, spec["biotype"])

	// the input table is untouched
	assert.Equal(t, "B:A", tb.Cell(0, 0).Text())
	assert.True(t, tb.Cell(1, 0).IsMissing())
	assert.Equal(t, table.Text, tb.Column(0).Kind)
}

func TestRegularizeCategories_CustomFallback(t *testing.T) {
	tb := catTable(table.MissingCell())

	out, err := RegularizeCategories(CategorySpec{"biotype": {"A"}}, tb, "unknown")
	require.NoError(t, err)
	assert.Equal(t, "unknown", out.Cell(0, 0).Text())
	assert.Equal(t, []string{"A", "unknown"}, out.Column(0).Categories)
}
