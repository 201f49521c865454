package annot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsmlab/annotmerge/internal/table"
	"github.com/bsmlab/annotmerge/internal/variant"
)

func binKey(pos int64) variant.Key {
	return variant.Key{
		Individual: "CMC_MSSM_106",
		Tissue:     variant.NeuNPlus,
		Chrom:      "1",
		Pos:        pos,
		Mutation:   "A>G",
	}
}

func callsWith(keys ...variant.Key) *table.Table {
	calls := table.New(table.Column{Label: table.Label{Name: "AF"}, Kind: table.Number})
	for _, k := range keys {
		calls.Append(k, table.Row{table.NumberCell(0.1)})
	}
	return calls
}

func TestBinarize(t *testing.T) {
	annot := table.New(
		table.Column{Label: table.Label{Name: "gerp_Score"}, Kind: table.Number},
		table.Column{Label: table.Label{Name: "near_gens_Overlapped Gene"}, Kind: table.Text},
	)
	annot.Append(binKey(100), table.Row{table.NumberCell(2.5), table.TextCell("TP53")})
	annot.Append(binKey(200), table.Row{table.MissingCell(), table.TextCell("KRAS")})
	annot.Append(binKey(999), table.Row{table.NumberCell(1.0), table.TextCell("DROPPED")})

	calls := callsWith(binKey(100), binKey(200), binKey(300))

	out, err := Binarize([]table.Label{{Name: "gerp_Score"}}, annot, calls, BinarizeConfig{})
	require.NoError(t, err)

	// indicator column sits immediately after its source column
	assert.Equal(t, "gerp_Score", out.Column(0).Label.Flat())
	assert.Equal(t, "gerp_Score_bin", out.Column(1).Label.Flat())
	assert.Equal(t, "near_gens_Overlapped Gene", out.Column(2).Label.Flat())

	// rows match the call set index exactly, in its order
	require.Equal(t, 3, out.NumRows())
	assert.Equal(t, binKey(100), out.Key(0))
	assert.Equal(t, binKey(200), out.Key(1))
	assert.Equal(t, binKey(300), out.Key(2))

	bin := out.ColumnIndexFlat("gerp_Score_bin")
	assert.Equal(t, float64(0), out.Cell(0, bin).Number())
	assert.Equal(t, float64(1), out.Cell(1, bin).Number())

	// a call-set row the unified table never covered: every indicator is 1
	assert.Equal(t, float64(1), out.Cell(2, bin).Number())
	assert.True(t, out.Cell(2, 0).IsMissing())
	assert.True(t, out.Cell(2, 2).IsMissing())

	// input not mutated
	assert.Equal(t, 2, annot.NumCols())
	assert.Equal(t, 3, annot.NumRows())
	assert.Equal(t, binKey(999), annot.Key(2))
}

func TestBinarize_Categorical(t *testing.T) {
	annot := table.New(table.Column{Label: table.Label{Name: "gerp_Score"}, Kind: table.Number})
	annot.Append(binKey(100), table.Row{table.NumberCell(2.5)})

	calls := callsWith(binKey(100), binKey(200))

	out, err := Binarize([]table.Label{{Name: "gerp_Score"}}, annot, calls, BinarizeConfig{Categorical: true})
	require.NoError(t, err)

	bin := out.ColumnIndexFlat("gerp_Score_bin")
	assert.Equal(t, table.Category, out.Column(bin).Kind)
	assert.Equal(t, []string{"0", "1"}, out.Column(bin).Categories)
	assert.Equal(t, "0", out.Cell(0, bin).Text())
	assert.Equal(t, "1", out.Cell(1, bin).Text())
}

func TestBinarize_UnknownColumn(t *testing.T) {
	annot := table.New(table.Column{Label: table.Label{Name: "gerp_Score"}, Kind: table.Number})
	calls := callsWith(binKey(100))

	_, err := Binarize([]table.Label{{Name: "nope"}}, annot, calls, BinarizeConfig{})
	assert.Error(t, err)
}

func TestBinarize_NoColumnsStillReindexes(t *testing.T) {
	annot := table.New(table.Column{Label: table.Label{Name: "gerp_Score"}, Kind: table.Number})
	annot.Append(binKey(999), table.Row{table.NumberCell(1)})

	calls := callsWith(binKey(100))

	out, err := Binarize(nil, annot, calls, BinarizeConfig{})
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, binKey(100), out.Key(0))
	assert.True(t, out.Cell(0, 0).IsMissing())
}
