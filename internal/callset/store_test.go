package callset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsmlab/annotmerge/internal/table"
	"github.com/bsmlab/annotmerge/internal/variant"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	tb := table.New(
		table.Column{Label: table.Label{Name: "near_gens_Overlapped Gene"}, Kind: table.Text},
		table.Column{Label: table.Label{Name: "gerp_Score"}, Kind: table.Number},
		table.Column{Label: table.Label{Name: "protein_coding"}, Kind: table.Bool},
	)
	tb.Append(variant.Key{Individual: "CMC_MSSM_106", Tissue: variant.NeuNPlus, Chrom: "1", Pos: 100, Mutation: "A>G"},
		table.Row{table.TextCell("TP53"), table.NumberCell(2.5), table.BoolCell(true)})
	tb.Append(variant.Key{Individual: "CMC_MSSM_106", Tissue: variant.NeuNMinus, Chrom: "2", Pos: 200, Mutation: "C>T"},
		table.Row{table.MissingCell(), table.MissingCell(), table.BoolCell(false)})

	require.NoError(t, store.Save("annotated_calls", tb))

	back, err := store.Load("annotated_calls")
	require.NoError(t, err)

	require.Equal(t, tb.NumRows(), back.NumRows())
	require.Equal(t, tb.NumCols(), back.NumCols())
	assert.Equal(t, tb.Keys(), back.Keys())
	for j := 0; j < tb.NumCols(); j++ {
		assert.Equal(t, tb.Column(j).Label, back.Column(j).Label)
		assert.Equal(t, tb.Column(j).Kind, back.Column(j).Kind)
	}
	for i := 0; i < tb.NumRows(); i++ {
		for j := 0; j < tb.NumCols(); j++ {
			assert.Equal(t, tb.Cell(i, j), back.Cell(i, j), "cell %d,%d", i, j)
		}
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	tb := table.New(table.Column{Label: table.Label{Name: "gerp_Score"}, Kind: table.Number})
	tb.Append(variant.Key{Individual: "CMC_MSSM_106", Tissue: variant.NeuNPlus, Chrom: "1", Pos: 100, Mutation: "A>G"},
		table.Row{table.NumberCell(1)})

	require.NoError(t, store.Save("annotated_calls", tb))
	require.NoError(t, store.Save("annotated_calls", tb))

	back, err := store.Load("annotated_calls")
	require.NoError(t, err)
	assert.Equal(t, 1, back.NumRows())
}

func TestStoreCategoryDegradesToText(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	tb := table.New(table.Column{
		Label:      table.Label{Name: "biotype"},
		Kind:       table.Category,
		Categories: []string{"A", "B", "other"},
	})
	tb.Append(variant.Key{Individual: "CMC_MSSM_106", Tissue: variant.NeuNPlus, Chrom: "1", Pos: 100, Mutation: "A>G"},
		table.Row{table.TextCell("A")})

	require.NoError(t, store.Save("annotated_calls", tb))
	back, err := store.Load("annotated_calls")
	require.NoError(t, err)

	assert.Equal(t, table.Text, back.Column(0).Kind)
	assert.Equal(t, "A", back.Cell(0, 0).Text())
}

func TestStoreOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store", "calls.duckdb")
	store, err := Open(path)
	require.NoError(t, err)

	tb := table.New(table.Column{Label: table.Label{Name: "gerp_Score"}, Kind: table.Number})
	tb.Append(variant.Key{Individual: "CMC_MSSM_106", Tissue: variant.NeuNPlus, Chrom: "1", Pos: 100, Mutation: "A>G"},
		table.Row{table.NumberCell(1)})
	require.NoError(t, store.Save("annotated_calls", tb))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	back, err := store.Load("annotated_calls")
	require.NoError(t, err)
	assert.Equal(t, 1, back.NumRows())
}

func TestStoreLoadMissingTable(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load("no_such_table")
	assert.Error(t, err)
}
