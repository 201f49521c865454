package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariantID(t *testing.T) {
	tests := []struct {
		id       string
		chrom    string
		pos      int64
		mutation string
	}{
		{"chr1:12345:A>G:1", "1", 12345, "A>G"},
		{"1:12345:A>G:1", "1", 12345, "A>G"},
		{"chrX:999:T>C:1", "X", 999, "T>C"},
		{"chr22:100:G>T", "22", 100, "G>T"}, // no :1 suffix
	}
	for _, tt := range tests {
		chrom, pos, mutation, err := ParseVariantID(tt.id)
		require.NoError(t, err, tt.id)
		assert.Equal(t, tt.chrom, chrom, tt.id)
		assert.Equal(t, tt.pos, pos, tt.id)
		assert.Equal(t, tt.mutation, mutation, tt.id)
	}
}

func TestParseVariantID_Malformed(t *testing.T) {
	for _, id := range []string{"", "chr1", "1:2", "1:notanumber:A>G:1", "1:2:3:4:5"} {
		_, _, _, err := ParseVariantID(id)
		assert.Error(t, err, id)
	}
}

func TestParseTissue(t *testing.T) {
	for _, s := range []string{"NeuN_pl", "NeuN_mn", "muscle"} {
		tissue, err := ParseTissue(s)
		require.NoError(t, err)
		assert.Equal(t, Tissue(s), tissue)
	}

	_, err := ParseTissue("liver")
	assert.Error(t, err)
}

func TestParseSampleLabel(t *testing.T) {
	individual, tissue, err := ParseSampleLabel("MSSM_106_NeuN_pl")
	require.NoError(t, err)
	assert.Equal(t, "CMC_MSSM_106", individual)
	assert.Equal(t, NeuNPlus, tissue)

	individual, tissue, err = ParseSampleLabel("PITT_010_muscle")
	require.NoError(t, err)
	assert.Equal(t, "CMC_PITT_010", individual)
	assert.Equal(t, Muscle, tissue)

	_, _, err = ParseSampleLabel("YALE_1_NeuN_pl")
	assert.Error(t, err)
	_, _, err = ParseSampleLabel("MSSM_106")
	assert.Error(t, err)
}

func TestKeyLess(t *testing.T) {
	a := Key{Individual: "CMC_MSSM_106", Tissue: NeuNPlus, Chrom: "1", Pos: 100, Mutation: "A>G"}
	b := a
	b.Pos = 200
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))

	c := a
	c.Chrom = "2"
	assert.True(t, a.Less(c))
}
