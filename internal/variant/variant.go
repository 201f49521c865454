// Package variant defines the composite identity used to index every
// annotation table: (individual, tissue, chromosome, position, mutation).
package variant

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Tissue identifies the sample tissue a variant was called in.
type Tissue string

// Tissues of the brain somatic mosaicism sample set.
const (
	NeuNPlus  Tissue = "NeuN_pl"
	NeuNMinus Tissue = "NeuN_mn"
	Muscle    Tissue = "muscle"
)

// ParseTissue parses a tissue label.
func ParseTissue(s string) (Tissue, error) {
	switch Tissue(s) {
	case NeuNPlus, NeuNMinus, Muscle:
		return Tissue(s), nil
	}
	return "", fmt.Errorf("unknown tissue %q", s)
}

// Key uniquely identifies one candidate variant in one sample and tissue.
// Tables indexed by Key may hold more than one row per key until
// duplicates are resolved.
type Key struct {
	Individual string
	Tissue     Tissue
	Chrom      string
	Pos        int64
	Mutation   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s:%d:%s", k.Individual, k.Tissue, k.Chrom, k.Pos, k.Mutation)
}

// Less reports whether k orders before o. The ordering is lexicographic
// over (individual, tissue, chromosome, position, mutation) and is used
// to canonicalize row order where the pipeline needs determinism.
func (k Key) Less(o Key) bool {
	if k.Individual != o.Individual {
		return k.Individual < o.Individual
	}
	if k.Tissue != o.Tissue {
		return k.Tissue < o.Tissue
	}
	if k.Chrom != o.Chrom {
		return k.Chrom < o.Chrom
	}
	if k.Pos != o.Pos {
		return k.Pos < o.Pos
	}
	return k.Mutation < o.Mutation
}

// ParseVariantID parses a "chr<CHROM>:<POS>:<MUTATION>:1"-shaped token
// from an annotation service file. The "chr" prefix is optional and a
// literal trailing ":1" is stripped before splitting.
func ParseVariantID(id string) (chrom string, pos int64, mutation string, err error) {
	s := strings.TrimSuffix(id, ":1")
	s = strings.TrimPrefix(s, "chr")
	fields := strings.Split(s, ":")
	if len(fields) != 3 {
		return "", 0, "", fmt.Errorf("malformed variant ID %q", id)
	}
	pos, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", 0, "", fmt.Errorf("malformed position in variant ID %q", id)
	}
	return fields[0], pos, fields[2], nil
}

// sampleRe matches raw sample labels of the form <SITE>_<ID>_<TISSUE>,
// e.g. "MSSM_106_NeuN_pl".
var sampleRe = regexp.MustCompile(`^((MSSM|PITT)_[0-9]+)_(NeuN_pl|NeuN_mn|muscle)$`)

// CohortPrefix is prepended to the site and numeric ID of a sample label
// to form the individual identifier used by the call set.
const CohortPrefix = "CMC_"

// ParseSampleLabel derives the individual identifier and tissue from a
// raw sample label, e.g. "MSSM_106_NeuN_pl" yields ("CMC_MSSM_106",
// NeuNPlus).
func ParseSampleLabel(label string) (individual string, tissue Tissue, err error) {
	m := sampleRe.FindStringSubmatch(label)
	if m == nil {
		return "", "", fmt.Errorf("malformed sample label %q", label)
	}
	tissue, err = ParseTissue(m[3])
	if err != nil {
		return "", "", err
	}
	return CohortPrefix + m[1], tissue, nil
}
