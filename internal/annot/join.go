package annot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/bsmlab/annotmerge/internal/table"
	"github.com/bsmlab/annotmerge/internal/variant"
)

// ManifestEntry names one sample and the location of its filtered call
// file.
type ManifestEntry struct {
	Sample string
	File   string
}

// Manifest is the ordered list of samples the joiner iterates. Output
// determinism follows from manifest order, so callers should keep the
// manifest file deterministic.
type Manifest struct {
	entries []ManifestEntry
}

// Entries returns the manifest entries in file order.
func (m *Manifest) Entries() []ManifestEntry {
	return append([]ManifestEntry(nil), m.entries...)
}

// Len returns the number of samples in the manifest.
func (m *Manifest) Len() int { return len(m.entries) }

// ReadManifest reads a tab-delimited sample manifest with two columns,
// sample label and file location, and no header row.
func ReadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample manifest: %w", err)
	}
	defer f.Close()

	m := &Manifest{}
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("manifest line %d: expected 2 columns, found %d", line, len(fields))
		}
		m.entries = append(m.entries, ManifestEntry{Sample: fields[0], File: fields[1]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan sample manifest: %w", err)
	}
	return m, nil
}

// SampleIdentity is an explicit (individual, tissue) mapping for a
// sample label that does not follow the cohort naming convention.
type SampleIdentity struct {
	Individual string
	Tissue     variant.Tissue
}

// JoinConfig configures the multi-source joiner. Dir is the root of the
// per-sample annotation directories; each (sample, source) pair is
// expected at <Dir>/<sample>/<source>.txt.
type JoinConfig struct {
	Dir       string
	Sources   []string
	NAValues  map[string][]string       // per-source extra missing markers
	Overrides map[string]SampleIdentity // sample label -> explicit identity
	TwoLevel  bool
	Separator string // duplicate-collapse separator, DefaultSeparator when empty
}

// Joiner builds the unified annotation table: rows stacked across the
// manifest's samples, columns joined across annotation sources.
type Joiner struct {
	cfg    JoinConfig
	logger *zap.Logger
}

// NewJoiner creates a joiner for the given configuration.
func NewJoiner(cfg JoinConfig) *Joiner {
	return &Joiner{cfg: cfg, logger: zap.NewNop()}
}

// SetLogger sets the logger used to report skipped (sample, source)
// pairs.
func (j *Joiner) SetLogger(l *zap.Logger) { j.logger = l }

// Join reads and resolves every (sample, source) table and outer-joins
// them into the unified annotation table. A missing or malformed file
// for one pair contributes nothing and is logged rather than failing
// the join; not every sample has every annotation source.
func (j *Joiner) Join(m *Manifest) (*table.Table, error) {
	perSource := make([]*table.Table, 0, len(j.cfg.Sources))
	for _, source := range j.cfg.Sources {
		var stack []*table.Table
		for _, e := range m.Entries() {
			t, err := j.readOne(e.Sample, source)
			if err != nil {
				j.logger.Warn("skipping annotation source for sample",
					zap.String("sample", e.Sample),
					zap.String("source", source),
					zap.Error(err))
				continue
			}
			stack = append(stack, t)
		}
		if len(stack) == 0 {
			j.logger.Warn("annotation source contributed no samples", zap.String("source", source))
			continue
		}
		perSource = append(perSource, table.ConcatRows(stack...))
	}
	return table.ConcatCols(perSource...)
}

// readOne parses and resolves the annotation table of one (sample,
// source) pair.
func (j *Joiner) readOne(sample, source string) (*table.Table, error) {
	individual, tissue, err := j.identity(sample)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(j.cfg.Dir, sample, source+".txt")
	t, err := ReadTable(path, individual, tissue, ReaderConfig{
		Source:   source,
		NAValues: j.cfg.NAValues[source],
		TwoLevel: j.cfg.TwoLevel,
	})
	if err != nil {
		return nil, err
	}
	return Deduplicate(t, j.cfg.Separator), nil
}

func (j *Joiner) identity(sample string) (string, variant.Tissue, error) {
	if id, ok := j.cfg.Overrides[sample]; ok {
		return id.Individual, id.Tissue, nil
	}
	return variant.ParseSampleLabel(sample)
}
