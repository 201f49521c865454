package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bsmlab/annotmerge/internal/annot"
	"github.com/bsmlab/annotmerge/internal/callset"
	"github.com/bsmlab/annotmerge/internal/table"
)

// Config file entries that carry case-sensitive column and source names
// are lists of keyed entries rather than maps, because viper lowercases
// map keys.
type naEntry struct {
	Source string   `mapstructure:"source"`
	Values []string `mapstructure:"values"`
}

type categoryEntry struct {
	Column     string   `mapstructure:"column"`
	Categories []string `mapstructure:"categories"`
}

type vectorizeEntry struct {
	Column string `mapstructure:"column"`
	None   string `mapstructure:"none"`
}

func newMergeCmd(verbose *bool) *cobra.Command {
	var (
		manifestPath string
		dir          string
		callsPath    string
		outputPath   string
		dbPath       string
		sources      []string
		twoLevel     bool
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Build the unified annotation table for a call set",
		Long: `Read every per-sample, per-source annotation table named by the sample
manifest, resolve duplicated variants, outer-join sources and samples
into one wide table, then binarize, regularize and vectorize columns
per the configuration.`,
		Example: `  annotmerge merge --manifest filtered-vcfs.tsv --dir annotations \
      --calls calls.tsv --sources near_gens,gerp -o annotated-calls.tsv

  # also persist the result to a DuckDB store
  annotmerge merge --calls calls.tsv --db annotated-calls.duckdb`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fallback(&manifestPath, "manifest")
			fallback(&dir, "annotations.dir")
			fallback(&callsPath, "calls")
			if len(sources) == 0 {
				sources = viper.GetStringSlice("sources")
			}
			return runMerge(*verbose, manifestPath, dir, callsPath, outputPath, dbPath, sources, twoLevel)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Sample manifest (sample label TAB call file)")
	cmd.Flags().StringVar(&dir, "dir", "", "Root directory of per-sample annotation directories")
	cmd.Flags().StringVar(&callsPath, "calls", "", "Reference call set table")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Also save the result to a DuckDB store at this path")
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "Annotation source names, in output column order")
	cmd.Flags().BoolVar(&twoLevel, "two-level", false, "Keep two-level (source, feature) column labels")

	return cmd
}

func fallback(flag *string, key string) {
	if *flag == "" {
		*flag = viper.GetString(key)
	}
}

func runMerge(verbose bool, manifestPath, dir, callsPath, outputPath, dbPath string, sources []string, twoLevel bool) error {
	switch {
	case manifestPath == "":
		return fmt.Errorf("a sample manifest is required (--manifest or the manifest config key)")
	case dir == "":
		return fmt.Errorf("an annotation directory is required (--dir or the annotations.dir config key)")
	case callsPath == "":
		return fmt.Errorf("a reference call set is required (--calls or the calls config key)")
	case len(sources) == 0:
		return fmt.Errorf("at least one annotation source is required (--sources or the sources config key)")
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	manifest, err := annot.ReadManifest(manifestPath)
	if err != nil {
		return err
	}
	calls, err := callset.ReadTSV(callsPath)
	if err != nil {
		return err
	}

	naValues := make(map[string][]string)
	var naEntries []naEntry
	if err := viper.UnmarshalKey("na_values", &naEntries); err != nil {
		return fmt.Errorf("config na_values: %w", err)
	}
	for _, e := range naEntries {
		naValues[e.Source] = e.Values
	}

	joiner := annot.NewJoiner(annot.JoinConfig{
		Dir:      dir,
		Sources:  sources,
		NAValues: naValues,
		TwoLevel: twoLevel,
	})
	joiner.SetLogger(logger)
	unified, err := joiner.Join(manifest)
	if err != nil {
		return err
	}
	logger.Info("joined annotation sources",
		zap.Int("rows", unified.NumRows()),
		zap.Int("columns", unified.NumCols()),
		zap.Int("samples", manifest.Len()))

	// Binarize the configured columns that are present and numeric;
	// even with none configured this reindexes against the call set.
	var binCols []table.Label
	for _, name := range viper.GetStringSlice("binarize") {
		j := unified.ColumnIndexFlat(name)
		if j == -1 || unified.Column(j).Kind != table.Number {
			logger.Warn("not binarizing column", zap.String("column", name))
			continue
		}
		binCols = append(binCols, unified.Column(j).Label)
	}
	result, err := annot.Binarize(binCols, unified, calls, annot.BinarizeConfig{})
	if err != nil {
		return err
	}

	var catEntries []categoryEntry
	if err := viper.UnmarshalKey("categories", &catEntries); err != nil {
		return fmt.Errorf("config categories: %w", err)
	}
	if len(catEntries) > 0 {
		spec := make(annot.CategorySpec, len(catEntries))
		for _, e := range catEntries {
			spec[e.Column] = e.Categories
		}
		result, err = annot.RegularizeCategories(spec, result, viper.GetString("fallback"))
		if err != nil {
			return err
		}
	}

	var vecEntries []vectorizeEntry
	if err := viper.UnmarshalKey("vectorize", &vecEntries); err != nil {
		return fmt.Errorf("config vectorize: %w", err)
	}
	if len(vecEntries) > 0 {
		specs := make([]annot.VectorizeSpec, len(vecEntries))
		for i, e := range vecEntries {
			specs[i] = annot.VectorizeSpec{Column: e.Column, None: e.None}
		}
		result, err = annot.VectorizeMultiple(result, specs)
		if err != nil {
			return err
		}
	}

	if outputPath == "" || outputPath == "-" {
		if err := callset.WriteTSV(os.Stdout, result); err != nil {
			return err
		}
	} else if err := callset.WriteTSVFile(outputPath, result); err != nil {
		return err
	}

	if dbPath != "" {
		store, err := callset.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save("annotated_calls", result); err != nil {
			return err
		}
		logger.Info("saved annotated calls", zap.String("db", dbPath))
	}
	return nil
}
