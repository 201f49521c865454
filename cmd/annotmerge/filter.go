package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bsmlab/annotmerge/internal/mosaic"
)

func newFilterCmd(verbose *bool) *cobra.Command {
	var (
		bed     string
		script  string
		threads int
		keepVCF bool
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Screen variant call files against the genomic blacklist",
		Long: `Run the MosaicForecast panel-of-normals filter over variant call files
using bcftools and the MuTect2-PoN filter script. Both external tools
must be installed.`,
	}

	cmd.PersistentFlags().StringVar(&bed, "bed", "", "Blacklist region file (SegDup and clustered calls)")
	cmd.PersistentFlags().StringVar(&script, "script", "", "MuTect2 panel-of-normals filter script")
	cmd.PersistentFlags().IntVar(&threads, "threads", 0, "bcftools thread count (default 16)")

	newRunner := func() (*mosaic.Runner, error) {
		if bed == "" {
			bed = viper.GetString("filter.bed")
		}
		if script == "" {
			script = viper.GetString("filter.script")
		}
		if threads == 0 {
			threads = viper.GetInt("filter.threads")
		}
		r := mosaic.NewRunner(bed, script)
		r.Threads = threads
		r.KeepVCF = keepVCF
		logger, err := newLogger(*verbose)
		if err != nil {
			return nil, err
		}
		r.SetLogger(logger)
		return r, nil
	}

	pon := &cobra.Command{
		Use:   "pon <input.vcf[.gz]>",
		Short: "Run the panel-of-normals filter on one VCF",
		Example: `  annotmerge filter pon --bed SegDup_and_clustered.bed \
      --script MuTect2-PoN_filter.py sample.vcf.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner()
			if err != nil {
				return err
			}
			if r.BED == "" {
				return fmt.Errorf("a blacklist BED is required (--bed or the filter.bed config key)")
			}
			if r.Script == "" {
				return fmt.Errorf("the filter script is required (--script or the filter.script config key)")
			}
			outBED, err := r.PoNFilter(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(outBED)
			return nil
		},
	}
	pon.Flags().BoolVar(&keepVCF, "keep-vcf", false, "Keep the temporary plain-text VCF")

	regions := &cobra.Command{
		Use:   "regions <input.vcf[.gz]> <output.vcf.gz> <filtered.bed>",
		Short: "Filter a VCF down to the calls surviving the blacklist screen",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner()
			if err != nil {
				return err
			}
			return r.FilterForBED(cmd.Context(), args[0], args[1], args[2])
		},
	}

	cmd.AddCommand(pon)
	cmd.AddCommand(regions)
	return cmd
}
