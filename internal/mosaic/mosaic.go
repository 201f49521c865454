// Package mosaic orchestrates external tools to screen variant call
// files against a genomic blacklist: bcftools for VCF conversion,
// indexing and region filtering, and the MosaicForecast panel-of-normals
// filter script for the blacklist screen itself. All VCF handling is
// delegated to those tools; this package only wires files between them.
package mosaic

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultFilterName is the directory, next to the input VCF, that
// collects the filtered BED files.
const DefaultFilterName = "filt_segdup_clust"

// DefaultThreads is the bcftools thread count used when the runner is
// not configured otherwise.
const DefaultThreads = 16

// runFunc executes one external command; tests substitute it to record
// the argv without running anything.
type runFunc func(ctx context.Context, dir, name string, args ...string) error

// Runner drives the panel-of-normals filter for one blacklist and
// filter-script configuration.
type Runner struct {
	// BED is the blacklist region file (segmental duplications and
	// clustered calls).
	BED string

	// Script is the path of the MuTect2 panel-of-normals filter script,
	// invoked through python3.
	Script string

	// Threads is the bcftools thread count; DefaultThreads when zero.
	Threads int

	// KeepVCF keeps the temporary plain-text VCF derived from a
	// compressed input instead of removing it.
	KeepVCF bool

	logger *zap.Logger
	run    runFunc
}

// NewRunner creates a runner for the given blacklist and filter script.
func NewRunner(bed, script string) *Runner {
	return &Runner{BED: bed, Script: script, logger: zap.NewNop(), run: runCommand}
}

// SetLogger sets the logger used to report the external commands run.
func (r *Runner) SetLogger(l *zap.Logger) { r.logger = l }

func (r *Runner) threads() int {
	if r.Threads > 0 {
		return r.Threads
	}
	return DefaultThreads
}

// PoNFilter runs the panel-of-normals filter on one VCF, producing a
// BED of surviving calls under <dir>/filt_segdup_clust/. The input may
// be plain (.vcf) or bgzipped (.vcf.gz); whichever form is absent is
// produced with bcftools first, since the filter script wants plain
// text while downstream region filtering wants the indexed archive.
// It returns the path of the produced BED.
func (r *Runner) PoNFilter(ctx context.Context, inVCF string) (string, error) {
	// bcftools counts --threads in addition to its main thread
	addThreads := strconv.Itoa(r.threads() - 1)

	var tmpVCF string
	compressed := false
	switch {
	case strings.HasSuffix(inVCF, ".vcf.gz"):
		compressed = true
		tmpVCF = strings.TrimSuffix(inVCF, ".gz")
		if err := r.run(ctx, "", "bcftools", "view", "--threads", addThreads, "-Ov", "-o", tmpVCF, inVCF); err != nil {
			return "", err
		}
	case strings.HasSuffix(inVCF, ".vcf"):
		gzVCF := inVCF + ".gz"
		if err := r.run(ctx, "", "bcftools", "view", "--threads", addThreads, "-Oz", "-o", gzVCF, inVCF); err != nil {
			return "", err
		}
		if err := r.run(ctx, "", "bcftools", "index", "--tbi", "--threads", addThreads, gzVCF); err != nil {
			return "", err
		}
		tmpVCF = inVCF
	default:
		return "", fmt.Errorf("%s is not a .vcf or .vcf.gz file", inVCF)
	}

	dir := filepath.Dir(inVCF)
	base := strings.TrimSuffix(filepath.Base(tmpVCF), ".vcf")

	r.logger.Info("running panel-of-normals filter",
		zap.String("vcf", tmpVCF),
		zap.String("bed", r.BED))
	// The script writes <base>.bed into its working directory.
	if err := r.run(ctx, dir, "python3", r.Script, base, filepath.Base(tmpVCF), r.BED); err != nil {
		return "", err
	}

	filterDir := filepath.Join(dir, DefaultFilterName)
	if err := os.MkdirAll(filterDir, 0755); err != nil {
		return "", fmt.Errorf("create filter directory: %w", err)
	}
	outBED := filepath.Join(filterDir, base+".bed")
	if err := os.Rename(filepath.Join(dir, base+".bed"), outBED); err != nil {
		return "", fmt.Errorf("move filtered bed: %w", err)
	}

	if compressed && !r.KeepVCF {
		if err := os.Remove(tmpVCF); err != nil {
			return "", fmt.Errorf("remove temporary vcf: %w", err)
		}
	}
	return outBED, nil
}

// FilterForBED filters inVCF down to the positions named by a filtered
// BED file, writing a bgzipped VCF to outVCF.
func (r *Runner) FilterForBED(ctx context.Context, inVCF, outVCF, bedPath string) error {
	regions, err := BEDToRegions(bedPath)
	if err != nil {
		return err
	}
	addThreads := strconv.Itoa(r.threads() - 1)
	r.logger.Info("filtering vcf for regions",
		zap.String("vcf", inVCF),
		zap.String("regions", regions))
	return r.run(ctx, "", "bcftools", "view", "--threads", addThreads, "-R", regions, "-Oz", "-o", outVCF, inVCF)
}

// BEDToRegions converts a filter-script BED (chrom, 0-based start, end,
// ref, alt, sample, depth, AF) into the 2-column regions file bcftools
// -R wants, with 1-based positions. The regions file is written next to
// the BED and its path returned.
func BEDToRegions(bedPath string) (string, error) {
	f, err := os.Open(bedPath)
	if err != nil {
		return "", fmt.Errorf("open bed: %w", err)
	}
	defer f.Close()

	outPath := strings.TrimSuffix(bedPath, ".bed") + ".regions"
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create regions file: %w", err)
	}
	w := bufio.NewWriter(out)

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
			out.Close()
			return "", fmt.Errorf("bed line %d: expected at least 2 columns, found %d", line, len(fields))
		}
		pos0, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			out.Close()
			return "", fmt.Errorf("bed line %d: invalid start %q", line, fields[1])
		}
		// BED starts are 0-based; bcftools regions are 1-based.
		fmt.Fprintf(w, "%s\t%d\n", fields[0], pos0+1)
	}
	if err := sc.Err(); err != nil {
		out.Close()
		return "", fmt.Errorf("scan bed: %w", err)
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return outPath, nil
}

// runCommand executes one external command, surfacing its stderr in the
// returned error.
func runCommand(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
