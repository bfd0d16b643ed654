package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/arun-sub/medaka/pipeline"
	"github.com/arun-sub/medaka/shell"
	"github.com/arun-sub/medaka/summary"
	"github.com/arun-sub/medaka/toolkit"
	"github.com/pkg/errors"
)

const version string = "0.1.0"

func usage(fs *flag.FlagSet) {
	fmt.Fprint(os.Stderr,
		"medaka_consensus - Polish a draft assembly with neural network consensus calls.\n"+
			"Version: "+version+"\n"+
			"Usage:\n"+
			"medaka_consensus [options] -i basecalls.fastq -d draft.fasta\n\n")
	fs.PrintDefaults()
}

// parseOptions builds the run configuration from command line arguments.
// It never touches the filesystem beyond stat'ing the inputs, so option
// errors leave nothing behind. Returns flag.ErrHelp when help was requested.
func parseOptions(args []string) (pipeline.Config, error) {
	fs := flag.NewFlagSet("medaka_consensus", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("i", "", "Basecalls in fastq or fasta. Required.")
	draft := fs.String("d", "", "Draft assembly fasta to polish. Required.")
	outDir := fs.String("o", "medaka", "Output directory.")
	model := fs.String("m", "", "Model name or path to a trained model file. Defaults to the toolkit's default consensus model.")
	vcfOut := fs.Bool("v", false, "Also output variants (vcf, index, coordinate chain) and a polished regions bed.")
	force := fs.Bool("f", false, "Force recreation of outputs, even if they already exist.")
	threads := fs.Int("t", 1, "Number of threads passed to the external tools.")
	batchSize := fs.Int("b", 100, "Batch size for neural network inference.")
	fs.Usage = func() { usage(fs) }

	var cfg pipeline.Config
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if *input == "" || *draft == "" {
		fs.Usage()
		return cfg, errors.New("must specify basecalls (-i) and a draft assembly (-d)")
	}
	if *threads < 1 {
		return cfg, errors.New("threads (-t) must be >= 1")
	}
	if *batchSize < 1 {
		return cfg, errors.New("batch size (-b) must be >= 1")
	}

	cfg = pipeline.Config{
		Basecalls: mustAbs(*input),
		Draft:     mustAbs(*draft),
		OutDir:    mustAbs(*outDir),
		Model:     *model,
		Threads:   *threads,
		BatchSize: *batchSize,
		Force:     *force,
		VCFOut:    *vcfOut,
	}
	if !fileExists(cfg.Basecalls) {
		return cfg, errors.Errorf("basecalls file %s not found", cfg.Basecalls)
	}
	if !fileExists(cfg.Draft) {
		return cfg, errors.Errorf("draft assembly %s not found", cfg.Draft)
	}
	return cfg, nil
}

func main() {
	cfg, err := parseOptions(os.Args[1:])
	switch err {
	case nil:
	case flag.ErrHelp:
		os.Exit(0)
	default:
		log.Fatal("ERROR: ", err)
	}

	logger := log.New(os.Stderr, "[medaka_consensus] ", log.Ldate|log.Ltime)
	sh := shell.Exec{Log: logger}
	fmt.Fprint(os.Stderr, shell.Report())

	tk := toolkit.New(sh)
	report, err := tk.VersionReport()
	if err != nil {
		logger.Fatal("ERROR: ", err)
	}
	fmt.Fprint(os.Stderr, report)

	if cfg.Model == "" {
		_, cfg.Model, err = tk.ListModels()
		if err != nil {
			logger.Fatal("ERROR: ", err)
		}
	}
	resolved, err := tk.ResolveModel(cfg.Model)
	if err != nil {
		logger.Fatal("ERROR: ", err)
	}
	logger.Printf("Using model %s (%s).", cfg.Model, resolved)

	res, err := pipeline.New(cfg, sh, tk, logger).Run()
	if err != nil {
		logger.Fatal("ERROR: ", err)
	}
	reportSummary(logger, cfg, res)
	logger.Printf("Polished assembly written to %s.", cfg.Path(pipeline.ConsensusFile))
}

func reportSummary(logger *log.Logger, cfg pipeline.Config, res pipeline.Result) {
	contigs, bases := summary.DraftStats(cfg.Draft)
	logger.Printf("Draft %s: %d contigs, %d bases.", cfg.Draft, contigs, bases)
	if res.UsedVariantPath {
		vcfGz := cfg.Path(pipeline.VariantsFile) + ".gz"
		if fileExists(vcfGz) {
			logger.Printf("Applied %d variants, coordinate chain in %s.", summary.VariantCount(vcfGz), cfg.Path(pipeline.ChainFile))
		}
		if fileExists(cfg.Path(pipeline.PolishedBed)) {
			logger.Printf("Polished regions cover %d draft bases.", summary.BedBases(cfg.Path(pipeline.PolishedBed)))
		}
	} else if !res.RLE && fileExists(cfg.Path(pipeline.GapsBed)) {
		logger.Printf("Gaps filled from draft cover %d bases, see %s.", summary.BedBases(cfg.Path(pipeline.GapsBed)), cfg.Path(pipeline.GapsBed))
	}
	if len(res.Timings) > 0 {
		fmt.Fprintln(os.Stderr, summary.Profile(res.Timings))
	}
}

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		log.Fatalf("ERROR: cannot resolve path %s: %v", path, err)
	}
	return abs
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
