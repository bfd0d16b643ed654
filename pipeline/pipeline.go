// Package pipeline chains the external tools that polish a draft assembly:
// optional run-length compression, alignment of basecalls to the draft,
// consensus probability inference, and final consensus generation by either
// stitching or variant calling plus application. Stages are idempotent: each
// is skipped when its artifact already exists, unless a stage upstream of it
// actually ran.
package pipeline

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/arun-sub/medaka/manifest"
	"github.com/arun-sub/medaka/shell"
	"github.com/arun-sub/medaka/summary"
	"github.com/pkg/errors"
)

// Artifact names inside the output directory.
const (
	CompressedBasecalls = "basecalls.fastrle.gz"
	CompressedDraft     = "draft.fastrle.gz"
	AlignmentPrefix     = "calls_to_draft"
	AlignmentFile       = "calls_to_draft.bam"
	ProbsFile           = "consensus_probs.hdf"
	ConsensusFile       = "consensus.fasta"
	VariantsFile        = "variants.vcf"
	ChainFile           = "draft_to_consensus.chain"
	GapsBed             = "gaps_in_draft_coords.bed"
	PolishedBed         = "polished_regions.bed"
)

// stitchMaxThreads caps the thread request passed to medaka stitch, which
// scales poorly past this count.
const stitchMaxThreads = 8

// Config fully determines a run. Immutable once built.
type Config struct {
	Basecalls string
	Draft     string
	OutDir    string
	Model     string
	Threads   int
	BatchSize int
	Force     bool
	VCFOut    bool
}

// Path returns the location of a named artifact inside the output directory.
func (c Config) Path(artifact string) string {
	return filepath.Join(c.OutDir, artifact)
}

// ModelQuerier answers the model-derived questions stages need.
type ModelQuerier interface {
	IsRLEModel(model string) (bool, error)
	AlignmentParams(model string) ([]string, error)
}

// Result describes what a completed run did.
type Result struct {
	RLE             bool
	UsedVariantPath bool
	Timings         []summary.StageTime
}

type Pipeline struct {
	cfg     Config
	sh      shell.Commander
	models  ModelQuerier
	log     *log.Logger
	mf      *manifest.Manifest
	timings []summary.StageTime
}

func New(cfg Config, sh shell.Commander, models ModelQuerier, logger *log.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, sh: sh, models: models, log: logger}
}

// Run executes the stages in order, stopping at the first failure. Each stage
// reports whether it actually executed; any stage that runs forces every
// stage after it.
func (p *Pipeline) Run() (Result, error) {
	var res Result
	rle, err := p.models.IsRLEModel(p.cfg.Model)
	if err != nil {
		return res, err
	}
	res.RLE = rle

	if err = p.prepareOutDir(); err != nil {
		return res, err
	}
	p.mf = manifest.New(p.cfg.OutDir)

	basecalls, draft := p.cfg.Basecalls, p.cfg.Draft
	force := p.cfg.Force
	if rle {
		var ran bool
		if ran, err = p.compress(force); err != nil {
			return res, err
		}
		force = force || ran
		basecalls = p.cfg.Path(CompressedBasecalls)
		draft = p.cfg.Path(CompressedDraft)
	}

	ran, err := p.align(basecalls, draft, force)
	if err != nil {
		return res, err
	}
	force = force || ran

	if ran, err = p.inference(force); err != nil {
		return res, err
	}
	force = force || ran

	res.UsedVariantPath = p.cfg.VCFOut && !rle
	if p.cfg.VCFOut && rle {
		p.log.Println("WARNING: vcf output is not supported for run-length models, stitching consensus instead.")
	}

	if !force && exists(p.cfg.Path(ConsensusFile)) {
		p.log.Printf("Consensus %s exists already, remove %s to force recreation.", p.cfg.Path(ConsensusFile), p.cfg.OutDir)
		res.Timings = p.timings
		return res, nil
	}
	if res.UsedVariantPath {
		err = p.applyVariants()
	} else {
		err = p.stitch(rle)
	}
	if err != nil {
		return res, err
	}
	res.Timings = p.timings
	return res, nil
}

func (p *Pipeline) prepareOutDir() error {
	info, err := os.Stat(p.cfg.OutDir)
	switch {
	case err == nil && !info.IsDir():
		return errors.Errorf("output location %s exists and is not a directory", p.cfg.OutDir)
	case err == nil && p.cfg.Force:
		p.log.Printf("WARNING: Output %s already exists, existing files will be overwritten.", p.cfg.OutDir)
	case err == nil:
		p.log.Printf("WARNING: Output %s already exists, may use old results.", p.cfg.OutDir)
	default:
		if err = os.MkdirAll(p.cfg.OutDir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create output directory %s", p.cfg.OutDir)
		}
	}
	return nil
}

// compress run-length encodes the basecalls and the draft for models trained
// on homopolymer-compressed input.
func (p *Pipeline) compress(force bool) (bool, error) {
	if !force && exists(p.cfg.Path(CompressedBasecalls)) && exists(p.cfg.Path(CompressedDraft)) {
		p.log.Println("Skipping compression of basecalls and draft, found existing compressed files.")
		return false, nil
	}
	defer p.timed("compress")()
	pairs := [][2]string{
		{p.cfg.Basecalls, p.cfg.Path(CompressedBasecalls)},
		{p.cfg.Draft, p.cfg.Path(CompressedDraft)},
	}
	for _, pair := range pairs {
		err := p.sh.RunScript("medaka fastrle {{in}} | bgzip > {{out}}",
			map[string]interface{}{"in": pair[0], "out": pair[1]})
		if err != nil {
			return false, errors.Wrapf(err, "failed to compress %s", pair[0])
		}
	}
	p.record("compress", p.cfg.Basecalls, p.cfg.Draft)
	return true, nil
}

func (p *Pipeline) align(basecalls, draft string, force bool) (bool, error) {
	if !force && exists(p.cfg.Path(AlignmentFile)) {
		p.log.Printf("Skipping alignment of basecalls to draft, found existing %s.", p.cfg.Path(AlignmentFile))
		return false, nil
	}
	defer p.timed("align")()
	params, err := p.models.AlignmentParams(p.cfg.Model)
	if err != nil {
		return false, err
	}
	args := []string{
		"-i", basecalls,
		"-r", draft,
		"-m",
		"-p", p.cfg.Path(AlignmentPrefix),
		"-t", strconv.Itoa(p.cfg.Threads),
	}
	args = append(args, params...)
	if err = p.sh.Run("mini_align", args...); err != nil {
		return false, errors.Wrap(err, "failed to run alignment of basecalls to draft")
	}
	if !exists(p.cfg.Path(AlignmentFile)) {
		return false, errors.Errorf("alignment finished but did not produce %s", p.cfg.Path(AlignmentFile))
	}
	p.record("align", basecalls, draft)
	return true, nil
}

func (p *Pipeline) inference(force bool) (bool, error) {
	if !force && exists(p.cfg.Path(ProbsFile)) {
		p.log.Printf("Skipping consensus probability calculation, found existing %s.", p.cfg.Path(ProbsFile))
		return false, nil
	}
	defer p.timed("consensus_probs")()
	os.Remove(p.cfg.Path(ProbsFile))
	err := p.sh.Run("medaka", "consensus",
		p.cfg.Path(AlignmentFile), p.cfg.Path(ProbsFile),
		"--model", p.cfg.Model,
		"--batch_size", strconv.Itoa(p.cfg.BatchSize),
		"--threads", strconv.Itoa(p.cfg.Threads))
	if err != nil {
		return false, errors.Wrap(err, "failed to compute consensus probabilities")
	}
	p.record("consensus_probs", p.cfg.Path(AlignmentFile))
	return true, nil
}

// stitch assembles the per-chunk consensus into the polished assembly. For
// models on raw bases the draft is passed so uncovered gaps are filled with
// draft sequence and annotated; run-length models never gap-fill.
func (p *Pipeline) stitch(rle bool) error {
	defer p.timed("stitch")()
	threads := p.cfg.Threads
	if threads > stitchMaxThreads {
		threads = stitchMaxThreads
	}
	args := []string{"stitch", "--threads", strconv.Itoa(threads), p.cfg.Path(ProbsFile)}
	if !rle {
		args = append(args, p.cfg.Draft)
	}
	args = append(args, p.cfg.Path(ConsensusFile))
	if err := p.sh.Run("medaka", args...); err != nil {
		return errors.Wrap(err, "failed to stitch consensus chunks")
	}
	p.record("stitch", p.cfg.Path(ProbsFile))
	return nil
}

// applyVariants produces the polished assembly by calling variants against
// the draft and applying them, keeping the vcf, its index, a draft-to-
// consensus coordinate chain, and a polished-regions annotation.
func (p *Pipeline) applyVariants() error {
	defer p.timed("variants")()
	vcfPath := p.cfg.Path(VariantsFile)
	stale := []string{vcfPath, vcfPath + ".gz", vcfPath + ".gz.tbi", p.cfg.Path(ChainFile), p.cfg.Path(PolishedBed)}
	for _, f := range stale {
		os.Remove(f)
	}
	if err := p.sh.Run("medaka", "variant", p.cfg.Draft, p.cfg.Path(ProbsFile), vcfPath); err != nil {
		return errors.Wrap(err, "failed to call variants against the draft")
	}
	err := p.sh.RunScript("bgzip -f {{vcf}} && tabix -f -p vcf {{vcf}}.gz",
		map[string]interface{}{"vcf": vcfPath})
	if err != nil {
		return errors.Wrap(err, "failed to compress and index variants")
	}
	err = p.sh.Run("bcftools", "consensus",
		"-f", p.cfg.Draft,
		"-c", p.cfg.Path(ChainFile),
		"-o", p.cfg.Path(ConsensusFile),
		vcfPath+".gz")
	if err != nil {
		return errors.Wrap(err, "failed to apply variants to the draft")
	}
	if err = p.sh.Run("medaka", "tools", "hdf2bed", p.cfg.Path(ProbsFile), p.cfg.Path(PolishedBed)); err != nil {
		return errors.Wrap(err, "failed to derive polished regions")
	}
	p.record("variants", p.cfg.Draft, p.cfg.Path(ProbsFile))
	return nil
}

// timed returns a func recording the stage wall time when deferred.
func (p *Pipeline) timed(stage string) func() {
	start := time.Now()
	return func() {
		p.timings = append(p.timings, summary.StageTime{Stage: stage, Seconds: time.Since(start).Seconds()})
	}
}

// record notes stage completion in the sidecar manifest. Manifest trouble is
// never fatal, skip decisions do not depend on it.
func (p *Pipeline) record(stage string, inputs ...string) {
	if err := p.mf.Record(stage, inputs...); err != nil {
		p.log.Printf("WARNING: could not update manifest: %v", err)
	}
}

func exists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
