package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func writeInputs(t *testing.T) (dir, basecalls, draft string) {
	dir = t.TempDir()
	basecalls = filepath.Join(dir, "reads.fastq")
	draft = filepath.Join(dir, "draft.fasta")
	if err := os.WriteFile(basecalls, []byte("@r1\nACGT\n+\n!!!!\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(draft, []byte(">c1\nACGT\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, basecalls, draft
}

func TestParseOptions(t *testing.T) {
	dir, basecalls, draft := writeInputs(t)
	out := filepath.Join(dir, "polish")
	cfg, err := parseOptions([]string{"-i", basecalls, "-d", draft, "-o", out, "-t", "4", "-v"})
	if err != nil {
		t.Fatal("problem with valid options:", err)
	}
	if cfg.Basecalls != basecalls || cfg.Draft != draft || cfg.OutDir != out {
		t.Error("problem with resolved paths:", cfg)
	}
	if cfg.Threads != 4 || cfg.BatchSize != 100 || !cfg.VCFOut || cfg.Force {
		t.Error("problem with option values and defaults:", cfg)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("problem with side effects: output directory created during parsing")
	}
}

func TestMissingRequiredOptions(t *testing.T) {
	dir, basecalls, draft := writeInputs(t)
	out := filepath.Join(dir, "polish")
	cases := [][]string{
		{"-d", draft, "-o", out},
		{"-i", basecalls, "-o", out},
		{"-o", out},
	}
	for _, args := range cases {
		if _, err := parseOptions(args); err == nil {
			t.Error("problem with required option check, args:", args)
		}
		if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
			t.Error("problem with side effects: output directory created for args:", args)
		}
	}
}

func TestUnknownOptionRejected(t *testing.T) {
	_, basecalls, draft := writeInputs(t)
	_, err := parseOptions([]string{"-i", basecalls, "-d", draft, "-Z"})
	if err == nil || err == flag.ErrHelp {
		t.Error("problem with unknown option handling:", err)
	}
}

func TestHelpRequested(t *testing.T) {
	if _, err := parseOptions([]string{"-h"}); err != flag.ErrHelp {
		t.Error("problem with help handling:", err)
	}
}

func TestInvalidNumericOptions(t *testing.T) {
	_, basecalls, draft := writeInputs(t)
	if _, err := parseOptions([]string{"-i", basecalls, "-d", draft, "-t", "0"}); err == nil {
		t.Error("problem with thread count validation")
	}
	if _, err := parseOptions([]string{"-i", basecalls, "-d", draft, "-b", "0"}); err == nil {
		t.Error("problem with batch size validation")
	}
}

func TestMissingInputFiles(t *testing.T) {
	dir, basecalls, draft := writeInputs(t)
	missing := filepath.Join(dir, "nope.fastq")
	if _, err := parseOptions([]string{"-i", missing, "-d", draft}); err == nil {
		t.Error("problem with basecalls existence check")
	}
	if _, err := parseOptions([]string{"-i", basecalls, "-d", missing}); err == nil {
		t.Error("problem with draft existence check")
	}
}
