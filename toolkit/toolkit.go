// Package toolkit queries the medaka executable for versions, models and
// model-derived parameters. Every query is an external process invocation;
// results that can recur within one run are cached.
package toolkit

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/arun-sub/medaka/shell"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

const prog = "medaka"

// supportedMajor is the toolkit major version this driver is written against.
const supportedMajor = 1

type Toolkit struct {
	sh shell.Commander

	listed       bool
	models       []string
	defaultModel string
}

func New(sh shell.Commander) *Toolkit {
	return &Toolkit{sh: sh}
}

// Version returns the toolkit version string, e.g. "1.4.3".
func (tk *Toolkit) Version() (string, error) {
	out, err := tk.sh.Output(prog, "--version")
	if err != nil {
		return "", errors.Wrap(err, "failed to query medaka version")
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return "", errors.Errorf("unexpected version output from medaka: %q", strings.TrimSpace(out))
	}
	return fields[len(fields)-1], nil
}

// CheckVersion fails when the installed toolkit's major version differs from
// the one this driver targets.
func CheckVersion(version string) error {
	major, err := strconv.Atoi(strings.SplitN(version, ".", 2)[0])
	if err != nil {
		return errors.Errorf("cannot parse medaka version %q", version)
	}
	if major != supportedMajor {
		return errors.Errorf("medaka %s is not compatible with this driver (requires %d.x)", version, supportedMajor)
	}
	return nil
}

// ListModels returns the available model names and the default consensus
// model. The underlying query runs at most once per Toolkit.
func (tk *Toolkit) ListModels() ([]string, string, error) {
	if tk.listed {
		return tk.models, tk.defaultModel, nil
	}
	out, err := tk.sh.Output(prog, "tools", "list_models")
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to list medaka models")
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "Available:"):
			for _, m := range strings.Split(strings.TrimPrefix(line, "Available:"), ",") {
				if m = strings.TrimSpace(m); m != "" {
					tk.models = append(tk.models, m)
				}
			}
		case strings.HasPrefix(line, "Default consensus:"):
			tk.defaultModel = strings.TrimSpace(strings.TrimPrefix(line, "Default consensus:"))
		}
	}
	if tk.defaultModel == "" {
		return nil, "", errors.Errorf("no default consensus model reported by %s tools list_models", prog)
	}
	tk.listed = true
	return tk.models, tk.defaultModel, nil
}

// ResolveModel turns a model name or a path to a trained model file into the
// model file the inference stage will load. Named models must appear in the
// toolkit's model list.
func (tk *Toolkit) ResolveModel(model string) (string, error) {
	if fileExists(model) {
		return model, nil
	}
	models, _, err := tk.ListModels()
	if err != nil {
		return "", err
	}
	if !slices.Contains(models, model) {
		return "", errors.Errorf("unknown model %s; available models: %s", model, strings.Join(models, ", "))
	}
	out, err := tk.sh.Output(prog, "tools", "resolve_model", "--model", model)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve model %s", model)
	}
	return strings.TrimSpace(out), nil
}

// IsRLEModel reports whether the model operates on a homopolymer-compressed
// read representation.
func (tk *Toolkit) IsRLEModel(model string) (bool, error) {
	out, err := tk.sh.Output(prog, "tools", "is_rle_model", "--model", model)
	if err != nil {
		return false, errors.Wrapf(err, "failed to classify model %s", model)
	}
	switch strings.ToLower(strings.TrimSpace(out)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, errors.Errorf("unexpected is_rle_model output for %s: %q", model, strings.TrimSpace(out))
}

// AlignmentParams returns extra aligner arguments derived from the model,
// split ready to append to the aligner command line. May be empty.
func (tk *Toolkit) AlignmentParams(model string) ([]string, error) {
	out, err := tk.sh.Output(prog, "tools", "get_alignment_params", "--model", model)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query alignment parameters for model %s", model)
	}
	return strings.Fields(out), nil
}

// VersionReport builds the version/compatibility report printed at startup.
// It returns an error when the installed toolkit is unusable.
func (tk *Toolkit) VersionReport() (string, error) {
	version, err := tk.Version()
	if err != nil {
		return "", err
	}
	if err = CheckVersion(version); err != nil {
		return "", err
	}
	models, def, err := tk.ListModels()
	if err != nil {
		return "", err
	}
	s := new(strings.Builder)
	fmt.Fprintf(s, "medaka version: %s\n", version)
	fmt.Fprintf(s, "available models: %s\n", strings.Join(models, ", "))
	fmt.Fprintf(s, "default consensus model: %s\n", def)
	return s.String(), nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
