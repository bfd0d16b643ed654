// Package manifest keeps a JSON sidecar in the output directory recording
// which stages completed and fingerprints of their inputs. It is purely
// informational: stage skip decisions are based on artifact existence, so a
// hand-deleted manifest never changes pipeline behavior.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const FileName = ".medaka_consensus.json"

// Fingerprint identifies an input file as it was when a stage consumed it.
type Fingerprint struct {
	Path    string    `json:"path"`
	Bytes   int64     `json:"bytes"`
	ModTime time.Time `json:"modTime"`
}

// Stage records one completed pipeline stage.
type Stage struct {
	Name        string        `json:"name"`
	CompletedAt time.Time     `json:"completedAt"`
	Inputs      []Fingerprint `json:"inputs"`
}

type Manifest struct {
	path   string
	Stages []Stage `json:"stages"`
}

// New loads the manifest from dir, or starts an empty one if none exists or
// the existing file cannot be parsed.
func New(dir string) *Manifest {
	m := &Manifest{path: filepath.Join(dir, FileName)}
	data, err := os.ReadFile(m.path)
	if err != nil {
		return m
	}
	if json.Unmarshal(data, m) != nil {
		m.Stages = nil
	}
	return m
}

// Record marks stage complete with fingerprints of its inputs, replacing any
// previous record for the same stage, and rewrites the sidecar file.
func (m *Manifest) Record(stage string, inputs ...string) error {
	rec := Stage{Name: stage, CompletedAt: time.Now()}
	for _, in := range inputs {
		fp := Fingerprint{Path: in}
		if info, err := os.Stat(in); err == nil {
			fp.Bytes = info.Size()
			fp.ModTime = info.ModTime()
		}
		rec.Inputs = append(rec.Inputs, fp)
	}

	replaced := false
	for i := range m.Stages {
		if m.Stages[i].Name == stage {
			m.Stages[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		m.Stages = append(m.Stages, rec)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

// Completed reports whether stage has a completion record.
func (m *Manifest) Completed(stage string) bool {
	for i := range m.Stages {
		if m.Stages[i].Name == stage {
			return true
		}
	}
	return false
}
