package shell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	if err := (Exec{}).Run("true"); err != nil {
		t.Error("problem with successful command:", err)
	}
	if err := (Exec{}).Run("false"); err == nil {
		t.Error("problem with failing command: expected error")
	}
}

func TestRunScript(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	err := Exec{}.RunScript("echo polished > {{out}}", map[string]interface{}{"out": out})
	if err != nil {
		t.Fatal("problem with script run:", err)
	}
	data, err := os.ReadFile(out)
	if err != nil || strings.TrimSpace(string(data)) != "polished" {
		t.Error("problem with script redirect:", string(data), err)
	}
}

func TestOutput(t *testing.T) {
	out, err := Exec{}.Output("echo", "hello")
	if err != nil || strings.TrimSpace(out) != "hello" {
		t.Error("problem with captured output:", out, err)
	}
}

func TestAvailable(t *testing.T) {
	if !Available("sh") {
		t.Error("problem with lookup: sh should be on PATH")
	}
	if Available("definitely-not-a-real-program-xyz") {
		t.Error("problem with lookup: nonexistent program reported available")
	}
}

func TestReport(t *testing.T) {
	report := Report()
	for _, want := range []string{"medaka", "mini_align", "bgzip", "tabix", "bcftools"} {
		if !strings.Contains(report, want) {
			t.Errorf("problem with preflight report, missing %q:\n%s", want, report)
		}
	}
}
