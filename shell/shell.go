// Package shell runs the external programs the pipeline drives. Exactly one
// process is awaited at a time; tool-internal parallelism is controlled by the
// tools' own thread arguments.
package shell

import (
	"os"
	"os/exec"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Commander abstracts external process invocation so pipeline stages can be
// tested without the real tools installed.
type Commander interface {
	// Run executes a single program with args, inheriting stdout/stderr.
	Run(name string, args ...string) error
	// RunScript expands a {{var}} template into a shell command line and runs
	// it with bash -c. Used for invocations that need pipes or redirects.
	RunScript(script string, vars map[string]interface{}) error
	// Output executes a program and returns its captured standard output.
	Output(name string, args ...string) (string, error)
}

// Logger is the subset of log.Logger used for command echo.
type Logger interface {
	Println(v ...interface{})
}

// Exec is the production Commander. If Log is non-nil every command line is
// echoed before it runs.
type Exec struct {
	Log Logger
}

func (e Exec) Run(name string, args ...string) error {
	e.echo(name + " " + strings.Join(args, " "))
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (e Exec) RunScript(script string, vars map[string]interface{}) error {
	cmdStr := fasttemplate.New(script, "{{", "}}").ExecuteString(vars)
	e.echo(cmdStr)
	cmd := exec.Command("bash", "-c", cmdStr)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (e Exec) Output(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	return string(out), err
}

func (e Exec) echo(line string) {
	if e.Log != nil {
		e.Log.Println(line)
	}
}

// Available reports whether prog can be found on $PATH.
func Available(prog string) bool {
	_, err := exec.LookPath(prog)
	return err == nil
}
