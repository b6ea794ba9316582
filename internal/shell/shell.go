// Package shell implements the Command Surface (C8): a read-a-line/execute
// loop over stdin that dispatches status/start/stop/restart verbs into the
// supervisor. It carries no flags and no positional arguments of its own —
// the entire administration protocol lives in these five verbs.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Supervisor is the subset of *supervisor.Supervisor the shell drives.
type Supervisor interface {
	StatusLines() []string
	StartProgram(name string) string
	StopProgram(name string) []string
	RestartProgram(name string) []string
	KillAll() []string
}

// Shell reads verbs from in and writes responses to out/errOut.
type Shell struct {
	sup    Supervisor
	in     *bufio.Scanner
	out    io.Writer
	errOut io.Writer
}

func New(sup Supervisor, in io.Reader, out, errOut io.Writer) *Shell {
	return &Shell{sup: sup, in: bufio.NewScanner(in), out: out, errOut: errOut}
}

// Run blocks reading lines until EOF, "exit", or "quit". On return, every
// running instance has already been killed.
func (s *Shell) Run() {
	for {
		fmt.Fprint(s.out, "> ")
		if !s.in.Scan() {
			break
		}
		fields := strings.Fields(s.in.Text())
		if len(fields) == 0 {
			continue
		}
		verb, args := fields[0], fields[1:]
		if verb == "exit" || verb == "quit" {
			break
		}
		s.dispatch(verb, args)
	}
	for _, msg := range s.sup.KillAll() {
		fmt.Fprintln(s.out, msg)
	}
}

func (s *Shell) dispatch(verb string, args []string) {
	switch verb {
	case "status":
		for _, line := range s.sup.StatusLines() {
			fmt.Fprintln(s.out, line)
		}
	case "start":
		if len(args) < 1 {
			fmt.Fprintln(s.errOut, "start requires a program name")
			return
		}
		fmt.Fprintln(s.out, s.sup.StartProgram(args[0]))
	case "stop":
		if len(args) < 1 {
			fmt.Fprintln(s.errOut, "stop requires a program name")
			return
		}
		for _, msg := range s.sup.StopProgram(args[0]) {
			fmt.Fprintln(s.out, msg)
		}
	case "restart":
		if len(args) < 1 {
			fmt.Fprintln(s.errOut, "restart requires a program name")
			return
		}
		for _, msg := range s.sup.RestartProgram(args[0]) {
			fmt.Fprintln(s.out, msg)
		}
	default:
		fmt.Fprintln(s.out, "Unknown command")
	}
}
