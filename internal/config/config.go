// Package config implements the Config Loader (C9): reading the top-level
// program-name -> ProgramDefinition mapping from ./config.yml via viper, with
// defaulting and validation. A malformed file is a fatal ConfigParseError at
// startup; on reload the caller is responsible for retaining the old registry.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"github.com/taskmastergo/taskmaster/internal/process"
)

// ErrConfigParse wraps any failure to read or decode the configuration file.
var ErrConfigParse = errors.New("config parse error")

// Defaults applied to absent optional fields, per SPEC_FULL.md C9.
const (
	DefaultNumProcs     = 1
	DefaultStartRetries = 3
	DefaultStartTime    = 1
	DefaultStopTime     = 10
	DefaultStopSignal   = syscall.SIGTERM
	DefaultAutoRestart  = process.RestartNever
)

// rawProgram mirrors the YAML shape of one program entry. Optional numeric
// fields are pointers so "absent" (use default) can be told apart from an
// explicit zero (e.g. starttime: 0, a meaningful boundary case per §8).
type rawProgram struct {
	Cmd          string            `mapstructure:"cmd"`
	NumProcs     *int              `mapstructure:"numprocs"`
	Umask        string            `mapstructure:"umask"`
	WorkingDir   string            `mapstructure:"workingdir"`
	AutoStart    bool              `mapstructure:"autostart"`
	AutoRestart  string            `mapstructure:"autorestart"`
	ExitCodes    []int             `mapstructure:"exitcodes"`
	StartRetries *int              `mapstructure:"startretries"`
	StartTime    *int              `mapstructure:"starttime"`
	StopSignal   interface{}       `mapstructure:"stopsignal"`
	StopTime     *int              `mapstructure:"stoptime"`
	Stdout       string            `mapstructure:"stdout"`
	Stderr       string            `mapstructure:"stderr"`
	Env          map[string]string `mapstructure:"env"`
}

// LoadConfig reads path (YAML) into a map of ProgramDefinition keyed by
// program name, applying defaults and validating each entry.
func LoadConfig(path string) (map[string]process.ProgramDefinition, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	var raw map[string]rawProgram
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	out := make(map[string]process.ProgramDefinition, len(raw))
	for name, r := range raw {
		def, err := r.toDefinition(name)
		if err != nil {
			return nil, fmt.Errorf("%w: program %q: %v", ErrConfigParse, name, err)
		}
		out[name] = def
	}
	return out, nil
}

func (r rawProgram) toDefinition(name string) (process.ProgramDefinition, error) {
	if strings.TrimSpace(r.Cmd) == "" {
		return process.ProgramDefinition{}, fmt.Errorf("cmd must not be empty")
	}

	numProcs := DefaultNumProcs
	if r.NumProcs != nil {
		numProcs = *r.NumProcs
	}
	if numProcs < 0 {
		return process.ProgramDefinition{}, fmt.Errorf("numprocs must not be negative")
	}

	startRetries := DefaultStartRetries
	if r.StartRetries != nil {
		startRetries = *r.StartRetries
	}

	startTime := DefaultStartTime
	if r.StartTime != nil {
		startTime = *r.StartTime
	}

	stopTime := DefaultStopTime
	if r.StopTime != nil {
		stopTime = *r.StopTime
	}

	autoRestart := process.AutoRestart(strings.ToLower(strings.TrimSpace(r.AutoRestart)))
	switch autoRestart {
	case process.RestartNever, process.RestartAlways, process.RestartUnexpected:
	case "":
		autoRestart = DefaultAutoRestart
	default:
		return process.ProgramDefinition{}, fmt.Errorf("invalid autorestart %q", r.AutoRestart)
	}

	sig, err := parseStopSignal(r.StopSignal)
	if err != nil {
		return process.ProgramDefinition{}, err
	}

	exitCodes := make(map[int]struct{}, len(r.ExitCodes))
	for _, c := range r.ExitCodes {
		exitCodes[c] = struct{}{}
	}

	return process.ProgramDefinition{
		Name:         name,
		Cmd:          r.Cmd,
		NumProcs:     numProcs,
		Umask:        r.Umask,
		WorkingDir:   r.WorkingDir,
		AutoStart:    r.AutoStart,
		AutoRestart:  autoRestart,
		ExitCodes:    exitCodes,
		StartRetries: startRetries,
		StartTime:    startTime,
		StopSignal:   sig,
		StopTime:     stopTime,
		Stdout:       r.Stdout,
		Stderr:       r.Stderr,
		Env:          r.Env,
	}, nil
}

var signalNames = map[string]syscall.Signal{
	"SIGHUP": syscall.SIGHUP, "HUP": syscall.SIGHUP,
	"SIGINT": syscall.SIGINT, "INT": syscall.SIGINT,
	"SIGQUIT": syscall.SIGQUIT, "QUIT": syscall.SIGQUIT,
	"SIGUSR1": syscall.SIGUSR1, "USR1": syscall.SIGUSR1,
	"SIGUSR2": syscall.SIGUSR2, "USR2": syscall.SIGUSR2,
	"SIGTERM": syscall.SIGTERM, "TERM": syscall.SIGTERM,
	"SIGKILL": syscall.SIGKILL, "KILL": syscall.SIGKILL,
	"SIGALRM": syscall.SIGALRM, "ALRM": syscall.SIGALRM,
	"SIGCHLD": syscall.SIGCHLD, "CHLD": syscall.SIGCHLD,
	"SIGCONT": syscall.SIGCONT, "CONT": syscall.SIGCONT,
	"SIGSTOP": syscall.SIGSTOP, "STOP": syscall.SIGSTOP,
	"SIGTSTP": syscall.SIGTSTP, "TSTP": syscall.SIGTSTP,
}

func parseStopSignal(v interface{}) (syscall.Signal, error) {
	switch t := v.(type) {
	case nil:
		return DefaultStopSignal, nil
	case int:
		return syscall.Signal(t), nil
	case int64:
		return syscall.Signal(t), nil
	case float64:
		return syscall.Signal(int(t)), nil
	case string:
		s := strings.ToUpper(strings.TrimSpace(t))
		if s == "" {
			return DefaultStopSignal, nil
		}
		if sig, ok := signalNames[s]; ok {
			return sig, nil
		}
		if n, err := strconv.Atoi(s); err == nil {
			return syscall.Signal(n), nil
		}
		return 0, fmt.Errorf("unrecognized stopsignal %q", t)
	default:
		return 0, fmt.Errorf("unsupported stopsignal type %T", v)
	}
}
