// Package execx runs external tools (conan, makeself, appimagetool, the
// flatpak toolchain) with structured logging and captured output.
package execx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
)

// DefaultTimeout bounds a single external tool invocation.
const DefaultTimeout = 15 * time.Minute

// Cmd describes a single external tool invocation.
type Cmd struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env entries are appended to the current process environment.
	Env map[string]string
}

// String renders the command the way it would be typed into a shell.
func (c Cmd) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}

// Runner executes external commands. The combined output is returned even
// when the command fails, so callers can inspect tool diagnostics.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (string, error)
}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return &commandRunner{
		logger:  logging.GetLogger("execx"),
		timeout: DefaultTimeout,
	}
}

type commandRunner struct {
	logger  zerolog.Logger
	timeout time.Duration
}

func (r *commandRunner) Run(ctx context.Context, cmd Cmd) (string, error) {
	if cmd.Name == "" {
		return "", errors.New(errors.ErrInvalidInput, "command name is required")
	}

	r.logger.Info().
		Str("command", cmd.String()).
		Str("workingDir", cmd.Dir).
		Msg("Executing command")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	execCmd.Dir = cmd.Dir

	execCmd.Env = os.Environ()
	for key, value := range cmd.Env {
		execCmd.Env = append(execCmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var output bytes.Buffer
	execCmd.Stdout = &output
	execCmd.Stderr = &output

	err := execCmd.Run()
	if output.Len() > 0 {
		r.logger.Debug().
			Str("command", cmd.Name).
			Str("output", output.String()).
			Msg("Command output")
	}
	if err != nil {
		return output.String(), errors.Wrapf(err, errors.ErrToolExec,
			"%s failed", cmd.String()).WithDetail("output", output.String())
	}

	return output.String(), nil
}
