package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstat/internal/shared"
)

// ScriptRunner invokes the external statistics command with a --force-update flag.
type ScriptRunner struct {
	dir     string
	command []string
	timeout time.Duration
	exec    Executor
	logger  *log.Logger
}

// NewScriptRunner creates a runner for command (program followed by fixed arguments) executed in dir.
func NewScriptRunner(dir string, command []string, timeout time.Duration, exec Executor, logger *log.Logger) (*ScriptRunner, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("%w: statistics command is empty", shared.ErrInvalidConfig)
	}
	if exec == nil {
		exec = CommandExecutor{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ScriptRunner{dir: dir, command: command, timeout: timeout, exec: exec, logger: logger}, nil
}

// ForceUpdateArg renders the single argument passed to the updater.
func ForceUpdateArg(force bool) string {
	return "--force-update=" + strconv.FormatBool(force)
}

// Update runs the command. Output lines are forwarded to the logger; a nonzero exit wraps [shared.ErrScriptFailed].
func (s *ScriptRunner) Update(ctx context.Context, force bool) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := append(append([]string{}, s.command[1:]...), ForceUpdateArg(force))
	cmd := Command{
		Dir:    s.dir,
		Name:   s.command[0],
		Args:   args,
		Stdout: func(line string) { s.logger.Info(line, "stream", "stdout") },
		Stderr: func(line string) { s.logger.Warn(line, "stream", "stderr") },
	}

	s.logger.Info("running statistics updater", "command", cmd.String())
	if _, err := s.exec.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrScriptFailed, err)
	}
	return nil
}
