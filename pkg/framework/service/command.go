package service

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands on the host.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CommandController drives services through the SysV service wrapper or
// systemctl.
type CommandController struct {
	manager Manager
	run     Runner
	logger  logr.Logger
}

type CommandOption func(*CommandController)

// WithRunner replaces the command runner, mainly for tests.
func WithRunner(run Runner) CommandOption {
	return func(c *CommandController) {
		c.run = run
	}
}

func NewCommandController(manager Manager, logger logr.Logger, opts ...CommandOption) (*CommandController, error) {
	if manager != ManagerService && manager != ManagerSystemctl {
		return nil, fmt.Errorf("%w: unsupported service manager %q", apperrors.ErrInvalid, manager)
	}

	c := &CommandController{
		manager: manager,
		run:     ExecRunner,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *CommandController) restartArgs(name string) []string {
	if c.manager == ManagerSystemctl {
		return []string{"restart", name}
	}
	return []string{name, "restart"}
}

func (c *CommandController) statusArgs(name string) []string {
	if c.manager == ManagerSystemctl {
		return []string{"is-active", "--quiet", name}
	}
	return []string{name, "status"}
}

// Restart runs the restart command. A non-zero exit still wraps the
// *exec.ExitError so callers can tell it apart with IsExitStatus.
func (c *CommandController) Restart(ctx context.Context, name string) error {
	args := c.restartArgs(name)
	c.logger.Info("Restarting service", "service", name, "command", string(c.manager)+" "+strings.Join(args, " "))

	out, err := c.run(ctx, string(c.manager), args...)
	if err != nil {
		if output := strings.TrimSpace(string(out)); output != "" {
			err = fmt.Errorf("%w: %s", err, output)
		}
		return apperrors.WrapRestart(err, fmt.Sprintf("%s restart %s", c.manager, name))
	}
	return nil
}

// IsExitStatus reports whether err comes from a command that ran and exited
// non-zero, as opposed to one that could not be started.
func IsExitStatus(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// Ready treats a non-zero status exit as "not ready yet" and any other
// failure (missing binary, canceled context) as an error.
func (c *CommandController) Ready(ctx context.Context, name string) (bool, error) {
	_, err := c.run(ctx, string(c.manager), c.statusArgs(name)...)
	if err == nil {
		return true, nil
	}

	if IsExitStatus(err) {
		return false, nil
	}
	return false, fmt.Errorf("%s status %s: %w", c.manager, name, err)
}
