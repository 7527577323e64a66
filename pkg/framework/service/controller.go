// Package service restarts the messaging service that caches cartridge
// metadata and waits for it to come back.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

// Controller restarts a named service and reports whether it is ready.
type Controller interface {
	// Restart blocks until the restart request has been carried out
	Restart(ctx context.Context, name string) error

	// Ready reports whether the service is accepting work again
	Ready(ctx context.Context, name string) (bool, error)
}

// Manager names the tool used to control services.
type Manager string

const (
	ManagerService    Manager = "service"
	ManagerSystemctl  Manager = "systemctl"
	ManagerKubernetes Manager = "kubernetes"
)

// ParseManager validates a configured manager name.
func ParseManager(s string) (Manager, error) {
	switch m := Manager(s); m {
	case ManagerService, ManagerSystemctl, ManagerKubernetes:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown service manager %q (want service, systemctl or kubernetes)", apperrors.ErrInvalid, s)
}

const (
	DefaultReadyTimeout  = 30 * time.Second
	DefaultReadyInterval = 500 * time.Millisecond
)

// WaitReady polls c until name reports ready or timeout elapses. Errors from
// Ready count as not ready; the last one is carried in the timeout error.
func WaitReady(ctx context.Context, c Controller, name string, interval, timeout time.Duration, logger logr.Logger) error {
	if interval <= 0 {
		interval = DefaultReadyInterval
	}
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}

	var lastErr error
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		ready, err := c.Ready(ctx, name)
		if err != nil {
			lastErr = err
			logger.V(1).Info("service readiness check failed", "service", name, "error", err)
			return false, nil
		}
		return ready, nil
	})
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if wait.Interrupted(err) {
		if lastErr == nil {
			lastErr = err
		}
		return apperrors.WrapTimeout(lastErr, fmt.Sprintf("service %s not ready after %s", name, timeout))
	}
	return err
}
