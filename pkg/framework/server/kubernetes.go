package server

import (
	"fmt"

	"github.com/go-logr/logr"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
	"github.com/garunski/cartridge-fixture/pkg/framework/service"
)

// NewServiceController returns the controller for the configured service
// manager. The kubernetes manager needs in-cluster config or a kubeconfig.
func NewServiceController(manager service.Manager, namespace string, logger logr.Logger) (service.Controller, error) {
	switch manager {
	case service.ManagerKubernetes:
		logger.Info("Setting up Kubernetes client", "namespace", namespace)
		clientset, err := service.NewKubernetesClientset()
		if err != nil {
			return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
		}
		return service.NewKubernetesController(clientset, namespace, logger), nil
	case service.ManagerService, service.ManagerSystemctl, "":
		if manager == "" {
			manager = service.ManagerService
		}
		controller, err := service.NewCommandController(manager, logger)
		if err != nil {
			return nil, err
		}
		return controller, nil
	}
	return nil, fmt.Errorf("%w: unknown service manager %q", apperrors.ErrInvalid, manager)
}
