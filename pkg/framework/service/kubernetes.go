package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

// RestartedAtAnnotation is the pod template annotation kubectl rollout
// restart sets; changing it rolls every pod of the Deployment.
const RestartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

const fieldManager = "cartridge-fixture"

// KubernetesController restarts a service that runs as a Deployment.
type KubernetesController struct {
	clientset kubernetes.Interface
	namespace string
	logger    logr.Logger
	now       func() time.Time
}

func NewKubernetesController(clientset kubernetes.Interface, namespace string, logger logr.Logger) *KubernetesController {
	if namespace == "" {
		namespace = "default"
	}
	return &KubernetesController{
		clientset: clientset,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

func GetKubernetesConfig() (*rest.Config, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := os.Getenv("KUBECONFIG")
		if kubeconfig == "" {
			kubeconfig = clientcmd.RecommendedHomeFile
		}
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("%w: kubernetes get config: failed to get Kubernetes config: %w", apperrors.ErrKubernetes, err)
		}
	}
	return config, nil
}

// NewKubernetesClientset builds a clientset from in-cluster config or KUBECONFIG.
func NewKubernetesClientset() (kubernetes.Interface, error) {
	config, err := GetKubernetesConfig()
	if err != nil {
		return nil, err
	}
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, apperrors.WrapKubernetes(err, "create clientset")
	}
	return clientset, nil
}

func (k *KubernetesController) Restart(ctx context.Context, name string) error {
	patch := fmt.Sprintf(`{"spec":{"template":{"metadata":{"annotations":{%q:%q}}}}}`,
		RestartedAtAnnotation, k.now().Format(time.RFC3339))

	k.logger.Info("Restarting deployment", "namespace", k.namespace, "deployment", name)
	_, err := k.clientset.AppsV1().Deployments(k.namespace).Patch(ctx, name, types.StrategicMergePatchType,
		[]byte(patch), metav1.PatchOptions{FieldManager: fieldManager})
	if k8serrors.IsNotFound(err) {
		return fmt.Errorf("%w: deployment %s/%s: %w", apperrors.ErrNotFound, k.namespace, name, err)
	}
	if err != nil {
		return apperrors.WrapRestart(apperrors.WrapKubernetes(err, "patch deployment"), fmt.Sprintf("restart %s/%s", k.namespace, name))
	}
	return nil
}

func (k *KubernetesController) Ready(ctx context.Context, name string) (bool, error) {
	deployment, err := k.clientset.AppsV1().Deployments(k.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, apperrors.WrapKubernetes(err, fmt.Sprintf("get deployment %s/%s", k.namespace, name))
	}
	return rolloutComplete(deployment), nil
}

// rolloutComplete mirrors kubectl rollout status for Deployments.
func rolloutComplete(d *appsv1.Deployment) bool {
	if d.Generation > d.Status.ObservedGeneration {
		return false
	}

	desired := int32(1)
	if d.Spec.Replicas != nil {
		desired = *d.Spec.Replicas
	}

	return d.Status.UpdatedReplicas == desired &&
		d.Status.Replicas == desired &&
		d.Status.ReadyReplicas == desired &&
		d.Status.AvailableReplicas == desired
}
