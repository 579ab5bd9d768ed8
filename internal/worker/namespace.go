package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Relay workflows are short and their outcome lives in the run history, so
// Temporal only needs to keep them briefly.
const namespaceRetention = 24 * time.Hour

// EnsureNamespace registers the namespace relay workflows run in.
//
// An existing namespace is left as is.
func EnsureNamespace(ctx context.Context, cli workflowservice.WorkflowServiceClient, namespace string) error {
	if namespace == "" {
		namespace = "default"
	}

	_, err := cli.RegisterNamespace(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        namespace,
		Description:                      "postrelay runs",
		WorkflowExecutionRetentionPeriod: durationpb.New(namespaceRetention),
	})
	var alreadyErr *serviceerror.NamespaceAlreadyExists
	if errors.As(err, &alreadyErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error registering namespace %q: %w", namespace, err)
	}

	return nil
}
