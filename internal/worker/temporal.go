package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// RelayWorkflowID is shared by every relay workflow, which is what keeps
// them from overlapping.
const RelayWorkflowID = "relay_latest_post"

// The part of [client.Client] that starts workflows.
type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error)
}

// Temporal is the [Dispatcher] that hands runs to a Temporal cluster.
//
// A trigger while a relay workflow is executing is rejected with [ErrBusy].
type Temporal struct {
	cli      workflowStarter
	observer Observer
}

var _ Dispatcher = (*Temporal)(nil)

func NewTemporal(cli client.Client, observer Observer) *Temporal {
	if observer == nil {
		observer = nopObserver{}
	}

	return &Temporal{cli: cli, observer: observer}
}

func (t *Temporal) Trigger(ctx context.Context, source string) error {
	options := client.StartWorkflowOptions{
		ID:                                       RelayWorkflowID,
		TaskQueue:                                TaskQueue,
		WorkflowIDConflictPolicy:                 enumspb.WORKFLOW_ID_CONFLICT_POLICY_FAIL,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	we, err := t.cli.ExecuteWorkflow(ctx, options, workflows{}.RelayLatestPost, source)

	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		t.observer.ObserveTrigger(source, false)
		slog.WarnContext(ctx, "trigger rejected, workflow running", "source", source)
		return ErrBusy
	}
	if err != nil {
		return fmt.Errorf("unable to execute workflow: %s", err)
	}

	t.observer.ObserveTrigger(source, true)
	slog.InfoContext(ctx, "relay workflow started", "source", source, "workflow_id", we.GetID(), "run_id", we.GetRunID())

	return nil
}
