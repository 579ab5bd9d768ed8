package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
	"github.com/jdholdren/postrelay/internal/relay"
)

type stubRunner struct {
	run   relay.Run
	err   error
	calls int
}

func (r *stubRunner) RunOnce(_ context.Context, trigger string) (relay.Run, error) {
	r.calls++
	run := r.run
	run.Trigger = trigger
	return run, r.err
}

func newTestWorkflowEnv(t *testing.T, runner Runner) (*testsuite.TestWorkflowEnvironment, workflows) {
	t.Helper()

	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()

	wfs := workflows{activityTimeout: activityTimeout(time.Minute)}
	env.RegisterWorkflow(wfs.RelayLatestPost)
	env.RegisterActivity(&activities{runner: runner})

	return env, wfs
}

func TestRelayLatestPost(t *testing.T) {
	runner := &stubRunner{run: relay.Run{ID: "run-1", Status: relay.RunStatusDelivered, PostID: "s1"}}
	env, wfs := newTestWorkflowEnv(t, runner)

	env.ExecuteWorkflow(wfs.RelayLatestPost, relay.TriggerHTTP)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var run relay.Run
	require.NoError(t, env.GetWorkflowResult(&run))
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, relay.TriggerHTTP, run.Trigger)
	assert.Equal(t, relay.RunStatusDelivered, run.Status)
	assert.Equal(t, 1, runner.calls)
}

func TestRelayLatestPost_FailureIsNotRetried(t *testing.T) {
	runner := &stubRunner{
		err: fmt.Errorf("error fetching latest post: %w", relayerrs.E("no statuses returned", relayerrs.KindNoContent)),
	}
	env, wfs := newTestWorkflowEnv(t, runner)

	env.ExecuteWorkflow(wfs.RelayLatestPost, relay.TriggerInterval)

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Equal(t, 1, runner.calls)

	rErr := &relayerrs.Error{}
	require.True(t, asRelayErr(err, &rErr))
	assert.Equal(t, relayerrs.KindNoContent, rErr.Kind)
}

func TestActivityTimeout(t *testing.T) {
	assert.Equal(t, 2*time.Minute, activityTimeout(0))
	assert.Equal(t, 105*time.Second, activityTimeout(90*time.Second))
}
