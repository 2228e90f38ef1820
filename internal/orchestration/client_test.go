package orchestration_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	apperrors "line-membership-bot/internal/common/errors"
	"line-membership-bot/internal/orchestration"
	"line-membership-bot/internal/orchestration/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWorkflow = "TestWorkflow"
	eventFirst   = "FirstEvent"
	eventSecond  = "SecondEvent"
)

type recorded struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (r *recorded) add(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, data)
}

func newTestClient(t *testing.T, rec *recorded) *orchestration.Client {
	t.Helper()

	def, err := orchestration.NewDefinition(testWorkflow,
		orchestration.Step{
			Name:  "first",
			Event: eventFirst,
			Handler: func(_ context.Context, _ *orchestration.Instance, data []byte) (string, error) {
				rec.add(data)
				return "second", nil
			},
		},
		orchestration.Step{
			Name:  "second",
			Event: eventSecond,
			Handler: func(_ context.Context, _ *orchestration.Instance, data []byte) (string, error) {
				rec.add(data)
				return "", nil
			},
		},
	)
	require.NoError(t, err)

	client := orchestration.NewClient(memory.NewStore())
	client.Register(def)
	return client
}

func TestGetStatusNotStarted(t *testing.T) {
	client := newTestClient(t, &recorded{})

	inst, err := client.GetStatus(context.Background(), "U1")
	require.NoError(t, err)
	assert.Nil(t, inst)
}

func TestStartNew(t *testing.T) {
	client := newTestClient(t, &recorded{})

	inst, err := client.StartNew(context.Background(), testWorkflow, "U1")
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusRunning, inst.RuntimeStatus)
	assert.Equal(t, "first", inst.Step)
	assert.Equal(t, "U1", inst.UserID)
	assert.NotEmpty(t, inst.ID)
}

func TestStartNewAlreadyRunning(t *testing.T) {
	client := newTestClient(t, &recorded{})
	ctx := context.Background()

	_, err := client.StartNew(ctx, testWorkflow, "U1")
	require.NoError(t, err)

	_, err = client.StartNew(ctx, testWorkflow, "U1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAlreadyRunning))
}

func TestStartNewUnknownWorkflow(t *testing.T) {
	client := newTestClient(t, &recorded{})

	_, err := client.StartNew(context.Background(), "NoSuchWorkflow", "U1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestRaiseEventAdvancesCursor(t *testing.T) {
	rec := &recorded{}
	client := newTestClient(t, rec)
	ctx := context.Background()

	_, err := client.StartNew(ctx, testWorkflow, "U1")
	require.NoError(t, err)

	require.NoError(t, client.RaiseEvent(ctx, "U1", eventFirst, nil))

	inst, err := client.GetStatus(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusRunning, inst.RuntimeStatus)
	assert.Equal(t, "second", inst.Step)
	require.Len(t, rec.payloads, 1)
	assert.JSONEq(t, "null", string(rec.payloads[0]))
}

func TestRaiseEventCompletes(t *testing.T) {
	rec := &recorded{}
	client := newTestClient(t, rec)
	ctx := context.Background()

	_, err := client.StartNew(ctx, testWorkflow, "U1")
	require.NoError(t, err)
	require.NoError(t, client.RaiseEvent(ctx, "U1", eventFirst, nil))
	require.NoError(t, client.RaiseEvent(ctx, "U1", eventSecond, map[string]string{"name": "Alice"}))

	inst, err := client.GetStatus(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusCompleted, inst.RuntimeStatus)

	require.Len(t, rec.payloads, 2)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.payloads[1], &payload))
	assert.Equal(t, "Alice", payload["name"])
}

func TestRaiseEventMisdirectedSignalDropped(t *testing.T) {
	rec := &recorded{}
	client := newTestClient(t, rec)
	ctx := context.Background()

	_, err := client.StartNew(ctx, testWorkflow, "U1")
	require.NoError(t, err)

	// The instance waits on eventFirst; a signal named eventSecond is
	// lost, not queued.
	require.NoError(t, client.RaiseEvent(ctx, "U1", eventSecond, nil))

	inst, err := client.GetStatus(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "first", inst.Step)
	assert.Empty(t, rec.payloads)

	// Delivering the awaited event afterwards still only fires once.
	require.NoError(t, client.RaiseEvent(ctx, "U1", eventFirst, nil))
	inst, err = client.GetStatus(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "second", inst.Step)
	assert.Len(t, rec.payloads, 1)
}

func TestRaiseEventNoInstanceDropped(t *testing.T) {
	rec := &recorded{}
	client := newTestClient(t, rec)

	require.NoError(t, client.RaiseEvent(context.Background(), "U1", eventFirst, nil))
	assert.Empty(t, rec.payloads)
}

func TestRaiseEventHandlerErrorFailsInstance(t *testing.T) {
	def := orchestration.MustDefinition("Failing",
		orchestration.Step{
			Name:  "only",
			Event: eventFirst,
			Handler: func(_ context.Context, _ *orchestration.Instance, _ []byte) (string, error) {
				return "", errors.New("boom")
			},
		},
	)
	client := orchestration.NewClient(memory.NewStore())
	client.Register(def)
	ctx := context.Background()

	_, err := client.StartNew(ctx, "Failing", "U1")
	require.NoError(t, err)

	err = client.RaiseEvent(ctx, "U1", eventFirst, nil)
	require.EqualError(t, err, "boom")

	inst, err := client.GetStatus(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusFailed, inst.RuntimeStatus)
	assert.Equal(t, "boom", inst.Reason)
}

func TestTerminate(t *testing.T) {
	rec := &recorded{}
	client := newTestClient(t, rec)
	ctx := context.Background()

	_, err := client.StartNew(ctx, testWorkflow, "U1")
	require.NoError(t, err)
	require.NoError(t, client.Terminate(ctx, "U1", "User Canceled"))

	inst, err := client.GetStatus(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusTerminated, inst.RuntimeStatus)
	assert.Equal(t, "User Canceled", inst.Reason)

	// Signals after termination are dropped.
	require.NoError(t, client.RaiseEvent(ctx, "U1", eventFirst, nil))
	assert.Empty(t, rec.payloads)
}

func TestTerminateNoInstance(t *testing.T) {
	client := newTestClient(t, &recorded{})

	err := client.Terminate(context.Background(), "U1", "reason")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInstanceNotFound))
}

func TestTerminateFinishedInstanceNoop(t *testing.T) {
	rec := &recorded{}
	client := newTestClient(t, rec)
	ctx := context.Background()

	_, err := client.StartNew(ctx, testWorkflow, "U1")
	require.NoError(t, err)
	require.NoError(t, client.RaiseEvent(ctx, "U1", eventFirst, nil))
	require.NoError(t, client.RaiseEvent(ctx, "U1", eventSecond, nil))

	require.NoError(t, client.Terminate(ctx, "U1", "late"))

	inst, err := client.GetStatus(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusCompleted, inst.RuntimeStatus)
	assert.Empty(t, inst.Reason)
}

func TestStartNewAfterFinishedReplaces(t *testing.T) {
	client := newTestClient(t, &recorded{})
	ctx := context.Background()

	first, err := client.StartNew(ctx, testWorkflow, "U1")
	require.NoError(t, err)
	require.NoError(t, client.Terminate(ctx, "U1", "User Canceled"))

	second, err := client.StartNew(ctx, testWorkflow, "U1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, orchestration.StatusRunning, second.RuntimeStatus)
}

func TestConcurrentStartOnlyOneWins(t *testing.T) {
	client := newTestClient(t, &recorded{})
	ctx := context.Background()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.StartNew(ctx, testWorkflow, "U1")
		}(i)
	}
	wg.Wait()

	started := 0
	for _, err := range errs {
		if err == nil {
			started++
		} else {
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAlreadyRunning))
		}
	}
	assert.Equal(t, 1, started)
}
