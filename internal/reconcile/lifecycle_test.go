package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
	"github.com/medalizaidi/nifi-jar-automation-option2/internal/nifi"
)

const testSnapshotJSON = `{
  "flowContents": {
    "id": "snap-root",
    "name": "NiFi Flow",
    "processors": [
      {"id": "snap-p1", "name": "GetFile"},
      {"id": "snap-p2", "name": "PutFile"}
    ],
    "connections": [
      {
        "id": "snap-c1",
        "source": {"id": "snap-p1", "groupId": "snap-root", "type": "PROCESSOR"},
        "destination": {"id": "snap-p2", "groupId": "snap-root", "type": "PROCESSOR"}
      }
    ]
  }
}`

func liveService() *fakeService {
	service := newFakeService()
	root := service.groups["root"]
	running := component("live-p1", "OldGetFile", flow.KindProcessor)
	running.RunStatus = "Running"
	root.processors = []flow.Component{
		running,
		component("live-p2", "OldPutFile", flow.KindProcessor),
	}
	service.exportData = []byte(`{"flowContents":{"id":"root"}}`)
	return service
}

func testEngine(service *fakeService, source SnapshotSource, sink PreBackupSink,
	confirmer Confirmer, opts Options) *Engine {
	return NewEngine(service, source, sink, confirmer, opts, quietLogger())
}

func TestEngineHappyPath(t *testing.T) {
	service := liveService()
	confirmer := &fakeConfirmer{approve: true}
	engine := testEngine(service,
		&fakeSource{data: []byte(testSnapshotJSON), ref: "2026-08-20/00-01-UTC"},
		nil, confirmer, Options{})

	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.False(t, result.Cancelled)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "root", result.RootGroupID)
	assert.Equal(t, "2026-08-20/00-01-UTC", result.SnapshotRef)
	assert.True(t, service.authenticated)

	assert.Equal(t, 2, result.LiveStats.Processors)
	assert.Equal(t, 2, result.SnapshotStats.Processors)
	assert.Equal(t, 1, result.SnapshotStats.Connections)

	require.NotNil(t, result.Teardown)
	assert.Equal(t, 2, result.Teardown.Deleted.Processors)
	require.NotNil(t, result.Import)
	assert.Equal(t, 2, result.Import.Created.Processors)
	assert.Equal(t, 1, result.Import.Created.Connections)
	assert.Equal(t, 0, result.FailureCount())
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestEngineDeclinedConfirmationCancels(t *testing.T) {
	service := liveService()
	confirmer := &fakeConfirmer{approve: false}
	engine := testEngine(service,
		&fakeSource{data: []byte(testSnapshotJSON), ref: "snap"},
		nil, confirmer, Options{})

	result, err := engine.Run(context.Background())
	require.NoError(t, err, "a declined confirmation is not a failure")

	assert.True(t, result.Cancelled)
	assert.Equal(t, StateDone, result.State)
	assert.Empty(t, service.deleteOrder, "nothing destructive before confirmation")
	assert.Empty(t, service.createOrder)
	assert.Nil(t, result.Teardown)
}

func TestEngineConfirmationPromptCarriesCounts(t *testing.T) {
	service := liveService()
	confirmer := &fakeConfirmer{approve: false}
	engine := testEngine(service,
		&fakeSource{data: []byte(testSnapshotJSON), ref: "2026-08-20/00-01-UTC"},
		nil, confirmer, Options{})

	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, confirmer.prompts, 1)
	prompt := confirmer.prompts[0]
	assert.Contains(t, prompt, "DELETE 2 live components")
	assert.Contains(t, prompt, "3 components")
	assert.Contains(t, prompt, "2026-08-20/00-01-UTC")
}

func TestEngineAuthFailure(t *testing.T) {
	service := liveService()
	service.authErr = &nifi.APIError{Kind: nifi.KindAuth, Op: "authenticate", StatusCode: 401}
	engine := testEngine(service,
		&fakeSource{data: []byte(testSnapshotJSON), ref: "snap"},
		nil, &fakeConfirmer{approve: true}, Options{})

	result, err := engine.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.Empty(t, service.deleteOrder)
}

func TestEngineInvalidSnapshotFailsBeforeAnyMutation(t *testing.T) {
	service := liveService()
	engine := testEngine(service,
		&fakeSource{data: []byte("not a snapshot"), ref: "bad"},
		nil, &fakeConfirmer{approve: true}, Options{})

	result, err := engine.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, flow.ErrInvalidSnapshot)
	assert.Equal(t, StateFailed, result.State)
	assert.Empty(t, service.deleteOrder)
	assert.Empty(t, service.stopCalls)
}

func TestEnginePreBackup(t *testing.T) {
	service := liveService()
	sink := &fakeSink{}
	engine := testEngine(service,
		&fakeSource{data: []byte(testSnapshotJSON), ref: "snap"},
		sink, &fakeConfirmer{approve: true}, Options{PreBackup: true})

	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.saved, 1)
	assert.Equal(t, service.exportData, sink.saved[0])
	assert.Equal(t, "pre-backup-1", result.PreBackupRef)
}

func TestEnginePreBackupFailureAborts(t *testing.T) {
	service := liveService()
	sink := &fakeSink{err: assert.AnError}
	engine := testEngine(service,
		&fakeSource{data: []byte(testSnapshotJSON), ref: "snap"},
		sink, &fakeConfirmer{approve: true}, Options{PreBackup: true})

	result, err := engine.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.Empty(t, service.deleteOrder, "no teardown without a safety copy")
}

func TestEngineStopsRunningProcessors(t *testing.T) {
	service := liveService()
	engine := testEngine(service,
		&fakeSource{data: []byte(testSnapshotJSON), ref: "snap"},
		nil, &fakeConfirmer{approve: true}, Options{StopProcessors: true, SettleDelay: -1})

	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"live-p1"}, service.stopCalls, "only the running processor is stopped")
	assert.Equal(t, 1, result.StoppedProcessors)
}

func TestEngineStopFailureDoesNotBlockRun(t *testing.T) {
	service := liveService()
	service.failStop["live-p1"] = &nifi.APIError{Kind: nifi.KindComponentBusy, StatusCode: 409}
	engine := testEngine(service,
		&fakeSource{data: []byte(testSnapshotJSON), ref: "snap"},
		nil, &fakeConfirmer{approve: true}, Options{StopProcessors: true, SettleDelay: -1})

	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.StoppedProcessors)
	assert.Equal(t, StateDone, result.State, "a stubborn processor is teardown's problem, not a run failure")
}

func TestOptionsSettleDelay(t *testing.T) {
	assert.Equal(t, DefaultSettleDelay, Options{}.settleDelay())
	assert.Equal(t, time.Second, Options{SettleDelay: time.Second}.settleDelay())
	assert.Equal(t, time.Duration(0), Options{SettleDelay: -1}.settleDelay())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting confirmation", StateAwaitingConfirmation.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
