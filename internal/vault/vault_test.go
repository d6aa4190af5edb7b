package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

func testVault(t *testing.T) *Vault {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return New(store, "nifi_backups", logging.New(logging.Config{Quiet: true}))
}

func TestSnapshotKey(t *testing.T) {
	at := time.Date(2026, 8, 20, 0, 1, 30, 0, time.UTC)
	assert.Equal(t, "nifi_backups/2026-08-20/00-01-UTC", SnapshotKey("nifi_backups", at))

	// Non-UTC times are rendered in UTC.
	est := time.FixedZone("EST", -5*3600)
	atEST := time.Date(2026, 8, 19, 20, 1, 0, 0, est)
	assert.Equal(t, "nifi_backups/2026-08-20/01-01-UTC", SnapshotKey("nifi_backups", atEST))
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	v := testVault(t)
	ctx := context.Background()
	payload := []byte(`{"flowContents":{"id":"root","processors":[{"id":"p1"}]}}`)

	at := time.Date(2026, 8, 20, 0, 1, 0, 0, time.UTC)
	key, err := v.SaveSnapshot(ctx, payload, SnapshotMetadata{
		CapturedAt: at,
		Host:       "https://nifi.example.com",
		Statistics: flow.Statistics{Processors: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "nifi_backups/2026-08-20/00-01-UTC", key)

	data, meta, err := v.LoadSnapshot(ctx, key)
	require.NoError(t, err)
	assert.True(t, flow.IsGzip(data), "snapshots are stored compressed")

	g, err := flow.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Len(t, g.Processors, 1)

	require.NotNil(t, meta)
	assert.Equal(t, key, meta.Key)
	assert.Equal(t, "https://nifi.example.com", meta.Host)
	assert.Equal(t, 1, meta.Statistics.Processors)
	assert.Equal(t, int64(len(data)), meta.SizeBytes)
}

func TestSaveSnapshotDoesNotDoubleCompress(t *testing.T) {
	v := testVault(t)
	ctx := context.Background()

	compressed, err := flow.Compress([]byte(`{"flowContents":{"id":"root"}}`))
	require.NoError(t, err)

	key, err := v.SaveSnapshot(ctx, compressed, SnapshotMetadata{})
	require.NoError(t, err)

	data, _, err := v.LoadSnapshot(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, compressed, data)
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	v := testVault(t)
	ctx := context.Background()

	times := []time.Time{
		time.Date(2026, 8, 18, 0, 1, 0, 0, time.UTC),
		time.Date(2026, 8, 20, 0, 1, 0, 0, time.UTC),
		time.Date(2026, 8, 19, 0, 1, 0, 0, time.UTC),
	}
	for _, at := range times {
		_, err := v.SaveSnapshot(ctx, []byte(`{}`), SnapshotMetadata{CapturedAt: at})
		require.NoError(t, err)
	}

	snapshots, err := v.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	assert.Equal(t, "nifi_backups/2026-08-20/00-01-UTC", snapshots[0].Key)
	assert.Equal(t, "nifi_backups/2026-08-19/00-01-UTC", snapshots[1].Key)
	assert.Equal(t, "nifi_backups/2026-08-18/00-01-UTC", snapshots[2].Key)

	latest, err := v.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshots[0].Key, latest.Key)
}

func TestListSnapshotsIncludesFoldersWithoutMetadata(t *testing.T) {
	v := testVault(t)
	ctx := context.Background()

	// Simulate a snapshot written by older tooling: flow data only.
	require.NoError(t, v.store.Put(ctx,
		"nifi_backups/2026-08-17/12-00-UTC/flow.json.gz", []byte("x")))

	snapshots, err := v.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "nifi_backups/2026-08-17/12-00-UTC", snapshots[0].Key)
	assert.True(t, snapshots[0].CapturedAt.IsZero())
}

func TestLatestEmptyVault(t *testing.T) {
	v := testVault(t)
	_, err := v.Latest(context.Background())
	require.Error(t, err)
}

func TestCleanup(t *testing.T) {
	v := testVault(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	old := now.AddDate(0, 0, -20)
	fresh := now.AddDate(0, 0, -3)
	_, err := v.SaveSnapshot(ctx, []byte(`{}`), SnapshotMetadata{CapturedAt: old})
	require.NoError(t, err)
	freshKey, err := v.SaveSnapshot(ctx, []byte(`{}`), SnapshotMetadata{CapturedAt: fresh})
	require.NoError(t, err)

	// An unparseable folder must survive cleanup untouched.
	require.NoError(t, v.store.Put(ctx, "nifi_backups/notes/readme.txt", []byte("keep")))

	report, err := v.Cleanup(ctx, 15, false)
	require.NoError(t, err)
	assert.Len(t, report.Deleted, 2, "flow and metadata objects of the old snapshot")
	assert.Empty(t, report.Failed)

	snapshots, err := v.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, freshKey, snapshots[0].Key)

	_, err = v.store.Get(ctx, "nifi_backups/notes/readme.txt")
	assert.NoError(t, err)
}

func TestCleanupDefaultRetention(t *testing.T) {
	v := testVault(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	_, err := v.SaveSnapshot(ctx, []byte(`{}`),
		SnapshotMetadata{CapturedAt: now.AddDate(0, 0, -14)})
	require.NoError(t, err)

	report, err := v.Cleanup(ctx, 0, false)
	require.NoError(t, err)
	assert.Empty(t, report.Deleted, "14 days old is inside the default 15-day window")
}

func TestCleanupDryRunDeletesNothing(t *testing.T) {
	v := testVault(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	oldKey, err := v.SaveSnapshot(ctx, []byte(`{}`),
		SnapshotMetadata{CapturedAt: now.AddDate(0, 0, -20)})
	require.NoError(t, err)

	report, err := v.Cleanup(ctx, 15, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Len(t, report.Deleted, 2, "the expired objects are named but kept")

	snapshots, err := v.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, oldKey, snapshots[0].Key)
}

// stubbornStore refuses to delete selected keys.
type stubbornStore struct {
	Store
	stuck map[string]bool
}

func (s *stubbornStore) Delete(ctx context.Context, key string) error {
	if s.stuck[key] {
		return assert.AnError
	}
	return s.Store.Delete(ctx, key)
}

func TestCleanupDeleteFailureDoesNotStopThePass(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	store := &stubbornStore{Store: fs, stuck: map[string]bool{}}
	v := New(store, "nifi_backups", logging.New(logging.Config{Quiet: true}))

	ctx := context.Background()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	stuckKey, err := v.SaveSnapshot(ctx, []byte(`{}`),
		SnapshotMetadata{CapturedAt: now.AddDate(0, 0, -20)})
	require.NoError(t, err)
	store.stuck[stuckKey+"/"+snapshotObject] = true
	_, err = v.SaveSnapshot(ctx, []byte(`{}`),
		SnapshotMetadata{CapturedAt: now.AddDate(0, 0, -25)})
	require.NoError(t, err)

	report, err := v.Cleanup(ctx, 15, false)
	require.NoError(t, err, "a stuck object never aborts the pass")
	assert.Len(t, report.Failed, 1)
	assert.Len(t, report.Deleted, 3, "everything else is still removed")
}

func TestSourceLoadsSnapshot(t *testing.T) {
	v := testVault(t)
	ctx := context.Background()
	payload := []byte(`{"flowContents":{"id":"root"}}`)

	key, err := v.SaveSnapshot(ctx, payload, SnapshotMetadata{})
	require.NoError(t, err)

	data, ref, err := v.Source(key).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, key, ref)
	_, err = flow.DecodeSnapshot(data)
	assert.NoError(t, err)
}

func TestPreBackupSinkWritesUnderPreRestore(t *testing.T) {
	v := testVault(t)
	ctx := context.Background()

	ref, err := v.PreBackupSink("https://nifi.example.com").Save(ctx, []byte(`{}`))
	require.NoError(t, err)
	assert.Contains(t, ref, "nifi_backups/pre-restore/")

	sub := v.Sub("pre-restore")
	snapshots, err := sub.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "https://nifi.example.com", snapshots[0].Host)
}

func TestKeyDate(t *testing.T) {
	_, ok := keyDate("nifi_backups", "nifi_backups/not-a-date/flow.json.gz")
	assert.False(t, ok)

	date, ok := keyDate("nifi_backups", "nifi_backups/2026-08-20/00-01-UTC/flow.json.gz")
	require.True(t, ok)
	assert.Equal(t, 2026, date.Year())
}
