package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
	"github.com/medalizaidi/nifi-jar-automation-option2/internal/reconcile"
	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

// DefaultRetentionDays is how long snapshots are kept when no explicit
// retention is configured.
const DefaultRetentionDays = 15

// Vault is the snapshot archive: save, load, list and expire snapshots
// under one key prefix of a Store.
type Vault struct {
	store  Store
	prefix string
	logger *logging.Logger
	now    func() time.Time
}

// New creates a vault over store rooted at prefix.
func New(store Store, prefix string, logger *logging.Logger) *Vault {
	if logger == nil {
		logger = logging.Default()
	}
	return &Vault{store: store, prefix: prefix, logger: logger, now: time.Now}
}

// Sub returns a vault rooted one folder deeper, sharing the store.
func (v *Vault) Sub(name string) *Vault {
	return &Vault{
		store:  v.store,
		prefix: path.Join(v.prefix, name),
		logger: v.logger,
		now:    v.now,
	}
}

// SaveSnapshot compresses and stores snapshot bytes with their
// metadata, returning the folder key. CapturedAt defaults to now.
func (v *Vault) SaveSnapshot(ctx context.Context, data []byte, meta SnapshotMetadata) (string, error) {
	if meta.CapturedAt.IsZero() {
		meta.CapturedAt = v.now().UTC()
	}
	key := SnapshotKey(v.prefix, meta.CapturedAt)

	compressed, err := flow.Compress(data)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	meta.Key = key
	meta.SizeBytes = int64(len(compressed))

	if err := v.store.Put(ctx, path.Join(key, snapshotObject), compressed); err != nil {
		return "", fmt.Errorf("save snapshot %s: %w", key, err)
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("save snapshot %s: %w", key, err)
	}
	if err := v.store.Put(ctx, path.Join(key, metadataObject), metaJSON); err != nil {
		return "", fmt.Errorf("save snapshot metadata %s: %w", key, err)
	}

	v.logger.Info("snapshot saved", "key", key, "bytes", meta.SizeBytes)
	return key, nil
}

// LoadSnapshot fetches the snapshot bytes under a folder key. Metadata
// is best-effort: snapshots written by older tooling have none, and a
// missing document never blocks a restore.
func (v *Vault) LoadSnapshot(ctx context.Context, key string) ([]byte, *SnapshotMetadata, error) {
	data, err := v.store.Get(ctx, path.Join(key, snapshotObject))
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}

	var meta *SnapshotMetadata
	if raw, err := v.store.Get(ctx, path.Join(key, metadataObject)); err == nil {
		var m SnapshotMetadata
		if json.Unmarshal(raw, &m) == nil {
			meta = &m
		}
	}
	return data, meta, nil
}

// ListSnapshots returns metadata for every snapshot under the vault's
// prefix, newest first. Folders without a metadata document are
// included with the key only.
func (v *Vault) ListSnapshots(ctx context.Context) ([]SnapshotMetadata, error) {
	keys, err := v.store.List(ctx, v.prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	byFolder := make(map[string]SnapshotMetadata)
	for _, key := range keys {
		folder, object := path.Split(key)
		folder = strings.TrimSuffix(folder, "/")
		switch object {
		case metadataObject:
			raw, err := v.store.Get(ctx, key)
			if err != nil {
				continue
			}
			var m SnapshotMetadata
			if json.Unmarshal(raw, &m) == nil {
				m.Key = folder
				byFolder[folder] = m
			}
		case snapshotObject:
			if _, ok := byFolder[folder]; !ok {
				byFolder[folder] = SnapshotMetadata{Key: folder}
			}
		}
	}

	out := make([]SnapshotMetadata, 0, len(byFolder))
	for _, m := range byFolder {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].Key > out[j].Key
		}
		return out[i].CapturedAt.After(out[j].CapturedAt)
	})
	return out, nil
}

// Latest returns the newest snapshot's metadata.
func (v *Vault) Latest(ctx context.Context) (*SnapshotMetadata, error) {
	snapshots, err := v.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("no snapshots under %q", v.prefix)
	}
	return &snapshots[0], nil
}

// CleanupReport lists what a retention pass removed and what it could
// not. In a dry run Deleted holds the keys that would have been
// removed.
type CleanupReport struct {
	Deleted []string
	Failed  []string
	DryRun  bool
}

// Cleanup removes every object whose date folder is older than
// retentionDays. An object whose deletion fails is recorded and the
// pass continues; a later run picks it up again.
func (v *Vault) Cleanup(ctx context.Context, retentionDays int, dryRun bool) (*CleanupReport, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := v.now().UTC().AddDate(0, 0, -retentionDays)

	keys, err := v.store.List(ctx, v.prefix)
	if err != nil {
		return nil, fmt.Errorf("cleanup: %w", err)
	}

	report := &CleanupReport{DryRun: dryRun}
	for _, key := range keys {
		date, ok := keyDate(v.prefix, key)
		if !ok {
			// Unparseable folders are left alone rather than guessed at.
			continue
		}
		if !date.Before(cutoff) {
			continue
		}
		if dryRun {
			report.Deleted = append(report.Deleted, key)
			continue
		}
		if err := v.store.Delete(ctx, key); err != nil {
			v.logger.Warn("could not delete expired object", "key", key, "error", err.Error())
			report.Failed = append(report.Failed, key)
			continue
		}
		report.Deleted = append(report.Deleted, key)
	}

	v.logger.Info("retention cleanup finished",
		"retention_days", retentionDays,
		"deleted_objects", len(report.Deleted),
		"failed_objects", len(report.Failed),
		"dry_run", dryRun)
	return report, nil
}

// Source adapts a stored snapshot into the engine's snapshot input.
type Source struct {
	vault *Vault
	key   string
}

var _ reconcile.SnapshotSource = (*Source)(nil)

// Source returns a snapshot source for the given folder key.
func (v *Vault) Source(key string) *Source {
	return &Source{vault: v, key: key}
}

// Load implements reconcile.SnapshotSource.
func (s *Source) Load(ctx context.Context) ([]byte, string, error) {
	data, _, err := s.vault.LoadSnapshot(ctx, s.key)
	return data, s.key, err
}

// PreBackupSink stores safety exports under a "pre-restore" folder so
// they never collide with scheduled snapshots.
type PreBackupSink struct {
	vault *Vault
	host  string
}

var _ reconcile.PreBackupSink = (*PreBackupSink)(nil)

// PreBackupSink returns a sink writing under {prefix}/pre-restore.
func (v *Vault) PreBackupSink(host string) *PreBackupSink {
	return &PreBackupSink{vault: v.Sub("pre-restore"), host: host}
}

// Save implements reconcile.PreBackupSink.
func (s *PreBackupSink) Save(ctx context.Context, data []byte) (string, error) {
	return s.vault.SaveSnapshot(ctx, data, SnapshotMetadata{Host: s.host})
}
