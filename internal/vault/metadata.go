package vault

import (
	"path"
	"strings"
	"time"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
)

const (
	snapshotObject = "flow.json.gz"
	metadataObject = "metadata.json"

	dateLayout = "2006-01-02"
	timeLayout = "15-04"
)

// SnapshotMetadata describes one stored snapshot. It is written as
// metadata.json next to the snapshot so listings never need to
// download or decompress flow data.
type SnapshotMetadata struct {
	Key         string          `json:"key"`
	CapturedAt  time.Time       `json:"captured_at"`
	Host        string          `json:"host"`
	RootGroupID string          `json:"root_group_id"`
	Statistics  flow.Statistics `json:"statistics"`
	SizeBytes   int64           `json:"size_bytes"`
}

// SnapshotKey builds the folder key for a capture time:
// {prefix}/YYYY-MM-DD/HH-MM-UTC. Times are always rendered in UTC so
// keys sort chronologically regardless of where the tool ran.
func SnapshotKey(prefix string, at time.Time) string {
	at = at.UTC()
	return path.Join(prefix, at.Format(dateLayout), at.Format(timeLayout)+"-UTC")
}

// keyDate extracts the capture date from a snapshot folder key, the
// first path element after the prefix.
func keyDate(prefix, key string) (time.Time, bool) {
	rest := strings.TrimPrefix(key, prefix)
	rest = strings.TrimPrefix(rest, "/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, parts[0])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
