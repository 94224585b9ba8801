package version

import (
	"strconv"
	"strings"

	"github.com/marmos91/dittostore/pkg/keys"
)

// Snapshot keys are laid out as
//
//	<prefix>/<org>/<path/to/object.ext>/<timestamp>.ext
//
// so every snapshot of a primary key shares the listing prefix
// "<prefix>/<primary>/" and sorts by timestamp once parsed. The prefix lives
// outside every org, so org listings never see snapshots.

// snapshotDir returns the listing prefix holding the snapshots of primary.
func (m *Manager) snapshotDir(primary string) string {
	return m.prefix + keys.Separator + primary + keys.Separator
}

// snapshotKey returns the object key of the snapshot of primary taken at ts.
func (m *Manager) snapshotKey(primary string, ts int64) string {
	return m.snapshotDir(primary) + strconv.FormatInt(ts, 10) + keys.Ext(primary)
}

// url returns the retrieval address of a snapshot.
func (m *Manager) url(primary string, ts int64) string {
	return m.urlBase + keys.Separator + primary + keys.Separator + strconv.FormatInt(ts, 10) + keys.Ext(primary)
}

// OrgRoot returns the key prefix under which every snapshot of org lives.
func (m *Manager) OrgRoot(org string) string {
	return m.prefix + keys.Separator + org
}

// ParseSnapshotKey splits a snapshot key into the primary key it belongs to
// and its timestamp. ok is false for keys outside the snapshot layout.
//
//	ParseSnapshotKey(".versions/acme/a.html/1700000000000.html")
//	// "acme/a.html", 1700000000000, true
func (m *Manager) ParseSnapshotKey(key string) (primary string, ts int64, ok bool) {
	rest, found := strings.CutPrefix(key, m.prefix+keys.Separator)
	if !found {
		return "", 0, false
	}

	primary = keys.Dir(rest)
	if primary == "" {
		return "", 0, false
	}

	name := keys.Base(rest)
	ext := keys.Ext(primary)
	if !strings.HasSuffix(name, ext) {
		return "", 0, false
	}

	ts, err := strconv.ParseInt(strings.TrimSuffix(name, ext), 10, 64)
	if err != nil || ts <= 0 {
		return "", 0, false
	}
	return primary, ts, true
}
