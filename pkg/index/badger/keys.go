package badger

// Database Key Namespace Design
// ==============================
//
// The index stores one BadgerDB entry per known path. Values are empty; the
// key alone carries the information and expiry is delegated to Badger's
// per-entry TTL.
//
// Data Type     Prefix   Key Format       Value
// ===============================================
// Known path    "p:"     p:<org/key>      (empty)
//
// Paths are stored verbatim, so a prefix scan over "p:<path>/" finds every
// indexed descendant of a folder in key order.

const prefixPath = "p:"

// keyPath returns the database key for an org-qualified path.
func keyPath(path string) []byte {
	return []byte(prefixPath + path)
}
