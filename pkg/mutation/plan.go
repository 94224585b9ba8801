package mutation

import (
	"fmt"

	"github.com/marmos91/dittostore/pkg/keys"
)

// Op is a structural mutation.
type Op string

const (
	// OpMove relocates a subtree, choosing a free destination name
	OpMove Op = "move"

	// OpCopy duplicates a subtree onto the named destination
	OpCopy Op = "copy"

	// OpRename relocates a subtree onto the named destination
	OpRename Op = "rename"
)

// ParseOp converts a command or verb name to an Op.
func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case OpMove, OpCopy, OpRename:
		return Op(s), nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// Removes reports whether op deletes the source after copying it.
func (op Op) Removes() bool {
	return op == OpMove || op == OpRename
}

// Location addresses a key inside an org.
type Location struct {
	Org string `json:"org" yaml:"org"`

	// Key is org-relative ("docs/report.html")
	Key string `json:"key" yaml:"key"`
}

// ParseLocation splits an org-qualified path ("/acme/docs/a.html") into a
// Location. Case is preserved.
func ParseLocation(path string) Location {
	org, key := keys.Split(path)
	return Location{Org: org, Key: key}
}

// Path returns the org-qualified object key.
func (l Location) Path() string {
	return keys.Join(l.Org, l.Key)
}

func (l Location) String() string {
	return keys.Separator + l.Path()
}

// Plan is a validated mutation ready for execution.
//
// Destination is never equal to, nor a descendant of, Source.
type Plan struct {
	Op          Op       `json:"op" yaml:"op"`
	Source      Location `json:"source" yaml:"source"`
	Destination Location `json:"destination" yaml:"destination"`

	// ContinuationToken resumes a batched execution; empty starts from the
	// first key of the source
	ContinuationToken string `json:"continuationToken,omitempty" yaml:"continuationToken,omitempty"`
}
