package enumerate

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/marmos91/dittostore/pkg/acl"
	"github.com/marmos91/dittostore/pkg/keys"
	"github.com/marmos91/dittostore/pkg/store/object"
)

// Entry is one listed key annotated for display.
type Entry struct {
	// Key is the org-qualified object key
	Key string `json:"key" yaml:"key"`

	// Path is the request path of the key ("/" + Key)
	Path string `json:"path" yaml:"path"`

	// Name is the final segment of the key
	Name string `json:"name" yaml:"name"`

	// Ext is the extension of Name including the dot, or ""
	Ext string `json:"ext,omitempty" yaml:"ext,omitempty"`

	// IsFolder is true for folder markers and delimiter prefixes
	IsFolder bool `json:"isFolder" yaml:"isFolder"`

	Size         int64     `json:"size" yaml:"size"`
	LastModified time.Time `json:"lastModified,omitzero" yaml:"lastModified,omitempty"`
}

// NewEntry classifies an object as a file or folder entry.
//
// Folder markers have no extension; ".props" siblings are files.
func NewEntry(info object.ObjectInfo) Entry {
	return Entry{
		Key:          info.Key,
		Path:         keys.Separator + info.Key,
		Name:         keys.Base(info.Key),
		Ext:          keys.Ext(info.Key),
		IsFolder:     !keys.IsConcrete(info.Key) && !keys.IsProps(info.Key),
		Size:         info.Size,
		LastModified: info.LastModified,
	}
}

// ListEntries returns one entry per key of the subtree rooted at prefixKey
// that user may read.
//
// Entries follow ListAllKeys order. A nil checker disables filtering.
func ListEntries(ctx context.Context, store object.Store, prefixKey, user string, checker acl.Checker) ([]Entry, error) {
	allowed := func(e Entry) bool {
		return checker == nil || checker.HasPermission(user, e.Path, acl.ActionRead)
	}

	if keys.IsConcrete(prefixKey) {
		info, err := store.Head(ctx, prefixKey)
		switch {
		case object.IsNotFound(err):
			info = &object.ObjectInfo{Key: prefixKey}
		case err != nil:
			return nil, err
		}
		entry := NewEntry(*info)
		if !allowed(entry) {
			return []Entry{}, nil
		}
		return []Entry{entry}, nil
	}

	entries := []Entry{}
	_, err := walk(ctx, store, prefixKey, "", 0, func(info object.ObjectInfo) bool {
		if entry := NewEntry(info); allowed(entry) {
			entries = append(entries, entry)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListChildren returns the immediate children of folder using a delimiter
// listing, so nested subtrees are never walked.
//
// A child folder appears once even when it has both a marker object and
// descendants. ".props" siblings are omitted. A nil checker disables
// filtering.
func ListChildren(ctx context.Context, store object.Store, folder, user string, checker acl.Checker) ([]Entry, error) {
	prefix := folder + keys.Separator
	if folder == "" {
		prefix = ""
	}

	seen := make(map[string]int)
	entries := []Entry{}
	add := func(e Entry) {
		if checker != nil && !checker.HasPermission(user, e.Path, acl.ActionRead) {
			return
		}
		if i, ok := seen[e.Key]; ok {
			if e.Size > 0 || !e.LastModified.IsZero() {
				entries[i].Size = e.Size
				entries[i].LastModified = e.LastModified
			}
			return
		}
		seen[e.Key] = len(entries)
		entries = append(entries, e)
	}

	opts := object.ListOptions{Prefix: prefix, Delimiter: keys.Separator, MaxKeys: DefaultPageSize}
	for {
		page, err := store.List(ctx, opts)
		if err != nil {
			return nil, err
		}

		for _, info := range page.Objects {
			if keys.IsProps(info.Key) {
				continue
			}
			add(NewEntry(info))
		}
		for _, cp := range page.CommonPrefixes {
			key := strings.TrimSuffix(cp, keys.Separator)
			add(Entry{
				Key:      key,
				Path:     keys.Separator + key,
				Name:     keys.Base(key),
				IsFolder: true,
			})
		}

		if !page.IsTruncated || page.NextContinuationToken == "" {
			break
		}
		opts.ContinuationToken = page.NextContinuationToken
	}

	sortEntries(entries)
	return entries, nil
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.Key, b.Key)
	})
}
