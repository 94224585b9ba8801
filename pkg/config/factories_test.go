package config

import (
	"context"
	"strings"
	"testing"

	"github.com/marmos91/dittostore/pkg/acl"
	"github.com/marmos91/dittostore/pkg/store/object"
)

func TestCreateObjectStore_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type:   "memory",
		Memory: map[string]any{"page_size": "2"},
	}

	store, err := CreateObjectStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create memory object store: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}

	if err := store.Put(ctx, "acme/a.html", []byte("a"), object.PutOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if ok, err := object.Exists(ctx, store, "acme/a.html"); err != nil || !ok {
		t.Errorf("Expected acme/a.html to exist, got %v (err=%v)", ok, err)
	}
}

func TestCreateObjectStore_S3MissingBucket(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	}

	_, err := CreateObjectStore(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateObjectStore_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{Type: "ftp"}

	_, err := CreateObjectStore(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown object store type") {
		t.Errorf("Expected 'unknown object store type' error, got: %v", err)
	}
}

func TestCreatePathIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		idx, err := CreatePathIndex(ctx, &IndexConfig{Type: "none"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if idx != nil {
			t.Errorf("Expected nil index for type none, got %T", idx)
		}
	})

	t.Run("memory", func(t *testing.T) {
		idx, err := CreatePathIndex(ctx, &IndexConfig{
			Type:   "memory",
			Memory: map[string]any{"ttl": "1m"},
		})
		if err != nil {
			t.Fatalf("Failed to create memory index: %v", err)
		}
		defer func() { _ = idx.Close() }()

		if err := idx.Add(ctx, "acme/docs"); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		found, err := idx.Has(ctx, "acme/docs")
		if err != nil || !found {
			t.Errorf("Expected acme/docs in index, got %v (err=%v)", found, err)
		}
	})

	t.Run("badger in memory", func(t *testing.T) {
		idx, err := CreatePathIndex(ctx, &IndexConfig{
			Type:   "badger",
			Badger: map[string]any{"in_memory": true, "ttl": "1h"},
		})
		if err != nil {
			t.Fatalf("Failed to create badger index: %v", err)
		}
		if err := idx.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	t.Run("bad ttl", func(t *testing.T) {
		_, err := CreatePathIndex(ctx, &IndexConfig{
			Type:   "memory",
			Memory: map[string]any{"ttl": "soon"},
		})
		if err == nil {
			t.Fatal("Expected error for unparsable ttl")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := CreatePathIndex(ctx, &IndexConfig{Type: "redis"})
		if err == nil {
			t.Fatal("Expected error for unknown index type")
		}
	})
}

func TestCreateACL(t *testing.T) {
	checker, err := CreateACL(&ACLConfig{DefaultAllow: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := checker.(acl.AllowAll); !ok {
		t.Errorf("Expected AllowAll without rules, got %T", checker)
	}

	checker, err = CreateACL(&ACLConfig{
		Rules: []acl.Rule{{User: "alice", Path: "/acme"}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !checker.HasPermission("alice", "acme/docs", acl.ActionWrite) {
		t.Error("Expected alice to write under acme")
	}
	if checker.HasPermission("bob", "acme/docs", acl.ActionRead) {
		t.Error("Expected bob to be refused")
	}

	if _, err := CreateACL(&ACLConfig{Rules: []acl.Rule{{Path: "/acme"}}}); err == nil {
		t.Error("Expected error for rule without user")
	}
}

func TestNewServices_Defaults(t *testing.T) {
	ctx := context.Background()
	cfg := GetDefaultConfig()

	svc, err := NewServices(ctx, cfg)
	if err != nil {
		t.Fatalf("NewServices failed: %v", err)
	}
	defer func() { _ = svc.Close() }()

	if svc.Store == nil || svc.Checker == nil || svc.Validator == nil || svc.Executor == nil {
		t.Fatal("Expected store, checker, validator and executor to be wired")
	}
	if svc.Versions == nil || svc.Collector == nil {
		t.Fatal("Expected version manager and collector to be wired")
	}
	if svc.Metrics == nil || svc.Metrics.Server != nil {
		t.Error("Expected metrics disabled by default")
	}
	if svc.Versions.Prefix() != ".versions" {
		t.Errorf("Expected versions prefix '.versions', got %q", svc.Versions.Prefix())
	}
}

func TestNewServices_NilConfig(t *testing.T) {
	if _, err := NewServices(context.Background(), nil); err == nil {
		t.Fatal("Expected error for nil config")
	}
}

func TestNewServicesWithStore(t *testing.T) {
	ctx := context.Background()
	cfg := GetDefaultConfig()
	cfg.Index.Type = "none"

	store, err := CreateObjectStore(ctx, &StoreConfig{Type: "memory"}, nil)
	if err != nil {
		t.Fatalf("CreateObjectStore failed: %v", err)
	}

	svc, err := NewServicesWithStore(ctx, cfg, store)
	if err != nil {
		t.Fatalf("NewServicesWithStore failed: %v", err)
	}
	defer func() { _ = svc.Close() }()

	if svc.Store != store {
		t.Error("Expected services to use the given store")
	}

	if _, err := NewServicesWithStore(ctx, cfg, nil); err == nil {
		t.Error("Expected error for nil store")
	}
	if _, err := NewServicesWithStore(ctx, nil, store); err == nil {
		t.Error("Expected error for nil config")
	}
}
