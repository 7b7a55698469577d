package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"mineralcatalog/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	md := map[string]string{"export_id": "abc"}
	info, err := s.Put(ctx, "exports/abc/minerals.json", strings.NewReader(`{"records":[]}`), core.PutOptions{ContentType: "application/json", Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["export_id"] = "mutated"
	if info.Size != 14 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := s.Get(ctx, "exports/abc/minerals.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if string(body) != `{"records":[]}` {
		t.Fatalf("body = %q", body)
	}
	if got.Metadata["export_id"] != "abc" || got.ContentType != "application/json" {
		t.Fatalf("metadata not preserved: %+v", got)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, err := s.Put(ctx, "k", strings.NewReader("b"), core.PutOptions{})
	if !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, " ", strings.NewReader("b"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func TestMissingKeys(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, _, err := s.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: %v", err)
	}
	if _, err := s.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head: %v", err)
	}
	existed, err := s.Delete(ctx, "nope")
	if err != nil || existed {
		t.Fatalf("delete missing: %v %v", existed, err)
	}
}

func TestListDeleteAndPresign(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"exports/b/minerals.csv", "exports/a/minerals.json", "other/x"} {
		if _, err := s.Put(ctx, k, strings.NewReader(k), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := s.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "exports/a/minerals.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	existed, err := s.Delete(ctx, "other/x")
	if err != nil || !existed {
		t.Fatalf("delete: %v %v", existed, err)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 2 {
		t.Fatalf("expected 2 after delete, got %d", len(all))
	}
	if _, err := s.PresignURL(ctx, "exports/a/minerals.json", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestPutHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
