// Package testsupport holds fixture and golden file helpers shared by the
// package tests.
package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-tablebuttons/pkg/definition"
)

// LoadCatalog loads every definition document under dir, failing the test on
// error.
func LoadCatalog(t *testing.T, dir string) *definition.Catalog {
	t.Helper()

	catalog, err := definition.LoadFS(os.DirFS(dir))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

// LoadMessages reads a messages file, failing the test on error.
func LoadMessages(t *testing.T, path string) definition.Messages {
	t.Helper()

	messages, err := definition.LoadMessagesFS(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		t.Fatalf("load messages: %v", err)
	}
	return messages
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return string(data)
}

// CompareGolden fails the test with a diff when got differs from the golden
// file at path. With UPDATE_GOLDENS set the file is rewritten instead.
func CompareGolden(t *testing.T, path string, got []byte) {
	t.Helper()
	if WriteMaybeGolden(t, path, got) {
		return
	}
	if diff := cmp.Diff(MustReadGoldenString(t, path), string(got)); diff != "" {
		t.Fatalf("golden %s mismatch (-want +got):\n%s", path, diff)
	}
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
