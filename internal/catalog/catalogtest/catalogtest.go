// Package catalogtest provides the seed catalog for tests in other packages.
package catalogtest

import (
	"bytes"
	_ "embed"
	"testing"

	"railclaim/internal/catalog"
)

//go:embed seed.json
var seed []byte

// Seed returns a snapshot of the seed catalog.
func Seed(t testing.TB) *catalog.Snapshot {
	t.Helper()
	snap, err := catalog.Parse(bytes.NewReader(seed))
	if err != nil {
		t.Fatalf("parse seed catalog: %v", err)
	}
	if issues := snap.Issues(); len(issues) > 0 {
		t.Fatalf("seed catalog has skipped records: %v", issues)
	}
	return snap
}

// Store returns a store serving the seed catalog.
func Store(t testing.TB) *catalog.Store {
	t.Helper()
	doc, err := catalog.DecodeDocument(bytes.NewReader(seed))
	if err != nil {
		t.Fatalf("decode seed catalog: %v", err)
	}
	store := catalog.NewStore(catalog.StaticSource{Doc: doc})
	if _, err := store.Reload(t.Context()); err != nil {
		t.Fatalf("load seed catalog: %v", err)
	}
	return store
}
