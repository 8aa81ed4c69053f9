package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
)

// Source yields catalog documents. The file source is the default; tests
// use in-memory documents.
type Source interface {
	Fetch(ctx context.Context) (*Document, error)
}

// FileSource reads a JSON catalog document from disk.
type FileSource struct {
	Path string
}

func (f FileSource) Fetch(_ context.Context) (*Document, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", f.Path, err)
	}
	defer fh.Close()
	return DecodeDocument(fh)
}

// StaticSource serves a fixed document.
type StaticSource struct {
	Doc *Document
}

func (s StaticSource) Fetch(_ context.Context) (*Document, error) {
	if s.Doc == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "no catalog document")
	}
	return s.Doc, nil
}

// Store holds the current snapshot and swaps it atomically on reload.
// A failed reload keeps the previous snapshot.
type Store struct {
	source  Source
	current atomic.Pointer[Snapshot]
	logger  *slog.Logger
	now     func() time.Time
	onSwap  func(*Snapshot)
	onFail  func(error)
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithSwapHook is called after every successful reload.
func WithSwapHook(fn func(*Snapshot)) Option {
	return func(s *Store) {
		s.onSwap = fn
	}
}

// WithFailureHook is called after every failed reload.
func WithFailureHook(fn func(error)) Option {
	return func(s *Store) {
		s.onFail = fn
	}
}

// NewStore creates a store; call Reload before use.
func NewStore(source Source, opts ...Option) *Store {
	s := &Store{source: source, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store and performs the initial load.
func Open(ctx context.Context, source Source, opts ...Option) (*Store, error) {
	s := NewStore(source, opts...)
	if _, err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload fetches and rebuilds the catalog. Skipped records are logged as
// warnings; only an unreadable document fails the reload.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	doc, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "catalog reload failed", "error", err)
		return nil, s.failed(dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load catalog"))
	}
	snap, err := Build(doc, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "catalog build failed", "error", err)
		return nil, s.failed(dErrors.Wrap(err, dErrors.CodeInternal, "failed to build catalog"))
	}
	for _, issue := range snap.Issues() {
		s.logger.WarnContext(ctx, "catalog record skipped",
			"section", issue.Section,
			"index", issue.Index,
			"reason", issue.Reason,
		)
	}
	s.current.Store(snap)
	s.logger.InfoContext(ctx, "catalog loaded",
		"version", snap.Version(),
		"entries", len(snap.entries),
		"overrides", len(snap.overrides),
		"gates", len(snap.gates),
		"skipped", len(snap.issues),
	)
	if s.onSwap != nil {
		s.onSwap(snap)
	}
	return snap, nil
}

func (s *Store) failed(err error) error {
	if s.onFail != nil {
		s.onFail(err)
	}
	return err
}

// Current returns the active snapshot, or nil before the first load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Lookup is a convenience wrapper over the active snapshot.
func (s *Store) Lookup(country domain.CountryCode, operator, product string) (Entry, bool) {
	snap := s.Current()
	if snap == nil {
		return Entry{}, false
	}
	return snap.Lookup(Key{Country: country, Operator: operator, Product: product})
}
