package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"railclaim/pkg/domain"
)

// =============================================================================
// Catalog Test Suite
// =============================================================================
// Justification for unit tests: lookup fallback, override scoring and the
// skip-and-warn loader are table-driven rules that the evaluation tests only
// touch indirectly.

type CatalogSuite struct {
	suite.Suite
	snap *Snapshot
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupTest() {
	f, err := os.Open("testdata/catalog.json")
	s.Require().NoError(err)
	defer f.Close()

	doc, err := DecodeDocument(f)
	s.Require().NoError(err)
	s.snap, err = Build(doc, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
}

func (s *CatalogSuite) TestSeedLoadsCleanly() {
	s.Empty(s.snap.Issues())
	s.Equal("2026.10.1", s.snap.Version())
	s.True(Check(s.snap).OK())
}

func (s *CatalogSuite) TestLookupFallback() {
	s.Run("exact product row wins", func() {
		e, ok := s.snap.Lookup(Key{Country: "DK", Operator: "dsb", Product: "ORANGE"})
		s.Require().True(ok)
		s.Equal("non_flex", e.FareFlex)
	})

	s.Run("unknown product falls back to operator row", func() {
		e, ok := s.snap.Lookup(Key{Country: "DK", Operator: "DSB", Product: "Regional"})
		s.Require().True(ok)
		s.Equal("flex", e.FareFlex)
	})

	s.Run("unknown operator falls back to country row", func() {
		e, ok := s.snap.Lookup(Key{Country: "DK", Operator: "Arriva"})
		s.Require().True(ok)
		s.Equal("Default Danish row", e.Notes)
	})

	s.Run("country without a default row misses", func() {
		_, ok := s.snap.Lookup(Key{Country: "PL", Operator: "Koleje Mazowieckie"})
		s.False(ok)
	})
}

func (s *CatalogSuite) TestFindOverride() {
	s.Run("operator and country match", func() {
		o, ok := s.snap.FindOverride(Key{Country: "NL", Operator: "NS"})
		s.Require().True(ok)
		s.Equal(60, o.Tiers[1].MinDelayMinutes)
	})

	s.Run("operator in another country does not leak", func() {
		_, ok := s.snap.FindOverride(Key{Country: "DE", Operator: "NS"})
		s.False(ok)
	})

	s.Run("empty key never matches", func() {
		_, ok := s.snap.FindOverride(Key{})
		s.False(ok)
	})

	s.Run("country-only query does not match operator rows", func() {
		_, ok := s.snap.FindOverride(Key{Country: "FR"})
		s.False(ok)
	})
}

func (s *CatalogSuite) TestMatrixAndGates() {
	rows := s.snap.MatrixRows("PL", ScopeRegional)
	s.Require().Len(rows, 1)
	s.True(rows[0].Blocked)
	s.Contains(rows[0].Exemptions, Art19)

	gates := s.snap.Gates("SE", ScopeRegional)
	s.Require().Len(gates, 1)
	s.Empty(s.snap.Gates("SE", ScopeLongDomestic))

	matched, err := gates[0].Matches(GateInput{Scope: ScopeRegional, Countries: []string{"SE"}, DistanceKm: 180, DistanceKnown: true})
	s.Require().NoError(err)
	s.True(matched)

	matched, err = gates[0].Matches(GateInput{Scope: ScopeRegional, Countries: []string{"SE"}, Flags: map[string]bool{"under_150km": true}})
	s.Require().NoError(err)
	s.False(matched)
}

func TestBuildSkipsMalformedRecords(t *testing.T) {
	pct := func(v int) *int { return &v }
	doc := &Document{
		Version: "t",
		Countries: []rawCountry{
			{Code: "DK", Name: "Denmark", EU: true},
			{Code: "Denmark"},
			{Code: "SE", Matrix: []rawMatrixRow{{Scope: "suburban"}}},
		},
		Entries: []rawEntry{
			{Country: "denmark", Operator: "DSB"},
			{Country: "XX1", Operator: "DSB"},
			{Country: "DK", Operator: "DSB"},
			{Country: "DK", Operator: "Arriva", Exemptions: []string{"Art.99"}},
		},
		Overrides: []rawOverride{
			{Country: "DK", Operator: "DSB", Tiers: []rawTier{{MinDelayMinutes: pct(30), Percent: pct(25)}}},
			{Country: "DK", Tiers: []rawTier{{MinDelayMinutes: pct(30), Percent: pct(125)}}},
			{Country: "DK", Tiers: []rawTier{{MinDelayMinutes: pct(-1), Percent: pct(25)}}},
			{Country: "DK", Tiers: []rawTier{{MinDelayMinutes: pct(30), Percent: pct(25), Payout: "bitcoin"}}},
			{Country: "DK"},
		},
		Gates: []rawGate{
			{ID: "ok", Country: "DK", When: "distanceKm > 10.0"},
			{ID: "broken", Country: "DK", When: "distanceKm >"},
			{ID: "typed", Country: "DK", When: "unknownVar == 1"},
		},
	}

	snap, err := Build(doc, time.Now())
	require.NoError(t, err)

	sections := map[string]int{}
	for _, issue := range snap.Issues() {
		sections[issue.Section]++
	}
	assert.Equal(t, 2, sections["countries"])
	assert.Equal(t, 3, sections["entries"])
	assert.Equal(t, 4, sections["overrides"])
	assert.Equal(t, 2, sections["gates"])

	_, ok := snap.Lookup(Key{Country: "DK", Operator: "dsb"})
	assert.True(t, ok, "country names resolve to codes")
	assert.Len(t, snap.Overrides(), 1)
}

func TestBuildCleansArticleLists(t *testing.T) {
	doc := &Document{
		Version:   "t",
		Countries: []rawCountry{{Code: "DK", Name: "Denmark", EU: true}},
		Entries: []rawEntry{
			{Country: "DK", Operator: "DSB", Exemptions: []string{" Art.9(3) ", "Art.9(3)", ""}},
		},
	}

	snap, err := Build(doc, time.Now())
	require.NoError(t, err)
	assert.Empty(t, snap.Issues())

	entry, ok := snap.Lookup(Key{Country: "DK", Operator: "DSB"})
	require.True(t, ok)
	assert.Equal(t, []ArticleID{"art9_3"}, entry.Exemptions)
}

func TestCheckReportsInconsistencies(t *testing.T) {
	pct := func(v int) *int { return &v }
	tiers := []rawTier{{MinDelayMinutes: pct(60), Percent: pct(25)}}
	doc := &Document{
		Countries: []rawCountry{{Code: "PL", Matrix: []rawMatrixRow{{Scope: "regional", Blocked: true}}}},
		Entries: []rawEntry{
			{Country: "PL", Operator: "Polregio"},
		},
		Overrides: []rawOverride{
			{Country: "PL", Operator: "Polregio", ScopeClass: "regional", Tiers: tiers},
			{Country: "PL", Operator: "Arriva", Tiers: tiers},
			{Country: "PL", Operator: "Polregio", Product: "REGIO", Tiers: tiers},
			{Country: "HU", Operator: "MAV", Tiers: tiers},
		},
	}
	snap, err := Build(doc, time.Now())
	require.NoError(t, err)

	report := Check(snap)
	require.Len(t, report.Findings, 4)
	assert.False(t, report.OK())

	var problems []string
	for _, f := range report.Findings {
		problems = append(problems, f.Problem)
	}
	joined := strings.Join(problems, "\n")
	assert.Contains(t, joined, "no catalog rows for country HU")
	assert.Contains(t, joined, `operator "arriva"`)
	assert.Contains(t, joined, `product "regio"`)
	assert.Contains(t, joined, "blocks regional scope")
}

func TestStoreReloadKeepsPreviousSnapshotOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"v1","entries":[{"country":"DK"}]}`), 0o600))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	swaps, failures := 0, 0
	store, err := Open(context.Background(), FileSource{Path: path},
		WithLogger(logger),
		WithSwapHook(func(*Snapshot) { swaps++ }),
		WithFailureHook(func(error) { failures++ }),
	)
	require.NoError(t, err)
	assert.Equal(t, "v1", store.Current().Version())

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err = store.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, "v1", store.Current().Version())

	require.NoError(t, os.WriteFile(path, []byte(`{"version":"v2"}`), 0o600))
	_, err = store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2", store.Current().Version())
	assert.Equal(t, 2, swaps)
	assert.Equal(t, 1, failures)

	_, ok := store.Lookup(domain.CountryCode("DK"), "", "")
	assert.False(t, ok)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"v1"}`), 0o600))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(context.Background(), FileSource{Path: path}, WithLogger(logger))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, store, path, logger) }()

	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"version":"v2"}`), 0o600)
		return store.Current().Version() == "v2"
	}, 5*time.Second, 400*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestParseArticle(t *testing.T) {
	tests := []struct {
		in      string
		want    ArticleID
		wantErr bool
	}{
		{"Art.12", Art12, false},
		{"Art. 18(3)", Art18_3, false},
		{"art9(2)", Art9_2, false},
		{"art20_2", Art20_2, false},
		{"Art.9", Art9, false},
		{"Art.18", "", true},
		{"Section 4", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseArticle(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "Art. 18(3)", Art18_3.Label())
}
