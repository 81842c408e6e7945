package provider_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/lcaprommis/internal/cache"
	"github.com/rshade/lcaprommis/internal/olca"
	"github.com/rshade/lcaprommis/internal/olca/olcatest"
	"github.com/rshade/lcaprommis/internal/provider"
)

func seed(srv *olcatest.Server) {
	flows := []olca.Flow{
		{ID: "f-elec-us", Name: "Electricity, high voltage, US", FlowType: olca.ProductFlow},
		{ID: "f-elec-eu", Name: "Electricity, medium voltage", FlowType: olca.ProductFlow},
		{ID: "f-steam", Name: "Steam, in chemical industry", FlowType: olca.ProductFlow},
		{ID: "f-ww", Name: "Wastewater, average", FlowType: olca.WasteFlow},
		{ID: "f-co2", Name: "Carbon dioxide", FlowType: olca.ElementaryFlow},
	}
	for _, f := range flows {
		f.Type = olca.TypeFlow
		srv.Add(olca.TypeFlow, f)
	}
	srv.AddProvider(olca.Ref{Type: olca.TypeProcess, ID: "p-grid-us", Name: "market for electricity, US"},
		olca.Ref{Type: olca.TypeFlow, ID: "f-elec-us"})
	srv.AddProvider(olca.Ref{Type: olca.TypeProcess, ID: "p-grid-eu", Name: "market for electricity, EU"},
		olca.Ref{Type: olca.TypeFlow, ID: "f-elec-eu"})
	srv.AddProvider(olca.Ref{Type: olca.TypeProcess, ID: "p-wwt", Name: "treatment of wastewater"},
		olca.Ref{Type: olca.TypeFlow, ID: "f-ww"})
}

func buildIndex(t *testing.T) *provider.Index {
	t.Helper()
	srv := olcatest.NewServer(t)
	seed(srv)
	idx, err := provider.BuildIndex(context.Background(), srv.Client(t))
	require.NoError(t, err)
	return idx
}

func TestBuildIndex_SkipsElementaryFlows(t *testing.T) {
	idx := buildIndex(t)
	require.Len(t, idx.Entries, 4)
	for _, e := range idx.Entries {
		assert.NotEqual(t, olca.ElementaryFlow, e.Flow.FlowType)
	}
	assert.Equal(t, "Electricity, high voltage, US", idx.Entries[0].Flow.Name)
	require.Len(t, idx.Entries[0].Providers, 1)
	assert.Equal(t, "p-grid-us", idx.Entries[0].Providers[0].ID)
}

func TestSearch_RanksByOverlap(t *testing.T) {
	idx := buildIndex(t)

	got := idx.Search(provider.Query{Keywords: "electricity US", FlowType: olca.ProductFlow})
	require.Len(t, got, 2)
	assert.Equal(t, "f-elec-us", got[0].Flow.ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-12)
	assert.InDelta(t, 0.5, got[1].Score, 1e-12)

	waste := idx.Search(provider.Query{FlowName: "wastewater", FlowType: olca.WasteFlow})
	require.Len(t, waste, 1)
	assert.Equal(t, "p-wwt", waste[0].Provider.ID)

	assert.Empty(t, idx.Search(provider.Query{Keywords: "hydrogen"}))
	assert.Empty(t, idx.Search(provider.Query{Keywords: "  "}))
	assert.Empty(t, idx.Search(provider.Query{Keywords: "wastewater", FlowType: olca.ProductFlow}))
}

func TestSearch_FlowWithoutProvider(t *testing.T) {
	idx := buildIndex(t)
	got := idx.Search(provider.Query{Keywords: "steam"})
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Provider.ID)
	assert.Contains(t, got[0].Label(), "no provider")
}

func TestBuildIndexCached(t *testing.T) {
	srv := olcatest.NewServer(t)
	seed(srv)
	store, err := cache.NewFileStore(t.TempDir(), true, 3600)
	require.NoError(t, err)
	client := srv.Client(t)

	first, err := provider.BuildIndexCached(context.Background(), client, store)
	require.NoError(t, err)
	calls := len(srv.Calls())

	second, err := provider.BuildIndexCached(context.Background(), client, store)
	require.NoError(t, err)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Len(t, srv.Calls(), calls)
}

func TestSelectors(t *testing.T) {
	idx := buildIndex(t)
	ctx := context.Background()
	q := provider.Query{FlowName: "Electricity", FlowType: olca.ProductFlow}
	cands := idx.Search(q)

	t.Run("first", func(t *testing.T) {
		sel, err := provider.FirstSelector{}.Select(ctx, q, cands)
		require.NoError(t, err)
		assert.NotEmpty(t, sel.Candidate.Provider.ID)

		_, err = provider.FirstSelector{}.Select(ctx, q, nil)
		require.ErrorIs(t, err, provider.ErrNoCandidates)
	})

	t.Run("pinned", func(t *testing.T) {
		pinned := provider.PinnedSelector{Index: idx, Pins: map[string]provider.Pin{
			"Electricity": {Flow: "f-elec-eu", Provider: "p-grid-eu"},
			"Broken":      {Flow: "f-elec-eu", Provider: "p-none"},
		}}
		sel, err := pinned.Select(ctx, q, cands)
		require.NoError(t, err)
		assert.Equal(t, "p-grid-eu", sel.Candidate.Provider.ID)

		_, err = pinned.Select(ctx, provider.Query{FlowName: "Steam"}, nil)
		require.ErrorIs(t, err, provider.ErrNoDecision)

		_, err = pinned.Select(ctx, provider.Query{FlowName: "Broken"}, nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, provider.ErrNoDecision)
	})

	t.Run("chain falls through", func(t *testing.T) {
		chain := provider.ChainSelector{provider.PinnedSelector{Index: idx}, provider.FirstSelector{}}
		sel, err := chain.Select(ctx, q, cands)
		require.NoError(t, err)
		assert.Equal(t, cands[0], sel.Candidate)

		_, err = provider.ChainSelector{provider.PinnedSelector{}}.Select(ctx, q, cands)
		require.ErrorIs(t, err, provider.ErrNoCandidates)
	})
}

func TestPromptSelector(t *testing.T) {
	idx := buildIndex(t)
	ctx := context.Background()
	q := provider.Query{FlowName: "Electricity", FlowType: olca.ProductFlow}
	cands := idx.Search(q)
	require.Len(t, cands, 2)

	t.Run("numbered choice after bad input", func(t *testing.T) {
		var out bytes.Buffer
		s := &provider.PromptSelector{In: strings.NewReader("x\n7\n2\n"), Out: &out}
		sel, err := s.Select(ctx, q, cands)
		require.NoError(t, err)
		assert.Equal(t, cands[1], sel.Candidate)
		assert.Contains(t, out.String(), " 1) ")
		assert.Contains(t, out.String(), "Enter a number between 1 and 2")
	})

	t.Run("skip", func(t *testing.T) {
		s := &provider.PromptSelector{In: strings.NewReader("S\n"), Out: &bytes.Buffer{}}
		sel, err := s.Select(ctx, q, cands)
		require.NoError(t, err)
		assert.True(t, sel.Skip)
	})

	t.Run("eof", func(t *testing.T) {
		s := &provider.PromptSelector{In: strings.NewReader(""), Out: &bytes.Buffer{}}
		_, err := s.Select(ctx, q, cands)
		require.Error(t, err)
	})

	t.Run("limit", func(t *testing.T) {
		var out bytes.Buffer
		s := &provider.PromptSelector{In: strings.NewReader("1\n"), Out: &out, Limit: 1}
		_, err := s.Select(ctx, q, cands)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "1 more not shown")
	})
}
