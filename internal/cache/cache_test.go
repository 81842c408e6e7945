package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry(t *testing.T) {
	entry := NewEntry("k", json.RawMessage(`{"a":1}`), 60)
	assert.False(t, entry.IsExpired())
	assert.Greater(t, entry.TimeUntilExpiration(), time.Duration(0))

	t.Run("expired", func(t *testing.T) {
		e := NewEntry("k", nil, 60)
		e.ExpiresAt = time.Now().Add(-time.Second)
		assert.True(t, e.IsExpired())
		assert.Equal(t, time.Duration(0), e.TimeUntilExpiration())
	})

	t.Run("json", func(t *testing.T) {
		encoded, err := json.Marshal(entry)
		require.NoError(t, err)
		var decoded Entry
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		assert.Equal(t, entry.Key, decoded.Key)
		assert.Equal(t, entry.ExpiresAt.Format(time.RFC3339), decoded.ExpiresAt.Format(time.RFC3339))

		var v map[string]int
		require.NoError(t, decoded.Decode(&v))
		assert.Equal(t, 1, v["a"])
	})
}

func TestKey(t *testing.T) {
	a := Key("units", "http://localhost:8080/")
	b := Key("units", " HTTP://LOCALHOST:8080")
	c := Key("providers", "http://localhost:8080")
	d := Key("units", "http://localhost:8081")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Regexp(t, `^units-[0-9a-f]{32}$`, a)
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s, err := NewFileStore(dir, true, 60)
	require.NoError(t, err)
	assert.True(t, s.IsEnabled())
	assert.Equal(t, dir, s.Directory())

	_, err = s.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Set("", nil), ErrInvalidKey)

	require.NoError(t, s.Set("a/b:c", json.RawMessage(`[1,2]`)))
	entry, err := s.Get("a/b:c")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(entry.Data))
	assert.FileExists(t, filepath.Join(dir, "a_b_c.json"))

	require.NoError(t, s.Set("other", json.RawMessage(`true`)))
	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete("other"))
	require.NoError(t, s.Delete("other"))

	removed, err := s.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestFileStore_Expired(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, true, 60)
	require.NoError(t, err)

	stale := NewEntry("old", json.RawMessage(`1`), 60)
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), data, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old2.json"), data, 0o600))

	_, err = s.Get("old")
	require.ErrorIs(t, err, ErrExpired)
	assert.NoFileExists(t, filepath.Join(dir, "old.json"))

	removed, err := s.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestFileStore_Disabled(t *testing.T) {
	s, err := NewFileStore("", false, 0)
	require.NoError(t, err)
	assert.False(t, s.IsEnabled())

	_, err = s.Get("k")
	require.ErrorIs(t, err, ErrDisabled)
	require.ErrorIs(t, s.Set("k", nil), ErrDisabled)
	_, err = s.Clear()
	require.ErrorIs(t, err, ErrDisabled)
}

func TestFetch(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), true, 60)
	require.NoError(t, err)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"kg", "MJ"}, nil
	}

	first, err := Fetch(ctx, s, "units", fetch)
	require.NoError(t, err)
	second, err := Fetch(ctx, s, "units", fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	_, err = Fetch(ctx, nil, "units", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	_, err = Fetch(ctx, s, "broken", func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	_, err = s.Get("broken")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvTTLSeconds, "2h")
	assert.Equal(t, 7200, TTLFromEnv(60))

	t.Setenv(EnvTTLSeconds, "5")
	assert.Equal(t, 60, TTLFromEnv(60))

	t.Setenv(EnvCacheEnabled, "false")
	assert.False(t, EnabledFromEnv(true))
	t.Setenv(EnvCacheEnabled, "nope")
	assert.True(t, EnabledFromEnv(true))

	t.Setenv(EnvCacheDir, "/tmp/x")
	assert.Equal(t, "/tmp/x", DirFromEnv())
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		30 * time.Second:             "30s",
		5 * time.Minute:              "5m",
		2 * time.Hour:                "2h",
		5*time.Hour + 20*time.Minute: "5h20m",
		48 * time.Hour:               "2d",
		51 * time.Hour:               "2d3h",
	}
	for d, want := range tests {
		assert.Equal(t, want, FormatDuration(d))
	}
}
