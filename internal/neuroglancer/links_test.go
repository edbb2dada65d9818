package neuroglancer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/JaneliaSciComp/fileglancer-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, "http://localhost:7878", "https://neuroglancer-demo.appspot.com")
}

func TestShortenFromURL(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	link, err := svc.Shorten(ctx, "alice", ShortenRequest{
		URL: `https://viewer.example.org#!%7B%22layers%22%3A%5B%5D%7D`,
	})
	require.NoError(t, err)
	assert.Len(t, link.ShortKey, 8)
	assert.Equal(t, "http://localhost:7878/api/neuroglancer/state/"+link.ShortKey, link.StateURL)
	// The URL base from the submitted link is kept for the viewer URL.
	assert.Equal(t, "https://viewer.example.org#!"+link.StateURL, link.ViewerURL)

	got, err := svc.Get(ctx, link.ShortKey)
	require.NoError(t, err)

	var state map[string]any
	require.NoError(t, sonic.UnmarshalString(got.State, &state))
	assert.Contains(t, state, "layers")
}

func TestShortenFromRawState(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	link, err := svc.Shorten(ctx, "alice", ShortenRequest{
		State: `{"layers":[{"name":"raw"}]}`,
		Title: "My dataset",
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, link.ShortKey)
	require.NoError(t, err)
	var state map[string]any
	require.NoError(t, sonic.UnmarshalString(got.State, &state))
	assert.Equal(t, "My dataset", state["title"])
	// No URL base supplied, the default deployment is used.
	assert.Contains(t, got.ViewerURL, "https://neuroglancer-demo.appspot.com#!")
}

func TestShortenRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Shorten(ctx, "alice", ShortenRequest{URL: "https://example.org/no-fragment"})
	assert.ErrorIs(t, err, ErrBadState)

	_, err = svc.Shorten(ctx, "alice", ShortenRequest{State: "not json"})
	assert.ErrorIs(t, err, ErrBadState)

	_, err = svc.Shorten(ctx, "alice", ShortenRequest{})
	assert.ErrorIs(t, err, ErrBadState)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	link, err := svc.Shorten(ctx, "alice", ShortenRequest{State: `{"layers":[]}`, ShortName: "v1"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "alice", link.ShortKey, ShortenRequest{
		State: `{"layers":[{"name":"seg"}]}`,
		Title: "Updated",
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", updated.ShortName)

	// Another user cannot touch the link.
	_, err = svc.Update(ctx, "bob", link.ShortKey, ShortenRequest{State: "{}"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "bob", link.ShortKey), store.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "alice", link.ShortKey))
	_, err = svc.Get(ctx, link.ShortKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
