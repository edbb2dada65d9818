package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProxiedPathCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	pp := model.ProxiedPath{
		Username:    "alice",
		SharingKey:  "key-1",
		SharingName: "dataset.zarr",
		FSPName:     "scratch",
		Path:        "proj/dataset.zarr",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateProxiedPath(ctx, pp))

	got, err := s.GetProxiedPath(ctx, "alice", "key-1")
	require.NoError(t, err)
	assert.Equal(t, "dataset.zarr", got.SharingName)
	assert.Equal(t, "scratch", got.FSPName)

	// Same target again conflicts.
	dup := pp
	dup.SharingKey = "key-2"
	err = s.CreateProxiedPath(ctx, dup)
	assert.ErrorIs(t, err, ErrConflict)

	// Lookup by key alone serves the public proxy.
	found, err := s.FindProxiedPathByKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)

	name := "renamed.zarr"
	updated, err := s.UpdateProxiedPath(ctx, "alice", "key-1", &name, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed.zarr", updated.SharingName)

	list, err := s.ListProxiedPaths(ctx, "alice", "scratch", "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteProxiedPath(ctx, "alice", "key-1"))
	_, err = s.GetProxiedPath(ctx, "alice", "key-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteProxiedPath(ctx, "alice", "key-1"), ErrNotFound)
}

func TestPreferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetPreference(ctx, "bob", "theme", "dark"))
	require.NoError(t, s.SetPreference(ctx, "bob", "favorites", []any{"a", "b"}))

	v, err := s.GetPreference(ctx, "bob", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	// Upsert replaces.
	require.NoError(t, s.SetPreference(ctx, "bob", "theme", "light"))
	v, err = s.GetPreference(ctx, "bob", "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", v)

	all, err := s.ListPreferences(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeletePreference(ctx, "bob", "theme"))
	_, err = s.GetPreference(ctx, "bob", "theme")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNeuroglancerLinks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	link := model.NeuroglancerLink{
		ShortKey:  "abcd1234",
		Username:  "carol",
		ShortName: "my-view",
		State:     `{"layers":[]}`,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateNeuroglancerLink(ctx, link))

	// Duplicate short name for the same user conflicts.
	dup := link
	dup.ShortKey = "efgh5678"
	assert.ErrorIs(t, s.CreateNeuroglancerLink(ctx, dup), ErrConflict)

	// Unnamed links never conflict on name.
	anon := model.NeuroglancerLink{
		ShortKey: "anon0001", Username: "carol", State: "{}",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateNeuroglancerLink(ctx, anon))
	anon2 := anon
	anon2.ShortKey = "anon0002"
	require.NoError(t, s.CreateNeuroglancerLink(ctx, anon2))

	got, err := s.GetNeuroglancerLink(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "my-view", got.ShortName)

	got.State = `{"layers":[{"name":"raw"}]}`
	require.NoError(t, s.UpdateNeuroglancerLink(ctx, "carol", got))

	links, err := s.ListNeuroglancerLinks(ctx, "carol")
	require.NoError(t, err)
	assert.Len(t, links, 3)

	require.NoError(t, s.DeleteNeuroglancerLink(ctx, "carol", "abcd1234"))
	_, err = s.GetNeuroglancerLink(ctx, "abcd1234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	job := model.Job{
		ID:           "job-1",
		Username:     "dave",
		AppURL:       "https://github.com/acme/tools",
		AppName:      "converter",
		EntryPointID: "convert",
		Parameters:   map[string]string{"input": "/data/in.zarr"},
		Status:       model.JobPending,
		CreatedAt:    now,
	}
	require.NoError(t, s.CreateJob(ctx, job))

	active, err := s.ListActiveJobs(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, model.JobPending, active[0].Status)

	started := now.Add(time.Second)
	require.NoError(t, s.UpdateJobStatus(ctx, "job-1", model.JobRunning, nil, &started, nil))
	require.NoError(t, s.SetJobClusterID(ctx, "job-1", "12345"))

	code := 0
	finished := now.Add(2 * time.Second)
	require.NoError(t, s.UpdateJobStatus(ctx, "job-1", model.JobDone, &code, nil, &finished))

	got, err := s.GetJob(ctx, "dave", "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobDone, got.Status)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 0, *got.ExitCode)
	assert.Equal(t, "12345", got.ClusterJobID)
	assert.Equal(t, "/data/in.zarr", got.Parameters["input"])
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)

	active, err = s.ListActiveJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = s.GetJob(ctx, "mallory", "job-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
