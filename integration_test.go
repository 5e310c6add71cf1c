//go:build integration

package deta_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakubesp/deta-go"
)

// Environment variables configuring the integration harness.
const (
	envTestDB    = "TEST_DB_NAME"
	envTestDrive = "TEST_DRIVE_NAME"
)

// integrationClient builds a client from the environment, skipping the
// test when credentials are not configured.
func integrationClient(t *testing.T) *deta.Client {
	t.Helper()

	if os.Getenv(deta.EnvAPIKey) == "" && os.Getenv(deta.EnvAPIKeyLegacy) == "" {
		t.Skipf("set %s to run integration tests", deta.EnvAPIKeyLegacy)
	}

	client, err := deta.NewFromEnv()
	require.NoError(t, err)

	return client
}

func integrationBase(t *testing.T) *deta.Base {
	t.Helper()

	name := os.Getenv(envTestDB)
	if name == "" {
		t.Skipf("set %s to run Base integration tests", envTestDB)
	}

	return integrationClient(t).Base(name)
}

func integrationDrive(t *testing.T) *deta.Drive {
	t.Helper()

	name := os.Getenv(envTestDrive)
	if name == "" {
		t.Skipf("set %s to run Drive integration tests", envTestDrive)
	}

	return integrationClient(t).Drive(name)
}

// testKey returns a unique item key so parallel test runs cannot
// collide on shared test resources.
func testKey(t *testing.T) string {
	t.Helper()

	return "it-" + uuid.NewString()
}

func TestIntegrationBase_PutGetRoundTrip(t *testing.T) {
	base := integrationBase(t)
	ctx := context.Background()
	key := testKey(t)

	t.Cleanup(func() {
		_ = base.Delete(context.Background(), key)
	})

	want := deta.Item{"key": key, "name": "Anna", "age": float64(30)}

	out, err := base.Put(ctx, want)
	require.NoError(t, err)
	require.Len(t, out.Processed, 1)
	assert.Equal(t, key, out.Processed[0].Key())

	var got deta.Item
	require.NoError(t, base.Get(ctx, key, &got))
	assert.Equal(t, want, got)
}

func TestIntegrationBase_GetAbsent(t *testing.T) {
	base := integrationBase(t)

	var got deta.Item
	err := base.Get(context.Background(), testKey(t), &got)
	assert.ErrorIs(t, err, deta.ErrNotFound)
}

func TestIntegrationBase_DeleteTwice(t *testing.T) {
	base := integrationBase(t)
	ctx := context.Background()
	key := testKey(t)

	_, err := base.Put(ctx, deta.Item{"key": key})
	require.NoError(t, err)

	require.NoError(t, base.Delete(ctx, key))
	// Deleting an absent key must not be an error.
	require.NoError(t, base.Delete(ctx, key))
}

func TestIntegrationBase_InsertConflict(t *testing.T) {
	base := integrationBase(t)
	ctx := context.Background()
	key := testKey(t)

	t.Cleanup(func() {
		_ = base.Delete(context.Background(), key)
	})

	_, err := base.Insert(ctx, deta.Item{"key": key})
	require.NoError(t, err)

	_, err = base.Insert(ctx, deta.Item{"key": key})
	assert.ErrorIs(t, err, deta.ErrConflict)
}

func TestIntegrationBase_UpdateActions(t *testing.T) {
	base := integrationBase(t)
	ctx := context.Background()
	key := testKey(t)

	t.Cleanup(func() {
		_ = base.Delete(context.Background(), key)
	})

	_, err := base.Put(ctx, deta.Item{"key": key, "count": 1, "tags": []any{"a"}, "old": true})
	require.NoError(t, err)

	_, err = base.Update(ctx, key, deta.NewUpdates().
		Set("name", "updated").
		Increment("count", 2).
		Append("tags", "b").
		Delete("old"))
	require.NoError(t, err)

	var got deta.Item
	require.NoError(t, base.Get(ctx, key, &got))
	assert.Equal(t, "updated", got["name"])
	assert.Equal(t, float64(3), got["count"])
	assert.Equal(t, []any{"a", "b"}, got["tags"])
	assert.NotContains(t, got, "old")
}

func TestIntegrationBase_ListPaginationComplete(t *testing.T) {
	base := integrationBase(t)
	ctx := context.Background()
	marker := uuid.NewString()

	const total = 7

	keys := make(map[string]bool, total)
	items := make([]any, 0, total)

	for i := 0; i < total; i++ {
		key := testKey(t)
		keys[key] = false

		items = append(items, deta.Item{"key": key, "marker": marker})
	}

	_, err := base.Put(ctx, items...)
	require.NoError(t, err)

	t.Cleanup(func() {
		for key := range keys {
			_ = base.Delete(context.Background(), key)
		}
	})

	// Page size 2 forces the iterator across multiple cursors.
	it := base.List(&deta.FetchInput{
		Query: deta.NewQuery().Where("marker", deta.Equal(marker)),
		Limit: 2,
	})

	for {
		item, err := it.Next(ctx)
		if errors.Is(err, deta.Done) {
			break
		}

		require.NoError(t, err)

		seen, ok := keys[item.Key()]
		require.True(t, ok, "unexpected item %q", item.Key())
		require.False(t, seen, "duplicate item %q", item.Key())
		keys[item.Key()] = true
	}

	for key, seen := range keys {
		assert.True(t, seen, "missing item %q", key)
	}
}

func TestIntegrationBase_RequestTimeout(t *testing.T) {
	base := integrationBase(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()

	var got deta.Item
	err := base.Get(ctx, "any-key", &got)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIntegrationDrive_UploadDownloadFidelity(t *testing.T) {
	drive := integrationDrive(t)
	ctx := context.Background()
	name := "it/" + uuid.NewString() + ".bin"

	t.Cleanup(func() {
		_, _ = drive.DeleteFiles(context.Background(), name)
	})

	content := bytes.Repeat([]byte{0x00, 0x7f, 0xff, 0x42}, 4096)

	info, err := drive.PutFile(ctx, name, bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, name, info.Name)

	got, err := drive.GetFileBytes(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestIntegrationDrive_GetAbsent(t *testing.T) {
	drive := integrationDrive(t)

	_, err := drive.GetFileBytes(context.Background(), "it/"+uuid.NewString())
	assert.ErrorIs(t, err, deta.ErrNotFound)
}

func TestIntegrationDrive_ListWithPrefix(t *testing.T) {
	drive := integrationDrive(t)
	ctx := context.Background()
	prefix := "it-list/" + uuid.NewString() + "/"

	names := []string{prefix + "a.txt", prefix + "b.txt", prefix + "c.txt"}

	for _, name := range names {
		_, err := drive.PutFile(ctx, name, bytes.NewReader([]byte(name)))
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_, _ = drive.DeleteFiles(context.Background(), names...)
	})

	it := drive.Files(&deta.ListFilesInput{Prefix: prefix, Limit: 2})

	var got []string

	for {
		name, err := it.Next(ctx)
		if errors.Is(err, deta.Done) {
			break
		}

		require.NoError(t, err)
		got = append(got, name)
	}

	assert.ElementsMatch(t, names, got)
}

func TestIntegrationDrive_DeleteAbsent(t *testing.T) {
	drive := integrationDrive(t)
	name := "it/" + uuid.NewString()

	out, err := drive.DeleteFiles(context.Background(), name)
	require.NoError(t, err)
	assert.Contains(t, out.Deleted, name)
}
