package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache map[string]RemoteObject

func (m mapCache) Lookup(container, name string) (RemoteObject, bool) {
	obj, ok := m[container+"/"+name]
	return obj, ok
}

func (m mapCache) Record(container string, obj RemoteObject) error {
	m[container+"/"+obj.Name] = obj
	return nil
}

func TestHasChangedWhenRemoteMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeTestFile(t, path, "a")
	cf := NewCloudFile(NewMockContainer("media"), nil, "a.txt", path)

	changed, changedErr := cf.HasChanged(context.Background())

	assert.Nil(t, changedErr)
	assert.True(t, changed)
}

func TestHasChangedIgnoresSubSecondDifferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeTestFile(t, path, "a")
	modTime := time.Date(2024, 3, 1, 12, 0, 0, 900_000_000, time.UTC)
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	container := NewMockContainer("media")
	container.Put("a.txt", []byte("b"), modTime.Truncate(time.Second))
	cf := NewCloudFile(container, nil, "a.txt", path)

	changed, changedErr := cf.HasChanged(context.Background())

	assert.Nil(t, changedErr)
	assert.False(t, changed)
}

func TestHasChangedVerdictIsCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeTestFile(t, path, "a")
	container := NewMockContainer("media")
	cf := NewCloudFile(container, nil, "a.txt", path)

	first, _ := cf.HasChanged(context.Background())
	container.Put("a.txt", []byte("a"), time.Now().Add(time.Hour))
	second, _ := cf.HasChanged(context.Background())

	assert.True(t, first)
	assert.True(t, second)
	assert.Len(t, container.StatRequests, 1)
}

func TestHasChangedUsesCachedModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeTestFile(t, path, "a")
	container := NewMockContainer("media")
	container.Put("a.txt", []byte("a"), time.Now().Add(-time.Hour))
	cache := mapCache{"media/a.txt": {Name: "a.txt", Size: 1, ModTime: time.Now().Add(time.Minute)}}
	cf := NewCloudFile(container, cache, "a.txt", path)

	changed, changedErr := cf.HasChanged(context.Background())

	assert.Nil(t, changedErr)
	assert.False(t, changed)
	assert.Equal(t, []string{"a.txt"}, container.StatRequests)
}

func TestHasChangedWhenCachedObjectWasDeleted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeTestFile(t, path, "a")
	container := NewMockContainer("media")
	cache := mapCache{"media/a.txt": {Name: "a.txt", Size: 1, ModTime: time.Now().Add(time.Minute)}}
	cf := NewCloudFile(container, cache, "a.txt", path)

	changed, changedErr := cf.HasChanged(context.Background())

	assert.Nil(t, changedErr)
	assert.True(t, changed)
}

func TestHasChangedWhenCachedSizeIsStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeTestFile(t, path, "a")
	container := NewMockContainer("media")
	container.Put("a.txt", []byte("a"), time.Now().Add(-time.Hour))
	cache := mapCache{"media/a.txt": {Name: "a.txt", Size: 7, ModTime: time.Now().Add(time.Minute)}}
	cf := NewCloudFile(container, cache, "a.txt", path)

	changed, changedErr := cf.HasChanged(context.Background())

	assert.Nil(t, changedErr)
	assert.True(t, changed)
}

func TestUploadRecordsMetadataCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeTestFile(t, path, "abc")
	container := NewMockContainer("media")
	cache := mapCache{}
	cf := NewCloudFile(container, cache, "a.txt", path)

	sent, uploadErr := cf.Upload(context.Background(), nil)

	assert.Nil(t, uploadErr)
	assert.Equal(t, int64(3), sent)
	cached, ok := cache.Lookup("media", "a.txt")
	assert.True(t, ok)
	assert.Equal(t, int64(3), cached.Size)
	changed, _ := cf.HasChanged(context.Background())
	assert.False(t, changed)
}

func TestUploadMissingLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.txt")
	cf := NewCloudFile(NewMockContainer("media"), nil, "gone.txt", path)

	_, uploadErr := cf.Upload(context.Background(), nil)

	assert.True(t, IsKind(uploadErr, KindTransfer))
	assert.ErrorIs(t, uploadErr, os.ErrNotExist)
}

type failingUploadContainer struct {
	*MockContainer
}

func (f failingUploadContainer) Upload(context.Context, string, io.Reader, int64, string) error {
	return errors.New("connection reset")
}

func TestUploadFailureFinishesProgressBar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeTestFile(t, path, "abc")
	var out bytes.Buffer
	cf := NewCloudFile(failingUploadContainer{NewMockContainer("media")}, nil, "a.txt", path)

	_, uploadErr := cf.Upload(context.Background(), NewProgressBar(&out, 4))

	assert.True(t, IsKind(uploadErr, KindTransfer))
	assert.Equal(t, "  [====]\n", out.String())
}
