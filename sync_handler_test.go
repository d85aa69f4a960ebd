package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []JobResult
}

func (r *recordingNotifier) NotifyRunResults(job JobResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func TestSyncHandlerRunsUploadsThenDownloads(t *testing.T) {
	source := t.TempDir()
	destination := t.TempDir()
	writeTestFile(t, filepath.Join(source, "css", "site.css"), "body{}")
	container := NewMockContainer("media")
	container.Put("uploads/photo.jpg", []byte("jpeg"), time.Now())
	notifier := &recordingNotifier{}
	appConfig := AppConfig{
		Bucket:     "media",
		MakePublic: true,
		Upload:     []UploadConfig{{SourceFolder: source}},
		Download:   []DownloadConfig{{DestinationFolder: destination, Prefix: "uploads/"}},
	}
	handler := NewSyncHandler(container, appConfig, nil, notifier, nil, nil)

	stats, syncErr := handler.Sync(context.Background())

	assert.Nil(t, syncErr)
	assert.Equal(t, TransferStats{Count: 2, Bytes: 10}, stats)
	assert.True(t, container.public)
	assert.FileExists(t, filepath.Join(destination, "uploads", "photo.jpg"))
	assert.Len(t, notifier.jobs, 2)
	assert.Equal(t, "Upload", notifier.jobs[0].Action)
	assert.Equal(t, "Download", notifier.jobs[1].Action)
}

func TestSyncHandlerStopsAtFirstFailure(t *testing.T) {
	destination := t.TempDir()
	container := NewMockContainer("media")
	container.Put("a.txt", []byte("a"), time.Now())
	notifier := &recordingNotifier{}
	appConfig := AppConfig{
		Bucket:   "media",
		Upload:   []UploadConfig{{SourceFolder: filepath.Join(t.TempDir(), "missing")}},
		Download: []DownloadConfig{{DestinationFolder: destination}},
	}
	handler := NewSyncHandler(container, appConfig, nil, notifier, nil, nil)

	_, syncErr := handler.Sync(context.Background())

	assert.True(t, IsKind(syncErr, KindConfiguration))
	assert.Empty(t, container.SaveRequests)
	assert.Len(t, notifier.jobs, 1)
	assert.NotNil(t, notifier.jobs[0].Err)
}

func TestSyncRoutineErrorsWhenAnotherIsRunning(t *testing.T) {
	container := NewMockContainer("media")
	handler := NewSyncHandler(container, AppConfig{Bucket: "media"}, nil, nil, nil, nil)

	handler.lock.Lock()
	defer handler.lock.Unlock()
	_, syncErr := handler.Sync(context.Background())

	assert.NotNil(t, syncErr)
	assert.ErrorContains(t, syncErr, "Unable to acquire sync lock")
	assert.Empty(t, container.UploadRequests)
}

func TestSyncSchedulerRejectsNonPositiveInterval(t *testing.T) {
	handler := NewSyncHandler(NewMockContainer("media"), AppConfig{}, nil, nil, nil, nil)

	_, schedErr := NewSyncScheduler(context.Background(), handler, 0)

	assert.ErrorContains(t, schedErr, "must be positive")
}

func TestSyncSchedulerRunsHandler(t *testing.T) {
	source := t.TempDir()
	writeTestFile(t, filepath.Join(source, "a.txt"), "a")
	container := NewMockContainer("media")
	notifier := &recordingNotifier{}
	handler := NewSyncHandler(container, AppConfig{Upload: []UploadConfig{{SourceFolder: source}}}, nil, notifier, nil, nil)

	scheduler, schedErr := NewSyncScheduler(context.Background(), handler, time.Hour)
	assert.Nil(t, schedErr)
	scheduler.StartAsync()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		return notifier.count() == 1
	}, 5*time.Second, 10*time.Millisecond)
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, []string{"a.txt"}, container.UploadRequests)
}

func TestSyncHandlerIgnoresNotificationFailures(t *testing.T) {
	source := t.TempDir()
	writeTestFile(t, filepath.Join(source, "a.txt"), "a")
	container := NewMockContainer("media")
	snsClient := &MockSNSClient{PublishErr: errors.New("topic not found")}
	notifier := &SNSNotifier{Client: snsClient, Topic: "mock-topic"}
	handler := NewSyncHandler(container, AppConfig{Bucket: "media"}, nil, notifier, nil, nil)

	stats, uploadErr := handler.RunUpload(context.Background(), UploadConfig{SourceFolder: source})

	assert.Nil(t, uploadErr)
	assert.Equal(t, TransferStats{Count: 1, Bytes: 1}, stats)
	assert.Equal(t, []string{"Upload succeeded: " + source + " -> media"}, snsClient.Subjects())
}
