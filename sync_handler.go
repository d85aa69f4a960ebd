package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SyncHandler runs the upload and download jobs of an AppConfig against one
// container. Runs never overlap.
type SyncHandler struct {
	container Container
	appConfig AppConfig
	filter    *PathFilter
	notifier  Notifier
	cache     MetadataCache
	progress  io.Writer
	lock      *sync.Mutex
}

func NewSyncHandler(container Container, appConfig AppConfig, filter *PathFilter, notifier Notifier, cache MetadataCache, progress io.Writer) *SyncHandler {
	return &SyncHandler{
		container: container,
		appConfig: appConfig,
		filter:    filter,
		notifier:  notifier,
		cache:     cache,
		progress:  progress,
		lock:      new(sync.Mutex),
	}
}

// Sync runs every upload job, then every download job, stopping at the first
// failure. It returns the combined stats of the jobs that ran.
func (s *SyncHandler) Sync(ctx context.Context) (TransferStats, error) {
	var total TransferStats
	if !s.lock.TryLock() {
		log.Warn("Another sync routine is already running. Skipping.")
		return total, fmt.Errorf("Unable to acquire sync lock")
	}
	defer s.lock.Unlock()

	syncStartTime := time.Now()
	log.Info(fmt.Sprintf("Sync starting for %s.", s.container.Name()))

	if _, publicErr := CheckPublic(ctx, s.container, s.appConfig.MakePublic); publicErr != nil {
		return total, publicErr
	}
	if s.appConfig.MediaURL != "" {
		CheckURI(s.container, s.appConfig.MediaURL)
	}

	for _, uc := range s.appConfig.Upload {
		stats, uploadErr := s.RunUpload(ctx, uc)
		total.Add(stats)
		if uploadErr != nil {
			return total, uploadErr
		}
	}

	for _, dc := range s.appConfig.Download {
		stats, downloadErr := s.RunDownload(ctx, dc)
		total.Add(stats)
		if downloadErr != nil {
			return total, downloadErr
		}
	}

	log.Info(fmt.Sprintf("Sync complete for %s. Took %s", s.container.Name(), time.Since(syncStartTime).String()))
	return total, nil
}

func (s *SyncHandler) RunUpload(ctx context.Context, uc UploadConfig) (TransferStats, error) {
	stats, uploadErr := UploadTree(ctx, s.container, uc.SourceFolder, s.filter, UploadOptions{
		Force:            uc.Force,
		DropRemotePrefix: uc.DropRemotePrefix,
		Verbosity:        s.appConfig.VerbosityLevel(),
		Progress:         s.progress,
		Cache:            s.cache,
	})
	s.report(JobResult{
		Action:    "Upload",
		Local:     uc.SourceFolder,
		Container: s.container.Name(),
		Stats:     stats,
		Err:       uploadErr,
	})
	return stats, uploadErr
}

func (s *SyncHandler) RunDownload(ctx context.Context, dc DownloadConfig) (TransferStats, error) {
	stats, downloadErr := Download(ctx, s.container, dc.DestinationFolder, DownloadOptions{
		Force:     dc.Force,
		Prefix:    dc.Prefix,
		Verbosity: s.appConfig.VerbosityLevel(),
		Progress:  s.progress,
	})
	s.report(JobResult{
		Action:    "Download",
		Local:     dc.DestinationFolder,
		Container: s.container.Name(),
		Stats:     stats,
		Err:       downloadErr,
	})
	return stats, downloadErr
}

func (s *SyncHandler) report(job JobResult) {
	if job.Err != nil {
		log.Error(fmt.Sprintf("%s %s failed after %d files: %s", job.Action, job.Local, job.Stats.Count, job.Err))
	} else {
		log.Info(fmt.Sprintf("%s %s: %d files, %d bytes", job.Action, job.Local, job.Stats.Count, job.Stats.Bytes))
	}

	if s.notifier == nil {
		return
	}
	if notifyErr := s.notifier.NotifyRunResults(job); notifyErr != nil {
		log.Warn(fmt.Sprintf("Unable to publish %s results: %s", job.Action, notifyErr))
	}
}
