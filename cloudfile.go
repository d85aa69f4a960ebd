package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
)

// CloudFile pairs a local file with the remote object it is uploaded to.
type CloudFile struct {
	container  Container
	cache      MetadataCache
	RemoteName string
	LocalPath  string
	changed    *bool
}

func NewCloudFile(container Container, cache MetadataCache, remoteName, localPath string) *CloudFile {
	return &CloudFile{
		container:  container,
		cache:      cache,
		RemoteName: remoteName,
		LocalPath:  localPath,
	}
}

// HasChanged reports whether the local file needs uploading. The remote
// object must exist, have the same size, and not be older than the local file
// at one second granularity. The verdict is computed once.
func (c *CloudFile) HasChanged(ctx context.Context) (bool, error) {
	if c.changed != nil {
		return *c.changed, nil
	}

	localInfo, statErr := os.Stat(c.LocalPath)
	if statErr != nil {
		return false, newSyncError(KindTransfer, c.LocalPath, statErr)
	}

	remote, found, remoteErr := c.remoteMetadata(ctx)
	if remoteErr != nil {
		return false, newSyncError(KindTransfer, c.LocalPath, remoteErr)
	}

	changed := true
	if found {
		localModTime := localInfo.ModTime().Truncate(time.Second)
		remoteModTime := remote.ModTime.Truncate(time.Second)
		changed = localInfo.Size() != remote.Size || remoteModTime.Before(localModTime)
	}
	c.changed = &changed

	return changed, nil
}

// remoteMetadata stats the remote object. A cached record of our own upload
// only stands in for the remote mtime, and only while the sizes still agree.
func (c *CloudFile) remoteMetadata(ctx context.Context) (RemoteObject, bool, error) {
	remote, statErr := c.container.Stat(ctx, c.RemoteName)
	if errors.Is(statErr, ErrObjectNotFound) {
		return RemoteObject{}, false, nil
	}
	if statErr != nil {
		return RemoteObject{}, false, statErr
	}

	if c.cache != nil {
		if cached, ok := c.cache.Lookup(c.container.Name(), c.RemoteName); ok {
			if cached.Size == remote.Size && cached.ModTime.After(remote.ModTime) {
				remote.ModTime = cached.ModTime
			}
		}
	}
	return remote, true, nil
}

// Upload streams the local file to the remote object and returns the number
// of bytes sent.
func (c *CloudFile) Upload(ctx context.Context, observer TransferObserver) (int64, error) {
	fd, openErr := os.Open(c.LocalPath)
	if openErr != nil {
		return 0, newSyncError(KindTransfer, c.LocalPath, openErr)
	}
	defer fd.Close()

	info, statErr := fd.Stat()
	if statErr != nil {
		return 0, newSyncError(KindTransfer, c.LocalPath, statErr)
	}

	contentType := "application/octet-stream"
	if mtype, detectErr := mimetype.DetectFile(c.LocalPath); detectErr == nil {
		contentType = mtype.String()
	}

	observer = observerOrNop(observer)
	observer.OnStart(info.Size())
	uploadErr := c.container.Upload(ctx, c.RemoteName, newProgressReader(fd, info.Size(), observer), info.Size(), contentType)
	observer.OnEnd()
	if uploadErr != nil {
		return 0, newSyncError(KindTransfer, c.LocalPath, uploadErr)
	}

	changed := false
	c.changed = &changed

	if c.cache != nil {
		record := RemoteObject{Name: c.RemoteName, Size: info.Size(), ModTime: time.Now()}
		if recordErr := c.cache.Record(c.container.Name(), record); recordErr != nil {
			log.Warn(fmt.Sprintf("Unable to cache metadata for %s: %s", c.RemoteName, recordErr))
		}
	}
	log.Debug(fmt.Sprintf("Uploaded file %s as key %s", c.LocalPath, c.RemoteName))

	return info.Size(), nil
}
