package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

type DownloadOptions struct {
	Force     bool
	Prefix    string
	Verbosity int
	// Progress receives progress bars when Verbosity > 0. Nil disables them.
	Progress io.Writer
}

// Download pulls every object under opts.Prefix into root. An object is
// fetched when the local file is missing, differs in size, or opts.Force is
// set. The first failure stops the whole download.
func Download(ctx context.Context, container Container, root string, opts DownloadOptions) (TransferStats, error) {
	var stats TransferStats

	root, rootErr := validateDirectory(root)
	if rootErr != nil {
		return stats, rootErr
	}

	listErr := container.Objects(ctx, opts.Prefix, func(obj RemoteObject) error {
		downloaded, downloadErr := downloadObject(ctx, container, root, obj, opts)
		if downloadErr != nil {
			return downloadErr
		}
		stats.Add(downloaded)
		return nil
	})
	if listErr != nil {
		var syncErr *SyncError
		if errors.As(listErr, &syncErr) {
			return stats, syncErr
		}
		return stats, fmt.Errorf("listing %s with prefix %q: %w", container.Name(), opts.Prefix, listErr)
	}

	return stats, nil
}

func downloadObject(ctx context.Context, container Container, root string, obj RemoteObject, opts DownloadOptions) (TransferStats, error) {
	filename := filepath.Join(root, filepath.FromSlash(obj.Name))
	if !isWithin(filename, root) {
		log.Warn(fmt.Sprintf("Skipping %s: resolves outside of %s", obj.Name, root))
		return TransferStats{}, nil
	}

	// Folder placeholder objects only need their directory.
	if obj.Name == "" || strings.HasSuffix(obj.Name, URLSeparator) {
		if mkdirErr := os.MkdirAll(filename, localDirMode); mkdirErr != nil {
			return TransferStats{}, newSyncError(KindTransfer, filename, mkdirErr)
		}
		return TransferStats{}, nil
	}

	size, exists, sizeErr := localSize(filename)
	if sizeErr != nil {
		return TransferStats{}, newSyncError(KindTransfer, filename, sizeErr)
	}
	if mkdirErr := ensureParentDir(filename); mkdirErr != nil {
		return TransferStats{}, newSyncError(KindTransfer, filename, mkdirErr)
	}

	if exists && !opts.Force && size == obj.Size {
		if opts.Verbosity > 1 {
			log.Info(fmt.Sprintf("SKIPPING: %s", obj.Name))
		}
		return TransferStats{}, nil
	}

	var observer TransferObserver
	if opts.Verbosity > 0 {
		log.Info(fmt.Sprintf("Downloading %s", obj.Name))
		if opts.Progress != nil {
			observer = NewProgressBar(opts.Progress, DefaultTotalTicks)
		}
	}
	observer = observerOrNop(observer)

	observer.OnStart(obj.Size)
	saveErr := container.SaveToFile(ctx, obj, filename, observer)
	observer.OnEnd()
	if errors.Is(saveErr, ErrInvalidObjectSize) {
		return TransferStats{}, newSyncError(KindRemoteSize, filename, saveErr)
	}
	if saveErr != nil {
		return TransferStats{}, newSyncError(KindTransfer, filename, saveErr)
	}

	written, _, statErr := localSize(filename)
	if statErr != nil {
		return TransferStats{}, newSyncError(KindTransfer, filename, statErr)
	}
	return TransferStats{Count: 1, Bytes: written}, nil
}
