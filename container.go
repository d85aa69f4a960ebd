package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
)

// URLSeparator separates path segments in remote object names regardless of
// the local OS convention.
const URLSeparator = "/"

type RemoteObject struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// TransferObserver receives progress for a single in-flight transfer.
type TransferObserver interface {
	OnStart(total int64)
	OnTick(done, total int64)
	OnEnd()
}

// Container is a remote namespace of objects, e.g. an S3 or GCS bucket.
type Container interface {
	Name() string
	IsPublic(ctx context.Context) (bool, error)
	// MakePublic is idempotent. It returns ErrPublicAccessUnavailable when the
	// provider refuses public access for the account or bucket.
	MakePublic(ctx context.Context) error
	PublicURI() string
	// Objects calls fn for each object whose name starts with prefix, fetching
	// one listing page at a time. A non-nil error from fn stops the listing and
	// is returned unchanged.
	Objects(ctx context.Context, prefix string, fn func(RemoteObject) error) error
	// Stat returns ErrObjectNotFound when name does not exist.
	Stat(ctx context.Context, name string) (RemoteObject, error)
	Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) error
	// SaveToFile writes obj to path. It returns ErrInvalidObjectSize when the
	// number of bytes received does not match obj.Size.
	SaveToFile(ctx context.Context, obj RemoteObject, path string, observer TransferObserver) error
}

// CheckPublic returns true if the container is public, or was made public
// because makePublic was set.
func CheckPublic(ctx context.Context, container Container, makePublic bool) (bool, error) {
	public, publicErr := container.IsPublic(ctx)
	if publicErr != nil {
		return false, fmt.Errorf("checking whether %s is public: %w", container.Name(), publicErr)
	}
	if public {
		return true, nil
	}

	if makePublic {
		makeErr := container.MakePublic(ctx)
		switch {
		case makeErr == nil:
			log.Info(fmt.Sprintf("Made container %s public", container.Name()))
			return true, nil
		case errors.Is(makeErr, ErrPublicAccessUnavailable):
			log.Warn(fmt.Sprintf("Making container %s public failed (public access is not available for your account)", container.Name()))
		default:
			return false, newSyncError(KindPublicAccess, container.Name(), makeErr)
		}
	}

	log.Warn("Container is not public. Ensure that it's made public, or your files will not " +
		"be available over the CDN. You can use the --make-public option to allow this tool " +
		"to make the container public for you.")
	return false, nil
}

// CheckURI reports whether mediaURL points at the container's public URI and
// logs the value to configure when it does not.
func CheckURI(container Container, mediaURL string) bool {
	publicURI := container.PublicURI() + URLSeparator
	if mediaURL == publicURI {
		return true
	}
	log.Warn(fmt.Sprintf("Media URL should be set to '%s' (currently '%s')", publicURI, mediaURL))
	return false
}
