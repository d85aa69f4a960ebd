package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v6"
	pkgerrors "github.com/pkg/errors"
)

// MinioContainer stores objects on any S3 compatible server reachable through
// minio-go, e.g. a self hosted MinIO.
type MinioContainer struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinioContainer(provider ProviderConfig, bucket string) (*MinioContainer, error) {
	client, clientErr := minio.New(provider.Endpoint, provider.AccessKeyID, provider.SecretAccessKey, provider.Secure)
	if clientErr != nil {
		return nil, fmt.Errorf("Error creating minio client: %+v", clientErr)
	}
	return &MinioContainer{client: client, bucket: bucket, publicURL: provider.PublicURL}, nil
}

func (m *MinioContainer) Name() string {
	return m.bucket
}

func (m *MinioContainer) IsPublic(ctx context.Context) (bool, error) {
	policy, policyErr := m.client.GetBucketPolicy(m.bucket)
	if policyErr != nil {
		if minio.ToErrorResponse(policyErr).Code == "NoSuchBucketPolicy" {
			return false, nil
		}
		return false, pkgerrors.Wrapf(policyErr, "minio policy for %s", m.bucket)
	}
	return grantsPublicRead(policy, m.bucket), nil
}

func (m *MinioContainer) MakePublic(ctx context.Context) error {
	public, publicErr := m.IsPublic(ctx)
	if publicErr != nil {
		return publicErr
	}
	if public {
		return nil
	}

	policy, policyErr := publicReadPolicy(m.bucket)
	if policyErr != nil {
		return policyErr
	}
	setErr := m.client.SetBucketPolicy(m.bucket, policy)
	switch minio.ToErrorResponse(setErr).Code {
	case "":
	case "AccessDenied", "NotImplemented":
		return fmt.Errorf("%s: %s: %w", m.bucket, setErr, ErrPublicAccessUnavailable)
	default:
		return pkgerrors.Wrapf(setErr, "minio set policy for %s", m.bucket)
	}
	return nil
}

func (m *MinioContainer) PublicURI() string {
	if m.publicURL != "" {
		return strings.TrimSuffix(m.publicURL, URLSeparator)
	}
	return strings.TrimSuffix(m.client.EndpointURL().String(), URLSeparator) + URLSeparator + m.bucket
}

func (m *MinioContainer) Objects(ctx context.Context, prefix string, fn func(RemoteObject) error) error {
	doneCh := make(chan struct{})
	defer close(doneCh)

	for object := range m.client.ListObjectsV2(m.bucket, prefix, true, doneCh) {
		if object.Err != nil {
			return pkgerrors.Wrapf(object.Err, "minio list %s", m.bucket)
		}
		if fnErr := fn(RemoteObject{Name: object.Key, Size: object.Size, ModTime: object.LastModified}); fnErr != nil {
			return fnErr
		}
	}

	return nil
}

func (m *MinioContainer) Stat(ctx context.Context, name string) (RemoteObject, error) {
	info, statErr := m.client.StatObject(m.bucket, name, minio.StatObjectOptions{})
	if statErr != nil {
		if minio.ToErrorResponse(statErr).Code == "NoSuchKey" {
			return RemoteObject{}, ErrObjectNotFound
		}
		return RemoteObject{}, pkgerrors.Wrapf(statErr, "minio stat %s/%s", m.bucket, name)
	}
	return RemoteObject{Name: info.Key, Size: info.Size, ModTime: info.LastModified}, nil
}

func (m *MinioContainer) Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) error {
	_, putErr := m.client.PutObjectWithContext(ctx, m.bucket, name, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if putErr != nil {
		return pkgerrors.Wrapf(putErr, "minio put %s/%s", m.bucket, name)
	}
	return nil
}

func (m *MinioContainer) SaveToFile(ctx context.Context, obj RemoteObject, path string, observer TransferObserver) error {
	object, getErr := m.client.GetObjectWithContext(ctx, m.bucket, obj.Name, minio.GetObjectOptions{})
	if getErr != nil {
		return pkgerrors.Wrapf(getErr, "minio get %s/%s", m.bucket, obj.Name)
	}
	defer object.Close()

	return saveStream(path, obj, object, observer)
}
