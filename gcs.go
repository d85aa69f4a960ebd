package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/iam"
	"cloud.google.com/go/storage"
	pkgerrors "github.com/pkg/errors"
	"google.golang.org/api/iterator"
)

const gcsObjectViewerRole iam.RoleName = "roles/storage.objectViewer"

type GCSContainer struct {
	Client    *storage.Client
	Bucket    string
	PublicURL string
}

func NewGCSContainer(ctx context.Context, provider ProviderConfig, bucket string) (*GCSContainer, error) {
	client, clientErr := storage.NewClient(ctx)
	if clientErr != nil {
		return nil, fmt.Errorf("Error creating gcs client: %+v", clientErr)
	}
	return &GCSContainer{Client: client, Bucket: bucket, PublicURL: provider.PublicURL}, nil
}

func (g *GCSContainer) Name() string {
	return g.Bucket
}

func (g *GCSContainer) IsPublic(ctx context.Context) (bool, error) {
	policy, policyErr := g.Client.Bucket(g.Bucket).IAM().Policy(ctx)
	if policyErr != nil {
		return false, pkgerrors.Wrapf(policyErr, "Bucket(%q).IAM().Policy", g.Bucket)
	}
	return policy.HasRole(iam.AllUsers, gcsObjectViewerRole), nil
}

func (g *GCSContainer) MakePublic(ctx context.Context) error {
	bucket := g.Client.Bucket(g.Bucket)
	attrs, attrsErr := bucket.Attrs(ctx)
	if attrsErr != nil {
		return pkgerrors.Wrapf(attrsErr, "Bucket(%q).Attrs", g.Bucket)
	}
	if attrs.PublicAccessPrevention == storage.PublicAccessPreventionEnforced {
		return fmt.Errorf("%s enforces public access prevention: %w", g.Bucket, ErrPublicAccessUnavailable)
	}

	handle := bucket.IAM()
	policy, policyErr := handle.Policy(ctx)
	if policyErr != nil {
		return pkgerrors.Wrapf(policyErr, "Bucket(%q).IAM().Policy", g.Bucket)
	}
	if policy.HasRole(iam.AllUsers, gcsObjectViewerRole) {
		return nil
	}
	policy.Add(iam.AllUsers, gcsObjectViewerRole)
	if setErr := handle.SetPolicy(ctx, policy); setErr != nil {
		return pkgerrors.Wrapf(setErr, "Bucket(%q).IAM().SetPolicy", g.Bucket)
	}
	return nil
}

func (g *GCSContainer) PublicURI() string {
	if g.PublicURL != "" {
		return strings.TrimSuffix(g.PublicURL, URLSeparator)
	}
	return "https://storage.googleapis.com/" + g.Bucket
}

func (g *GCSContainer) Objects(ctx context.Context, prefix string, fn func(RemoteObject) error) error {
	objIter := g.Client.Bucket(g.Bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := objIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("Bucket(%q).Objects: %w", g.Bucket, err)
		}
		if fnErr := fn(RemoteObject{Name: attrs.Name, Size: attrs.Size, ModTime: attrs.Updated}); fnErr != nil {
			return fnErr
		}
	}

	return nil
}

func (g *GCSContainer) Stat(ctx context.Context, name string) (RemoteObject, error) {
	attrs, attrsErr := g.Client.Bucket(g.Bucket).Object(name).Attrs(ctx)
	if errors.Is(attrsErr, storage.ErrObjectNotExist) {
		return RemoteObject{}, ErrObjectNotFound
	}
	if attrsErr != nil {
		return RemoteObject{}, pkgerrors.Wrapf(attrsErr, "Object(%q).Attrs", name)
	}
	return RemoteObject{Name: attrs.Name, Size: attrs.Size, ModTime: attrs.Updated}, nil
}

func (g *GCSContainer) Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) error {
	objWriter := g.Client.Bucket(g.Bucket).Object(name).NewWriter(ctx)
	objWriter.ContentType = contentType
	if _, uploadErr := io.Copy(objWriter, body); uploadErr != nil {
		objWriter.Close()
		return pkgerrors.Wrapf(uploadErr, "Object(%q).NewWriter", name)
	}
	if closeErr := objWriter.Close(); closeErr != nil {
		return pkgerrors.Wrapf(closeErr, "Object(%q).NewWriter", name)
	}

	return nil
}

func (g *GCSContainer) SaveToFile(ctx context.Context, obj RemoteObject, path string, observer TransferObserver) error {
	reader, readerErr := g.Client.Bucket(g.Bucket).Object(obj.Name).NewReader(ctx)
	if readerErr != nil {
		return pkgerrors.Wrapf(readerErr, "Object(%q).NewReader", obj.Name)
	}
	defer reader.Close()

	return saveStream(path, obj, reader, observer)
}
