package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	pkgerrors "github.com/pkg/errors"
)

// S3API is the subset of the S3 client used by S3Container.
type S3API interface {
	manager.UploadAPIClient
	manager.DownloadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetBucketPolicyStatus(ctx context.Context, params *s3.GetBucketPolicyStatusInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyStatusOutput, error)
	GetPublicAccessBlock(ctx context.Context, params *s3.GetPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
}

type S3Container struct {
	Client    S3API
	Bucket    string
	Region    string
	PublicURL string
}

func NewS3Container(ctx context.Context, provider ProviderConfig, bucket string) (*S3Container, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(provider.Profile),
		config.WithRegion(provider.Region))
	if err != nil {
		return nil, fmt.Errorf("Error creating s3 client: %+v", err)
	}

	awsS3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if provider.Endpoint != "" {
			o.BaseEndpoint = aws.String(provider.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Container{
		Client:    awsS3Client,
		Bucket:    bucket,
		Region:    provider.Region,
		PublicURL: provider.PublicURL,
	}, nil
}

func (s *S3Container) Name() string {
	return s.Bucket
}

func (s *S3Container) IsPublic(ctx context.Context) (bool, error) {
	statusOut, statusErr := s.Client.GetBucketPolicyStatus(ctx, &s3.GetBucketPolicyStatusInput{
		Bucket: aws.String(s.Bucket),
	})
	if apiErrorCode(statusErr) == "NoSuchBucketPolicy" {
		return false, nil
	}
	if statusErr != nil {
		return false, pkgerrors.Wrapf(statusErr, "s3 policy status for %s", s.Bucket)
	}
	if statusOut.PolicyStatus == nil {
		return false, nil
	}
	return aws.ToBool(statusOut.PolicyStatus.IsPublic), nil
}

func (s *S3Container) MakePublic(ctx context.Context) error {
	public, publicErr := s.IsPublic(ctx)
	if publicErr != nil {
		return publicErr
	}
	if public {
		return nil
	}

	blockOut, blockErr := s.Client.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{
		Bucket: aws.String(s.Bucket),
	})
	switch {
	case apiErrorCode(blockErr) == "NoSuchPublicAccessBlockConfiguration":
	case blockErr != nil:
		return pkgerrors.Wrapf(blockErr, "s3 public access block for %s", s.Bucket)
	case blockOut.PublicAccessBlockConfiguration != nil && aws.ToBool(blockOut.PublicAccessBlockConfiguration.BlockPublicPolicy):
		return fmt.Errorf("%s blocks public policies: %w", s.Bucket, ErrPublicAccessUnavailable)
	}

	policy, policyErr := publicReadPolicy(s.Bucket)
	if policyErr != nil {
		return policyErr
	}
	_, putErr := s.Client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(s.Bucket),
		Policy: aws.String(policy),
	})
	if apiErrorCode(putErr) == "AccessDenied" {
		return fmt.Errorf("%s: %s: %w", s.Bucket, putErr, ErrPublicAccessUnavailable)
	}
	if putErr != nil {
		return pkgerrors.Wrapf(putErr, "s3 put policy for %s", s.Bucket)
	}
	return nil
}

func (s *S3Container) PublicURI() string {
	if s.PublicURL != "" {
		return strings.TrimSuffix(s.PublicURL, URLSeparator)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.Bucket, s.Region)
}

func (s *S3Container) Objects(ctx context.Context, prefix string, fn func(RemoteObject) error) error {
	listParams := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
	}
	if prefix != "" {
		listParams.Prefix = aws.String(prefix)
	}
	paginator := s3.NewListObjectsV2Paginator(s.Client, listParams)
	for paginator.HasMorePages() {
		currentPage, pageErr := paginator.NextPage(ctx)
		if pageErr != nil {
			return pkgerrors.Wrapf(pageErr, "s3 list %s", s.Bucket)
		}
		for _, object := range currentPage.Contents {
			if fnErr := fn(s3Object(object)); fnErr != nil {
				return fnErr
			}
		}
	}

	return nil
}

func s3Object(object types.Object) RemoteObject {
	return RemoteObject{
		Name:    aws.ToString(object.Key),
		Size:    aws.ToInt64(object.Size),
		ModTime: aws.ToTime(object.LastModified),
	}
}

func (s *S3Container) Stat(ctx context.Context, name string) (RemoteObject, error) {
	headOut, headErr := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(name),
	})
	var notFound *types.NotFound
	if errors.As(headErr, &notFound) || apiErrorCode(headErr) == "NoSuchKey" {
		return RemoteObject{}, ErrObjectNotFound
	}
	if headErr != nil {
		return RemoteObject{}, pkgerrors.Wrapf(headErr, "s3 head %s/%s", s.Bucket, name)
	}
	return RemoteObject{
		Name:    name,
		Size:    aws.ToInt64(headOut.ContentLength),
		ModTime: aws.ToTime(headOut.LastModified),
	}, nil
}

func (s *S3Container) Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) error {
	uploader := manager.NewUploader(s.Client, func(u *manager.Uploader) {
		u.Concurrency = 1
	})
	_, putErr := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(name),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if putErr != nil {
		return pkgerrors.Wrapf(putErr, "s3 upload %s/%s", s.Bucket, name)
	}
	return nil
}

func (s *S3Container) SaveToFile(ctx context.Context, obj RemoteObject, path string, observer TransferObserver) (err error) {
	fd, openErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if openErr != nil {
		return openErr
	}
	defer func() {
		if closeErr := fd.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	downloader := manager.NewDownloader(s.Client, func(d *manager.Downloader) {
		d.Concurrency = 1
	})
	written, getErr := downloader.Download(ctx, newProgressWriterAt(fd, obj.Size, observer), &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(obj.Name),
	})
	if getErr != nil {
		var pathErr *os.PathError
		if errors.As(getErr, &pathErr) {
			return pathErr
		}
		return pkgerrors.Wrapf(getErr, "s3 download %s/%s", s.Bucket, obj.Name)
	}

	return checkObjectSize(obj, written)
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
