package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/logger"
)

// ObjectStore is the subset of object-storage operations the provisioner
// needs. The authoritative state bytes themselves always move through the
// provisioning engine, never through this interface.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	EnsureBucket(ctx context.Context, bucket string, retentionDays int) (created bool, err error)
}

// S3Store implements ObjectStore against AWS S3 or any S3-compatible service
type S3Store struct {
	client *s3.Client
	region string
	log    logger.Logger
}

// S3Options configures the S3 client
type S3Options struct {
	Region   string
	Endpoint string
	// AccessKey and SecretKey pin the client to explicit static credentials.
	// When empty, the standard provider chain (environment, shared config)
	// applies instead.
	AccessKey string
	SecretKey string
}

// NewS3Store creates an object store client
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypePrerequisite, "failed to load storage credentials")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			// S3-compatible services generally require path-style addressing
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client: client,
		region: opts.Region,
		log:    logger.Get(),
	}, nil
}

// BucketExists checks whether the bucket exists and is reachable
func (s *S3Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, apperrors.NewBackendError(err, "failed to check bucket %s", bucket)
	}
	return true, nil
}

// EnsureBucket creates the bucket with versioning and a lifecycle retention
// rule when it does not exist. Idempotent: an existing bucket only has its
// configuration confirmed, never an error.
func (s *S3Store) EnsureBucket(ctx context.Context, bucket string, retentionDays int) (bool, error) {
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}

	if !exists {
		input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
		// us-east-1 must not send a location constraint
		if s.region != "us-east-1" {
			input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
				LocationConstraint: s3types.BucketLocationConstraint(s.region),
			}
		}
		if _, err := s.client.CreateBucket(ctx, input); err != nil {
			var owned *s3types.BucketAlreadyOwnedByYou
			if !errors.As(err, &owned) {
				return false, apperrors.NewBackendError(err, "failed to create bucket %s", bucket)
			}
			exists = true
		} else {
			s.log.Info("created state bucket", logger.String("bucket", bucket), logger.String("region", s.region))
		}
	}

	if err := s.enableVersioning(ctx, bucket); err != nil {
		return !exists, err
	}
	if err := s.applyLifecycle(ctx, bucket, retentionDays); err != nil {
		return !exists, err
	}

	return !exists, nil
}

func (s *S3Store) enableVersioning(ctx context.Context, bucket string) error {
	_, err := s.client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &s3types.VersioningConfiguration{
			Status: s3types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return apperrors.NewBackendError(err, "failed to enable versioning on bucket %s", bucket)
	}
	return nil
}

// applyLifecycle expires noncurrent state versions after the configured
// retention window so the bucket does not grow without bound
func (s *S3Store) applyLifecycle(ctx context.Context, bucket string, retentionDays int) error {
	_, err := s.client.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: aws.String(bucket),
		LifecycleConfiguration: &s3types.BucketLifecycleConfiguration{
			Rules: []s3types.LifecycleRule{
				{
					ID:     aws.String(fmt.Sprintf("expire-noncurrent-%dd", retentionDays)),
					Status: s3types.ExpirationStatusEnabled,
					Filter: &s3types.LifecycleRuleFilterMemberPrefix{Value: ""},
					NoncurrentVersionExpiration: &s3types.NoncurrentVersionExpiration{
						NoncurrentDays: aws.Int32(int32(retentionDays)),
					},
				},
			},
		},
	})
	if err != nil {
		return apperrors.NewBackendError(err, "failed to apply lifecycle policy to bucket %s", bucket)
	}
	return nil
}
