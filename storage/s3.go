package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rpupo63/consulting-site-backend/config"
	"github.com/rpupo63/consulting-site-backend/errs"
)

// S3API is the part of the s3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Storage stores objects through Supabase Storage's S3-compatible endpoint
// and hands out public URLs under SUPABASE_URL.
type S3Storage struct {
	client     S3API
	publicBase string
}

func NewS3Storage(client S3API, publicBase string) *S3Storage {
	return &S3Storage{client: client, publicBase: publicBase}
}

// NewS3StorageFromConfig builds the s3 client from STORAGE_S3_* settings.
func NewS3StorageFromConfig(ctx context.Context, cfg map[string]string) (*S3Storage, error) {
	endpoint := config.GetString(cfg, "STORAGE_S3_ENDPOINT", "")
	supabaseURL := config.GetString(cfg, "SUPABASE_URL", "")
	if endpoint == "" || supabaseURL == "" {
		return nil, errs.NewConfigError("STORAGE_S3_ENDPOINT and SUPABASE_URL")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.GetString(cfg, "STORAGE_S3_REGION", "us-east-1")),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.GetString(cfg, "STORAGE_S3_ACCESS_KEY", ""),
			config.GetString(cfg, "STORAGE_S3_SECRET_KEY", ""),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return NewS3Storage(client, PublicBase(cfg)), nil
}

// PublicBase is the storage API root public URLs are built from, e.g.
// https://xyz.supabase.co/storage/v1.
func PublicBase(cfg map[string]string) string {
	return strings.TrimRight(config.GetString(cfg, "SUPABASE_URL", "http://localhost:54321"), "/") + "/storage/v1"
}

func (s *S3Storage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(path),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", bucket, path, err)
	}
	return PublicURL(s.publicBase, bucket, path), nil
}

func (s *S3Storage) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, Object{
				Name:         aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

// Remove deletes paths from bucket. S3 treats deleting a missing key as success,
// so every path is checked first and missing ones are reported as failed.
func (s *S3Storage) Remove(ctx context.Context, bucket string, paths []string) (RemoveResult, error) {
	var result RemoveResult
	var existing []s3types.ObjectIdentifier

	for _, p := range paths {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(p)})
		switch {
		case err == nil:
			existing = append(existing, s3types.ObjectIdentifier{Key: aws.String(p)})
		case isNotFound(err):
			result.Failed = append(result.Failed, FailedRemoval{Path: p, Err: errs.ErrAssetNotFound})
		default:
			result.Failed = append(result.Failed, FailedRemoval{Path: p, Err: err})
		}
	}
	if len(existing) == 0 {
		return result, nil
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &s3types.Delete{Objects: existing},
	})
	if err != nil {
		for _, obj := range existing {
			result.Failed = append(result.Failed, FailedRemoval{Path: aws.ToString(obj.Key), Err: err})
		}
		return result, fmt.Errorf("delete objects in %s: %w", bucket, err)
	}

	for _, d := range out.Deleted {
		result.Deleted = append(result.Deleted, aws.ToString(d.Key))
	}
	for _, e := range out.Errors {
		result.Failed = append(result.Failed, FailedRemoval{
			Path: aws.ToString(e.Key),
			Err:  fmt.Errorf("%s: %s", aws.ToString(e.Code), aws.ToString(e.Message)),
		})
	}
	return result, nil
}

func isNotFound(err error) bool {
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey"
	}
	return false
}
