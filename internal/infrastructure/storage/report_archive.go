// Package storage archives consolidated reports in S3-compatible object
// storage (AWS S3, MinIO, RustFS).
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrodash/backend/internal/domain/report"
	"github.com/agrodash/backend/internal/infrastructure/config"
)

var _ report.ReportArchive = (*S3ReportArchive)(nil)

// S3ReportArchive writes one JSON object per organization, scenario and
// input data version. Reports are never overwritten.
type S3ReportArchive struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3ReportArchive validates cfg and builds the S3 client.
func NewS3ReportArchive(ctx context.Context, cfg config.ArchiveConfig, logger *zap.Logger) (*S3ReportArchive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("archive access key and secret key are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3ReportArchive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

// ObjectKey is the storage key of a report:
// <prefix>/<organization>/<scenario|baseline>/<version>.json
func (a *S3ReportArchive) ObjectKey(key report.CacheKey) string {
	scenario := "baseline"
	if key.ScenarioID != uuid.Nil {
		scenario = key.ScenarioID.String()
	}
	return path.Join(a.prefix, key.OrganizationID.String(), scenario, key.InputDataVersion+".json")
}

// Put uploads rep unless an object for key already exists.
func (a *S3ReportArchive) Put(ctx context.Context, key report.CacheKey, rep *report.ConsolidatedReport) error {
	objectKey := a.ObjectKey(key)
	exists, err := a.exists(ctx, objectKey)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"organization-id":    key.OrganizationID.String(),
			"input-data-version": key.InputDataVersion,
		},
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectKey, err)
	}
	a.logger.Debug("Report archived", zap.String("bucket", a.bucket), zap.String("key", objectKey))
	return nil
}

func (a *S3ReportArchive) exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	return false, fmt.Errorf("check %s: %w", objectKey, err)
}
