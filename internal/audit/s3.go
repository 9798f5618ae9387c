// Package audit exports issued token records to S3-compatible object
// storage as JSON lines.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/MediSynth-io/medisynth-sso/internal/config"
	"github.com/MediSynth-io/medisynth-sso/internal/models"
)

// objectPutter is the slice of the S3 API the exporter needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Exporter struct {
	client objectPutter
	bucket string
	prefix string
	now    func() time.Time
}

type ExportResult struct {
	Bucket string
	Key    string
	Count  int
	Size   int64
	ETag   string
}

// NewS3Exporter builds an exporter from the audit section of the
// configuration. A custom endpoint (MinIO, DigitalOcean Spaces) switches
// the client to path-style addressing.
func NewS3Exporter(ctx context.Context, cfg *config.Config) (*Exporter, error) {
	ac := cfg.Audit
	if ac.S3Bucket == "" {
		return nil, errors.New("audit.s3_bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(ac.S3Region)}
	if ac.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ac.S3AccessKeyID, ac.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ac.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(ac.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return newExporter(client, ac.S3Bucket, ac.S3Prefix), nil
}

func newExporter(client objectPutter, bucket, prefix string) *Exporter {
	return &Exporter{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// objectKey returns <prefix>/YYYY/MM/DD/tokens-<uuid>.jsonl.
func (e *Exporter) objectKey() string {
	day := e.now().UTC().Format("2006/01/02")
	return path.Join(e.prefix, day, fmt.Sprintf("tokens-%s.jsonl", uuid.NewString()))
}

// Export uploads records as one JSON object per line. Token strings are
// never stored, so the export carries only record metadata.
func (e *Exporter) Export(ctx context.Context, records []models.TokenRecord) (*ExportResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encoding record %s: %w", rec.JTI, err)
		}
	}

	key := e.objectKey()
	size := int64(buf.Len())
	out, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/x-ndjson"),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload audit export: %w", err)
	}

	return &ExportResult{
		Bucket: e.bucket,
		Key:    key,
		Count:  len(records),
		Size:   size,
		ETag:   aws.ToString(out.ETag),
	}, nil
}
