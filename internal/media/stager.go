// Package media stages article images somewhere a platform can fetch them.
//
// Instagram pulls the image from a public URL while creating a media
// container. Article images often sit behind hot-link protection, so the
// S3 stager copies them into a bucket and hands out a presigned GET URL.
// Staging is best-effort: any failure yields the original URL.
package media

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/logging"
	"github.com/dmitrijs2005/newsnexus/internal/netx"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// DefaultMaxBytes bounds downloaded images (Instagram accepts up to 8 MiB).
	DefaultMaxBytes = 8 << 20
	presignTTL      = time.Hour
)

// Stager returns a URL a platform can fetch for the given image.
type Stager interface {
	Stage(ctx context.Context, imageURL string) string
}

// Passthrough returns image URLs unchanged.
type Passthrough struct{}

func (Passthrough) Stage(_ context.Context, imageURL string) string { return imageURL }

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

type S3Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	User         string
	Password     string
	MaxBytes     int64
}

// S3Stager copies images into an S3 compatible bucket (AWS, MinIO).
type S3Stager struct {
	cfg    S3Config
	client *http.Client
	log    logging.Logger
	now    func() time.Time
}

// New returns an S3Stager, or Passthrough when no bucket is configured.
func New(cfg S3Config, client *http.Client, l logging.Logger) Stager {
	if cfg.Bucket == "" {
		return Passthrough{}
	}
	return NewS3Stager(cfg, client, l)
}

func NewS3Stager(cfg S3Config, client *http.Client, l logging.Logger) *S3Stager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if l == nil {
		l = logging.Nop{}
	}
	return &S3Stager{cfg: cfg, client: client, log: l.With("module", "media"), now: time.Now}
}

// Stage returns a presigned URL of the staged copy, or imageURL on failure.
func (s *S3Stager) Stage(ctx context.Context, imageURL string) string {
	if imageURL == "" {
		return ""
	}
	u, err := s.stage(ctx, imageURL)
	if err != nil {
		s.log.Warn(ctx, "image staging failed, using original url", "url", imageURL, "error", err)
		return imageURL
	}
	s.log.Debug(ctx, "image staged", "url", imageURL)
	return u
}

func (s *S3Stager) stage(ctx context.Context, imageURL string) (string, error) {
	body, contentType, err := netx.Download(ctx, s.client, imageURL, s.cfg.MaxBytes)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	client, err := s.s3Client(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 config: %w", err)
	}

	bucket := s.cfg.Bucket
	key := s.storageKey(contentType)
	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return req.URL, nil
}

func (s *S3Stager) s3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.User,
			s.cfg.Password,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3Stager) storageKey(contentType string) string {
	d := s.now().UTC()
	ext := ""
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("media/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}
