package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"wishlist-go/internal/config"
	"wishlist-go/internal/wishlist"
)

// DefaultPresignExpiry bounds how long a presigned upload URL stays valid.
const DefaultPresignExpiry = 15 * time.Minute

// S3Store stores uploaded images in an S3 bucket. With presigning enabled the
// credential is a presigned PUT URL and the transfer is a plain HTTP PUT to
// it; otherwise the credential is an s3:// URL and the transfer goes through
// the SDK's upload manager.
type S3Store struct {
	bucket        string
	prefix        string
	region        string
	publicBaseURL string
	presign       bool
	expiry        time.Duration

	ids       wishlist.IDGenerator
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	http      *http.Client
}

// NewS3Store builds a store from cfg. Credentials come from cfg when both
// key fields are set, and from the default AWS chain otherwise.
func NewS3Store(ctx context.Context, cfg config.ObjectStoreConfig, ids wishlist.IDGenerator) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("bucket name cannot be empty")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3PathStyle
	})

	expiry := DefaultPresignExpiry
	if cfg.S3PresignExpiry > 0 {
		expiry = time.Duration(cfg.S3PresignExpiry) * time.Second
	}

	return &S3Store{
		bucket:        cfg.S3Bucket,
		prefix:        strings.Trim(cfg.S3Prefix, "/"),
		region:        awsCfg.Region,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		presign:       cfg.S3Presign,
		expiry:        expiry,
		ids:           ids,
		client:        client,
		presigner:     s3.NewPresignClient(client),
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.Concurrency = 1
		}),
		http: http.DefaultClient,
	}, nil
}

func (s *S3Store) IssueUploadCredential(ctx context.Context, req wishlist.UploadRequest) (*wishlist.UploadCredential, error) {
	key := newKey(s.prefix, s.ids.New(), req.FileName)

	if !s.presign {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u := url.URL{Scheme: "s3", Host: s.bucket, Path: "/" + key}
		return &wishlist.UploadCredential{URL: u.String(), Key: key}, nil
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if req.MimeType != "" {
		input.ContentType = aws.String(req.MimeType)
	}
	signed, err := s.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return nil, s.handleS3Error("prepare upload", err)
	}
	return &wishlist.UploadCredential{URL: signed.URL, Key: key}, nil
}

func (s *S3Store) Transfer(ctx context.Context, req wishlist.TransferRequest) error {
	if strings.HasPrefix(req.Destination, "s3://") {
		return s.transferDirect(ctx, req)
	}
	return s.transferPresigned(ctx, req)
}

func (s *S3Store) transferDirect(ctx context.Context, req wishlist.TransferRequest) error {
	u, err := url.Parse(req.Destination)
	if err != nil {
		return fmt.Errorf("parsing destination: %w", err)
	}
	if u.Host != s.bucket {
		return fmt.Errorf("destination bucket %q does not match %q", u.Host, s.bucket)
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
		Body:   newProgressReader(ctx, req),
	}
	if req.MimeType != "" {
		input.ContentType = aws.String(req.MimeType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return s.handleS3Error("upload file", err)
	}
	return nil
}

func (s *S3Store) transferPresigned(ctx context.Context, req wishlist.TransferRequest) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, req.Destination, newProgressReader(ctx, req))
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	httpReq.ContentLength = req.Size
	if req.MimeType != "" {
		httpReq.Header.Set("Content-Type", req.MimeType)
	}

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}
	return nil
}

// PublicURL uses the configured base URL, or the bucket's virtual-hosted
// address when none is set.
func (s *S3Store) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// ValidateSetup checks that the bucket exists and is reachable.
func (s *S3Store) ValidateSetup(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return s.handleS3Error("access bucket", err)
	}
	return nil
}

// handleS3Error turns common S3 failures into readable messages. Context
// errors stay wrapped so callers can tell an abort from a failure.
func (s *S3Store) handleS3Error(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", operation, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("access denied to S3 bucket %q, check credentials and permissions: %w", s.bucket, err)
		case "NoSuchBucket", "NotFound":
			return fmt.Errorf("S3 bucket %q does not exist: %w", s.bucket, err)
		}
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}

// Compile-time check that S3Store implements wishlist.ObjectStore interface
var _ wishlist.ObjectStore = (*S3Store)(nil)
