// Package source turns asset source locations into URLs the remote library
// can ingest. http(s) URLs pass through; s3:// objects are presigned.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/config"
	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
)

const defaultExpiry = time.Hour

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Resolver implements pathsync.SourceResolver.
type Resolver struct {
	presigner objectPresigner
	expiry    time.Duration
	logger    *zap.Logger
}

// New builds a resolver from the s3 section. Static keys are used when
// both are set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (*Resolver, error) {
	var client *s3.Client
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		client = s3.New(s3.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		}, clientOptions(cfg))
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client = s3.NewFromConfig(awsCfg, clientOptions(cfg))
	}
	return newResolver(s3.NewPresignClient(client), cfg.PresignExpiry, logger), nil
}

func clientOptions(cfg config.S3Config) func(*s3.Options) {
	return func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}
}

func newResolver(p objectPresigner, expiry time.Duration, logger *zap.Logger) *Resolver {
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &Resolver{
		presigner: p,
		expiry:    expiry,
		logger:    logging.OrNop(logger).Named("source"),
	}
}

// ResolveSource returns a fetchable URL for raw.
func (r *Resolver) ResolveSource(ctx context.Context, raw string) (string, error) {
	const op = "source.Resolve"

	u, err := url.Parse(raw)
	if err != nil {
		return "", faults.Validationf(op, "invalid source %q: %v", raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return raw, nil
	case "s3":
	default:
		return "", faults.Validationf(op, "unsupported source scheme %q", u.Scheme)
	}

	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", faults.Validationf(op, "s3 source %q needs a bucket and a key", raw)
	}

	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.expiry))
	if err != nil {
		return "", faults.Transportf("s3.PresignGetObject", err, "presign s3://%s/%s", bucket, key)
	}
	r.logger.Debug("presigned source",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Duration("expiry", r.expiry),
	)
	return req.URL, nil
}
