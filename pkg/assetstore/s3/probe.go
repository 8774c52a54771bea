package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tendant/asset-store/pkg/assetstore"
)

// WriteProber confirms that the configured credentials grant write access to
// the bucket. ValidateInfo composes it so tests can stub the network call.
type WriteProber interface {
	ProbeWrite(ctx context.Context, key string) error
}

// WriteProberFunc adapts a plain function to the WriteProber interface.
type WriteProberFunc func(ctx context.Context, key string) error

func (f WriteProberFunc) ProbeWrite(ctx context.Context, key string) error {
	return f(ctx, key)
}

// sdkProber writes a zero-byte test object through the AWS SDK.
type sdkProber struct {
	client *awss3.Client
	bucket string
}

func (p *sdkProber) ProbeWrite(ctx context.Context, key string) error {
	_, err := p.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(nil),
		ACL:    types.ObjectCannedACLPrivate,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("write probe rejected: %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Errorf("write probe failed: %w", err)
	}
	return nil
}

// writeProber returns the configured prober, building an SDK-backed one on
// first use.
func (a *Adapter) writeProber(ctx context.Context) (WriteProber, error) {
	if a.prober != nil {
		return a.prober, nil
	}
	client, err := a.sdkClient(ctx)
	if err != nil {
		return nil, err
	}
	a.prober = &sdkProber{client: client, bucket: a.store.S3.Bucket}
	return a.prober, nil
}

// sdkClient lazily builds the AWS SDK client used for the write probe and
// for server-side ingest. Signed-request issuance never touches it.
func (a *Adapter) sdkClient(ctx context.Context) (*awss3.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.awsClient != nil {
		return a.awsClient, nil
	}

	info := a.store.S3
	region := info.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			info.AccessKeyID,
			info.Secret,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*awss3.Options)
	if info.Endpoint != "" && !strings.Contains(info.Endpoint, "{bucket}") {
		// Custom endpoint for S3-compatible services (MinIO, etc.)
		endpoint := strings.TrimSuffix(info.Endpoint, "/")
		s3Options = append(s3Options, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	a.awsClient = awss3.NewFromConfig(awsCfg, s3Options...)
	return a.awsClient, nil
}

var _ assetstore.Adapter = (*Adapter)(nil)
