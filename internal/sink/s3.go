package sink

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"FundRadar/internal/model"
)

// ObjectPutter is the subset of the S3 client used by S3Sink.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads the snapshot document to an S3 (or compatible) bucket.
type S3Sink struct {
	Client ObjectPutter
	Bucket string
	Key    string
}

// NewS3Sink builds a client from the default AWS credential chain. A non-empty
// endpoint targets an S3-compatible store with path-style addressing.
func NewS3Sink(ctx context.Context, bucket, key, region, endpoint string) (*S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Sink{Client: client, Bucket: bucket, Key: key}, nil
}

func (s *S3Sink) Name() string { return "s3" }

func (s *S3Sink) Write(ctx context.Context, snap *model.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(s.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.Bucket, s.Key, err)
	}
	return nil
}
