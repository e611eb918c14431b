package s3

//go:generate go run go.uber.org/mock/mockgen -source=./s3.go -destination=./mocks/s3_mock.go -package=mocks

import (
	"bytes"
	"context"
	"fmt"
	"medsys/config"
	"medsys/infras/otel"
	"medsys/shared/constant"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

const (
	otelAttrFileName = "file_name"
	otelAttrBucket   = "bucket"
	defaultRegion    = "auto"
)

type S3 interface {
	// UploadFileBytes stores fileData under directory/fileName and returns its public URL.
	// An empty bucketName uses the configured bucket.
	UploadFileBytes(ctx context.Context, bucketName, directory, fileName, contentType string, fileData []byte) (url string, err error)
}

type s3Impl struct {
	client *s3.Client
	config *config.Config
	otel   otel.Otel
}

func New(config *config.Config, otel otel.Otel) S3 {
	staticProvider := credentials.NewStaticCredentialsProvider(
		config.External.S3.AccessKeyID,
		config.External.S3.SecretAccessKey,
		"",
	)

	cfg, err := awsConfig.LoadDefaultConfig(
		context.Background(),
		awsConfig.WithCredentialsProvider(staticProvider),
	)
	if err != nil {
		log.Err(err).Msg("Error loading AWS configuration")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if config.External.S3.APIEndpoint != "" {
			o.BaseEndpoint = aws.String(config.External.S3.APIEndpoint)
		}

		o.UsePathStyle = true
		o.Region = defaultRegion
	})

	return &s3Impl{
		client: client,
		config: config,
		otel:   otel,
	}
}

func (svc *s3Impl) UploadFileBytes(ctx context.Context, bucketName, directory, fileName, contentType string, fileData []byte) (url string, err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".UploadFileBytes")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if bucketName == "" {
		bucketName = svc.config.External.S3.BucketName
	}

	scope.SetAttributes(map[string]any{
		otelAttrFileName: fileName,
		otelAttrBucket:   bucketName,
	})

	objectKey := path.Join(directory, fileName)

	_, err = svc.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(fileData),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileData))),
	})
	if err != nil {
		log.Error().Err(err).Str("key", objectKey).Msg("failed to upload file to S3")

		return constant.Empty, fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return strings.TrimSuffix(svc.config.External.S3.PublicDomain, "/") + "/" + objectKey, nil
}
