package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "arbflow/config"
	"arbflow/logger"
)

// Uploader mirrors written artifact files into an S3 bucket.
type Uploader struct {
	client *s3.Client
	bucket string
	log    *logger.Entry
}

func NewUploader(cfg appconfig.S3Config) (*Uploader, error) {
	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	up := &Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		log:    logger.GetLogger().WithComponent("s3_uploader"),
	}
	up.log.WithFields(logger.Fields{
		"bucket": cfg.Bucket,
		"region": cfg.Region,
	}).Info("s3 uploader initialized")
	return up, nil
}

// UploadFile puts one local file under the given key.
func (u *Uploader) UploadFile(key, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	_, err = u.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", u.bucket, err)
	}

	u.log.WithFields(logger.Fields{
		"key":  key,
		"size": len(data),
	}).Info("artifact uploaded")
	return nil
}
