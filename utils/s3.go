package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/raushankrgupta/fitly-comfy-tryon/config"
)

var ErrS3Disabled = errors.New("no S3 bucket configured")

var (
	S3Client      *s3.Client
	PresignClient *s3.PresignClient
)

// S3Enabled reports whether results should be copied to a bucket.
func S3Enabled() bool {
	return appConfig.AWSBucketName != ""
}

// InitS3 initializes the S3 client
func InitS3(ctx context.Context) error {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(appConfig.AWSRegion))
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	S3Client = s3.NewFromConfig(cfg)
	PresignClient = s3.NewPresignClient(S3Client)
	return nil
}

// UploadFileToS3 uploads a file to S3 and returns the Object Key
func UploadFileToS3(ctx context.Context, file io.Reader, objectKey string, contentType string) (string, error) {
	if !S3Enabled() {
		return "", ErrS3Disabled
	}
	if S3Client == nil {
		if err := InitS3(ctx); err != nil {
			return "", err
		}
	}

	_, err := S3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(appConfig.AWSBucketName),
		Key:         aws.String(objectKey),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return objectKey, nil
}

// GetPresignedURL generates a presigned URL for an object
func GetPresignedURL(ctx context.Context, objectKey string) (string, error) {
	if !S3Enabled() {
		return "", ErrS3Disabled
	}
	if PresignClient == nil {
		if err := InitS3(ctx); err != nil {
			return "", err
		}
	}

	request, err := PresignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(appConfig.AWSBucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(1*time.Hour))
	if err != nil {
		return "", fmt.Errorf("failed to sign request: %w", err)
	}

	return request.URL, nil
}

// PresignImageURL turns an object key into a presigned link. Values that are already
// http(s) URLs, and keys that cannot be signed, are returned unchanged.
func PresignImageURL(ctx context.Context, img string) string {
	if img == "" || strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
		return img
	}
	if url, err := GetPresignedURL(ctx, img); err == nil {
		return url
	}
	return img
}
