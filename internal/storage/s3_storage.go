package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"github.com/GhostEsso/ahoefa-backend/internal/config"
)

// ImageUpload is one inbound image payload to be stored.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IMediaStore defines the interface for the image storage provider.
// Upload returns the durable public URL of the stored object.
type IMediaStore interface {
	Upload(ctx context.Context, img ImageUpload) (string, error)
	Delete(ctx context.Context, imageURL string) error
}

const objectPrefix = "properties/"

// s3MediaStore implements IMediaStore on AWS S3.
type s3MediaStore struct {
	cfg      *config.Config
	s3Client *s3.Client
}

// NewS3Storage creates a new S3-backed media store.
func NewS3Storage(cfg *config.Config) (IMediaStore, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &s3MediaStore{
		cfg:      cfg,
		s3Client: s3.NewFromConfig(awsCfg),
	}, nil
}

// Upload normalizes the image (bounded to ImageMaxDimension, re-encoded as
// JPEG) and stores it under a fresh object key.
func (s *s3MediaStore) Upload(ctx context.Context, img ImageUpload) (string, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image %s: %w", img.Filename, err)
	}

	maxDim := uint(s.cfg.ImageMaxDimension)
	bounds := decoded.Bounds()
	if maxDim > 0 && (uint(bounds.Dx()) > maxDim || uint(bounds.Dy()) > maxDim) {
		decoded = resize.Thumbnail(maxDim, maxDim, decoded, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode image %s: %w", img.Filename, err)
	}

	objectKey := fmt.Sprintf("%s%s.jpg", objectPrefix, uuid.NewString())

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", objectKey, err)
	}

	return s.objectURL(objectKey), nil
}

// Delete removes a previously uploaded object by its public URL.
func (s *s3MediaStore) Delete(ctx context.Context, imageURL string) error {
	objectKey := s.keyFromURL(imageURL)
	if objectKey == "" {
		return fmt.Errorf("cannot derive object key from URL %q", imageURL)
	}

	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.AwsS3Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectKey, err)
	}
	log.Printf("Deleted media object %s", objectKey)
	return nil
}

func (s *s3MediaStore) objectURL(objectKey string) string {
	if s.cfg.ImageBaseURL != "" {
		return strings.TrimSuffix(s.cfg.ImageBaseURL, "/") + "/" + objectKey
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.AwsS3Bucket, s.cfg.AwsRegion, objectKey)
}

// keyFromURL recovers the object key from a URL produced by objectURL.
func (s *s3MediaStore) keyFromURL(imageURL string) string {
	idx := strings.Index(imageURL, objectPrefix)
	if idx < 0 {
		return ""
	}
	return imageURL[idx:]
}
