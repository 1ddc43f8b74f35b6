package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const MaxResumeSize = 10 * 1024 * 1024 // 10MB

var allowedResumeTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/msword": true,
}

func getS3Client() (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			os.Getenv("R2_ACCESS_KEY"),
			os.Getenv("R2_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", os.Getenv("R2_ACCOUNT_ID")))
		o.UsePathStyle = true
		o.Region = "auto"
	})

	return client, nil
}

func bucketName() string {
	if b := os.Getenv("R2_BUCKET"); b != "" {
		return b
	}
	return "armind-resumes"
}

type UploadResult struct {
	Key string
	URL string
}

// UploadResume validates and stores a résumé file under the user's folder.
func UploadResume(file *multipart.FileHeader, username string) (UploadResult, error) {
	if file.Size > MaxResumeSize {
		return UploadResult{}, fmt.Errorf("file size too large. Maximum size is %d bytes", MaxResumeSize)
	}

	contentType := file.Header.Get("Content-Type")
	if !allowedResumeTypes[contentType] {
		return UploadResult{}, fmt.Errorf("invalid file type. Allowed types are: pdf, doc, docx")
	}

	src, err := file.Open()
	if err != nil {
		return UploadResult{}, err
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	uniqueFilename := uuid.New().String() + ext
	objectKey := filepath.Join("users", slug.Make(username), "resumes", uniqueFilename)

	client, err := getS3Client()
	if err != nil {
		return UploadResult{}, err
	}

	_, err = client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(bucketName()),
		Key:         aws.String(objectKey),
		Body:        src,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("could not upload to storage: %v", err)
	}

	return UploadResult{
		Key: objectKey,
		URL: fmt.Sprintf("https://%s/%s", os.Getenv("R2_PUBLIC_DOMAIN"), objectKey),
	}, nil
}

// DeleteResume removes a stored résumé by its object key or public URL.
func DeleteResume(keyOrURL string) error {
	key := keyOrURL
	if strings.HasPrefix(keyOrURL, "http") {
		parts := strings.SplitN(keyOrURL, "/", 4)
		if len(parts) == 4 {
			key = parts[3]
		}
	}

	client, err := getS3Client()
	if err != nil {
		return err
	}

	_, err = client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName()),
		Key:    aws.String(key),
	})
	return err
}
