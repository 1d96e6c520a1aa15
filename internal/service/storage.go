package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/pdfdoc"
)

// ObjectStore keeps uploaded script files.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// NewObjectStore returns an S3-compatible store when a bucket is configured
// and a local directory store otherwise.
func NewObjectStore(cfg config.StorageConfig) (ObjectStore, error) {
	if cfg.Bucket == "" {
		return &LocalStore{Dir: cfg.LocalDir, BaseURL: "/uploads"}, nil
	}
	return NewS3Store(cfg)
}

// S3Store uploads to an S3-compatible bucket.
type S3Store struct {
	bucket    string
	publicURL string
	svc       *s3.S3
	uploader  *s3manager.Uploader
}

// NewS3Store opens a session for cfg.
func NewS3Store(cfg config.StorageConfig) (*S3Store, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	base := cfg.PublicURL
	if base == "" {
		base = fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
	}
	return &S3Store{
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(base, "/"),
		svc:       s3.New(sess),
		uploader:  s3manager.NewUploader(sess),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to bucket: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// LocalStore writes files below Dir and serves them under BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func (l *LocalStore) Put(ctx context.Context, key string, body []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", err
	}
	return path.Join(l.BaseURL, key), nil
}

func (l *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(l.Dir, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MaxUploadBytes caps script uploads.
const MaxUploadBytes = 25 << 20

// ErrTooLarge is returned for uploads over MaxUploadBytes.
var ErrTooLarge = errors.New("file too large")

// Upload is a stored script file.
type Upload struct {
	FileName  string `json:"fileName"`
	FileURL   string `json:"fileUrl"`
	FileKey   string `json:"fileKey"`
	PageCount int    `json:"pageCount"`
}

// Uploader validates script PDFs and stores them.
type Uploader struct {
	Store ObjectStore
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Upload checks that body is a PDF, counts its pages and stores it under a
// fresh key.
func (u *Uploader) Upload(ctx context.Context, fileName string, body []byte) (*Upload, error) {
	if len(body) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	pages, err := pdfdoc.PageCountBytes(body)
	if err != nil {
		return nil, err
	}
	name := unsafeName.ReplaceAllString(filepath.Base(fileName), "_")
	if name == "" || name == "." || name == "_" {
		name = "script.pdf"
	}
	key := fmt.Sprintf("scripts/%s_%s", uuid.NewString(), name)
	url, err := u.Store.Put(ctx, key, body, "application/pdf")
	if err != nil {
		return nil, err
	}
	return &Upload{FileName: fileName, FileURL: url, FileKey: key, PageCount: pages}, nil
}
