package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ecommerce/pkg/domain/model"
)

const (
	// largeFileThreshold switches Upload to the multipart uploader.
	largeFileThreshold = 8 << 20
	deleteBatchSize    = 1000
	presignTTL         = 15 * time.Minute
)

type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// S3Storage keeps every object under <application>/<path>/<uuid>_<filename>.
type S3Storage struct {
	client      *s3.Client
	uploader    *manager.Uploader
	presigner   *s3.PresignClient
	bucket      string
	application string
}

func NewS3Storage(ctx context.Context, region, bucket, application string) (*S3Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(cfg)
	return &S3Storage{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 10 << 20
			u.Concurrency = 3
		}),
		presigner:   s3.NewPresignClient(client),
		bucket:      bucket,
		application: application,
	}, nil
}

func objectKey(application, path, filename string) string {
	name := strings.ReplaceAll(filename, "/", "_")
	return strings.Join([]string{application, strings.Trim(path, "/"), uuid.NewString() + "_" + name}, "/")
}

func folderPrefix(application, path string) string {
	return application + "/" + strings.Trim(path, "/") + "/"
}

// Upload buffers small files in memory and streams large ones in parts.
func (s *S3Storage) Upload(ctx context.Context, path string, file model.File) (string, error) {
	if file.Size > largeFileThreshold {
		return s.UploadLarge(ctx, path, file)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file.Body); err != nil {
		return "", errors.Wrap(err, "read upload")
	}

	key := objectKey(s.application, path, file.Name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentType:   aws.String(file.ContentType),
		ContentLength: aws.Int64(int64(buf.Len())),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put object %s", key)
	}
	return key, nil
}

func (s *S3Storage) UploadLarge(ctx context.Context, path string, file model.File) (string, error) {
	key := objectKey(s.application, path, file.Name)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file.Body,
		ContentType: aws.String(file.ContentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "multipart upload %s", key)
	}
	return key, nil
}

// UploadMany uploads files concurrently and keeps their order in the result.
// When one upload fails the ones that succeeded are removed again.
func (s *S3Storage) UploadMany(ctx context.Context, path string, files []model.File) ([]string, error) {
	keys := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			key, err := s.Upload(gctx, path, file)
			if err != nil {
				return err
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var uploaded []string
		for _, key := range keys {
			if key != "" {
				uploaded = append(uploaded, key)
			}
		}
		if len(uploaded) > 0 {
			if derr := s.DeleteMany(context.WithoutCancel(ctx), uploaded); derr != nil {
				log.WithError(derr).WithField("keys", uploaded).Warn("failed to clean up partial upload")
			}
		}
		return nil, err
	}
	return keys, nil
}

// PresignUpload returns a short lived PUT url for a client side upload.
func (s *S3Storage) PresignUpload(ctx context.Context, path, filename, contentType string) (string, string, error) {
	key := objectKey(s.application, path, filename)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", "", errors.Wrapf(err, "presign put %s", key)
	}
	return req.URL, key, nil
}

func (s *S3Storage) Get(ctx context.Context, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrapf(err, "get object %s", key)
	}
	return &Object{
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: aws.ToInt64(out.ContentLength),
	}, nil
}

func (s *S3Storage) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", errors.Wrapf(err, "presign get %s", key)
	}
	return req.URL, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "delete object %s", key)
}

func (s *S3Storage) DeleteMany(ctx context.Context, keys []string) error {
	for _, batch := range batches(keys, deleteBatchSize) {
		ids := make([]types.ObjectIdentifier, len(batch))
		for i, key := range batch {
			ids[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return errors.Wrap(err, "delete objects")
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return errors.Errorf("delete objects: %d failed, first %s: %s",
				len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

func (s *S3Storage) List(ctx context.Context, path string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(folderPrefix(s.application, path)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list objects")
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *S3Storage) DeletePrefix(ctx context.Context, path string) error {
	keys, err := s.List(ctx, path)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.DeleteMany(ctx, keys)
}

func batches(keys []string, size int) [][]string {
	var out [][]string
	for len(keys) > size {
		out = append(out, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		out = append(out, keys)
	}
	return out
}
