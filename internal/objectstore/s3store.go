package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Store implements Store against S3-compatible object storage. Spaces map
// to key prefixes under one bucket; the exclusive-create contract uses a
// conditional PUT (If-None-Match: *).
type S3Store struct {
	client     *s3.Client
	downloader *manager.Downloader
	bucket     string
	spaces     map[Space]SpaceConfig
}

// S3Config contains S3Store configuration.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	PathStyle    bool
	AccessKey    string
	SecretKey    string
	SessionToken string // optional
}

// NewS3Store creates an S3Store. The SpaceConfig base paths are used as key
// prefixes, the base URLs as the public URL roots.
func NewS3Store(ctx context.Context, cfg S3Config, docs, previews SpaceConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		func(opts *awsconfig.LoadOptions) error {
			if cfg.AccessKey != "" && cfg.SecretKey != "" {
				opts.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKey, cfg.SecretKey, cfg.SessionToken,
				)
			}
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Store{
		client:     client,
		downloader: manager.NewDownloader(client),
		bucket:     cfg.Bucket,
		spaces: map[Space]SpaceConfig{
			Documents: docs,
			Previews:  previews,
		},
	}, nil
}

func (s *S3Store) space(sp Space) (SpaceConfig, error) {
	cfg, ok := s.spaces[sp]
	if !ok {
		return SpaceConfig{}, fmt.Errorf("unknown space %q", sp)
	}
	return cfg, nil
}

func (s *S3Store) key(cfg SpaceConfig, folder, name string) string {
	prefix := strings.Trim(cfg.BasePath, "/")
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if folder != "" {
		parts = append(parts, folder)
	}
	parts = append(parts, name)
	return strings.Join(parts, "/")
}

// Put uploads under an exclusive-create conditional PUT, suffixing the name
// on collision like DirStore.
func (s *S3Store) Put(ctx context.Context, space Space, folder, name string, data []byte) (string, error) {
	cfg, err := s.space(space)
	if err != nil {
		return "", err
	}

	try := name
	for attempt := 0; attempt < collisionAttempts; attempt++ {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.key(cfg, folder, try)),
			Body:        bytes.NewReader(data),
			IfNoneMatch: aws.String("*"),
		})
		if err == nil {
			return try, nil
		}
		if isPreconditionFailed(err) {
			try = suffixedName(name, attempt)
			continue
		}
		return "", fmt.Errorf("%w: put %s: %v", ErrStorageUnavailable, try, err)
	}
	return "", fmt.Errorf("%w: no free name for %s after %d attempts", ErrStorageUnavailable, name, collisionAttempts)
}

// Get downloads the object bytes.
func (s *S3Store) Get(ctx context.Context, space Space, folder, name string) ([]byte, error) {
	cfg, err := s.space(space)
	if err != nil {
		return nil, err
	}
	buf := manager.NewWriteAtBuffer(nil)
	_, err = s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(cfg, folder, name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return buf.Bytes(), nil
}

// Exists reports whether the object is present.
func (s *S3Store) Exists(ctx context.Context, space Space, folder, name string) (bool, error) {
	cfg, err := s.space(space)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(cfg, folder, name)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object: %w", err)
	}
	return true, nil
}

// Delete removes the object. Absence is not an error.
func (s *S3Store) Delete(ctx context.Context, space Space, folder, name string) (bool, error) {
	existed, err := s.Exists(ctx, space, folder, name)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	cfg, _ := s.space(space)
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(cfg, folder, name)),
	})
	if err != nil {
		return false, fmt.Errorf("delete object: %w", err)
	}
	return true, nil
}

// List returns the file names directly under folder, naturally sorted.
func (s *S3Store) List(ctx context.Context, space Space, folder string) ([]string, error) {
	cfg, err := s.space(space)
	if err != nil {
		return nil, err
	}
	prefix := strings.Trim(cfg.BasePath, "/")
	if folder != "" {
		prefix += "/" + folder
	}
	prefix = strings.TrimPrefix(prefix+"/", "/")

	var names []string
	var continuationToken *string
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range resp.Contents {
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name != "" {
				names = append(names, name)
			}
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
		continuationToken = resp.NextContinuationToken
	}
	SortNatural(names)
	return names, nil
}

// ListFolders returns the common prefixes directly under the space root.
func (s *S3Store) ListFolders(ctx context.Context, space Space) ([]string, error) {
	cfg, err := s.space(space)
	if err != nil {
		return nil, err
	}
	prefix := strings.Trim(cfg.BasePath, "/")
	if prefix != "" {
		prefix += "/"
	}

	var names []string
	var continuationToken *string
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list folders: %w", err)
		}
		for _, cp := range resp.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
		continuationToken = resp.NextContinuationToken
	}
	SortNatural(names)
	return names, nil
}

// URL returns the public URL for folder/name in space.
func (s *S3Store) URL(space Space, folder, name string) string {
	cfg, ok := s.spaces[space]
	if !ok {
		return ""
	}
	return joinURL(cfg.BaseURL, folder, name)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}
