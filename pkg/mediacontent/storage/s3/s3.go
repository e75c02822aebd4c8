package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"iter"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/media-content/pkg/mediacontent"
)

const scheme = "s3://"

// Config options for the S3 media directory
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	Prefix          string // Key prefix of the media tree
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool // Create bucket if it doesn't exist
}

// Directory is a media tree stored under a bucket prefix. Paths handed out
// by Walk have the form s3://bucket/prefix/relative/key.
type Directory struct {
	client *s3.Client
	bucket string
	prefix string
	region string
}

// New creates a media directory backed by S3
func New(config Config) (*Directory, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	d := NewWithClient(s3.NewFromConfig(awsCfg, s3Options...), config.Bucket, config.Prefix)
	d.region = config.Region

	if config.CreateBucketIfNotExist {
		if err := d.createBucketIfNotExists(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return d, nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *s3.Client, bucket, prefix string) *Directory {
	return &Directory{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		region: "us-east-1",
	}
}

func (d *Directory) createBucketIfNotExists(ctx context.Context) error {
	_, err := d.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(d.bucket),
	})
	if err == nil {
		return nil
	}
	if !isNotFound(err) && !strings.Contains(err.Error(), "BadRequest") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(d.bucket)}
	if d.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(d.region),
		}
	}
	if _, err := d.client.CreateBucket(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
				return nil
			}
		}
		return err
	}
	return nil
}

// AbsolutePath returns the root of the media tree as an s3:// URL
func (d *Directory) AbsolutePath() string {
	if d.prefix == "" {
		return scheme + d.bucket
	}
	return scheme + d.bucket + "/" + d.prefix
}

// RelativePath strips the media root from an s3:// path
func (d *Directory) RelativePath(p string) (string, error) {
	root := d.AbsolutePath()
	if p == root || p == root+"/" {
		return "", nil
	}
	if !strings.HasPrefix(p, root+"/") {
		return "", fmt.Errorf("path %s is outside media directory %s", p, root)
	}
	rel := path.Clean(strings.TrimPrefix(p, root+"/"))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside media directory %s", p, root)
	}
	return rel, nil
}

func (d *Directory) key(relativePath string) string {
	if d.prefix == "" {
		return relativePath
	}
	return d.prefix + "/" + relativePath
}

// Open downloads the object at relativePath. A missing object yields an
// error matching fs.ErrNotExist.
func (d *Directory) Open(ctx context.Context, relativePath string) (io.ReadCloser, error) {
	if !iofs.ValidPath(relativePath) || relativePath == "." {
		return nil, fmt.Errorf("invalid media path %s", relativePath)
	}

	downloader := manager.NewDownloader(d.client)
	buf := manager.NewWriteAtBuffer(nil)
	_, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(relativePath)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", relativePath, iofs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

// Upload stores content at relativePath
func (d *Directory) Upload(ctx context.Context, relativePath string, reader io.Reader) error {
	if !iofs.ValidPath(relativePath) || relativePath == "." {
		return fmt.Errorf("invalid media path %s", relativePath)
	}

	uploader := manager.NewUploader(d.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(relativePath)),
		Body:   reader,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// Walk lists every object below root, which must be the media root or a
// directory inside it. A listing error is yielded once and ends the walk.
func (d *Directory) Walk(ctx context.Context, root string) iter.Seq2[mediacontent.FileEntry, error] {
	return func(yield func(mediacontent.FileEntry, error) bool) {
		rel, err := d.RelativePath(root)
		if err != nil {
			yield(mediacontent.FileEntry{Path: root}, err)
			return
		}
		listPrefix := d.prefix
		if rel != "" {
			listPrefix = d.key(rel)
		}
		if listPrefix != "" {
			listPrefix += "/"
		}

		paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(d.bucket),
			Prefix: aws.String(listPrefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(mediacontent.FileEntry{Path: root}, fmt.Errorf("failed to list objects: %w", err))
				return
			}
			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				if strings.HasSuffix(key, "/") {
					continue
				}
				entry := mediacontent.FileEntry{
					Path:    d.pathForKey(key),
					Name:    path.Base(key),
					Size:    aws.ToInt64(obj.Size),
					ModTime: aws.ToTime(obj.LastModified),
				}
				if !yield(entry, nil) {
					return
				}
			}
		}
	}
}

func (d *Directory) pathForKey(key string) string {
	return scheme + d.bucket + "/" + key
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
