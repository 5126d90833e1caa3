// ABOUTME: S3-backed partition store using the same layout as the FS store
// ABOUTME: Replace writes a fresh object then deletes superseded ones
package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/hublake/models"
)

// s3API is the slice of the S3 client the store needs; tests supply a fake.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Store keeps partitions at s3://<bucket>/<prefix>/<entity>/dt=<date>/.
// Objects are immutable once written; a replace uploads a new ULID-named
// object and then removes the old ones, so readers always see a complete
// object even mid-replace.
type S3Store struct {
	client s3API
	bucket string
	prefix string
	log    *slog.Logger
}

func NewS3Store(client s3API, bucket, prefix string, log *slog.Logger) *S3Store {
	if log == nil {
		log = slog.Default()
	}
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), log: log}
}

func (s *S3Store) partitionPrefix(entity models.EntityType, date string) string {
	base := string(entity) + "/dt=" + date + "/"
	if s.prefix != "" {
		return s.prefix + "/" + base
	}
	return base
}

// List returns partition dates for entity in ascending order.
func (s *S3Store) List(ctx context.Context, entity models.EntityType) ([]string, error) {
	prefix := string(entity) + "/"
	if s.prefix != "" {
		prefix = s.prefix + "/" + prefix
	}

	seen := make(map[string]bool)
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list partitions for %s: %w", entity, err)
		}
		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if strings.HasPrefix(name, "dt=") {
				seen[strings.TrimPrefix(name, "dt=")] = true
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

// Read loads every object under the partition prefix and concatenates the
// decoded rows. Normally there is exactly one object; more than one means a
// prior replace was interrupted between upload and cleanup, and reading all
// of them keeps every surviving row visible to the merge.
func (s *S3Store) Read(ctx context.Context, entity models.EntityType, date string) ([]models.Record, error) {
	keys, err := s.partitionKeys(ctx, entity, date)
	if err != nil {
		return nil, err
	}

	var rows []models.Record
	for _, key := range keys {
		obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", key, err)
		}
		gz, err := gzip.NewReader(obj.Body)
		if err != nil {
			obj.Body.Close()
			return nil, fmt.Errorf("corrupt object %s: %w", key, err)
		}
		data, err := io.ReadAll(gz)
		gz.Close()
		obj.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		decoded, err := DecodeRows(entity, date, data)
		if err != nil {
			return nil, err
		}
		rows = append(rows, decoded...)
	}
	return rows, nil
}

// Replace uploads the new object first and deletes superseded keys after, so
// the partition never appears empty to a concurrent reader.
func (s *S3Store) Replace(ctx context.Context, entity models.EntityType, date string, rows []models.Record) error {
	old, err := s.partitionKeys(ctx, entity, date)
	if err != nil {
		return err
	}

	data, err := EncodeRows(entity, rows)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return fmt.Errorf("failed to compress partition %s/%s: %w", entity, date, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress partition %s/%s: %w", entity, date, err)
	}

	key := s.partitionPrefix(entity, date) + fmt.Sprintf("rows-%s.ndjson.gz", ulid.Make())
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	}); err != nil {
		return fmt.Errorf("failed to upload partition %s/%s: %w", entity, date, err)
	}

	if len(old) > 0 {
		ids := make([]types.ObjectIdentifier, 0, len(old))
		for _, k := range old {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}
		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		}); err != nil {
			// The new object is live; stale keys only cost duplicate reads
			// until the next replace cleans them up.
			s.log.Warn("failed to delete superseded objects", "entity", entity, "dt", date, "error", err)
		}
	}

	s.log.Debug("partition replaced", "entity", entity, "dt", date, "rows", len(rows), "key", key)
	return nil
}

func (s *S3Store) partitionKeys(ctx context.Context, entity models.EntityType, date string) ([]string, error) {
	prefix := s.partitionPrefix(entity, date)
	var keys []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list partition %s/%s: %w", entity, date, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Strings(keys)
	return keys, nil
}
