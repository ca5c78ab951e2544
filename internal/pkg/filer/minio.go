package filer

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// Options for the artifact store
type Options struct {
	URL    string
	User   string
	Key    string
	Bucket string
	// Expire of presigned links
	Expire time.Duration
	// Keep uploads in the store, older ones are reported by GetExpired
	Keep time.Duration
}

// Filer uploads local files to an S3 compatible store and returns temporary links to them,
// external generation APIs fetch their inputs by those links
type Filer struct {
	client *minio.Client
	bucket string
	expire time.Duration
	keep   time.Duration
}

// NewFiler creates artifact store client
func NewFiler(opt Options) (*Filer, error) {
	u, err := url.Parse(opt.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid filer url '%s': %w", opt.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid filer url scheme '%s': must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.Errorf("invalid filer url '%s': missing hostname", opt.URL)
	}
	if opt.User == "" || opt.Key == "" {
		return nil, errors.New("no filer credentials")
	}
	if opt.Bucket == "" {
		return nil, errors.New("no bucket")
	}
	mc, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.User, opt.Key, ""),
		Secure: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	res := &Filer{client: mc, bucket: opt.Bucket, expire: opt.Expire, keep: opt.Keep}
	if res.expire <= 0 {
		res.expire = time.Hour
	}
	if res.keep <= 0 {
		res.keep = 24 * time.Hour
	}
	if res.keep < res.expire {
		res.keep = res.expire
	}
	goapp.Log.Info().Str("url", u.Host).Str("bucket", opt.Bucket).Msg("filer")
	return res, nil
}

// EnsureBucket creates bucket if missing
func (f *Filer) EnsureBucket(ctx context.Context) error {
	ok, err := f.client.BucketExists(ctx, f.bucket)
	if err != nil {
		return fmt.Errorf("can't check bucket: %w", err)
	}
	if ok {
		return nil
	}
	goapp.Log.Info().Str("bucket", f.bucket).Msg("creating bucket")
	if err := f.client.MakeBucket(ctx, f.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("can't create bucket: %w", err)
	}
	return nil
}

// Endpoint returns store host
func (f *Filer) Endpoint() string {
	return f.client.EndpointURL().Host
}

// UploadFile puts the local file to the store and returns a presigned GET URL
func (f *Filer) UploadFile(ctx context.Context, path string) (string, error) {
	defer goapp.Estimate("upload " + filepath.Base(path))()
	name := ObjectName(path)
	info, err := f.client.FPutObject(ctx, f.bucket, name, path,
		minio.PutObjectOptions{ContentType: contentType(path)})
	if err != nil {
		return "", fmt.Errorf("can't upload '%s': %w", path, err)
	}
	goapp.Log.Info().Str("object", name).Int64("bytes", info.Size).Msg("uploaded")
	u, err := f.client.PresignedGetObject(ctx, f.bucket, name, f.expire, url.Values{})
	if err != nil {
		return "", fmt.Errorf("can't presign '%s': %w", name, err)
	}
	return u.String(), nil
}

// GetExpired returns IDs (object name prefixes) of uploads older than Keep
func (f *Filer) GetExpired(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return expiredIDs(f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{Recursive: true}),
		time.Now().Add(-f.keep))
}

func expiredIDs(objs <-chan minio.ObjectInfo, olderThan time.Time) ([]string, error) {
	var res []string
	seen := map[string]bool{}
	for obj := range objs {
		if obj.Err != nil {
			return res, fmt.Errorf("can't list objects: %w", obj.Err)
		}
		id, _, ok := strings.Cut(obj.Key, "/")
		if !ok || seen[id] || !obj.LastModified.Before(olderThan) {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		seen[id] = true
		res = append(res, id)
	}
	return res, nil
}

// ObjectName makes a unique object name keeping the file name
func ObjectName(path string) string {
	return uuid.NewString() + "/" + filepath.Base(path)
}

var mediaTypes = map[string]string{".mp4": "video/mp4", ".mov": "video/quicktime", ".mp3": "audio/mpeg",
	".wav": "audio/wav", ".m4a": "audio/mp4"}

func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if res, ok := mediaTypes[ext]; ok {
		return res
	}
	if res := mime.TypeByExtension(ext); res != "" {
		return res
	}
	return "application/octet-stream"
}
