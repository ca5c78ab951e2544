package youtube

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// privacy statuses
const (
	PrivacyPublic   = "public"
	PrivacyUnlisted = "unlisted"
	PrivacyPrivate  = "private"
)

const (
	// DefaultCategory is People & Blogs
	DefaultCategory = "22"
	DefaultLanguage = "en"
	chunkSize       = 1024 * 1024
)

// DefaultTags are used when no tags provided
var DefaultTags = []string{"AI Generated", "Summary", "Educational"}

// Video to be published
type Video struct {
	Path          string
	Title         string
	Description   string
	PrivacyStatus string
	Tags          []string
	CategoryID    string
	Language      string
}

// ValidPrivacy checks privacy status value
func ValidPrivacy(s string) bool {
	return s == PrivacyPublic || s == PrivacyUnlisted || s == PrivacyPrivate
}

// URL returns watch page of the video
func URL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// Uploader publishes videos to youtube
type Uploader struct {
	svc       *ytapi.Service
	chunkSize int
}

// NewUploader creates uploader on an authorized http client
func NewUploader(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*Uploader, error) {
	if client == nil {
		return nil, errors.New("no http client")
	}
	svc, err := ytapi.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("can't init youtube service: %w", err)
	}
	return &Uploader{svc: svc, chunkSize: chunkSize}, nil
}

// Upload sends the file with resumable upload and returns the video id
func (u *Uploader) Upload(ctx context.Context, v *Video) (string, error) {
	defer goapp.Estimate("youtube upload")()
	f, err := os.Open(v.Path)
	if err != nil {
		return "", fmt.Errorf("can't open video: %w", err)
	}
	defer f.Close()

	goapp.Log.Info().Str("title", v.Title).Str("privacy", v.PrivacyStatus).Msg("starting upload")
	res, err := u.svc.Videos.Insert([]string{"snippet", "status"}, toAPIVideo(v)).
		Media(f, googleapi.ChunkSize(u.chunkSize)).
		ProgressUpdater(func(current, total int64) {
			goapp.Log.Debug().Int64("bytes", current).Int64("total", total).Msg("uploaded")
		}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}
	if res.Id == "" {
		return "", errors.New("no video id in response")
	}
	goapp.Log.Info().Str("id", res.Id).Str("url", URL(res.Id)).Msg("upload complete")
	return res.Id, nil
}

func toAPIVideo(v *Video) *ytapi.Video {
	tags := v.Tags
	if len(tags) == 0 {
		tags = DefaultTags
	}
	return &ytapi.Video{
		Snippet: &ytapi.VideoSnippet{
			Title:                v.Title,
			Description:          v.Description,
			Tags:                 tags,
			CategoryId:           defaultStr(v.CategoryID, DefaultCategory),
			DefaultLanguage:      defaultStr(v.Language, DefaultLanguage),
			DefaultAudioLanguage: defaultStr(v.Language, DefaultLanguage),
		},
		Status: &ytapi.VideoStatus{
			PrivacyStatus:           defaultStr(v.PrivacyStatus, PrivacyPublic),
			SelfDeclaredMadeForKids: false,
			License:                 "youtube",
			Embeddable:              true,
			PublicStatsViewable:     true,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
}

func defaultStr(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}
