package video

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/clipper/internal/pkg/fal/api"
	"github.com/airenas/clipper/internal/pkg/media"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Uploader makes local files reachable by URL
type Uploader interface {
	UploadFile(ctx context.Context, path string) (string, error)
}

// Generator runs hosted generation apps
type Generator interface {
	Subscribe(ctx context.Context, app string, in, res interface{}) error
	Download(ctx context.Context, url, file string) error
}

// Muxer replaces video audio track
type Muxer interface {
	Mash(ctx context.Context, video, audio, out string) error
}

// Prompt for text to video generation
type Prompt struct {
	Prompt         string
	NegativePrompt string
	RowID          int
}

// Service produces videos
type Service struct {
	uploader  Uploader
	generator Generator
	muxer     Muxer
	audioDir  string
	outDir    string
	now       func() time.Time
}

// NewService creates video service
func NewService(uploader Uploader, generator Generator, muxer Muxer, audioDir, outDir string) (*Service, error) {
	if uploader == nil {
		return nil, errors.New("no uploader")
	}
	if generator == nil {
		return nil, errors.New("no generator")
	}
	if muxer == nil {
		return nil, errors.New("no muxer")
	}
	if outDir == "" {
		return nil, errors.New("no output dir")
	}
	return &Service{uploader: uploader, generator: generator, muxer: muxer, audioDir: audioDir,
		outDir: outDir, now: time.Now}, nil
}

// LipSync syncs video lips to the audio, returns local path of the result
func (s *Service) LipSync(ctx context.Context, videoPath, audioPath string, rowID int) (string, error) {
	defer goapp.Estimate("lip sync")()
	var videoURL, audioURL string
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		videoURL, err = s.uploader.UploadFile(gCtx, videoPath)
		return err
	})
	g.Go(func() error {
		var err error
		audioURL, err = s.uploader.UploadFile(gCtx, audioPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("failed to upload input files: %w", err)
	}

	var res api.VideoResult
	in := api.LipSyncInput{VideoURL: videoURL, AudioURL: audioURL, FaceDetectionThreshold: 0.8, OutputFormat: "mp4"}
	if err := s.generator.Subscribe(ctx, api.AppLipSync, in, &res); err != nil {
		return "", err
	}
	return s.download(ctx, &res, s.fileName("lip_synced", rowID))
}

// TextToVideo generates a short vertical video from the prompt
func (s *Service) TextToVideo(ctx context.Context, p *Prompt) (string, error) {
	defer goapp.Estimate("text to video")()
	if strings.TrimSpace(p.Prompt) == "" {
		return "", errors.New("no prompt")
	}
	var res api.VideoResult
	in := api.TextToVideoInput{Prompt: p.Prompt, NegativePrompt: p.NegativePrompt, NumFrames: 24, FPS: 12,
		Width: 608, Height: 1080, GuidanceScale: 8.5, NumInferenceSteps: 50}
	if err := s.generator.Subscribe(ctx, api.AppTextToVideo, in, &res); err != nil {
		return "", err
	}
	return s.download(ctx, &res, s.fileName("generated", p.RowID))
}

// Mash joins the generated speech and video of the row, returns the combined file path
func (s *Service) Mash(ctx context.Context, rowID int) (string, error) {
	defer goapp.Estimate("mash")()
	audio, video, err := media.Locate(s.audioDir, s.outDir, rowID)
	if err != nil {
		return "", err
	}
	out := filepath.Join(s.outDir, CombinedName(rowID, s.now()))
	if err := s.muxer.Mash(ctx, video, audio, out); err != nil {
		return "", err
	}
	goapp.Log.Info().Int("ID", rowID).Str("file", out).Msg("mashed")
	return out, nil
}

func (s *Service) download(ctx context.Context, res *api.VideoResult, name string) (string, error) {
	if res.Video.URL == "" {
		return "", errors.New("no video url in result")
	}
	out := filepath.Join(s.outDir, name)
	if err := s.generator.Download(ctx, res.Video.URL, out); err != nil {
		return "", fmt.Errorf("can't download video: %w", err)
	}
	return out, nil
}

// CombinedName is the file name of the row video mashed with its speech
func CombinedName(rowID int, at time.Time) string {
	return fmt.Sprintf("combined_video_%d_%s.mp4", rowID, at.Format(tsLayout))
}

const tsLayout = "20060102_150405"

// fileName for a row follows video_<ts>_row_<id>.mp4 so that Mash can locate it
func (s *Service) fileName(prefix string, rowID int) string {
	ts := s.now().Format(tsLayout)
	if rowID > 0 {
		return fmt.Sprintf("video_%s_row_%d.mp4", ts, rowID)
	}
	return fmt.Sprintf("%s_%s.mp4", prefix, ts)
}
