package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
)

// Runner executes an external command and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpeg wraps ffmpeg invocations
type FFmpeg struct {
	bin string
	run Runner
}

// NewFFmpeg creates the wrapper, bin defaults to ffmpeg from PATH
func NewFFmpeg(bin string) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin, run: ExecRunner}
}

// Check verifies ffmpeg is available
func (f *FFmpeg) Check() error {
	if _, err := exec.LookPath(f.bin); err != nil {
		return fmt.Errorf("%s not found: %w", f.bin, err)
	}
	return nil
}

// Convert reencodes video to H.264/AAC mp4
func (f *FFmpeg) Convert(ctx context.Context, in, out string) error {
	return f.invoke(ctx, out, "-i", in, "-c:v", "libx264", "-preset", "medium", "-crf", "23",
		"-c:a", "aac", "-b:a", "128k", "-y", out)
}

// Mash replaces the audio track of video, the video stream is copied
func (f *FFmpeg) Mash(ctx context.Context, video, audio, out string) error {
	return f.invoke(ctx, out, "-y", "-i", video, "-i", audio, "-c:v", "copy", "-c:a", "aac", out)
}

func (f *FFmpeg) invoke(ctx context.Context, out string, args ...string) error {
	defer goapp.Estimate("ffmpeg")()
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("can't create dir: %w", err)
	}
	goapp.Log.Info().Strs("args", args).Msg(f.bin)
	output, err := f.run(ctx, f.bin, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w, output: %s", err, tail(string(output), 500))
	}
	return nil
}

// ConvertDir converts all .mov and .mp4 files of inDir to outDir/input<N>.mp4 in name order.
// A failed file is logged and skipped, the names of converted files are returned
func (f *FFmpeg) ConvertDir(ctx context.Context, inDir, outDir string) ([]string, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, fmt.Errorf("can't read dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isVideoExt(filepath.Ext(e.Name())) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	res := []string{}
	for i, fn := range files {
		out := filepath.Join(outDir, fmt.Sprintf("input%d.mp4", i+1))
		if err := f.Convert(ctx, filepath.Join(inDir, fn), out); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			goapp.Log.Error().Err(err).Str("file", fn).Msg("can't convert")
			continue
		}
		res = append(res, out)
	}
	goapp.Log.Info().Int("converted", len(res)).Int("found", len(files)).Msg("convert dir")
	return res, nil
}

// Locate finds the audio and video of a row by the speech_*_row_<id> and video_*_row_<id> names
func Locate(audioDir, videoDir string, id int) (string, string, error) {
	audio, err := findFirst(audioDir, fmt.Sprintf("speech_*_row_%d.*", id))
	if err != nil {
		return "", "", fmt.Errorf("can't find audio: %w", err)
	}
	video, err := findFirst(videoDir, fmt.Sprintf("video_*_row_%d.*", id))
	if err != nil {
		return "", "", fmt.Errorf("can't find video: %w", err)
	}
	return audio, video, nil
}

// ErrNotFound is returned when no file matches
var ErrNotFound = errors.New("not found")

func findFirst(dir, pattern string) (string, error) {
	m, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", err
	}
	if len(m) == 0 {
		return "", fmt.Errorf("%s in %s: %w", pattern, dir, ErrNotFound)
	}
	sort.Strings(m)
	return m[0], nil
}

func isVideoExt(ext string) bool {
	ext = strings.ToLower(ext)
	return ext == ".mov" || ext == ".mp4"
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
