package utils

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
)

// WriteFile writes file to disk, creates missing dirs
func WriteFile(name string, data []byte) error {
	goapp.Log.Info().Str("name", name).Int("bytes", len(data)).Msg("Save")
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("can't create dir: %w", err)
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// FileExists check if file exists
func FileExists(name string) bool {
	st, err := os.Stat(name)
	return err == nil && !st.IsDir()
}

// MakeValidateFileName drops dirs from the provided name, replaces spaces, lowercases ext
// and prefixes the result with dir if provided
func MakeValidateFileName(dir, fileName string) (string, error) {
	base := path.Base(filepath.ToSlash(strings.TrimSpace(fileName)))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "", fmt.Errorf("wrong file name '%s'", fileName)
	}
	ext := path.Ext(base)
	base = strings.ReplaceAll(strings.TrimSuffix(base, ext), " ", "_") + strings.ToLower(ext)
	if dir == "" {
		return base, nil
	}
	return path.Join(dir, base), nil
}

// IsVideoType checks multipart content type
func IsVideoType(ct string) bool {
	return strings.HasPrefix(strings.ToLower(ct), "video/")
}

// IsAudioType checks multipart content type
func IsAudioType(ct string) bool {
	return strings.HasPrefix(strings.ToLower(ct), "audio/")
}
