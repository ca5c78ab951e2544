package clean

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	aclean "github.com/airenas/async-api/pkg/clean"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DirIDs provides IDs of expired upload dir files, files are saved as <ID>_<name>
type DirIDs struct {
	Dir    string
	Expire time.Duration

	now func() time.Time
}

// NewDirIDs creates expired upload files provider
func NewDirIDs(dir string, expire time.Duration) (*DirIDs, error) {
	if dir == "" {
		return nil, errors.New("no dir")
	}
	if expire <= 0 {
		return nil, errors.Errorf("wrong expire %s", expire)
	}
	return &DirIDs{Dir: dir, Expire: expire, now: time.Now}, nil
}

// GetExpired returns IDs of files modified before now - Expire
func (d *DirIDs) GetExpired(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("can't read dir: %w", err)
	}
	olderThan := d.now().Add(-d.Expire)
	var res []string
	seen := map[string]bool{}
	for _, e := range entries {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if e.IsDir() {
			continue
		}
		id, _, ok := strings.Cut(e.Name(), "_")
		if !ok || seen[id] {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(olderThan) {
			continue
		}
		seen[id] = true
		res = append(res, id)
	}
	return res, nil
}

// Providers merges IDs of all providers, a failed provider does not hide the others
type Providers []aclean.OldIDsProvider

// GetExpired returns unique IDs, the error is returned only if all providers fail
func (p Providers) GetExpired(ctx context.Context) ([]string, error) {
	var res []string
	seen := map[string]bool{}
	failed := 0
	for _, pr := range p {
		ids, err := pr.GetExpired(ctx)
		if err != nil {
			goapp.Log.Error().Err(err).Msg("can't get expired IDs")
			failed++
			continue
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				res = append(res, id)
			}
		}
	}
	if failed > 0 && failed == len(p) {
		return nil, errors.New("all ID providers failed")
	}
	return res, nil
}

// LocalFile makes async-api file cleaner usable in a cleaner group
type LocalFile struct {
	f *aclean.LocalFile
}

// NewUploadCleaner removes <ID>_* files of the dir
func NewUploadCleaner(dir string) (*LocalFile, error) {
	f, err := aclean.NewLocalFile(dir, "{ID}_*")
	if err != nil {
		return nil, err
	}
	return &LocalFile{f: f}, nil
}

// Clean removes files of the ID
func (l *LocalFile) Clean(ctx context.Context, ID string) error {
	if _, err := uuid.Parse(ID); err != nil {
		return errors.Errorf("wrong ID '%s'", ID)
	}
	return l.f.Clean(ID)
}
