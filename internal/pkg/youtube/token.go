package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	ytapi "google.golang.org/api/youtube/v3"
)

// ErrNoToken indicates that the authorization flow was not run yet
var ErrNoToken = errors.New("no youtube token, run the auth command first")

// LoadConfig reads oauth client secrets downloaded from the google console
func LoadConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("can't read client secrets: %w", err)
	}
	res, err := google.ConfigFromJSON(b, ytapi.YoutubeUploadScope, ytapi.YoutubeScope)
	if err != nil {
		return nil, fmt.Errorf("can't parse client secrets: %w", err)
	}
	return res, nil
}

// TokenStore keeps oauth token in a json file
type TokenStore struct {
	path string
	lock sync.Mutex
}

// NewTokenStore creates file token store
func NewTokenStore(path string) (*TokenStore, error) {
	if path == "" {
		return nil, errors.New("no token file")
	}
	return &TokenStore{path: path}, nil
}

// Load reads the token, returns ErrNoToken if file is missing
func (s *TokenStore) Load() (*oauth2.Token, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("can't read token: %w", err)
	}
	var res oauth2.Token
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("can't decode token: %w", err)
	}
	return &res, nil
}

// Save writes the token with owner only permissions
func (s *TokenStore) Save(tok *oauth2.Token) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("can't create dir: %w", err)
	}
	return os.WriteFile(s.path, b, 0o600)
}

// savingSource persists refreshed tokens
type savingSource struct {
	base  oauth2.TokenSource
	store *TokenStore
	lock  sync.Mutex
	last  string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if tok.AccessToken != s.last {
		if err := s.store.Save(tok); err != nil {
			goapp.Log.Error().Err(err).Msg("can't save refreshed token")
		} else {
			goapp.Log.Info().Time("expiry", tok.Expiry).Msg("token refreshed")
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

// NewHTTPClient returns a client authorized with the stored token, refreshed tokens are saved back
func NewHTTPClient(ctx context.Context, cfg *oauth2.Config, store *TokenStore) (*http.Client, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return nil, errors.Wrap(ErrNoToken, "token expired and has no refresh token")
	}
	ts := &savingSource{base: cfg.TokenSource(ctx, tok), store: store, last: tok.AccessToken}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts)), nil
}
