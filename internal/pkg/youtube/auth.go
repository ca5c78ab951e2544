package youtube

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

type authResult struct {
	code string
	err  error
}

// Authorize runs the installed app flow: serves a loopback redirect page,
// shows the consent URL via show and stores the exchanged token
func Authorize(ctx context.Context, cfg *oauth2.Config, store *TokenStore, show func(url string)) error {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("can't listen: %w", err)
	}
	defer l.Close()

	c := *cfg
	c.RedirectURL = fmt.Sprintf("http://%s/", l.Addr().String())
	state := uuid.NewString()
	resCh := make(chan authResult, 1)
	srv := &http.Server{Handler: callbackHandler(state, resCh), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
			goapp.Log.Error().Err(err).Msg("loopback server")
		}
	}()
	defer srv.Close()

	show(c.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")))

	var res authResult
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-resCh:
	}
	if res.err != nil {
		return res.err
	}
	tok, err := c.Exchange(ctx, res.code)
	if err != nil {
		return fmt.Errorf("can't exchange code: %w", err)
	}
	if err := store.Save(tok); err != nil {
		return fmt.Errorf("can't save token: %w", err)
	}
	goapp.Log.Info().Msg("youtube token saved")
	return nil
}

func callbackHandler(state string, resCh chan<- authResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res authResult
		switch {
		case q.Get("error") != "":
			res.err = errors.Errorf("authorization failed: %s", q.Get("error"))
		case q.Get("state") != state:
			http.Error(w, "wrong state", http.StatusBadRequest)
			return
		case q.Get("code") == "":
			http.Error(w, "no code", http.StatusBadRequest)
			return
		default:
			res.code = q.Get("code")
		}
		select {
		case resCh <- res:
		default:
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("Authorization finished. You may close this window."))
	})
}
