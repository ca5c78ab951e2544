package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/clipper/internal/pkg/fal/api"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// Client comunicates with fal queue API
type Client struct {
	httpclient      *http.Client
	url             string
	key             string
	timeout         time.Duration
	downloadTimeout time.Duration
	pollInterval    time.Duration
	backoff         func() backoff.BackOff
}

// NewClient creates a fal queue client
func NewClient(url, key string) (*Client, error) {
	if url == "" {
		return nil, errors.New("no url")
	}
	if !strings.HasPrefix(url, "http") {
		return nil, errors.Errorf("no http in url '%s'", url)
	}
	if key == "" {
		return nil, errors.New("no key")
	}
	res := Client{}
	res.url = strings.TrimSuffix(url, "/")
	res.key = key
	res.timeout = time.Second * 50
	res.downloadTimeout = time.Minute * 10
	res.pollInterval = time.Second * 2
	res.httpclient = falHTTPClient()
	res.backoff = newSimpleBackoff
	return &res, nil
}

// Subscribe submits a request to the app queue, waits for completion and decodes the result to res
func (sp *Client) Subscribe(ctx context.Context, app string, args, res interface{}) error {
	defer goapp.Estimate("fal " + app)()
	sd, err := sp.Submit(ctx, app, args)
	if err != nil {
		return fmt.Errorf("can't submit: %w", err)
	}
	goapp.Log.Info().Str("app", app).Str("requestID", sd.RequestID).Msg("submitted")
	statusURL, responseURL := sp.requestURLs(app, sd)
	if err := sp.wait(ctx, sd.RequestID, statusURL); err != nil {
		return fmt.Errorf("can't wait for %s: %w", sd.RequestID, err)
	}
	if err := sp.GetResult(ctx, responseURL, res); err != nil {
		return fmt.Errorf("can't get result for %s: %w", sd.RequestID, err)
	}
	return nil
}

// Submit puts a request into the app queue
func (sp *Client) Submit(ctx context.Context, app string, args interface{}) (*api.SubmitData, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("can't marshal args: %w", err)
	}
	res := &api.SubmitData{}
	if err := sp.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/%s", sp.url, app), body, res); err != nil {
		return nil, err
	}
	if res.RequestID == "" {
		return nil, errors.New("can't get request ID from response")
	}
	return res, nil
}

// GetStatus return queue status
func (sp *Client) GetStatus(ctx context.Context, statusURL string) (*api.StatusData, error) {
	res := &api.StatusData{}
	if err := sp.doJSON(ctx, http.MethodGet, statusURL+"?logs=1", nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetResult decodes the result of a completed request
func (sp *Client) GetResult(ctx context.Context, responseURL string, res interface{}) error {
	return sp.doJSON(ctx, http.MethodGet, responseURL, nil, res)
}

// Download saves the file from URL
func (sp *Client) Download(ctx context.Context, urlStr, file string) error {
	goapp.Log.Info().Str("url", urlStr).Str("file", file).Msg("download")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("can't create dir: %w", err)
	}
	_, err := goapp.InvokeWithBackoff(ctx, func() (interface{}, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, sp.downloadTimeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, false, err
		}
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		f, err := os.Create(file)
		if err != nil {
			return nil, false, fmt.Errorf("can't create file: %w", err)
		}
		defer f.Close()
		n, err := io.Copy(f, resp.Body)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't read body: %w", err)
		}
		goapp.Log.Info().Str("file", file).Int64("bytes", n).Msg("downloaded")
		return nil, false, nil
	}, sp.backoff())
	return err
}

func (sp *Client) wait(ctx context.Context, id, statusURL string) error {
	logged := 0
	for {
		st, err := sp.GetStatus(ctx, statusURL)
		if err != nil {
			return err
		}
		for ; logged < len(st.Logs); logged++ {
			goapp.Log.Info().Str("requestID", id).Str("log", goapp.Sanitize(st.Logs[logged].Message)).Msg("fal")
		}
		switch st.Status {
		case api.StatusCompleted:
			return nil
		case api.StatusInQueue:
			goapp.Log.Debug().Str("requestID", id).Int("position", st.QueuePosition).Msg("in queue")
		case api.StatusInProgress:
		default:
			return errors.Errorf("unexpected status '%s'", st.Status)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sp.pollInterval):
		}
	}
}

// requestURLs prefers URLs returned by the queue,
// app paths like owner/alias/sub have status under owner/alias
func (sp *Client) requestURLs(app string, sd *api.SubmitData) (string, string) {
	base := app
	if parts := strings.Split(app, "/"); len(parts) > 2 {
		base = strings.Join(parts[:2], "/")
	}
	resp := sd.ResponseURL
	if resp == "" {
		resp = fmt.Sprintf("%s/%s/requests/%s", sp.url, base, sd.RequestID)
	}
	st := sd.StatusURL
	if st == "" {
		st = resp + "/status"
	}
	return st, resp
}

// retryable decides if a failed call may be repeated. A POST is repeated only on 429,
// other failures may leave an enqueued and billed request behind
func retryable(method string, code int, err error) bool {
	if method != http.MethodPost {
		if code > 0 {
			return goapp.IsRetryableCode(code)
		}
		return goapp.IsRetryableErr(err)
	}
	return code == http.StatusTooManyRequests
}

func (sp *Client) doJSON(ctx context.Context, method, urlStr string, body []byte, res interface{}) error {
	_, err := goapp.InvokeWithBackoff(ctx, func() (interface{}, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		var br io.Reader
		if body != nil {
			br = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, br)
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("Authorization", "Key "+sp.key)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		goapp.Log.Debug().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return nil, retryable(method, 0, err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, retryable(method, resp.StatusCode, err), err
		}
		if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
			return nil, retryable(method, 0, err), fmt.Errorf("can't decode response: %w", err)
		}
		return nil, false, nil
	}, sp.backoff())
	return err
}

func falHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 20
	res.MaxIdleConns = 10
	res.MaxIdleConnsPerHost = 10
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
