//go:build integration
// +build integration

package integration

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/airenas/clipper/internal/pkg/test"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type config struct {
	audioURL   string
	summaryURL string
	videoURL   string
	publishURL string
	httpclient *http.Client
}

var cfg config

func TestMain(m *testing.M) {
	cfg.audioURL = mustEnv("AUDIO_URL")
	cfg.summaryURL = mustEnv("SUMMARY_URL")
	cfg.videoURL = mustEnv("VIDEO_URL")
	cfg.publishURL = mustEnv("PUBLISH_URL")
	cfg.httpclient = &http.Client{Timeout: time.Second * 30}

	tCtx, cf := context.WithTimeout(context.Background(), time.Second*20)
	defer cf()
	waitForPort(tCtx, cfg.audioURL)
	waitForPort(tCtx, cfg.summaryURL)
	waitForPort(tCtx, cfg.videoURL)
	waitForPort(tCtx, cfg.publishURL)

	os.Exit(m.Run())
}

func TestLive(t *testing.T) {
	t.Parallel()
	for _, u := range []string{cfg.audioURL, cfg.summaryURL, cfg.videoURL, cfg.publishURL} {
		resp := test.Invoke(t, cfg.httpclient, newRequest(t, http.MethodGet, u, "/live", nil))
		test.CheckCode(t, resp, http.StatusOK)
		assert.Equal(t, map[string]string{"service": "OK"}, test.Decode[map[string]string](t, resp))
	}
}

func TestAudio_Generate_NoText(t *testing.T) {
	t.Parallel()
	req := newRequest(t, http.MethodPost, cfg.audioURL, "/generate/audio", map[string]string{"input_text": " "})
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
}

func TestAudio_Status(t *testing.T) {
	t.Parallel()
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, newRequest(t, http.MethodGet, cfg.audioURL, "/status/x", nil)),
		http.StatusBadRequest)
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, newRequest(t, http.MethodGet, cfg.audioURL, "/status/999999", nil)),
		http.StatusNotFound)
}

func TestAudio_Pending(t *testing.T) {
	t.Parallel()
	resp := test.Invoke(t, cfg.httpclient, newRequest(t, http.MethodGet, cfg.audioURL, "/pending", nil))
	test.CheckCode(t, resp, http.StatusOK)
	test.Decode[[]map[string]interface{}](t, resp)
}

func TestAudio_Subscribe(t *testing.T) {
	t.Parallel()
	u := "ws" + strings.TrimPrefix(cfg.audioURL, "http") + "/subscribe"
	c, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Nil(t, err)
	defer c.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	require.Nil(t, c.WriteMessage(websocket.TextMessage, []byte("1")))
}

func TestSummary_Process_NoPath(t *testing.T) {
	t.Parallel()
	req := newRequest(t, http.MethodPost, cfg.summaryURL, "/process", map[string]string{})
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
}

func TestSummary_NotFound(t *testing.T) {
	t.Parallel()
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, newRequest(t, http.MethodGet, cfg.summaryURL, "/summary/999999", nil)),
		http.StatusNotFound)
}

func TestVideo_Generate_NoPrompt(t *testing.T) {
	t.Parallel()
	req := newRequest(t, http.MethodPost, cfg.videoURL, "/generate/video", map[string]string{})
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
}

func TestVideo_Mash(t *testing.T) {
	t.Parallel()
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, newRequest(t, http.MethodPost, cfg.videoURL, "/mash/x", nil)),
		http.StatusBadRequest)
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, newRequest(t, http.MethodPost, cfg.videoURL, "/mash/999999", nil)),
		http.StatusNotFound)
}

func TestVideo_Download_NotFound(t *testing.T) {
	t.Parallel()
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, newRequest(t, http.MethodGet, cfg.videoURL, "/download/none.mp4", nil)),
		http.StatusNotFound)
}

func TestPublish_Upload_Fail(t *testing.T) {
	t.Parallel()
	req := newRequest(t, http.MethodPost, cfg.publishURL, "/upload", map[string]string{"file_path": "/none.mp4"})
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
	req = newRequest(t, http.MethodPost, cfg.publishURL, "/upload",
		map[string]string{"file_path": "/none.mp4", "title": "t"})
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusNotFound)
}
