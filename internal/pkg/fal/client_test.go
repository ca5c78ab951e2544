package fal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/airenas/clipper/internal/pkg/fal/api"
	"github.com/airenas/clipper/internal/pkg/test"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResp struct {
	code int
	resp string
}

type testReq struct {
	resp   string
	URL    string
	auth   string
	method string
}

func newTestR(code int, resp string) testResp {
	return testResp{code: code, resp: resp}
}

func newTestReq(req *http.Request) testReq {
	b, _ := io.ReadAll(req.Body)
	return testReq{URL: req.URL.String(), resp: string(b), auth: req.Header.Get("Authorization"), method: req.Method}
}

func initTestServer(t *testing.T, rData map[string][]testResp) (*Client, *httptest.Server, *[]testReq) {
	t.Helper()
	resRequest := make([]testReq, 0)
	rLock := &sync.Mutex{}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		resRequest = append(resRequest, newTestReq(req))
		resps, f := rData[req.URL.Path]
		if f && len(resps) > 0 {
			resp := resps[0]
			if len(resps) > 1 {
				rData[req.URL.Path] = resps[1:]
			}
			rw.WriteHeader(resp.code)
			_, _ = rw.Write([]byte(resp.resp))
		} else {
			rw.WriteHeader(http.StatusNotFound)
		}
	}))
	api := Client{}
	api.httpclient = server.Client()
	api.url = server.URL
	api.key = "kk"
	api.timeout = time.Second
	api.downloadTimeout = time.Second
	api.pollInterval = time.Millisecond * 10
	api.backoff = func() backoff.BackOff {
		return &backoff.StopBackOff{}
	}
	t.Cleanup(func() { server.Close() })
	return &api, server, &resRequest
}

func testCalled(t *testing.T, URL string, tReq []testReq) {
	t.Helper()
	assert.GreaterOrEqual(t, len(tReq), 1)
	str := ""
	for _, r := range tReq {
		str = r.URL
		if str == URL {
			return
		}
	}
	assert.Equal(t, URL, str)
}

func TestSubmit(t *testing.T) {
	client, _, tReq := initTestServer(t, map[string][]testResp{"/fal-ai/sync-lipsync": {newTestR(200, `{"request_id":"r1"}`)}})

	r, err := client.Submit(test.Ctx(t), api.AppLipSync, api.LipSyncInput{VideoURL: "v", AudioURL: "a"})

	require.Nil(t, err)
	assert.Equal(t, "r1", r.RequestID)
	testCalled(t, "/fal-ai/sync-lipsync", *tReq)
	assert.Equal(t, "Key kk", (*tReq)[0].auth)
	assert.Equal(t, `{"video_url":"v","audio_url":"a"}`, (*tReq)[0].resp)
}

func TestSubmit_Fails(t *testing.T) {
	tests := []struct {
		name string
		resp testResp
	}{
		{name: "code", resp: newTestR(400, `{"request_id":"r1"}`)},
		{name: "json", resp: newTestR(200, `olia`)},
		{name: "no id", resp: newTestR(200, `{}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := initTestServer(t, map[string][]testResp{"/app": {tt.resp}})
			_, err := client.Submit(test.Ctx(t), "app", map[string]string{})
			assert.NotNil(t, err)
		})
	}
}

func TestSubscribe(t *testing.T) {
	client, _, tReq := initTestServer(t, map[string][]testResp{
		"/fal-ai/sync-lipsync": {newTestR(200, `{"request_id":"r1"}`)},
		"/fal-ai/sync-lipsync/requests/r1/status": {newTestR(200, `{"status":"IN_QUEUE","queue_position":2}`),
			newTestR(200, `{"status":"IN_PROGRESS","logs":[{"message":"working"}]}`),
			newTestR(200, `{"status":"COMPLETED","logs":[{"message":"working"},{"message":"done"}]}`)},
		"/fal-ai/sync-lipsync/requests/r1": {newTestR(200, `{"video":{"url":"http://x/v.mp4"}}`)},
	})
	var res api.VideoResult
	err := client.Subscribe(test.Ctx(t), api.AppLipSync, api.LipSyncInput{}, &res)

	require.Nil(t, err)
	assert.Equal(t, "http://x/v.mp4", res.Video.URL)
	testCalled(t, "/fal-ai/sync-lipsync/requests/r1/status?logs=1", *tReq)
	assert.Equal(t, 5, len(*tReq))
}

func TestSubscribe_UsesReturnedURLs(t *testing.T) {
	client, server, tReq := initTestServer(t, map[string][]testResp{
		"/q/status": {newTestR(200, `{"status":"COMPLETED"}`)},
		"/q/resp":   {newTestR(200, `{"video":{"url":"u"}}`)},
	})
	var res api.VideoResult
	st, rp := client.requestURLs(api.AppTextToVideo, &api.SubmitData{RequestID: "r2",
		StatusURL: server.URL + "/q/status", ResponseURL: server.URL + "/q/resp"})
	require.Nil(t, client.wait(test.Ctx(t), "r2", st))
	require.Nil(t, client.GetResult(test.Ctx(t), rp, &res))
	assert.Equal(t, "u", res.Video.URL)
	testCalled(t, "/q/resp", *tReq)
}

func Test_requestURLs(t *testing.T) {
	client := &Client{url: "http://q"}
	st, rp := client.requestURLs(api.AppTextToVideo, &api.SubmitData{RequestID: "r"})
	assert.Equal(t, "http://q/fal-ai/minimax/requests/r/status", st)
	assert.Equal(t, "http://q/fal-ai/minimax/requests/r", rp)
	st, rp = client.requestURLs(api.AppLipSync, &api.SubmitData{RequestID: "r"})
	assert.Equal(t, "http://q/fal-ai/sync-lipsync/requests/r/status", st)
	assert.Equal(t, "http://q/fal-ai/sync-lipsync/requests/r", rp)
}

func TestSubscribe_ResultFails(t *testing.T) {
	client, _, _ := initTestServer(t, map[string][]testResp{
		"/app":                    {newTestR(200, `{"request_id":"r1"}`)},
		"/app/requests/r1/status": {newTestR(200, `{"status":"COMPLETED"}`)},
		"/app/requests/r1":        {newTestR(422, `{"detail":"bad face"}`)},
	})
	var res api.VideoResult
	err := client.Subscribe(test.Ctx(t), "app", api.LipSyncInput{}, &res)
	assert.NotNil(t, err)
}

func TestSubscribe_WrongStatus(t *testing.T) {
	client, _, _ := initTestServer(t, map[string][]testResp{
		"/app":                    {newTestR(200, `{"request_id":"r1"}`)},
		"/app/requests/r1/status": {newTestR(200, `{"status":"OLIA"}`)},
	})
	var res api.VideoResult
	err := client.Subscribe(test.Ctx(t), "app", api.LipSyncInput{}, &res)
	assert.NotNil(t, err)
}

func TestSubscribe_Canceled(t *testing.T) {
	client, _, _ := initTestServer(t, map[string][]testResp{
		"/app":                    {newTestR(200, `{"request_id":"r1"}`)},
		"/app/requests/r1/status": {newTestR(200, `{"status":"IN_QUEUE"}`)},
	})
	client.pollInterval = time.Second
	ctx, cf := context.WithTimeout(context.Background(), time.Millisecond*100)
	defer cf()
	var res api.VideoResult
	err := client.Subscribe(ctx, "app", api.LipSyncInput{}, &res)
	assert.NotNil(t, err)
}

func TestDownload(t *testing.T) {
	client, server, _ := initTestServer(t, map[string][]testResp{"/v.mp4": {newTestR(200, "video")}})
	fn := filepath.Join(t.TempDir(), "out", "v.mp4")

	err := client.Download(test.Ctx(t), server.URL+"/v.mp4", fn)

	require.Nil(t, err)
	b, err := os.ReadFile(fn)
	require.Nil(t, err)
	assert.Equal(t, "video", string(b))
}

func TestDownload_Fails(t *testing.T) {
	client, server, _ := initTestServer(t, map[string][]testResp{})
	err := client.Download(test.Ctx(t), server.URL+"/v.mp4", filepath.Join(t.TempDir(), "v.mp4"))
	assert.NotNil(t, err)
}

func TestSubmit_Backoff(t *testing.T) {
	client, _, tReq := initTestServer(t, map[string][]testResp{"/app": {newTestR(http.StatusTooManyRequests, "{}")}})
	client.backoff = func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3) }

	_, err := client.Submit(test.Ctx(t), "app", map[string]string{})

	assert.NotNil(t, err)
	assert.Equal(t, 4, len(*tReq))
}

func TestSubmit_NoBackoff(t *testing.T) {
	client, _, tReq := initTestServer(t, map[string][]testResp{"/app": {newTestR(http.StatusBadRequest, "{}")}})
	client.backoff = func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3) }

	_, err := client.Submit(test.Ctx(t), "app", map[string]string{})

	assert.NotNil(t, err)
	assert.Equal(t, 1, len(*tReq))
}

func TestSubmit_NoRetryOnUnavailable(t *testing.T) {
	client, _, tReq := initTestServer(t, map[string][]testResp{"/app": {newTestR(http.StatusServiceUnavailable, "{}"),
		newTestR(200, `{"request_id":"r1"}`)}})
	client.backoff = func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3) }

	_, err := client.Submit(test.Ctx(t), "app", map[string]string{})

	assert.NotNil(t, err)
	assert.Equal(t, 1, len(*tReq))
}

func TestGetStatus_Backoff(t *testing.T) {
	client, server, tReq := initTestServer(t, map[string][]testResp{"/app/requests/r1/status": {
		newTestR(http.StatusServiceUnavailable, "{}"), newTestR(200, `{"status":"COMPLETED"}`)}})
	client.backoff = func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3) }

	st, err := client.GetStatus(test.Ctx(t), server.URL+"/app/requests/r1/status")

	require.Nil(t, err)
	assert.Equal(t, api.StatusCompleted, st.Status)
	assert.Equal(t, 2, len(*tReq))
}

func Test_retryable(t *testing.T) {
	tests := []struct {
		name   string
		method string
		code   int
		err    error
		want   bool
	}{
		{name: "post 429", method: http.MethodPost, code: http.StatusTooManyRequests, want: true},
		{name: "post 503", method: http.MethodPost, code: http.StatusServiceUnavailable, want: false},
		{name: "post 400", method: http.MethodPost, code: http.StatusBadRequest, want: false},
		{name: "post timeout", method: http.MethodPost, err: context.DeadlineExceeded, want: false},
		{name: "get 503", method: http.MethodGet, code: http.StatusServiceUnavailable, want: true},
		{name: "get 400", method: http.MethodGet, code: http.StatusBadRequest, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.method, tt.code, tt.err))
		})
	}
}

func TestNewClient(t *testing.T) {
	type args struct {
		url string
		key string
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{url: "https://queue.fal.run", key: "k"}, wantErr: false},
		{name: "No url", args: args{key: "k"}, wantErr: true},
		{name: "No key", args: args{url: "https://queue.fal.run"}, wantErr: true},
		{name: "Wrong url", args: args{url: "ops://olia", key: "k"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewClient(tt.args.url, tt.args.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got == nil {
				t.Errorf("NewClient() = nil, want object")
			}
		})
	}
}
