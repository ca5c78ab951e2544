package video

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/airenas/clipper/internal/pkg/media"
	"github.com/airenas/clipper/internal/pkg/test"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMaker struct{ mock.Mock }

func (m *mockMaker) LipSync(ctx context.Context, videoPath, audioPath string, rowID int) (string, error) {
	args := m.Called(ctx, videoPath, audioPath, rowID)
	return args.String(0), args.Error(1)
}

func (m *mockMaker) TextToVideo(ctx context.Context, p *Prompt) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *mockMaker) Mash(ctx context.Context, rowID int) (string, error) {
	args := m.Called(ctx, rowID)
	return args.String(0), args.Error(1)
}

var (
	makerMock *mockMaker
	tData     *Data
	tEcho     *echo.Echo
)

func initTest(t *testing.T) {
	t.Helper()
	makerMock = &mockMaker{}
	tData = &Data{Maker: makerMock, UploadDir: t.TempDir(), OutDir: t.TempDir()}
	tEcho = initRoutes(tData)
}

type part struct {
	param, file, contentType, data string
}

func newMultipartReq(t *testing.T, parts []part, values map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, p.param, p.file))
		h.Set("Content-Type", p.contentType)
		w, err := writer.CreatePart(h)
		require.Nil(t, err)
		_, err = w.Write([]byte(p.data))
		require.Nil(t, err)
	}
	for k, v := range values {
		require.Nil(t, writer.WriteField(k, v))
	}
	require.Nil(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/lip-sync", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

var okParts = []part{{param: "video", file: "in.mp4", contentType: "video/mp4", data: "video data"},
	{param: "audio", file: "in put.wav", contentType: "audio/wav", data: "audio data"}}

func TestLive(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, `{"service":"OK"}`, resp.Body.String())
}

func TestLipSyncHandler(t *testing.T) {
	initTest(t)
	var savedVideo, savedAudio string
	makerMock.On("LipSync", mock.Anything, mock.Anything, mock.Anything, 0).Return("out/v.mp4", nil).
		Run(func(args mock.Arguments) {
			b, err := os.ReadFile(args.String(1))
			require.Nil(t, err)
			savedVideo = string(b)
			b, err = os.ReadFile(args.String(2))
			require.Nil(t, err)
			savedAudio = string(b)
			assert.True(t, strings.HasSuffix(args.String(2), "_in_put.wav"))
		})
	req := newMultipartReq(t, okParts, nil)

	resp := test.Code(t, tEcho, req, http.StatusOK)

	res := test.Decode[result](t, resp.Result())
	assert.Equal(t, result{Message: "Video generated successfully", FilePath: "out/v.mp4"}, res)
	assert.Equal(t, "video data", savedVideo)
	assert.Equal(t, "audio data", savedAudio)
	files, _ := os.ReadDir(tData.UploadDir)
	assert.Equal(t, 0, len(files))
}

func TestLipSyncHandler_Row(t *testing.T) {
	initTest(t)
	makerMock.On("LipSync", mock.Anything, mock.Anything, mock.Anything, 5).Return("out/v.mp4", nil)
	req := newMultipartReq(t, okParts, map[string]string{"row_id": "5"})
	test.Code(t, tEcho, req, http.StatusOK)
	makerMock.AssertNumberOfCalls(t, "LipSync", 1)
}

func TestLipSyncHandler_Fail(t *testing.T) {
	tests := []struct {
		name     string
		parts    []part
		values   map[string]string
		makeErr  error
		wantCode int
	}{
		{name: "Video type", parts: []part{{param: "video", file: "in.mp4", contentType: "image/png"}, okParts[1]},
			wantCode: http.StatusBadRequest},
		{name: "Audio type", parts: []part{okParts[0], {param: "audio", file: "a.txt", contentType: "text/plain"}},
			wantCode: http.StatusBadRequest},
		{name: "No video", parts: []part{okParts[1]}, wantCode: http.StatusBadRequest},
		{name: "No audio", parts: []part{okParts[0]}, wantCode: http.StatusBadRequest},
		{name: "Row", parts: okParts, values: map[string]string{"row_id": "x"}, wantCode: http.StatusBadRequest},
		{name: "Generate", parts: okParts, makeErr: fmt.Errorf("olia"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			makerMock.On("LipSync", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", tt.makeErr)
			req := newMultipartReq(t, tt.parts, tt.values)
			resp := test.Code(t, tEcho, req, tt.wantCode)
			if tt.wantCode == http.StatusInternalServerError {
				assert.Contains(t, resp.Body.String(), "Failed to generate video")
			}
		})
	}
}

func TestLipSyncHandler_NoForm(t *testing.T) {
	initTest(t)
	req := test.NewJSONReq(t, http.MethodPost, "/lip-sync", map[string]string{})
	test.Code(t, tEcho, req, http.StatusBadRequest)
}

func TestGenerate(t *testing.T) {
	initTest(t)
	makerMock.On("TextToVideo", mock.Anything, &Prompt{Prompt: "owl", NegativePrompt: "blurry"}).Return("out/g.mp4", nil)
	req := test.NewJSONReq(t, http.MethodPost, "/generate/video", promptInput{Prompt: "owl", NegativePrompt: "blurry"})

	resp := test.Code(t, tEcho, req, http.StatusOK)

	res := test.Decode[result](t, resp.Result())
	assert.Equal(t, "out/g.mp4", res.FilePath)
}

func TestGenerate_Fail(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		makeErr  error
		wantCode int
	}{
		{name: "No prompt", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "Row", body: `{"prompt":"p","row_id":-1}`, wantCode: http.StatusBadRequest},
		{name: "Json", body: `{"prompt":`, wantCode: http.StatusBadRequest},
		{name: "Fail", body: `{"prompt":"p"}`, makeErr: fmt.Errorf("olia"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			makerMock.On("TextToVideo", mock.Anything, mock.Anything).Return("", tt.makeErr)
			req := httptest.NewRequest(http.MethodPost, "/generate/video", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			test.Code(t, tEcho, req, tt.wantCode)
		})
	}
}

func TestMashHandler(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		err      error
		wantCode int
	}{
		{name: "OK", path: "/mash/2", wantCode: http.StatusOK},
		{name: "Wrong ID", path: "/mash/a", wantCode: http.StatusBadRequest},
		{name: "Not found", path: "/mash/2", err: fmt.Errorf("row 2: %w", media.ErrNotFound), wantCode: http.StatusNotFound},
		{name: "Fail", path: "/mash/2", err: fmt.Errorf("olia"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			makerMock.On("Mash", mock.Anything, 2).Return("out/c.mp4", tt.err)
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			test.Code(t, tEcho, req, tt.wantCode)
		})
	}
}

func TestDownload(t *testing.T) {
	initTest(t)
	test.TempFile(t, tData.OutDir, "v.mp4", []byte("mp4 data"))
	req := httptest.NewRequest(http.MethodGet, "/download/v.mp4", nil)

	resp := test.Code(t, tEcho, req, http.StatusOK)

	assert.Equal(t, "mp4 data", resp.Body.String())
	assert.Equal(t, "video/mp4", resp.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "attachment; filename=v.mp4", resp.Header().Get(echo.HeaderContentDisposition))
}

func TestDownload_Fail(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/download/none.mp4", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
	req = httptest.NewRequest(http.MethodGet, "/download/..", nil)
	test.Code(t, tEcho, req, http.StatusBadRequest)
}

func TestValidate(t *testing.T) {
	assert.NotNil(t, validate(&Data{UploadDir: "u", OutDir: "o"}))
	assert.NotNil(t, validate(&Data{Maker: &mockMaker{}, OutDir: "o"}))
	assert.NotNil(t, validate(&Data{Maker: &mockMaker{}, UploadDir: "u"}))
	assert.Nil(t, validate(&Data{Maker: &mockMaker{}, UploadDir: "u", OutDir: "o"}))
}
