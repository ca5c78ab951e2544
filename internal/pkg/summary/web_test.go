package summary

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/airenas/clipper/internal/pkg/test"
	"github.com/airenas/clipper/internal/pkg/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockAdder struct{ mock.Mock }

func (m *mockAdder) Add(pdfPath string) error {
	args := m.Called(pdfPath)
	return args.Error(0)
}

var (
	adderMock  *mockAdder
	readerMock *mocks.Processor
	tEcho      *echo.Echo
)

func initTest(t *testing.T) {
	t.Helper()
	adderMock = &mockAdder{}
	readerMock = &mocks.Processor{}
	tEcho = initRoutes(&Data{Queue: adderMock, Reader: readerMock})
}

func TestLive(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, `{"service":"OK"}`, resp.Body.String())
}

func TestProcess(t *testing.T) {
	initTest(t)
	adderMock.On("Add", "docs/a.pdf").Return(nil)
	req := test.NewJSONReq(t, http.MethodPost, "/process", processInput{PDFPath: " docs/a.pdf "})

	resp := test.Code(t, tEcho, req, http.StatusAccepted)

	assert.Equal(t, `{"detail":"PDF processing started successfully."}`, strings.TrimSpace(resp.Body.String()))
	adderMock.AssertNumberOfCalls(t, "Add", 1)
}

func TestProcess_Fail(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		addErr   error
		wantCode int
	}{
		{name: "No path", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "Empty path", body: `{"pdf_path":" "}`, wantCode: http.StatusBadRequest},
		{name: "Wrong json", body: `{"pdf_path":`, wantCode: http.StatusBadRequest},
		{name: "Full", body: `{"pdf_path":"a.pdf"}`, addErr: ErrQueueFull, wantCode: http.StatusServiceUnavailable},
		{name: "Fail", body: `{"pdf_path":"a.pdf"}`, addErr: fmt.Errorf("olia"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			adderMock.On("Add", mock.Anything).Return(tt.addErr)
			req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			test.Code(t, tEcho, req, tt.wantCode)
		})
	}
}

func TestSummary(t *testing.T) {
	initTest(t)
	readerMock.On("GetSummary", mock.Anything, 7).Return(table.Row{"id": "7", "topic": "Budget"}, true, nil)
	req := httptest.NewRequest(http.MethodGet, "/summary/7", nil)

	resp := test.Code(t, tEcho, req, http.StatusOK)

	res := test.Decode[map[string]string](t, resp.Result())
	assert.Equal(t, "Budget", res["topic"])
}

func TestSummary_Fail(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		err      error
		wantCode int
	}{
		{name: "Not int", path: "/summary/a", wantCode: http.StatusBadRequest},
		{name: "Zero", path: "/summary/0", wantCode: http.StatusBadRequest},
		{name: "Not found", path: "/summary/3", wantCode: http.StatusNotFound},
		{name: "Fail", path: "/summary/3", err: fmt.Errorf("olia"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			readerMock.On("GetSummary", mock.Anything, mock.Anything).Return(nil, false, tt.err)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			test.Code(t, tEcho, req, tt.wantCode)
		})
	}
}
