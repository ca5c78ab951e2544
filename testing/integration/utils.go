//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// waitForPort blocks till the service port accepts connections
func waitForPort(ctx context.Context, URL string) {
	u, err := url.Parse(URL)
	if err != nil {
		log.Fatalf("FAIL: can't parse %s", URL)
	}
	addr := net.JoinHostPort(u.Hostname(), u.Port())
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			conn.Close()
			return
		}
		log.Printf("waiting for %s: %v", addr, err)
		select {
		case <-ctx.Done():
			log.Fatalf("FAIL: can't access %s", URL)
		case <-ticker.C:
		}
	}
}

func mustEnv(s string) string {
	res := os.Getenv(s)
	if res == "" {
		log.Fatalf("no env '%s'", s)
	}
	return res
}

func newRequest(t *testing.T, method string, srv, urlSuffix string, body interface{}) *http.Request {
	t.Helper()
	path, err := url.JoinPath(srv, urlSuffix)
	require.Nil(t, err)
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.Nil(t, err)
		req, err = http.NewRequest(method, path, strings.NewReader(string(b)))
		require.Nil(t, err)
		req.Header.Add(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req, err = http.NewRequest(method, path, nil)
		require.Nil(t, err)
	}
	return req
}
