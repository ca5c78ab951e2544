package utils

import (
	"errors"
	"net/http"
	"os"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/echo/v4"
)

// ServeFile sends a local file as an attachment, missing file maps to 404
func ServeFile(c echo.Context, path, name, contentType string) error {
	goapp.Log.Info().Str("file", path).Msg("loading")
	file, err := os.Open(path)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		if errors.Is(err, os.ErrNotExist) {
			return echo.NewHTTPError(http.StatusNotFound, "File not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file")
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file stat")
	}
	if stat.IsDir() {
		return echo.NewHTTPError(http.StatusNotFound, "File not found")
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, contentType)
	w.Header().Set(echo.HeaderContentDisposition, "attachment; filename="+name)
	http.ServeContent(w, c.Request(), name, stat.ModTime(), file)
	return nil
}
