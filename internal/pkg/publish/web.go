package publish

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/airenas/clipper/internal/pkg/utils"
	"github.com/airenas/clipper/internal/pkg/youtube"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Publisher uploads a video to the hosting platform
type Publisher interface {
	Upload(ctx context.Context, video *youtube.Video) (string, error)
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Publisher Publisher
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP publish service")
	if err := validate(data); err != nil {
		return err
	}

	e := initRoutes(data)

	e.Server.Addr = ":" + strconv.Itoa(data.Port)
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 30 * time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Publisher == nil {
		return fmt.Errorf("no publisher")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("clipper_publish", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/upload", upload(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

type input struct {
	FilePath      string   `json:"file_path"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	PrivacyStatus string   `json:"privacy_status"`
	Tags          []string `json:"tags"`
	CategoryID    string   `json:"category_id"`
	Language      string   `json:"language"`
}

type result struct {
	VideoID       string `json:"video_id"`
	VideoURL      string `json:"video_url"`
	PrivacyStatus string `json:"privacy_status"`
	Title         string `json:"title"`
}

func upload(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("upload method")()

		inp := input{PrivacyStatus: youtube.PrivacyPublic, CategoryID: youtube.DefaultCategory,
			Language: youtube.DefaultLanguage}
		if err := c.Bind(&inp); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusBadRequest, "Can't decode input")
		}
		if strings.TrimSpace(inp.FilePath) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No file_path")
		}
		if strings.TrimSpace(inp.Title) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No title")
		}
		if !utils.FileExists(inp.FilePath) {
			return echo.NewHTTPError(http.StatusNotFound, "Video file not found at path: "+inp.FilePath)
		}
		if !youtube.ValidPrivacy(inp.PrivacyStatus) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid privacy status. Must be one of: "+
				strings.Join([]string{youtube.PrivacyPublic, youtube.PrivacyUnlisted, youtube.PrivacyPrivate}, ", "))
		}
		id, err := data.Publisher.Upload(c.Request().Context(), &youtube.Video{Path: inp.FilePath, Title: inp.Title,
			Description: inp.Description, PrivacyStatus: inp.PrivacyStatus, Tags: inp.Tags,
			CategoryID: inp.CategoryID, Language: inp.Language})
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, result{VideoID: id, VideoURL: youtube.URL(id),
			PrivacyStatus: inp.PrivacyStatus, Title: inp.Title})
	}
}
