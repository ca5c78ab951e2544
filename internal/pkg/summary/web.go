package summary

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

// Adder accepts documents for background processing
type Adder interface {
	Add(pdfPath string) error
}

// Reader loads summaries
type Reader interface {
	GetSummary(ctx context.Context, id int) (table.Row, bool, error)
}

// Data keeps data required for service work
type Data struct {
	Port   int
	Queue  Adder
	Reader Reader
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP summary service")
	if err := validateWeb(data); err != nil {
		return err
	}

	e := initRoutes(data)

	e.Server.Addr = ":" + strconv.Itoa(data.Port)
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 10 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validateWeb(data *Data) error {
	if data.Queue == nil {
		return fmt.Errorf("no queue")
	}
	if data.Reader == nil {
		return fmt.Errorf("no reader")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("clipper_summary", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/process", process(data))
	e.GET("/summary/:id", summaryHandler(data))
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

type processInput struct {
	PDFPath string `json:"pdf_path"`
}

type processResult struct {
	Detail string `json:"detail"`
}

func process(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("process method")()

		var inp processInput
		if err := c.Bind(&inp); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusBadRequest, "Can't decode input")
		}
		p := strings.TrimSpace(inp.PDFPath)
		if p == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No pdf_path")
		}
		if err := data.Queue.Add(p); err != nil {
			goapp.Log.Error().Err(err).Send()
			if errors.Is(err, ErrQueueFull) {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Too many documents in progress")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "Service error")
		}
		return c.JSON(http.StatusAccepted, processResult{Detail: "PDF processing started successfully."})
	}
}

func summaryHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("summary method")()

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "Wrong ID")
		}
		r, found, err := data.Reader.GetSummary(c.Request().Context(), id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Service error")
		}
		if !found {
			return echo.NewHTTPError(http.StatusNotFound, "Summary not found")
		}
		return c.JSON(http.StatusOK, r)
	}
}
