package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/airenas/clipper/internal/pkg/persistence"
	"github.com/airenas/clipper/internal/pkg/statusservice"
	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/airenas/clipper/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Generator runs audio jobs
type Generator interface {
	Submit(ctx context.Context, inputText, voiceType string) (*Result, error)
	GetStatus(ctx context.Context, id int) (table.Row, bool, error)
	GetPending(ctx context.Context) ([]table.Row, error)
}

// WSConnHandler keeps websocket subscribers
type WSConnHandler interface {
	HandleConnection(statusservice.WsConn) error
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Generator Generator
	WSHandler WSConnHandler
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP audio service")
	if err := validate(data); err != nil {
		return err
	}

	e := initRoutes(data)

	e.Server.Addr = ":" + strconv.Itoa(data.Port)
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 30 * time.Second
	// script and speech are generated within the request
	e.Server.WriteTimeout = 5 * time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Generator == nil {
		return fmt.Errorf("no generator")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no WSHandler")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("clipper_audio", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/generate/audio", generate(data))
	e.GET("/status/:id", statusHandler(data))
	e.GET("/download/:id", download(data))
	e.GET("/pending", pending(data))
	e.GET("/subscribe", subscribeHandler(data))
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
	InputText string `json:"input_text"`
	VoiceType string `json:"voice_type,omitempty"`
}

func generate(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("generate method")()

		var inp input
		if err := c.Bind(&inp); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusBadRequest, "Can't decode input")
		}
		if strings.TrimSpace(inp.InputText) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No input_text")
		}
		// the row is finished even if the client goes away
		res, err := data.Generator.Submit(context.WithoutCancel(c.Request().Context()), inp.InputText, inp.VoiceType)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, res)
	}
}

func statusHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("status method")()

		r, err := loadRow(c, data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, MapRow(r))
	}
}

func pending(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("pending method")()

		rows, err := data.Generator.GetPending(c.Request().Context())
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Service error")
		}
		res := make([]interface{}, 0, len(rows))
		for _, r := range rows {
			res = append(res, MapRow(r))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func download(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("download method")()

		r, err := loadRow(c, data)
		if err != nil {
			return err
		}
		a := persistence.AudioFrom(r)
		if a.AudioPath == "" {
			return echo.NewHTTPError(http.StatusNotFound, "Audio not generated yet")
		}
		return utils.ServeFile(c, a.AudioPath, fmt.Sprintf("generated_audio_%d.mp3", a.ID), "audio/mpeg")
	}
}

func loadRow(c echo.Context, data *Data) (table.Row, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Wrong ID")
	}
	r, found, err := data.Generator.GetStatus(c.Request().Context(), id)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Service error")
	}
	if !found {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Generation not found")
	}
	return r, nil
}

// MapRow prepares a row for output, script is returned as an object when it holds valid json
func MapRow(r table.Row) interface{} {
	res := make(map[string]interface{}, len(r))
	for k, v := range r {
		res[k] = v
	}
	if id := r.ID(); id > 0 {
		res[table.ColID] = id
	}
	if s := r[persistence.ColScript]; s != "" && json.Valid([]byte(s)) {
		res[persistence.ColScript] = json.RawMessage(s)
	}
	return res
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func subscribeHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return err
		}
		defer ws.Close()

		return data.WSHandler.HandleConnection(ws)
	}
}
