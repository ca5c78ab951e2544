package video

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/airenas/clipper/internal/pkg/media"
	"github.com/airenas/clipper/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

// form params
const (
	PrmVideo = "video"
	PrmAudio = "audio"
	PrmRowID = "row_id"
)

// Maker produces videos
type Maker interface {
	LipSync(ctx context.Context, videoPath, audioPath string, rowID int) (string, error)
	TextToVideo(ctx context.Context, p *Prompt) (string, error)
	Mash(ctx context.Context, rowID int) (string, error)
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Maker     Maker
	UploadDir string
	OutDir    string
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP video service")
	if err := validate(data); err != nil {
		return err
	}

	e := initRoutes(data)

	e.Server.Addr = ":" + strconv.Itoa(data.Port)
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 30 * time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Maker == nil {
		return errors.New("no video maker")
	}
	if data.UploadDir == "" {
		return errors.New("no upload dir")
	}
	if data.OutDir == "" {
		return errors.New("no output dir")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("clipper_video", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/lip-sync", lipSync(data))
	e.POST("/generate/video", generate(data))
	e.POST("/mash/:id", mash(data))
	e.GET("/download/:file", download(data))
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

type result struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path"`
}

func lipSync(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("lip-sync method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)

		rowID := 0
		if v := strings.TrimSpace(takeFirst(form.Value[PrmRowID], "")); v != "" {
			if rowID, err = strconv.Atoi(v); err != nil || rowID < 1 {
				return echo.NewHTTPError(http.StatusBadRequest, "Wrong row_id")
			}
		}
		vh := takeFirst(form.File[PrmVideo], nil)
		if vh == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "No video file")
		}
		if !utils.IsVideoType(vh.Header.Get(echo.HeaderContentType)) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid video file type")
		}
		ah := takeFirst(form.File[PrmAudio], nil)
		if ah == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "No audio file")
		}
		if !utils.IsAudioType(ah.Header.Get(echo.HeaderContentType)) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid audio file type")
		}

		id := uuid.NewString()
		videoPath, err := saveFile(vh, data.UploadDir, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusBadRequest, "Can't save video file")
		}
		defer os.Remove(videoPath)
		audioPath, err := saveFile(ah, data.UploadDir, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusBadRequest, "Can't save audio file")
		}
		defer os.Remove(audioPath)

		out, err := data.Maker.LipSync(ctx, videoPath, audioPath, rowID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate video")
		}
		return c.JSON(http.StatusOK, result{Message: "Video generated successfully", FilePath: out})
	}
}

type promptInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	RowID          int    `json:"row_id,omitempty"`
}

func generate(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("generate method")()

		var inp promptInput
		if err := c.Bind(&inp); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusBadRequest, "Can't decode input")
		}
		if strings.TrimSpace(inp.Prompt) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No prompt")
		}
		if inp.RowID < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Wrong row_id")
		}
		out, err := data.Maker.TextToVideo(c.Request().Context(), &Prompt{Prompt: inp.Prompt,
			NegativePrompt: inp.NegativePrompt, RowID: inp.RowID})
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate video")
		}
		return c.JSON(http.StatusOK, result{Message: "Video generated successfully", FilePath: out})
	}
}

func mash(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("mash method")()

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "Wrong ID")
		}
		out, err := data.Maker.Mash(c.Request().Context(), id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			if errors.Is(err, media.ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("No audio/video files for row %d", id))
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to mash video")
		}
		return c.JSON(http.StatusOK, result{Message: "Video mashed successfully", FilePath: out})
	}
}

func download(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("download method")()

		name := c.Param("file")
		if name != filepath.Base(name) || name == "." || name == ".." {
			return echo.NewHTTPError(http.StatusBadRequest, "Wrong file name")
		}
		return utils.ServeFile(c, filepath.Join(data.OutDir, name), name, "video/mp4")
	}
}

func saveFile(h *multipart.FileHeader, dir, id string) (string, error) {
	base, err := utils.MakeValidateFileName("", h.Filename)
	if err != nil {
		return "", err
	}
	fn := filepath.Join(dir, id+"_"+base)
	f, err := h.Open()
	if err != nil {
		return "", fmt.Errorf("can't open '%s': %w", h.Filename, err)
	}
	defer f.Close()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("can't create dir: %w", err)
	}
	out, err := os.Create(fn)
	if err != nil {
		return "", fmt.Errorf("can't create '%s': %w", fn, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, f); err != nil {
		return "", fmt.Errorf("can't save '%s': %w", fn, err)
	}
	return fn, nil
}

func takeFirst[K interface{}](a []K, d K) K {
	if len(a) > 0 {
		return a[0]
	}
	return d
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}
