package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/clipper/internal/pkg/document"
	"github.com/airenas/clipper/internal/pkg/llm"
	"github.com/airenas/clipper/internal/pkg/persistence"
	"github.com/airenas/clipper/internal/pkg/summary"
	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/airenas/clipper/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	tbl, err := table.Open(utils.DefaultV(cfg.GetString("summary.csv"), "data/summaries.csv"), persistence.SummaryHeaders)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init table")
	}
	client, err := llm.NewClient(llm.WithGeminiDefaults(llm.Options{Key: cfg.GetString("gemini.key"), URL: cfg.GetString("gemini.url"),
		Model: cfg.GetString("gemini.model"), Timeout: utils.DefaultV(cfg.GetDuration("gemini.timeout"), 2*time.Minute),
		DocumentDate: cfg.GetString("summary.documentDate")}))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init llm client")
	}
	processor, err := summary.NewProcessor(tbl, document.NewExtractor(), client,
		summary.Options{Country: cfg.GetString("summary.country"), FirstPage: cfg.GetInt("summary.firstPage")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init processor")
	}
	queue, err := summary.NewQueue(utils.DefaultV(cfg.GetInt("worker.queueSize"), 100))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init queue")
	}

	printBanner()

	ctx, cancelFunc := context.WithCancel(context.Background())
	doneCh, err := summary.StartWorkerService(ctx, &summary.ServiceData{WorkerCount: utils.DefaultV(cfg.GetInt("worker.count"), 1),
		Queue: queue, Processor: processor, Timeout: utils.DefaultV(cfg.GetDuration("worker.timeout"), time.Hour)})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start worker service")
	}

	go utils.RunPerfEndpoint(cfg.GetInt("debug.port"))

	webErrCh := make(chan error, 1)
	go func() {
		webErrCh <- summary.StartWebServer(&summary.Data{Port: utils.DefaultV(cfg.GetInt("port"), 8001), Queue: queue,
			Reader: processor})
	}()

	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case err := <-webErrCh:
		if err != nil {
			goapp.Log.Error().Err(err).Msg("web server")
		}
		goapp.Log.Info().Msg("Web server exit")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
         ___                 
  _____/ (_)___  ____  ___  _____
 / ___/ / / __ \/ __ \/ _ \/ ___/
/ /__/ / / /_/ / /_/ /  __/ /    
\___/_/_/ .___/ .___/\___/_/     
       /_/   /_/                 
                                                         
   _______  ______ ___  ____ ___  ____ ________  __
  / ___/ / / / __ ` + "`" + `__ \/ __ ` + "`" + `__ \/ __ ` + "`" + `/ ___/ / / /
 (__  ) /_/ / / / / / / / / / / / /_/ / /  / /_/ / 
/____/\__,_/_/ /_/ /_/_/ /_/ /_/\__,_/_/   \__, /  v: %s
                                          /____/   
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/clipper"))
}
