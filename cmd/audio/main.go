package main

import (
	"time"

	"github.com/airenas/clipper/internal/pkg/audio"
	"github.com/airenas/clipper/internal/pkg/llm"
	"github.com/airenas/clipper/internal/pkg/persistence"
	"github.com/airenas/clipper/internal/pkg/statusservice"
	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/airenas/clipper/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &audio.Data{}
	data.Port = utils.DefaultV(cfg.GetInt("port"), 8000)

	tbl, err := table.Open(utils.DefaultV(cfg.GetString("audio.csv"), "data/audio_generations.csv"), persistence.AudioHeaders)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init table")
	}
	client, err := llm.NewClient(llm.Options{Key: cfg.GetString("openai.key"), URL: cfg.GetString("openai.url"),
		Model: utils.DefaultV(cfg.GetString("openai.scriptModel"), "gpt-4"), SpeechModel: utils.DefaultV(cfg.GetString("openai.speechModel"), "tts-1"),
		Timeout: utils.DefaultV(cfg.GetDuration("openai.timeout"), 2*time.Minute)})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init llm client")
	}
	srv, err := audio.NewService(tbl, client, client, utils.DefaultV(cfg.GetString("audio.outputDir"), "generated_audio"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init audio service")
	}
	wsh := statusservice.NewWSConnKeeper()
	notifier, err := statusservice.NewNotifier(tbl, wsh, audio.MapRow)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init notifier")
	}
	wsh.OnSubscribe(func(c statusservice.WsConn, id int) {
		if err := notifier.SendCurrent(c, id); err != nil {
			goapp.Log.Error().Err(err).Msg("can't send current status")
		}
	})
	data.Generator = srv.WithNotifier(notifier)
	data.WSHandler = wsh

	go utils.RunPerfEndpoint(cfg.GetInt("debug.port"))

	err = audio.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
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
                      ___     
  ____ ___  ______/ (_)___ 
 / __ ` + "`" + `/ / / / __  / / __ \
/ /_/ / /_/ / /_/ / / /_/ /
\__,_/\__,_/\__,_/_/\____/  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/clipper"))
}
