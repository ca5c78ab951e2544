package main

import (
	"context"

	"github.com/airenas/clipper/internal/pkg/publish"
	"github.com/airenas/clipper/internal/pkg/utils"
	"github.com/airenas/clipper/internal/pkg/youtube"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &publish.Data{}
	data.Port = utils.DefaultV(cfg.GetInt("port"), 8003)

	ctx := context.Background()
	oCfg, err := youtube.LoadConfig(utils.DefaultV(cfg.GetString("youtube.credentials"), "client_secrets.json"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init oauth config")
	}
	store, err := youtube.NewTokenStore(utils.DefaultV(cfg.GetString("youtube.token"), "token.json"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init token store")
	}
	client, err := youtube.NewHTTPClient(ctx, oCfg, store)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init youtube client")
	}
	data.Publisher, err = youtube.NewUploader(ctx, client)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init uploader")
	}

	go utils.RunPerfEndpoint(cfg.GetInt("debug.port"))

	err = publish.StartWebServer(data)
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
                 __    ___      __  
    ____  __  __/ /_  / (_)____/ /_ 
   / __ \/ / / / __ \/ / / ___/ __ \
  / /_/ / /_/ / /_/ / / (__  ) / / /
 / .___/\__,_/_.___/_/_/____/_/ /_/  v: %s
/_/                                 
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/clipper"))
}
