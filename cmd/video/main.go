package main

import (
	"context"
	"time"

	aclean "github.com/airenas/async-api/pkg/clean"
	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/airenas/clipper/internal/pkg/clean"
	"github.com/airenas/clipper/internal/pkg/fal"
	"github.com/airenas/clipper/internal/pkg/filer"
	"github.com/airenas/clipper/internal/pkg/media"
	"github.com/airenas/clipper/internal/pkg/utils"
	"github.com/airenas/clipper/internal/pkg/video"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &video.Data{}
	data.Port = utils.DefaultV(cfg.GetInt("port"), 8002)
	data.UploadDir = utils.DefaultV(cfg.GetString("video.uploadDir"), "uploads")
	data.OutDir = utils.DefaultV(cfg.GetString("video.outputDir"), "generated_videos")

	fl, err := filer.NewFiler(filer.Options{URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), Bucket: cfg.GetString("filer.bucket"),
		Expire: utils.DefaultV(cfg.GetDuration("filer.expire"), time.Hour),
		Keep:   utils.DefaultV(cfg.GetDuration("clean.expire"), 24*time.Hour)})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}
	ctx, cf := context.WithTimeout(context.Background(), 30*time.Second)
	err = fl.EnsureBucket(ctx)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init bucket")
	}
	bucketCleaner, err := miniofs.NewFiler(ctx, miniofs.Options{URL: fl.Endpoint(), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), Bucket: cfg.GetString("filer.bucket")})
	cf()
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init bucket cleaner")
	}
	falClient, err := fal.NewClient(utils.DefaultV(cfg.GetString("fal.url"), "https://queue.fal.run"), cfg.GetString("fal.key"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init fal client")
	}
	ffmpeg := media.NewFFmpeg(cfg.GetString("ffmpeg.path"))
	if err := ffmpeg.Check(); err != nil {
		goapp.Log.Warn().Err(err).Msg("ffmpeg not available, mash will fail")
	}
	data.Maker, err = video.NewService(fl, falClient, ffmpeg,
		utils.DefaultV(cfg.GetString("audio.outputDir"), "generated_audio"), data.OutDir)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init video service")
	}

	go utils.RunPerfEndpoint(cfg.GetInt("debug.port"))

	uploadIDs, err := clean.NewDirIDs(data.UploadDir, utils.DefaultV(cfg.GetDuration("clean.expire"), 24*time.Hour))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init upload IDs provider")
	}
	uploadCleaner, err := clean.NewUploadCleaner(data.UploadDir)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init upload cleaner")
	}

	ctxTimer, cancelFunc := context.WithCancel(context.Background())
	doneCh, err := aclean.StartCleanTimer(ctxTimer, &aclean.TimerData{
		RunEvery:    utils.DefaultV(cfg.GetDuration("clean.runEvery"), time.Hour),
		IDsProvider: clean.Providers{uploadIDs, fl},
		Cleaner:     &aclean.CleanerGroup{Jobs: []aclean.Cleaner{uploadCleaner, bucketCleaner}}})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start clean timer")
	}

	err = video.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
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
        _     __          
 _   __(_)___/ /__  ____ 
| | / / / __  / _ \/ __ \
| |/ / / /_/ /  __/ /_/ /
|___/_/\__,_/\___/\____/  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/clipper"))
}
