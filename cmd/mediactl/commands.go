package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/airenas/clipper/internal/pkg/audio"
	"github.com/airenas/clipper/internal/pkg/document"
	"github.com/airenas/clipper/internal/pkg/fal"
	"github.com/airenas/clipper/internal/pkg/filer"
	"github.com/airenas/clipper/internal/pkg/llm"
	"github.com/airenas/clipper/internal/pkg/media"
	"github.com/airenas/clipper/internal/pkg/persistence"
	"github.com/airenas/clipper/internal/pkg/summary"
	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/airenas/clipper/internal/pkg/utils"
	"github.com/airenas/clipper/internal/pkg/video"
	"github.com/airenas/clipper/internal/pkg/youtube"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// --- audio ---

var audioCmd = &cobra.Command{
	Use:   "audio",
	Short: "Generate a debate script and speech for the text",
	Long: `Creates an audio job row, generates the script with the LLM and synthesizes the soundbite.

Examples:
  mediactl audio --text "Parliament debates the housing bill"
  mediactl audio --file speech.txt --voice alloy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := inputText(cmd)
		if err != nil {
			return err
		}
		voice, _ := cmd.Flags().GetString("voice")

		ctx, cancel := signalContext()
		defer cancel()

		tbl, err := table.Open(utils.DefaultV(cfg.GetString("audio.csv"), "data/audio_generations.csv"), persistence.AudioHeaders)
		if err != nil {
			return err
		}
		client, err := llm.NewClient(llm.Options{Key: cfg.GetString("openai.key"), URL: cfg.GetString("openai.url"),
			Model: utils.DefaultV(cfg.GetString("openai.scriptModel"), "gpt-4"), SpeechModel: utils.DefaultV(cfg.GetString("openai.speechModel"), "tts-1"),
			Timeout: utils.DefaultV(cfg.GetDuration("openai.timeout"), 2*time.Minute)})
		if err != nil {
			return err
		}
		srv, err := audio.NewService(tbl, client, client, utils.DefaultV(cfg.GetString("audio.outputDir"), "generated_audio"))
		if err != nil {
			return err
		}
		res, err := srv.Submit(ctx, text, voice)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	audioCmd.Flags().String("text", "", "input text")
	audioCmd.Flags().String("file", "", "file with the input text")
	audioCmd.Flags().String("voice", llm.DefaultVoice, "speech voice")
}

func inputText(cmd *cobra.Command) (string, error) {
	text, _ := cmd.Flags().GetString("text")
	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("can't read '%s': %w", file, err)
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("--text or --file is required")
	}
	return text, nil
}

// --- summarize ---

var summarizeCmd = &cobra.Command{
	Use:   "summarize <pdf>",
	Short: "Summarize politicians' perspectives of a transcript PDF",
	Long: `Splits the PDF into page chunks, classifies each chunk with the LLM
and appends the valuable summaries to the summary table.

Examples:
  mediactl summarize hansard_2024_11.pdf
  mediactl summarize --first-page 1 --chunk 3 debate.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := summary.DefaultOptions()
		opts.Country = utils.DefaultV(cfg.GetString("summary.country"), opts.Country)
		opts.FirstPage, _ = cmd.Flags().GetInt("first-page")
		opts.PagesPerChunk, _ = cmd.Flags().GetInt("chunk")

		ctx, cancel := signalContext()
		defer cancel()

		tbl, err := table.Open(utils.DefaultV(cfg.GetString("summary.csv"), "data/summaries.csv"), persistence.SummaryHeaders)
		if err != nil {
			return err
		}
		client, err := llm.NewClient(llm.WithGeminiDefaults(llm.Options{Key: cfg.GetString("gemini.key"), URL: cfg.GetString("gemini.url"),
			Model: cfg.GetString("gemini.model"), Timeout: utils.DefaultV(cfg.GetDuration("gemini.timeout"), 2*time.Minute),
			DocumentDate: cfg.GetString("summary.documentDate")}))
		if err != nil {
			return err
		}
		p, err := summary.NewProcessor(tbl, document.NewExtractor(), client, opts)
		if err != nil {
			return err
		}
		n, err := p.ProcessDocument(ctx, args[0])
		if err != nil {
			return err
		}
		log.Info().Int("rows", n).Str("table", tbl.Path()).Msg("summaries saved")
		return nil
	},
}

func init() {
	def := summary.DefaultOptions()
	summarizeCmd.Flags().Int("first-page", def.FirstPage, "first page to process, leading pages are front matter")
	summarizeCmd.Flags().Int("chunk", def.PagesPerChunk, "pages per LLM request")
}

// --- pdf-text ---

var pdfTextCmd = &cobra.Command{
	Use:   "pdf-text <pdf>",
	Short: "Print the text of PDF pages",
	Long: `Extracts page text the same way summarize does, useful to check what the LLM sees.

Examples:
  mediactl pdf-text debate.pdf --from 15 --to 18
  mediactl pdf-text debate.pdf --output debate.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetInt("from")
		to, _ := cmd.Flags().GetInt("to")
		output, _ := cmd.Flags().GetString("output")

		pages, err := document.NewExtractor().Pages(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("can't create '%s': %w", output, err)
			}
			defer f.Close()
			w = f
		}
		return writePages(w, pages, from, to)
	},
}

func init() {
	pdfTextCmd.Flags().Int("from", 1, "first page")
	pdfTextCmd.Flags().Int("to", 0, "last page, 0 - till the end")
	pdfTextCmd.Flags().String("output", "", "output file (default: stdout)")
}

func writePages(w io.Writer, pages []document.Page, from, to int) error {
	for _, p := range pages {
		if p.Number < from || (to > 0 && p.Number > to) {
			continue
		}
		if _, err := fmt.Fprintf(w, "--- page %d ---\n%s\n", p.Number, p.Text); err != nil {
			return err
		}
	}
	return nil
}

// --- lipsync ---

var lipSyncCmd = &cobra.Command{
	Use:   "lipsync",
	Short: "Sync the lips of a video to the audio",
	Long: `Uploads both files to the artifact store and runs the lip sync app.

Examples:
  mediactl lipsync --video face.mp4 --audio generated_audio/speech_1f_row_3.mp3 --row 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		videoPath, _ := cmd.Flags().GetString("video")
		audioPath, _ := cmd.Flags().GetString("audio")
		row, _ := cmd.Flags().GetInt("row")
		if videoPath == "" || audioPath == "" {
			return errors.New("--video and --audio are required")
		}

		ctx, cancel := signalContext()
		defer cancel()

		srv, err := newVideoService(ctx)
		if err != nil {
			return err
		}
		out, err := srv.LipSync(ctx, videoPath, audioPath, row)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	lipSyncCmd.Flags().String("video", "", "face video file")
	lipSyncCmd.Flags().String("audio", "", "speech file")
	lipSyncCmd.Flags().Int("row", 0, "audio row id to name the result by")
}

// --- generate-video ---

var generateVideoCmd = &cobra.Command{
	Use:   "generate-video",
	Short: "Generate a short vertical video from a prompt",
	Long: `Examples:
  mediactl generate-video --prompt "two owls debating in parliament" --row 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, _ := cmd.Flags().GetString("prompt")
		negative, _ := cmd.Flags().GetString("negative-prompt")
		row, _ := cmd.Flags().GetInt("row")
		if strings.TrimSpace(prompt) == "" {
			return errors.New("--prompt is required")
		}

		ctx, cancel := signalContext()
		defer cancel()

		srv, err := newVideoService(ctx)
		if err != nil {
			return err
		}
		out, err := srv.TextToVideo(ctx, &video.Prompt{Prompt: prompt, NegativePrompt: negative, RowID: row})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	generateVideoCmd.Flags().String("prompt", "", "video prompt")
	generateVideoCmd.Flags().String("negative-prompt", "", "what to avoid")
	generateVideoCmd.Flags().Int("row", 0, "audio row id to name the result by")
}

func newVideoService(ctx context.Context) (*video.Service, error) {
	fl, err := filer.NewFiler(filer.Options{URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), Bucket: cfg.GetString("filer.bucket"),
		Expire: utils.DefaultV(cfg.GetDuration("filer.expire"), time.Hour)})
	if err != nil {
		return nil, err
	}
	if err := fl.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	falClient, err := fal.NewClient(utils.DefaultV(cfg.GetString("fal.url"), "https://queue.fal.run"), cfg.GetString("fal.key"))
	if err != nil {
		return nil, err
	}
	return video.NewService(fl, falClient, newFFmpeg(), utils.DefaultV(cfg.GetString("audio.outputDir"), "generated_audio"),
		utils.DefaultV(cfg.GetString("video.outputDir"), "generated_videos"))
}

func newFFmpeg() *media.FFmpeg {
	return media.NewFFmpeg(cfg.GetString("ffmpeg.path"))
}

// --- convert ---

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Re-encode videos to h264/aac mp4",
	Long: `Converts a single file, or all .mov/.mp4 files of a dir to <output>/input<N>.mp4.

Examples:
  mediactl convert --input raw/ --output converted/
  mediactl convert --input clip.mov --output clip.mp4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _ := cmd.Flags().GetString("input")
		out, _ := cmd.Flags().GetString("output")
		if in == "" || out == "" {
			return errors.New("--input and --output are required")
		}

		ctx, cancel := signalContext()
		defer cancel()

		ff := newFFmpeg()
		if err := ff.Check(); err != nil {
			return err
		}
		st, err := os.Stat(in)
		if err != nil {
			return err
		}
		if !st.IsDir() {
			return ff.Convert(ctx, in, out)
		}
		files, err := ff.ConvertDir(ctx, in, out)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().String("input", "", "input file or dir")
	convertCmd.Flags().String("output", "", "output file or dir")
}

// --- mash ---

var mashCmd = &cobra.Command{
	Use:   "mash",
	Short: "Replace the video audio track with the speech",
	Long: `Joins the generated video and speech of a row, or explicit files.

Examples:
  mediactl mash --row 3
  mediactl mash --video v.mp4 --audio a.mp3 --output out.mp4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		row, _ := cmd.Flags().GetInt("row")
		videoPath, _ := cmd.Flags().GetString("video")
		audioPath, _ := cmd.Flags().GetString("audio")
		out, _ := cmd.Flags().GetString("output")

		videoDir := utils.DefaultV(cfg.GetString("video.outputDir"), "generated_videos")
		if row > 0 {
			var err error
			audioPath, videoPath, err = media.Locate(utils.DefaultV(cfg.GetString("audio.outputDir"), "generated_audio"), videoDir, row)
			if err != nil {
				return err
			}
			out = utils.DefaultV(out, filepath.Join(videoDir, video.CombinedName(row, time.Now())))
		}
		if videoPath == "" || audioPath == "" || out == "" {
			return errors.New("--row or --video, --audio and --output are required")
		}

		ctx, cancel := signalContext()
		defer cancel()

		if err := newFFmpeg().Mash(ctx, videoPath, audioPath, out); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	mashCmd.Flags().Int("row", 0, "audio row id")
	mashCmd.Flags().String("video", "", "video file")
	mashCmd.Flags().String("audio", "", "audio file")
	mashCmd.Flags().String("output", "", "output file")
}

// --- pending ---

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List unfinished audio jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := table.Open(utils.DefaultV(cfg.GetString("audio.csv"), "data/audio_generations.csv"), persistence.AudioHeaders)
		if err != nil {
			return err
		}
		rows, err := tbl.GetPendingRows()
		if err != nil {
			return err
		}
		res := make([]interface{}, 0, len(rows))
		for _, r := range rows {
			res = append(res, audio.MapRow(r))
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

// --- youtube ---

var youtubeCmd = &cobra.Command{
	Use:   "youtube",
	Short: "Publish videos to YouTube",
}

var youtubeAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize the channel and save the token",
	Long: `Opens a loopback listener, prints the consent URL and waits for the redirect.
The token is saved to youtube.token, the publish service refreshes it later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		oc, err := youtube.LoadConfig(utils.DefaultV(cfg.GetString("youtube.credentials"), "client_secrets.json"))
		if err != nil {
			return err
		}
		store, err := youtube.NewTokenStore(utils.DefaultV(cfg.GetString("youtube.token"), "token.json"))
		if err != nil {
			return err
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := signalContext()
		defer cancel()
		ctx, cf := context.WithTimeout(ctx, timeout)
		defer cf()

		return youtube.Authorize(ctx, oc, store, func(url string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Open the link in the browser:\n\n%s\n\n", url)
		})
	},
}

var youtubeUploadCmd = &cobra.Command{
	Use:   "upload <video>",
	Short: "Upload a video",
	Long: `Examples:
  mediactl youtube upload out.mp4 --title "Housing bill debate" --privacy unlisted`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v := &youtube.Video{Path: args[0]}
		v.Title, _ = cmd.Flags().GetString("title")
		v.Description, _ = cmd.Flags().GetString("description")
		v.PrivacyStatus, _ = cmd.Flags().GetString("privacy")
		v.Tags, _ = cmd.Flags().GetStringSlice("tags")
		v.CategoryID, _ = cmd.Flags().GetString("category")
		if strings.TrimSpace(v.Title) == "" {
			return errors.New("--title is required")
		}
		if !youtube.ValidPrivacy(v.PrivacyStatus) {
			return errors.Errorf("wrong privacy '%s'", v.PrivacyStatus)
		}

		ctx, cancel := signalContext()
		defer cancel()

		oc, err := youtube.LoadConfig(utils.DefaultV(cfg.GetString("youtube.credentials"), "client_secrets.json"))
		if err != nil {
			return err
		}
		store, err := youtube.NewTokenStore(utils.DefaultV(cfg.GetString("youtube.token"), "token.json"))
		if err != nil {
			return err
		}
		hc, err := youtube.NewHTTPClient(ctx, oc, store)
		if err != nil {
			if errors.Is(err, youtube.ErrNoToken) {
				return fmt.Errorf("%w: run 'mediactl youtube auth' first", err)
			}
			return err
		}
		up, err := youtube.NewUploader(ctx, hc)
		if err != nil {
			return err
		}
		id, err := up.Upload(ctx, v)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), youtube.URL(id))
		return nil
	},
}

func init() {
	youtubeAuthCmd.Flags().Duration("timeout", 5*time.Minute, "time to wait for the consent")
	youtubeUploadCmd.Flags().String("title", "", "video title")
	youtubeUploadCmd.Flags().String("description", "", "video description")
	youtubeUploadCmd.Flags().String("privacy", youtube.PrivacyPublic, "public, unlisted or private")
	youtubeUploadCmd.Flags().StringSlice("tags", nil, "comma separated tags")
	youtubeUploadCmd.Flags().String("category", youtube.DefaultCategory, "category id")
	youtubeCmd.AddCommand(youtubeAuthCmd)
	youtubeCmd.AddCommand(youtubeUploadCmd)
}

func init() {
	rootCmd.AddCommand(audioCmd, summarizeCmd, pdfTextCmd, lipSyncCmd, generateVideoCmd,
		convertCmd, mashCmd, pendingCmd, youtubeCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
