package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"tuberag/internal/adapters/apify"
	"tuberag/internal/adapters/gemini"
	"tuberag/internal/adapters/localstorage"
	"tuberag/internal/chat"
	"tuberag/internal/cli"
	"tuberag/internal/core/domain"
	"tuberag/internal/service"
)

const (
	envApifyToken = "APIFY_API_TOKEN"
	envGeminiKey  = "GEMINI_API_KEY"
)

func main() {
	// Load .env if present; variables may also be set directly.
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	dataDir := flag.String("data-dir", "data/transcripts", "Directory for transcript files and the metadata manifest")
	concurrency := flag.Int("concurrency", service.DefaultConcurrency, "Maximum concurrent source fetches")
	flag.Parse()

	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: "15:04:05",
		}),
	)

	printBanner()
	checkEnvironment()

	scraper, err := apify.NewClient(os.Getenv(envApifyToken), logger)
	if err != nil {
		logger.Error("failed to initialize scraper", "error", err)
		os.Exit(1)
	}
	contextStore, err := gemini.NewClient(os.Getenv(envGeminiKey), logger)
	if err != nil {
		logger.Error("failed to initialize context store", "error", err)
		os.Exit(1)
	}
	storage, err := localstorage.NewTranscriptStorage(*dataDir)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	batch := service.NewBatchScraper(scraper, scraper, *concurrency, logger)
	materializer := service.NewMaterializer(storage, logger)
	uploader := service.NewUploader(contextStore, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, cancelling...")
		cancel()
	}()

	if err := run(ctx, batch, materializer, uploader, contextStore, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nProcess interrupted by user.")
			os.Exit(0)
		}
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	batch *service.BatchScraper,
	materializer *service.Materializer,
	uploader *service.Uploader,
	gen *gemini.Client,
	logger *slog.Logger,
) error {
	prompter := cli.NewPrompter(os.Stdin, os.Stdout)

	urls, err := collectURLs(prompter)
	if err != nil {
		return err
	}
	maxVideos, err := prompter.MaxVideos()
	if err != nil {
		return err
	}
	useTasks, err := prompter.UseTasks()
	if err != nil {
		return err
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Printf("Starting batch processing: %d URL(s), up to %d videos each, tasks: %v\n",
		len(urls), maxVideos, useTasks)
	fmt.Println(strings.Repeat("=", 70))

	fmt.Println("\nSTEP 1: Scraping YouTube URLs")
	videos, err := batch.FetchAll(ctx, urls, maxVideos, useTasks)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		return fmt.Errorf("%w: please check the URLs and try again", domain.ErrNoVideos)
	}

	fmt.Println("\nSTEP 2: Creating Transcript Files")
	transcriptFiles := materializer.Materialize(ctx, videos)
	if len(transcriptFiles) == 0 {
		return fmt.Errorf("%w: the videos may not have subtitles", domain.ErrNoTranscripts)
	}
	if err := materializer.SaveManifest(ctx, videos); err != nil {
		return err
	}

	fmt.Println("\nSTEP 3: Uploading Files to Gemini")
	uploaded := uploader.UploadAll(ctx, transcriptFiles)
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("upload complete", "uploaded", len(uploaded), "of", len(transcriptFiles))

	fmt.Println("\nSTEP 4: Starting Chat")
	session := chat.NewSession(gen, uploaded, os.Stdin, os.Stdout)
	return session.Run(ctx)
}

func collectURLs(prompter *cli.Prompter) ([]string, error) {
	mode, err := prompter.SelectInputMode()
	if err != nil {
		return nil, err
	}
	switch mode {
	case cli.ModeManual:
		return prompter.ManualURLs()
	case cli.ModeFile:
		return prompter.FileURLs()
	default:
		url, err := prompter.SingleURL()
		if err != nil {
			return nil, err
		}
		return []string{url}, nil
	}
}

func printBanner() {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("YouTube Transcript RAG - Chat with Video Transcripts")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("\nPowered by Apify + Google Gemini")
	fmt.Println()
}

// checkEnvironment exits with a diagnostic listing every missing credential.
func checkEnvironment() {
	var missing []string
	for _, name := range []string{envGeminiKey, envApifyToken} {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "Error: missing required environment variables:")
	for _, name := range missing {
		fmt.Fprintf(os.Stderr, "  - %s\n", name)
	}
	fmt.Fprintln(os.Stderr, "\nCreate a .env file with the required variables.")
	os.Exit(1)
}
