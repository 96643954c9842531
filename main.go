package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raushankrgupta/fitly-comfy-tryon/api"
	"github.com/raushankrgupta/fitly-comfy-tryon/comfy"
	"github.com/raushankrgupta/fitly-comfy-tryon/config"
	"github.com/raushankrgupta/fitly-comfy-tryon/gallery"
	"github.com/raushankrgupta/fitly-comfy-tryon/poller"
	"github.com/raushankrgupta/fitly-comfy-tryon/registry"
	"github.com/raushankrgupta/fitly-comfy-tryon/results"
	"github.com/raushankrgupta/fitly-comfy-tryon/scrapers"
	"github.com/raushankrgupta/fitly-comfy-tryon/tryon"
	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
	"github.com/raushankrgupta/fitly-comfy-tryon/workflow"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()

	logger, err := utils.NewLogger(config.Env, config.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	template, err := loadTemplate()
	if err != nil {
		logger.Fatal("Failed to load workflow template", zap.Error(err))
	}

	settings := config.TryOnSettings()
	client := comfy.NewClient(settings.BaseURL, settings.RequestTimeout, logger)
	downloader := results.NewDownloader(&http.Client{Timeout: settings.RequestTimeout}, logger)

	handler := &api.Handler{
		Downloader:  downloader,
		Logger:      logger,
		AuthEnabled: config.JWTSecret != "",
	}

	var hooks []tryon.Hook
	if config.MongoURI != "" {
		if err := utils.ConnectMongo(ctx, config.MongoURI); err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer utils.DisconnectMongo(context.Background())

		store, err := gallery.NewMongoStore(config.DBName)
		if err != nil {
			logger.Fatal("Failed to open try-on collection", zap.Error(err))
		}
		var upload gallery.Uploader
		if utils.S3Enabled() {
			upload = utils.UploadFileToS3
		}
		hooks = append(hooks, gallery.NewArchive(store, downloader, upload, logger))
		handler.Gallery = store
		handler.Presign = utils.PresignImageURL
		logger.Info("Try-on archive enabled", zap.String("db", config.DBName), zap.Bool("s3", upload != nil))
	}
	if config.SendGridAPIKey != "" && config.NotifyEmail != "" {
		hooks = append(hooks, &gallery.EmailNotifier{To: config.NotifyEmail, Send: utils.SendEmail})
	}
	if config.ImportEnabled {
		handler.Importer = scrapers.NewImporter(logger, config.HeadlessImport)
	}

	service := tryon.NewService(
		registry.New(),
		results.NewStore(),
		tryon.NewSubmitter(client, template, utils.ImageNormalizer(settings.UploadMaxDimension), logger),
		poller.New(client, settings, logger),
		logger,
		hooks...,
	)
	handler.Service = service

	server := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", config.Port), zap.String("comfyui", settings.BaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Try-on jobs still running at exit", zap.Error(err))
	}
}

func loadTemplate() (workflow.Graph, error) {
	if config.WorkflowTemplate != "" {
		return workflow.LoadTemplate(config.WorkflowTemplate)
	}
	return workflow.DefaultTemplate()
}
