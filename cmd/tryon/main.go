// Command tryon runs one try-on against the configured ComfyUI engine and saves the
// result image.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/raushankrgupta/fitly-comfy-tryon/comfy"
	"github.com/raushankrgupta/fitly-comfy-tryon/config"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
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
	modelPath := flag.String("model", "", "model (person) image file")
	garmentPath := flag.String("garment", "", "garment image file")
	garmentURL := flag.String("garment-url", "", "product page to import the garment picture from")
	imageIndex := flag.Int("image-index", 0, "which product picture to import")
	category := flag.String("category", "upper", "garment category: upper, lower or dress")
	outDir := flag.String("out", "results", "directory the result image is written to")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall deadline for the job")
	flag.Parse()

	config.LoadConfig()
	logger, err := utils.NewLogger(config.Env, config.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	path, err := run(ctx, logger, options{
		model:      *modelPath,
		garment:    *garmentPath,
		garmentURL: *garmentURL,
		imageIndex: *imageIndex,
		category:   *category,
		outDir:     *outDir,
	})
	if err != nil {
		logger.Fatal("Try-on failed", zap.Error(err))
	}
	fmt.Println(path)
}

type options struct {
	model, garment, garmentURL string
	imageIndex                 int
	category, outDir           string
}

func run(ctx context.Context, logger *zap.Logger, opts options) (string, error) {
	c, err := models.ParseCategory(opts.category)
	if err != nil || !c.IsGarment() {
		return "", fmt.Errorf("invalid garment category %q", opts.category)
	}
	if opts.model == "" || (opts.garment == "") == (opts.garmentURL == "") {
		return "", fmt.Errorf("need -model and exactly one of -garment or -garment-url")
	}

	modelFile, err := readImage(opts.model)
	if err != nil {
		return "", err
	}
	var garmentFile *models.ImageFile
	if opts.garmentURL != "" {
		garmentFile, _, err = scrapers.NewImporter(logger, config.HeadlessImport).Import(ctx, opts.garmentURL, opts.imageIndex)
	} else {
		garmentFile, err = readImage(opts.garment)
	}
	if err != nil {
		return "", err
	}

	reg := registry.New()
	if err := attachAndSelect(reg, models.CategoryModel, modelFile); err != nil {
		return "", err
	}
	if err := attachAndSelect(reg, c, garmentFile); err != nil {
		return "", err
	}

	template := workflow.DefaultTemplate
	if config.WorkflowTemplate != "" {
		template = func() (workflow.Graph, error) { return workflow.LoadTemplate(config.WorkflowTemplate) }
	}
	tmpl, err := template()
	if err != nil {
		return "", err
	}

	settings := config.TryOnSettings()
	client := comfy.NewClient(settings.BaseURL, settings.RequestTimeout, logger)
	service := tryon.NewService(
		reg,
		results.NewStore(),
		tryon.NewSubmitter(client, tmpl, utils.ImageNormalizer(settings.UploadMaxDimension), logger),
		poller.New(client, settings, logger),
		logger,
	)

	entry, err := service.Run(ctx, "")
	if err != nil {
		return "", err
	}
	downloader := results.NewDownloader(&http.Client{Timeout: settings.RequestTimeout}, logger)
	return downloader.SaveToDir(ctx, entry, opts.outDir)
}

func readImage(path string) (*models.ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := utils.NewImageFile(path, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// attachAndSelect fills the blank entry every category starts with.
func attachAndSelect(reg *registry.Registry, c models.Category, f *models.ImageFile) error {
	list, err := reg.List(c)
	if err != nil {
		return err
	}
	if _, err := reg.AttachFile(c, list[0].ID, f); err != nil {
		return err
	}
	_, err = reg.Select(c, list[0].ID)
	return err
}
