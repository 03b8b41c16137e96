// cmd/orrery/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/opd-ai/go-orrery/pkg/assets"
	"github.com/opd-ai/go-orrery/pkg/catalog"
	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/health"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/render"
	engorender "github.com/opd-ai/go-orrery/pkg/render/engo"
	"github.com/opd-ai/go-orrery/pkg/resource"
)

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())

	configPath := flag.String("config", "config.json", "Path to configuration file")
	catalogPath := flag.String("catalog", "", "Path to a body catalog (.json, .yaml or .toml)")
	rendererName := flag.String("renderer", "", "Renderer: engo, terminal or null")
	width := flag.Int("width", 0, "Window width")
	height := flag.Int("height", 0, "Window height")
	fullscreen := flag.Bool("fullscreen", false, "Run fullscreen")
	fps := flag.Float64("fps", 0, "Target frames per second (0 runs unpaced)")
	maxFrames := flag.Uint64("frames", 0, "Stop after this many frames (0 runs until closed)")
	logPath := flag.String("log", "", "Log file used while the terminal renderer runs (default $ORRERY_LOG_FILE, else discarded)")
	createDefault := flag.Bool("default", false, "Create default configuration and catalog files")
	flag.Parse()

	// Create default files if requested
	if *createDefault {
		if err := writeDefaults(*configPath, *catalogPath); err != nil {
			logger.Error(ctx, "Failed to create default files", err,
				"config_path", *configPath,
				"catalog_path", *catalogPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default files",
			"config_path", *configPath,
			"catalog_path", *catalogPath,
		)
		return
	}

	if err := config.LoadDotEnv(); err != nil {
		logger.Error(ctx, "Failed to load .env file", err)
		os.Exit(1)
	}
	if *logPath == "" {
		*logPath = os.Getenv(logging.FileEnvVar)
	}

	// Load configuration
	var sceneConfig *config.SceneConfig

	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", *configPath,
		)
		sceneConfig = config.DefaultConfig()
	} else {
		sceneConfig, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
	}

	// Apply environment variable overrides
	if err := config.ApplyEnvironmentOverrides(sceneConfig); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}

	envConfig, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Failed to load environment configuration", err)
		os.Exit(1)
	}

	// Command line flags win over file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "catalog":
			sceneConfig.CatalogPath = *catalogPath
		case "renderer":
			sceneConfig.Renderer = *rendererName
		case "width":
			sceneConfig.Window.Width = *width
		case "height":
			sceneConfig.Window.Height = *height
		case "fullscreen":
			sceneConfig.Window.Fullscreen = *fullscreen
		case "fps":
			sceneConfig.Loop.TargetFPS = *fps
		case "frames":
			sceneConfig.Loop.MaxFrames = *maxFrames
		}
	})
	if err := sceneConfig.Validate(); err != nil {
		logger.Error(ctx, "Invalid configuration", err)
		os.Exit(1)
	}

	// The terminal renderer owns the TTY, so its run logs go elsewhere
	consoleLogger := logger
	if sceneConfig.Renderer == config.RendererTerminal {
		var closeLog func() error
		logger, closeLog, err = screenSafeLogger(*logPath)
		if err != nil {
			consoleLogger.Error(ctx, "Failed to open log file", err, "log_path", *logPath)
			os.Exit(1)
		}
		defer closeLog()
	}

	cat, err := loadCatalog(sceneConfig.CatalogPath)
	if err != nil {
		consoleLogger.Error(ctx, "Failed to load catalog", err,
			"catalog_path", sceneConfig.CatalogPath,
		)
		os.Exit(1)
	}

	resourceManager := resource.NewResourceManager(envConfig, logger)
	if err := resourceManager.Start(); err != nil {
		consoleLogger.Error(ctx, "Failed to start resource manager", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), envConfig.ShutdownTimeout)
		defer cancel()
		if err := resourceManager.Shutdown(shutdownCtx); err != nil {
			consoleLogger.Error(ctx, "Resource manager shutdown failed", err)
		}
	}()

	bus := event.NewEventBus()
	bus.Subscribe(event.TextureFailed, func(e event.Event) {
		if te, ok := e.(*event.TextureEvent); ok {
			logger.Warn(ctx, "texture unavailable, using base color", "path", te.Path)
		}
	})

	loader := assets.NewLoader(
		os.DirFS(sceneConfig.Assets.TextureDir),
		assets.NewConfig(sceneConfig.Assets, envConfig),
		resourceManager, bus, logger,
	)

	orrery, err := engine.NewOrrery(ctx, sceneConfig, cat, nil, engine.Options{
		Logger: logger,
		Bus:    bus,
		Loader: loader,
	})
	if err != nil {
		consoleLogger.Error(ctx, "Failed to create orrery", err)
		os.Exit(1)
	}

	// Setup health checks, reported when the loop stops
	healthChecker := health.NewHealthChecker()
	healthChecker.AddCheck(health.NewLoopHealthCheck(orrery.World.Frames))
	healthChecker.AddCheck(health.NewAssetHealthCheck(loader.BreakerState))
	healthChecker.AddCheck(health.NewMemoryHealthCheck(envConfig.MaxMemoryMB, resourceManager.GetMemoryUsage))
	bus.Subscribe(event.LoopStopped, func(e event.Event) {
		healthChecker.Report(ctx, logger)
	})

	logger.Info(ctx, "Starting orrery",
		"renderer", sceneConfig.Renderer,
		"planets", len(cat.Planets),
		"bodies", cat.BodyCount(),
		"target_fps", sceneConfig.Loop.TargetFPS,
		"max_frames", sceneConfig.Loop.MaxFrames,
	)

	frames, err := run(ctx, sceneConfig, orrery, bus, logger)
	if err != nil {
		consoleLogger.Error(ctx, "Orrery stopped with error", err, "frames", frames)
		os.Exit(1)
	}
	consoleLogger.Info(ctx, "Orrery stopped", "frames", frames)
}

func run(ctx context.Context, cfg *config.SceneConfig, o *engine.Orrery, bus *event.Bus, logger *logging.Logger) (uint64, error) {
	if cfg.Renderer == config.RendererEngo {
		engorender.Run(cfg.Window, engorender.NewOrreryScene(ctx, o, logger))
		bus.Publish(event.NewLoopEvent(event.LoopStopped, o, o.World.Frames(), engine.ReasonStopped))
		return o.World.Frames(), nil
	}

	switch cfg.Renderer {
	case config.RendererTerminal:
		screen, err := render.NewTerminalScreen()
		if err != nil {
			return 0, err
		}
		terminal, err := render.NewTerminalRenderer(screen, logger)
		if err != nil {
			return 0, err
		}
		terminal.SetControls(o.Controls)
		terminal.OnResize(o.OnResize)
		o.Renderer = terminal
	default:
		o.Renderer = render.NewNullRenderer(logger)
	}

	// Graceful shutdown on interrupt
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	frames, err := o.Run(runCtx, engine.NewLoop(cfg.Loop.TargetFPS, bus, logger))
	if errors.Is(err, context.Canceled) {
		return frames, nil
	}
	return frames, err
}

// screenSafeLogger returns the logger used while the terminal renderer draws:
// one appending to path, or one that discards everything when path is empty.
func screenSafeLogger(path string) (*logging.Logger, func() error, error) {
	if path == "" {
		return logging.Discard(), func() error { return nil }, nil
	}
	return logging.NewFileLogger(path)
}

func loadCatalog(path string) (catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return catalog.Catalog{}, logging.WrapError(err, "catalog %s", path)
	}
	return cat, nil
}

func writeDefaults(configPath, catalogPath string) error {
	cfg := config.DefaultConfig()
	if catalogPath != "" {
		if err := catalog.Save(catalog.Default(), catalogPath); err != nil {
			return err
		}
		cfg.CatalogPath = catalogPath
	}
	return config.SaveConfig(cfg, configPath)
}
