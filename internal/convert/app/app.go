package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/prometheus/client_golang/prometheus"

	httpHandler "github.com/fileconv/fileconv/internal/convert/adapter/inbound/http"
	"github.com/fileconv/fileconv/internal/convert/adapter/outbound/archive"
	"github.com/fileconv/fileconv/internal/convert/adapter/outbound/docconv"
	"github.com/fileconv/fileconv/internal/convert/adapter/outbound/imageconv"
	"github.com/fileconv/fileconv/internal/convert/adapter/outbound/mediaconv"
	"github.com/fileconv/fileconv/internal/convert/adapter/outbound/probe"
	"github.com/fileconv/fileconv/internal/convert/adapter/outbound/sheetconv"
	"github.com/fileconv/fileconv/internal/convert/config"
	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
	"github.com/fileconv/fileconv/internal/convert/service"
)

type App struct {
	cfg     *config.Config
	server  *httpHandler.Server
	service *service.ConversionServiceImpl
}

func New(configPath string) (*App, error) {
	// 1. Load Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	logger.InitLogger(&cfg.Logger)

	// 3. Outbound adapters
	images := imageconv.New()
	archives := archive.New(archive.Limits{
		MaxTotalBytes: cfg.Limits.MaxArchiveBytes,
		MaxEntries:    cfg.Limits.MaxArchiveEntries,
	})

	converters := map[domain.FileKind]port.Converter{
		domain.KindImage:       images,
		domain.KindDocument:    docconv.New(images),
		domain.KindSpreadsheet: sheetconv.New(),
		domain.KindAudio:       mediaconv.NewAudio(),
		domain.KindVideo:       mediaconv.NewVideo(),
		domain.KindArchive:     archive.NewConverter(archives, cfg.App.TempDir),
	}

	// 4. Conversion service
	svc, err := service.NewConversionService(cfg, service.Deps{
		Converters: converters,
		Compressor: images,
		Extractor:  archives,
		Prober:     probe.New(),
		Metrics:    service.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build conversion service: %w", err)
	}

	// 5. HTTP Server
	httpServer := httpHandler.NewServer(cfg, svc)

	return &App{
		cfg:     cfg,
		server:  httpServer,
		service: svc,
	}, nil
}

func (a *App) Run() error {
	if err := a.service.StartRetentionSweep(); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	logger.Infow("Conversion server starting", "addr", a.cfg.Server.Addr)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		logger.Infow("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrCh:
		runErr = fmt.Errorf("http server failed: %w", err)
		logger.Errorw("Conversion server exited unexpectedly", "error", err.Error())
	}

	logger.Info("Shutting down conversion services")
	if err := a.server.Stop(context.Background()); err != nil {
		logger.Errorw("Server shutdown error", "error", err.Error())
		if runErr == nil {
			runErr = err
		}
	}
	a.service.Shutdown()

	return runErr
}
