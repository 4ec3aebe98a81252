package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"teachablecam/internal/camera"
	"teachablecam/internal/config"
	"teachablecam/internal/logger"
	"teachablecam/internal/media"
	"teachablecam/internal/repository"
	"teachablecam/internal/repository/sqlite"
	"teachablecam/internal/route"
	"teachablecam/internal/services/ai"
	"teachablecam/internal/services/classifier"
	"teachablecam/internal/services/demo"
	"teachablecam/internal/services/features"
	"teachablecam/internal/services/labels"
	"teachablecam/internal/services/render"
	"teachablecam/internal/services/storage"
	"teachablecam/internal/services/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	hubService    *websocket.HubService
	controller    *labels.Controller
	classifier    *classifier.Adapter
	bufferService *storage.BufferService
	camera        media.Source
	snapshotRepo  repository.SnapshotRepository
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	a := &App{
		config:     cfg,
		logger:     log,
		hubService: websocket.NewHubService(log),
	}
	a.controller = labels.NewController(a.hubService, cfg.ClassNames)

	var opts []classifier.Option
	opts = append(opts, classifier.WithLogger(log))

	if cfg.DatabasePath != "" {
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.db = db
		a.snapshotRepo = sqlite.NewSnapshotRepository(db)
		opts = append(opts, classifier.WithExampleStore(sqlite.NewExampleRepository(db)))
	}

	extractor, err := newExtractor(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.classifier, err = classifier.Load(cfg.NumClasses, cfg.TopK, extractor, opts...)
	if err != nil {
		extractor.Close()
		a.Close()
		return nil, fmt.Errorf("failed to load classifier: %w", err)
	}

	if cfg.SnapshotDirectory != "" {
		a.bufferService = storage.NewBufferService(cfg, log, a.snapshotRepo)
		a.bufferService.SetLabeler(func(class int) string {
			if class < len(cfg.ClassNames) {
				return cfg.ClassNames[class]
			}
			return fmt.Sprintf("class%d", class)
		})
	}

	a.camera = camera.NewSourceFor(cfg.CameraDevice, camera.NewSource(cfg, log))
	return a, nil
}

func newExtractor(cfg *config.Config, log *logger.Logger) (features.Extractor, error) {
	switch cfg.FeatureExtractor {
	case config.ExtractorPixel, "":
		return features.NewPixelExtractor(cfg.FeatureSize), nil
	case config.ExtractorDNN:
		return ai.NewDNNExtractor(cfg, log)
	case config.ExtractorONNX:
		return features.NewONNXExtractor(features.ONNXConfig{
			ModelPath:   cfg.ModelPath,
			LibraryPath: cfg.ONNXLibraryPath,
			InputName:   cfg.ONNXInputName,
			OutputName:  cfg.ONNXOutputName,
			InputSize:   cfg.ONNXInputSize,
			OutputSize:  cfg.ONNXOutputSize,
		})
	default:
		return nil, fmt.Errorf("unknown feature extractor %q", cfg.FeatureExtractor)
	}
}

// loadModel brings persisted examples into the classifier and shows their counts.
func (a *App) loadModel(ctx context.Context) error {
	if a.db == nil || !a.config.RestoreExamples {
		return nil
	}

	n, err := a.classifier.Restore(ctx)
	if err != nil {
		return err
	}
	a.controller.ShowCounts(a.classifier.ExampleCounts())
	a.logger.Info("Restored %d examples", n)
	return nil
}

func (a *App) newLoop(stream media.Stream) demo.Loop {
	opts := []render.Option{
		render.WithInterval(time.Duration(a.config.TickInterval) * time.Millisecond),
		render.WithPreview(a.config.PreviewInterval, a.hubService.PublishFrame),
		render.WithLogger(a.logger),
	}
	if a.bufferService != nil {
		opts = append(opts, render.WithTrainedHook(a.bufferService.AddFrame))
	}
	return render.New(stream, a.classifier, a.controller, a.controller.Training(), opts...)
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	go a.hubService.Run(ctx)
	if a.bufferService != nil {
		go a.bufferService.Run(ctx, time.Duration(a.config.SnapshotFlushInterval)*time.Second)
	}

	go func() {
		err := demo.Run(ctx, demo.Deps{
			NumClasses: a.config.NumClasses,
			Page:       a.controller,
			LoadModel:  a.loadModel,
			Camera:     a.camera,
			NewLoop:    a.newLoop,
			Logger:     a.logger,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("Demo stopped: %v", err)
		}
	}()

	router := route.SetupRoutes(route.Deps{
		Config:       a.config,
		Logger:       a.logger,
		Hub:          a.hubService,
		Controller:   a.controller,
		Classifier:   a.classifier,
		SnapshotRepo: a.snapshotRepo,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	a.logger.Info("Teachable camera on http://localhost:%d (%d classes, extractor %s, camera %s)",
		a.config.Port, a.config.NumClasses, a.config.FeatureExtractor, a.config.CameraDevice)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the classifier and the database.
func (a *App) Close() {
	if a.classifier != nil {
		if err := a.classifier.Close(); err != nil {
			a.logger.Warning("Failed to close classifier: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warning("Failed to close database: %v", err)
		}
	}
}
