package bootstrap

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"cv-tailor-backend/internal/config"
	"cv-tailor-backend/internal/generated"
	"cv-tailor-backend/internal/llm"
	"cv-tailor-backend/internal/llm/gemini"
	"cv-tailor-backend/internal/optimize"
	"cv-tailor-backend/internal/render"
	"cv-tailor-backend/internal/server"
	"cv-tailor-backend/internal/shared/telemetry"
	"cv-tailor-backend/internal/staging"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	Staging         *staging.Store
	Generated       *generated.Store
	Model           llm.Client
	Renderer        *render.Renderer
	OptimizeService *optimize.Service
	OptimizeHandler *optimize.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	model := buildModel(cfg)

	stagingStore := staging.NewStore(cfg.StagingDir, cfg.AcceptedMediaTypes, cfg.MaxUploadBytes)
	generatedStore := generated.NewStore(cfg.GeneratedDir)
	renderer := render.New(render.Options{
		PageSize:     cfg.PageSize,
		MarginInches: cfg.PageMarginInches,
		Timeout:      cfg.RenderTimeout,
	})

	svc := &optimize.Service{
		Staging:      stagingStore,
		Generated:    generatedStore,
		Model:        model,
		Renderer:     renderer,
		ModelTimeout: cfg.ModelTimeout,
	}
	handler := optimize.NewHandler(svc)

	app := &App{
		Config:          cfg,
		Staging:         stagingStore,
		Generated:       generatedStore,
		Model:           model,
		Renderer:        renderer,
		OptimizeService: svc,
		OptimizeHandler: handler,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		OptimizeHandler: handler,
	})
	return app, nil
}

// StartRetentionSweep purges never-redeemed artifacts on an interval until
// ctx is cancelled.
func (a *App) StartRetentionSweep(ctx context.Context) {
	interval := a.Config.RetentionInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	maxAge := a.Config.RetentionMaxAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.Generated.SweepOlderThan(ctx, maxAge)
			}
		}
	}()
}

func buildModel(cfg config.Config) llm.Client {
	client, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ModelTimeout)
	if err != nil {
		telemetry.Warn("bootstrap.model.unconfigured", map[string]any{"err": err.Error()})
		return llm.PlaceholderClient{}
	}
	return client
}
