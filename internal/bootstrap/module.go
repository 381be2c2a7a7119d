package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"adcheck/internal/bootstrap/config"
	"adcheck/internal/bootstrap/database"
	"adcheck/internal/bootstrap/logging"
	"adcheck/internal/delivery/httpapi"
	"adcheck/internal/errs"
	cacheinfra "adcheck/internal/infrastructure/cache"
	openaiinfra "adcheck/internal/infrastructure/openai"
	sqliterepo "adcheck/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "adcheck/internal/infrastructure/persistence/sqlite/uow"
	"adcheck/internal/ports"
	"adcheck/internal/usecase/check"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewCheckRepository,
			fx.As(new(ports.CheckRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewDictionaryRepository,
			fx.As(new(ports.DictionaryRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewOrganizationRepository,
			fx.As(new(ports.OrganizationRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideCache),
	fx.Provide(provideEmbedder),
	fx.Provide(provideExtractor),
	fx.Provide(provideCompleter),
	fx.Provide(provideCheckService),
	fx.Provide(provideHTTPServer),
)

// ServeModule adds the HTTP listener on top of Module; commands that only
// need the service skip it.
var ServeModule = fx.Options(
	Module,
	fx.Invoke(startHTTPServer),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideCache(lc fx.Lifecycle, cfg config.Config) ports.Cache {
	store := cacheinfra.NewMemoryCache(cfg.Cache.SweepInterval)
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			store.Close()
			return nil
		},
	})
	return store
}

func aiConfig(cfg config.Config) openaiinfra.Config {
	return openaiinfra.Config{
		APIKey:         cfg.AI.APIKey,
		BaseURL:        cfg.AI.BaseURL,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		ChatModel:      cfg.AI.ChatModel,
		OCRModel:       cfg.AI.OCRModel,
	}
}

func provideEmbedder(cfg config.Config) ports.Embedder {
	return openaiinfra.NewEmbeddingClient(aiConfig(cfg))
}

func provideExtractor(cfg config.Config) ports.TextExtractor {
	return openaiinfra.NewVisionExtractor(aiConfig(cfg))
}

func provideCompleter(cfg config.Config) ports.CompletionService {
	return openaiinfra.NewCompletionClient(aiConfig(cfg))
}

type checkServiceParams struct {
	fx.In

	Lc        fx.Lifecycle
	Cfg       config.Config
	Checks    ports.CheckRepository
	Dict      ports.DictionaryRepository
	Orgs      ports.OrganizationRepository
	UoW       ports.UnitOfWork
	Cache     ports.Cache
	Embedder  ports.Embedder
	Extractor ports.TextExtractor
	Completer ports.CompletionService
}

func provideCheckService(p checkServiceParams) (*check.Service, error) {
	svc, err := check.NewService(check.Deps{
		Checks:    p.Checks,
		Dict:      p.Dict,
		Orgs:      p.Orgs,
		UoW:       p.UoW,
		Cache:     p.Cache,
		Embedder:  p.Embedder,
		Extractor: p.Extractor,
		Completer: p.Completer,
	}, check.Config{
		MaxConcurrent:   p.Cfg.Queue.MaxConcurrent,
		PipelineTimeout: p.Cfg.Pipeline.Timeout,
		MaxRetries:      p.Cfg.Pipeline.MaxRetries,
		RetryBaseDelay:  p.Cfg.Pipeline.RetryBaseDelay,
		TopK:            p.Cfg.Pipeline.TopK,
		EmbeddingTTL:    p.Cfg.Cache.EmbeddingTTL,
		SimilarityTTL:   p.Cfg.Cache.SimilarityTTL,
		QueueStatusTTL:  p.Cfg.Cache.QueueTTL,
	})
	if err != nil {
		return nil, err
	}

	p.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			svc.Close()
			return nil
		},
	})
	return svc, nil
}

func provideHTTPServer(svc *check.Service) *httpapi.Server {
	return httpapi.NewServer(svc)
}

// startHTTPServer binds the listener during fx start so bind failures
// surface as bootstrap errors, then serves in the background until stop.
func startHTTPServer(lc fx.Lifecycle, ctx context.Context, cfg config.Config, srv *httpapi.Server) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.http"))

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return errs.Wrapf(err, "listen on %s", cfg.Server.Addr)
			}
			logging.Info(logCtx, "http server listening", slog.String("addr", cfg.Server.Addr))
			go func() {
				if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logging.Error(logCtx, "http server stopped", slog.Any("err", errs.Loggable(err)))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			return httpSrv.Shutdown(stopCtx)
		},
	})
}
