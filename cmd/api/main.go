package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Prospectos-api/internal/application/access"
	"github.com/jhoicas/Prospectos-api/internal/application/auth"
	"github.com/jhoicas/Prospectos-api/internal/application/intake"
	"github.com/jhoicas/Prospectos-api/internal/application/lifecycle"
	"github.com/jhoicas/Prospectos-api/internal/application/session"
	"github.com/jhoicas/Prospectos-api/internal/domain/identity"
	domlifecycle "github.com/jhoicas/Prospectos-api/internal/domain/lifecycle"
	"github.com/jhoicas/Prospectos-api/internal/infrastructure/metrics"
	"github.com/jhoicas/Prospectos-api/internal/infrastructure/notify"
	"github.com/jhoicas/Prospectos-api/internal/infrastructure/rediscache"
	httpRouter "github.com/jhoicas/Prospectos-api/internal/interfaces/http"
	"github.com/jhoicas/Prospectos-api/pkg/config"
	"github.com/jhoicas/Prospectos-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	zl := log.Zerolog()
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer st.close()

	checks := st.checks

	// Señal de privilegio: Redis si está configurado (compartida entre réplicas), si no en memoria.
	var privileges access.PrivilegeCache = access.NewMemoryPrivilegeCache(cfg.Access.CacheSize, cfg.Access.PrivilegeTTL)
	if cfg.Redis.URL != "" {
		client, err := rediscache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		privileges = rediscache.NewPrivilegeCache(client, cfg.Access.PrivilegeTTL)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMetrics := metrics.New(registry)

	inbox := notify.NewInbox(0, 0, time.Hour)
	notifier := notify.Fanout{notify.NewLogNotifier(zl), inbox}

	sessions := session.NewProvider()
	resolver := access.NewPermissionResolver(st.permissions, access.ResolverConfig{
		Timeout:   cfg.Access.PermissionTimeout,
		CacheSize: cfg.Access.CacheSize,
		CacheTTL:  cfg.Access.CacheTTL,
	}, zl)
	guards := access.NewGuardRegistry(access.GuardDeps{
		Session:    sessions,
		Resolver:   resolver,
		Roles:      st.roles,
		Privileges: privileges,
		Notifier:   notifier,
		Metrics:    promMetrics,
		Log:        zl,
	}, access.GuardConfig{MaxRetries: cfg.Access.MaxRetries})

	authUC := auth.NewAuthUseCase(auth.Deps{
		Users:       st.users,
		Permissions: st.permissions,
		Cache:       resolver,
		Sessions:    sessions,
		Log:         zl,
	}, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	lifecycleUC := lifecycle.NewLeadLifecycleUseCase(lifecycle.Deps{
		Tx:          st.lifecycleTx,
		Leads:       st.leads,
		Validations: st.validations,
		History:     st.audit,
		Audit:       notify.NewRepositoryAuditSink(st.audit),
		Notifier:    notifier,
		Metrics:     promMetrics,
		Log:         zl,
	}, lifecycle.Config{
		Policy:         domlifecycle.Policy{QualifiedIsTerminal: cfg.Lifecycle.QualifiedTerminal},
		LifetimePrefix: cfg.Lifecycle.LifetimePrefix,
	})

	matcher := identity.NewMatcher(slices.Concat(identity.DefaultPlaceholderEmails, cfg.Lifecycle.PlaceholderEmails)...)
	intakeUC := intake.NewIntakeUseCase(intake.Deps{
		Tx:      st.intakeTx,
		Matcher: matcher,
		Log:     zl,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.MetricsMiddleware(promMetrics))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Prospectos API",
	}))

	app.Get("/health", httpRouter.NewHealthHandler(cfg.App.Name, checks).Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:    authUC,
		Lifecycle: lifecycleUC,
		Intake:    intakeUC,
		Guards:    guards,
		Resolver:  resolver,
		Roles:     st.roles,
		Inbox:     inbox,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
