package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mossline/pos-engine/internal/app"
	"github.com/mossline/pos-engine/internal/auth"
	"github.com/mossline/pos-engine/internal/cart"
	"github.com/mossline/pos-engine/internal/catalog"
	"github.com/mossline/pos-engine/internal/checkout"
	"github.com/mossline/pos-engine/internal/common"
	"github.com/mossline/pos-engine/internal/config"
	"github.com/mossline/pos-engine/internal/events"
	"github.com/mossline/pos-engine/internal/health"
	"github.com/mossline/pos-engine/internal/jobs"
	"github.com/mossline/pos-engine/internal/obs"
	"github.com/mossline/pos-engine/internal/order"
	"github.com/mossline/pos-engine/internal/payment"
	"github.com/mossline/pos-engine/internal/pricerule"
	"github.com/mossline/pos-engine/internal/ratelimit"
	"github.com/mossline/pos-engine/internal/receipt"
	"github.com/mossline/pos-engine/internal/resilience"
	"github.com/mossline/pos-engine/internal/security"
	"github.com/mossline/pos-engine/internal/shipping"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pos")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pos-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pos-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	if err := app.RunMigrations("file://"+cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	catalogService := &catalog.Service{
		Source: &catalog.Repo{Pool: pool},
		Cache:  catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	}
	catalogHandler := &catalog.Handler{Service: catalogService, StoreID: cfg.StoreID}

	cartStore := &cart.Store{Client: redisClient, TTL: cfg.CartTTL, TaxBps: cfg.TaxBps}
	cartHandler := &cart.Handler{
		Store:    cartStore,
		Resolver: catalogService,
		Rules:    &pricerule.Repo{Pool: pool},
		StoreID:  cfg.StoreID,
	}

	orderRepo := &order.Repo{Pool: pool}
	shipRepo := &shipping.Repo{Pool: pool}

	bus := &events.Bus{
		Store: orderRepo,
		Notifiers: []events.Notifier{
			jobs.Notifier{Client: asynqClient, StoreID: cfg.StoreID},
		},
	}

	paymentHTTP := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	paymentSvc := &payment.Service{
		Provider: &payment.SandboxProvider{BaseURL: cfg.PaymentProviderURL, APIKey: cfg.PaymentAPIKey, Client: paymentHTTP},
		Breaker: resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailRatio, cfg.BreakerOpenFor).
			WithTarget("payment-provider").
			WithLogger(logger),
	}

	checkoutSvc := &checkout.Service{
		Sessions: &checkout.Store{Client: redisClient, TTL: cfg.SessionTTL},
		Carts:    cartStore,
		Methods:  shipRepo,
		Payments: paymentSvc,
		Orders:   orderRepo,
		Events:   bus,
		Tips:     cfg.Tip(),
		Currency: cfg.Currency,
		Logger:   logger,
	}
	checkoutHandler := &checkout.Handler{
		Svc:          checkoutSvc,
		StoreID:      cfg.StoreID,
		GuestBaseURL: cfg.GuestPayBaseURL,
		Validate:     validator.New(),
	}
	guestHandler := &checkout.GuestHandler{Svc: checkoutSvc, StoreID: cfg.StoreID}

	orderHandler := &order.Handler{Repo: orderRepo, StoreID: cfg.StoreID}
	receiptHandler := &receipt.Handler{
		Receipts:  &receipt.Store{Client: redisClient, TTL: cfg.ReceiptTTL},
		Orders:    orderRepo,
		StoreName: cfg.StoreName,
		StoreID:   cfg.StoreID,
	}
	shipHandler := &shipping.Handler{Methods: shipRepo, StoreID: cfg.StoreID}

	authService, err := auth.NewService(auth.Config{
		Store:           &auth.Repo{Pool: pool},
		StoreID:         cfg.StoreID,
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Issuer:          cfg.JWTIssuer,
		Audience:        cfg.JWTAudience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Service: authService}
	authMW := auth.Middleware{Service: authService}

	loginLimiter, err := app.NewLoginLimiter(redisClient, cfg.LoginRateMax, cfg.LoginRateWindow)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise login limiter")
	}

	guestLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient},
		Config:  ratelimit.GuestPay(cfg.GuestPayRateWindow, cfg.GuestPayRateMax),
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("guest pay rate limit degraded")
		},
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Total-Count", "X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      health.Probe{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/catalog", catalogHandler.List)
		v.Get("/catalog/{itemId}", catalogHandler.Get)
		v.Get("/shipping/methods", shipHandler.List)

		v.Route("/staff", func(a chi.Router) {
			a.With(loginLimiter.Handler).Post("/login", authHandler.Login)
			a.Post("/refresh", authHandler.Refresh)
			a.Post("/logout", authHandler.Logout)
			a.With(authMW.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Route("/carts", func(c chi.Router) {
			c.Use(authMW.RequireAuth)
			c.Get("/{cartId}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Post("/{cartId}/items", cartHandler.AddItem)
				g.Patch("/{cartId}", cartHandler.SetOrderType)
				g.Patch("/{cartId}/items/{itemId}", cartHandler.UpdateItem)
				g.Delete("/{cartId}/items/{itemId}", cartHandler.RemoveItem)
				g.Delete("/{cartId}", cartHandler.Clear)
			})
		})

		v.Route("/checkout", func(c chi.Router) {
			c.Use(authMW.RequireAuth)
			c.With(idem.Middleware).Post("/sessions", checkoutHandler.Create)
			c.With(idem.Middleware).Post("/guest-links", checkoutHandler.CreateGuestLink)
			c.Route("/sessions/{sessionId}", func(s chi.Router) {
				s.Get("/", checkoutHandler.Get)
				s.Get("/qr", checkoutHandler.QR)
				s.Get("/totals", checkoutHandler.Totals)
				s.Post("/advance", checkoutHandler.Advance)
				s.Post("/details", checkoutHandler.SetDetails)
				s.Post("/dining-option", checkoutHandler.SelectDiningOption)
				s.Post("/table", checkoutHandler.SelectTable)
				s.Post("/tip", checkoutHandler.SetTip)
				s.With(idem.Middleware).Post("/submit", checkoutHandler.Submit)
				s.Post("/retry", checkoutHandler.Retry)
				s.Delete("/", checkoutHandler.Cancel)
			})
		})

		v.Group(func(o chi.Router) {
			o.Use(authMW.RequireAuth)
			o.Get("/orders", orderHandler.List)
			o.Get("/orders/{orderId}", orderHandler.Get)
			o.Get("/orders/{orderId}/receipt", receiptHandler.Download)
			o.With(authMW.RequireRole(auth.RoleManager)).Patch("/orders/{orderId}/status", orderHandler.UpdateStatus)
		})
	})

	// Guest pay surface: no staff auth, token in the URL, rate limited per
	// token and client address.
	r.Route("/pay/{token}", func(p chi.Router) {
		p.Use(guestLimit.Middleware)
		p.Get("/", guestHandler.Check)
		p.Post("/lines", guestHandler.SelectLines)
		p.Post("/tip", guestHandler.SetTip)
		p.With(idem.Middleware).Post("/submit", guestHandler.Submit)
		p.Post("/retry", guestHandler.Retry)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-runCtx.Done()
	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
