package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ovela/onboard-service/internal/agent"
	"github.com/ovela/onboard-service/internal/config"
	"github.com/ovela/onboard-service/internal/handler"
	"github.com/ovela/onboard-service/internal/nango"
	"github.com/ovela/onboard-service/internal/repository"
	"github.com/ovela/onboard-service/internal/service"
	"github.com/ovela/onboard-service/internal/square"
	"github.com/ovela/onboard-service/internal/utils"
	"github.com/ovela/onboard-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

type handlers struct {
	auth         *handler.AuthHandler
	connect      *handler.ConnectHandler
	business     *handler.BusinessHandler
	booking      *handler.BookingHandler
	conversation *handler.ConversationHandler
	agent        *handler.AgentHandler
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	metrics, err := observability.NewMetrics("onboard-service")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
	)

	nangoClient := nango.New(cfg.Nango.BaseURL, cfg.Nango.SecretKey)
	squareBaseURL := cfg.SquareBaseURL()
	squareFactory := func(accessToken string) service.SquareAPI {
		return square.New(squareBaseURL, accessToken)
	}

	rateLimiter := service.NewRateLimiter(infra.Redis().Client)
	healthChecker := NewHealthChecker(infra)

	authService := service.NewAuthService(
		repos.User,
		infra.Redis().Client,
		jwtManager,
		infra.Logger(),
		cfg.Security.BCryptCost,
		cfg.Security.OTPExpiry.Duration,
		cfg.Security.OTPLength,
		cfg.Env,
	)

	catalogService := service.NewCatalogService(
		repos.User,
		repos.Connection,
		repos.Integration,
		nangoClient,
		squareFactory,
		cfg.ProviderConfigKey(),
		infra.Logger(),
		metrics,
	)

	connectService := service.NewConnectService(
		repos.User,
		repos.Integration,
		repos.Connection,
		catalogService,
		nangoClient,
		infra.Redis().Client,
		infra.Logger(),
		metrics,
		cfg.Nango.WebhookSecret,
	)

	bookingService := service.NewBookingService(
		repos.Connection,
		repos.Integration,
		nangoClient,
		squareFactory,
		cfg.ProviderConfigKey(),
		infra.Redis().Client,
		infra.Logger(),
		metrics,
		cfg.Square.DefaultTeamMemberID,
	)

	conversationService := service.NewConversationService(repos.Conversation)

	registry := agent.NewRegistry(infra.Logger(), metrics)
	agent.NewToolset(repos.User, bookingService).RegisterAll(registry)

	h := handlers{
		auth:         handler.NewAuthHandler(authService),
		connect:      handler.NewConnectHandler(connectService),
		business:     handler.NewBusinessHandler(catalogService),
		booking:      handler.NewBookingHandler(bookingService),
		conversation: handler.NewConversationHandler(conversationService),
		agent:        handler.NewAgentHandler(registry, cfg.Agent.ToolTimeout.Duration),
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("onboard-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, h, authService, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	h handlers,
	authService service.AuthService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	rateLimit := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
	)
	authRequired := handler.AuthMiddleware(authService)
	agentSecret := handler.AgentAuthMiddleware(cfg.Agent.Secret)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/otp/request", rateLimit, h.auth.RequestCode)
			auth.POST("/otp/verify", rateLimit, h.auth.VerifyCode)
		}

		connect := api.Group("/connect")
		{
			connect.POST("/session", authRequired, h.connect.CreateSession)
		}

		// Broker callbacks are authenticated by signature, not by bearer token.
		api.POST("/webhooks/nango", h.connect.Webhook)

		business := api.Group("/business-data", authRequired)
		{
			business.POST("/fetch", h.business.Fetch)
		}

		bookings := api.Group("/bookings", authRequired)
		{
			bookings.POST("/availability/search", h.booking.SearchAvailability)
			bookings.POST("", h.booking.Create)
			bookings.GET("", h.booking.List)
			bookings.GET("/:id", h.booking.Get)
			bookings.PUT("/:id", h.booking.Update)
			bookings.POST("/:id/cancel", h.booking.Cancel)
		}

		conversations := api.Group("/conversations", authRequired)
		{
			conversations.GET("/onboarding/messages", h.conversation.Messages)
			conversations.POST("/onboarding/messages", h.conversation.Append)
			conversations.DELETE("/onboarding/messages", h.conversation.Clear)
		}

		agentGroup := api.Group("/agent", agentSecret)
		{
			agentGroup.GET("/tools", h.agent.Tools)
			agentGroup.POST("/tools/:name", h.agent.ToolCall)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
