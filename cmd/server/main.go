package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/aggregator"
	"github.com/dennisdiepolder/monti/supportdesk/internal/api"
	"github.com/dennisdiepolder/monti/supportdesk/internal/auth"
	"github.com/dennisdiepolder/monti/supportdesk/internal/chatqueue"
	"github.com/dennisdiepolder/monti/supportdesk/internal/config"
	"github.com/dennisdiepolder/monti/supportdesk/internal/gateway"
	"github.com/dennisdiepolder/monti/supportdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/supportdesk/internal/notify"
	"github.com/dennisdiepolder/monti/supportdesk/internal/settings"
	"github.com/dennisdiepolder/monti/supportdesk/internal/storage"
	"github.com/dennisdiepolder/monti/supportdesk/internal/websocket"
	"github.com/dennisdiepolder/monti/supportdesk/internal/workflow"
	"github.com/dennisdiepolder/monti/supportdesk/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "supportdesk",
		Short:         "WhatsApp support desk backend",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server, routing loop and dashboard feed (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe()
			},
		},
		newTablesCmd(),
	)
	return root
}

// setupLogger configures the global logger from cfg
func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// app bundles the long-lived components the router needs
type app struct {
	cfg        *config.Config
	metrics    *metrics.Metrics
	engine     *chatqueue.Engine
	dispatcher *notify.Dispatcher
	hub        *websocket.Hub
	settings   *settings.FileStore
	store      storage.Store
	aggregator *aggregator.Aggregator
	gateway    *gateway.Client
	workflows  *workflow.Client
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Str("routing", cfg.RoutingStrategy).
		Msg("starting supportdesk server")

	if issuer := os.Getenv("OIDC_ISSUER"); issuer != "" {
		if err := auth.InitJWKS(issuer); err != nil {
			log.Warn().Err(err).Msg("failed to prefetch JWKS, retrying on first request")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, closers, err := buildApp(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	go a.hub.Run()
	go a.dispatcher.Start(ctx)
	go chatqueue.NewRoutingLoop(a.engine, a.dispatcher, a.metrics, cfg.RoutingInterval, log.Logger).Start(ctx)
	go a.aggregator.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(a, log.Logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Stop the loops, then let the dispatcher flush pending notifications
	cancel()
	select {
	case <-a.dispatcher.Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("dispatcher did not drain in time")
	}

	log.Info().Msg("server stopped")
	return nil
}

// buildApp wires the components. The returned closers release external connections.
func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, []func(), error) {
	var closers []func()

	m := metrics.New()
	hub := websocket.NewHub(m, logger)
	settingsStore := settings.NewFileStore(cfg.SettingsPath, logger)

	strategy, err := chatqueue.NewRoutingStrategy(cfg.RoutingStrategy)
	if err != nil {
		return nil, nil, err
	}
	engine := chatqueue.NewEngine(logger,
		chatqueue.WithRoutingStrategy(strategy),
		chatqueue.WithConfigProvider(settingsStore),
	)

	store, err := storage.NewStore(ctx, storage.LoadDynamoConfig(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	gatewayClient := gateway.NewClient(cfg.GatewayURL, cfg.GatewayToken, cfg.GatewayTimeout, logger)
	workflowClient := workflow.NewClient(cfg.WorkflowURL, cfg.WorkflowAPIKey, cfg.GatewayTimeout, logger)

	sinks := []notify.Sink{notify.NewHubSink(hub), notify.NewRecordSink(store)}
	if gatewayClient.Enabled() {
		sinks = append(sinks, notify.NewGatewaySink(gatewayClient, settingsStore))
	} else {
		logger.Warn().Msg("GATEWAY_URL not set, customer messages disabled")
	}
	if workflowClient.Enabled() {
		sinks = append(sinks, notify.NewWorkflowSink(workflowClient))
	}
	if cfg.AMQPURL != "" {
		amqpSink, err := notify.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			// Fan-out is optional; the desk keeps working without the broker
			logger.Error().Err(err).Msg("failed to connect to broker, event fan-out disabled")
		} else {
			sinks = append(sinks, amqpSink)
			closers = append(closers, func() { amqpSink.Close() })
		}
	}

	return &app{
		cfg:        cfg,
		metrics:    m,
		engine:     engine,
		dispatcher: notify.NewDispatcher(cfg.DispatchBuffer, m, logger, sinks...),
		hub:        hub,
		settings:   settingsStore,
		store:      store,
		aggregator: aggregator.NewAggregator(engine, hub, m, logger),
		gateway:    gatewayClient,
		workflows:  workflowClient,
	}, closers, nil
}

func newRouter(a *app, logger zerolog.Logger) http.Handler {
	chats := chatqueue.NewHandler(a.engine, a.dispatcher, a.metrics, logger)
	webhooks := gateway.NewWebhookHandler(a.engine, a.dispatcher, a.gateway, a.metrics, logger)
	roster := api.NewRosterHandler(a.engine, a.dispatcher, logger)
	history := api.NewHistoryHandler(a.store, logger)
	admin := api.NewAdminHandler(a.engine, a.dispatcher, a.store, logger)
	settingsHandler := settings.NewHandler(a.settings, logger)
	workflows := workflow.NewHandler(a.workflows, logger)
	wsHandler := websocket.NewHandler(a.hub, a.cfg, logger)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(a.cfg.AllowedOrigins))

	// Public routes
	r.Get("/health", healthHandler)
	r.Get("/metrics", a.metrics.Handler())

	// Internal routes (no auth, called by the gateway and provisioning jobs)
	r.Route("/internal", func(r chi.Router) {
		r.Post("/gateway/message", webhooks.HandleMessage)
		r.Post("/gateway/connection", webhooks.HandleConnection)
		r.Post("/attendants/roster", roster.HandleRoster)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/ws", wsHandler.ServeHTTP)

		r.Route("/api", func(r chi.Router) {
			r.Get("/summary", api.SummaryHandler(a.aggregator))

			r.Route("/attendants", func(r chi.Router) {
				r.Get("/", chats.ListAttendants)
				r.Post("/", chats.RegisterAttendant)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", chats.GetAttendant)
					r.Put("/status", chats.SetStatus)
					r.Post("/feedback", chats.Feedback)
					r.Get("/history", history.GetHistory)
					r.Get("/chats", history.GetChats)
					r.With(auth.RequireSupervisor).Post("/reallocate", chats.Reallocate)
				})
			})

			r.Route("/queue", func(r chi.Router) {
				r.Get("/", chats.ListQueue)
				r.Post("/", chats.Enqueue)
				r.Post("/auto-assign", chats.AutoAssign)
				r.Delete("/{itemId}", chats.RemoveItem)
				r.Post("/{itemId}/assign", chats.AssignItem)
				r.With(auth.RequireSupervisor).Put("/{itemId}/priority", chats.SetPriority)
			})

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", chats.ListChats)
				r.Post("/{chatId}/transfer", chats.TransferChat)
				r.Post("/{chatId}/end", chats.EndChat)
			})

			r.Get("/settings/queue", settingsHandler.GetQueue)
			r.With(auth.RequireSupervisor).Put("/settings/queue", settingsHandler.PutQueue)

			r.Get("/workflows", workflows.ListWorkflows)
			r.Get("/gateway/status", webhooks.GetStatus)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Post("/reset-daily", admin.ResetDaily)
				r.Delete("/queue", admin.WipeQueue)
				r.Delete("/records", admin.TruncateRecords)
			})
		})
	})

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"supportdesk"}`)
}
