package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/callsession"
	"github.com/Darkosxl/immobiliare-agent/internal/config"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
	"github.com/Darkosxl/immobiliare-agent/internal/logging"
	"github.com/Darkosxl/immobiliare-agent/internal/resources"
	"github.com/Darkosxl/immobiliare-agent/internal/server"
	"github.com/Darkosxl/immobiliare-agent/internal/tools/booking_tools"
	"github.com/Darkosxl/immobiliare-agent/internal/webhook"
)

const serverName = "immobiliare-agent"

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the booking tool server",
		Long: `Start the booking tools for a voice agent.

MCP transports (--transport):
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events
  - streamable-http: Streamable HTTP transport
  - none: no MCP server, webhook only

Webhook:
  --webhook-addr :8069 starts the HTTP webhook used by hosted voice platforms.
  Set --webhook-secret (WEBHOOK_SECRET) to require the X-Vapi-Secret header.

Calendar:
  --calendar-id and --credentials are required unless --dry-run is set.
  --self-cleaning deletes every booking right after creating it.`,
	}

	bindings := addCalendarFlags(cmd.Flags())
	cmd.Flags().String("transport", config.TransportStdio, "MCP transport: stdio, sse, streamable-http or none. Can also use MCP_TRANSPORT env var.")
	cmd.Flags().String("http-addr", ":8080", "MCP HTTP server address (for sse and streamable-http). Can also use MCP_HTTP_ADDR env var.")
	cmd.Flags().String("mcp-secret", "", "Bearer token required by the MCP HTTP transports. Can also use MCP_SECRET env var.")
	cmd.Flags().String("webhook-addr", "", "Webhook server address; empty disables the webhook. Can also use WEBHOOK_ADDR env var.")
	cmd.Flags().String("webhook-secret", "", "Shared secret expected in X-Vapi-Secret. Can also use WEBHOOK_SECRET env var.")
	cmd.Flags().Float64("webhook-rate-limit", 10, "Requests per second allowed per client; 0 disables. Can also use WEBHOOK_RATE_LIMIT env var.")
	cmd.Flags().Int("webhook-rate-burst", 20, "Burst allowed per client. Can also use WEBHOOK_RATE_BURST env var.")
	cmd.Flags().String("cors-origins", "", "Comma-separated origins allowed to call the webhook from a browser. Can also use CORS_ORIGINS env var.")
	cmd.Flags().Duration("max-playout-wait", callsession.DefaultMaxPlayoutWait, "Longest wait for the agent to finish speaking before hanging up. Can also use CALL_MAX_PLAYOUT_WAIT env var.")
	cmd.Flags().Duration("call-idle-timeout", callsession.DefaultIdleTimeout, "Forget calls without activity for this long. Can also use CALL_IDLE_TIMEOUT env var.")
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	bindings = append(bindings,
		flagBinding{"transport", config.KeyTransport},
		flagBinding{"http-addr", config.KeyHTTPAddr},
		flagBinding{"mcp-secret", config.KeyMCPSecret},
		flagBinding{"webhook-addr", config.KeyWebhookAddr},
		flagBinding{"webhook-secret", config.KeyWebhookSecret},
		flagBinding{"webhook-rate-limit", config.KeyRateLimit},
		flagBinding{"webhook-rate-burst", config.KeyRateBurst},
		flagBinding{"cors-origins", config.KeyCORSOrigins},
		flagBinding{"max-playout-wait", config.KeyMaxPlayoutWait},
		flagBinding{"call-idle-timeout", config.KeyCallIdleTimeout},
		flagBinding{"metrics-enabled", config.KeyMetricsEnabled},
		flagBinding{"metrics-addr", config.KeyMetricsAddr},
	)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags(), bindings)
		if err != nil {
			return err
		}
		return runServe(cfg)
	}
	return cmd
}

// service is everything serve runs, assembled from the configuration.
type service struct {
	sc        *server.ServerContext
	mcp       *mcpserver.MCPServer
	health    *server.HealthChecker
	provider  *instrumentation.Provider
	transport string
}

func runServe(cfg *config.Config) error {
	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Locale = cfg.Locale
	instrConfig.DryRun = cfg.DryRun
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	svc, err := newService(ctx, cfg, provider, instrConfig.AuditLogging)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.sc.Shutdown(); err != nil {
			slog.Error("server context shutdown failed", logging.Err(err))
		}
	}()

	return svc.run(ctx, stop, cfg)
}

// newService wires the booking stack: gateway, coordinator, desk, call
// registry and the MCP tools.
func newService(ctx context.Context, cfg *config.Config, provider *instrumentation.Provider, audit instrumentation.AuditLoggingConfig) (*service, error) {
	logger := slog.Default()
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	var metrics *instrumentation.Metrics
	if provider != nil && provider.Enabled() {
		metrics = provider.Metrics()
	}

	coord, err := buildCoordinator(ctx, cfg, metrics, logger)
	if err != nil {
		return nil, err
	}
	desk := booking.NewDesk(coord, metrics, logger)

	calls := callsession.NewRegistry(logHangup(logger),
		callsession.WithMetrics(metrics),
		callsession.WithLogger(logger),
		callsession.WithIdleTimeout(cfg.CallIdleTimeout),
		callsession.WithMaxPlayoutWait(cfg.MaxPlayoutWait),
	)

	sc, err := server.NewServerContext(ctx, desk, calls, policy)
	if err != nil {
		calls.Stop()
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	sc.SetLogger(logger)
	if metrics != nil {
		sc.SetMetrics(metrics)
		sc.SetAuditLogger(instrumentation.NewAuditLogger(logger, audit))
	}

	mcpSrv := mcpserver.NewMCPServer(serverName, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
	if err := booking_tools.RegisterBookingTools(mcpSrv, sc); err != nil {
		_ = sc.Shutdown()
		return nil, fmt.Errorf("failed to register booking tools: %w", err)
	}
	if err := resources.RegisterOfficeResources(mcpSrv, sc); err != nil {
		_ = sc.Shutdown()
		return nil, fmt.Errorf("failed to register office resources: %w", err)
	}

	logger.Info("booking service ready",
		logging.Locale(policy.Name),
		slog.String("calendar_id", cfg.CalendarID),
		slog.Bool("dry_run", cfg.DryRun),
		slog.Bool("self_cleaning", cfg.SelfCleaning))

	return &service{
		sc:        sc,
		mcp:       mcpSrv,
		health:    server.NewHealthChecker(sc),
		provider:  provider,
		transport: cfg.Transport,
	}, nil
}

// listener is a blocking server. It stops on shutdown or when the context
// passed to start is done, whichever it honours.
type listener struct {
	name     string
	start    func(ctx context.Context) error
	shutdown func(context.Context) error
}

// serveForever adapts a Start that only stops on Shutdown.
func serveForever(start func() error) func(context.Context) error {
	return func(context.Context) error { return start() }
}

// run starts every configured surface and blocks until the context is
// cancelled, stdio input ends or a server fails.
func (s *service) run(ctx context.Context, stop context.CancelFunc, cfg *config.Config) error {
	var listeners []listener

	if cfg.MetricsEnabled && s.provider != nil && s.provider.Enabled() && s.provider.ExportsPrometheus() {
		ms, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: s.provider,
			Health:                  s.health,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		listeners = append(listeners, listener{name: "metrics", start: serveForever(ms.Start), shutdown: ms.Shutdown})
	}

	if cfg.WebhookAddr != "" {
		router, err := webhook.NewRouter(s.sc, webhook.Options{
			Secret:         cfg.WebhookSecret,
			Limiter:        server.NewClientLimiter(cfg.RateLimit, cfg.RateBurst),
			AllowedOrigins: cfg.CORSOrigins(),
		})
		if err != nil {
			return fmt.Errorf("failed to create webhook router: %w", err)
		}
		if cfg.WebhookSecret == "" {
			slog.Warn("webhook secret not set: any client can call the booking tools")
		}
		ws := webhook.NewServer(cfg.WebhookAddr, router)
		listeners = append(listeners, listener{name: "webhook", start: serveForever(ws.Start), shutdown: ws.Shutdown})
	}

	switch s.transport {
	case config.TransportSSE, config.TransportStreamableHTTP:
		hs, err := server.NewMCPHTTPServer(s.mcp, s.transport, server.MCPHTTPOptions{
			Secret:  cfg.MCPSecret,
			Limiter: server.NewClientLimiter(cfg.RateLimit, cfg.RateBurst),
			Health:  s.health,
			Logger:  s.sc.Logger(),
		})
		if err != nil {
			return err
		}
		addr := cfg.HTTPAddr
		listeners = append(listeners, listener{
			name: "mcp " + s.transport,
			start: func(context.Context) error {
				slog.Info("starting MCP server", slog.String("transport", s.transport), slog.String("addr", addr))
				return hs.Start(addr)
			},
			shutdown: hs.Shutdown,
		})
	case config.TransportStdio:
		listeners = append(listeners, listener{
			name: "mcp stdio",
			start: func(ctx context.Context) error {
				// stdin closing ends the process.
				defer stop()
				return mcpserver.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
			},
			shutdown: func(context.Context) error { return nil },
		})
	}

	return serveAll(ctx, listeners)
}

// serveAll runs every listener until ctx is done or one of them fails, then
// shuts them all down.
func serveAll(ctx context.Context, listeners []listener) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		g.Go(func() error {
			err := l.start(gctx)
			if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s server stopped with error: %w", l.name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		var errs []error
		for _, l := range listeners {
			if err := l.shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("%s shutdown: %w", l.name, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// logHangup is the hangup used when no telephony control API is configured:
// the platform drops the line after the end_call result, so the call is only
// recorded here.
func logHangup(logger *slog.Logger) callsession.HangupFunc {
	return func(ctx context.Context, call *callsession.Call, reason string) error {
		logger.Info("hanging up",
			logging.Session(call.ID),
			logging.CallerHash(call.Caller.OriginatorRef),
			slog.String("reason", reason))
		return nil
	}
}
