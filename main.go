// Command zero-blast starts the Zero Blast game server.
//
// It supports three commands:
//  1. (default) – runs the HTTP server exposing the player WebSocket, the
//     operator REST API and an /mcp HTTP endpoint
//  2. "presets" – validates and lists the board presets in --presets-dir
//  3. "mcp" – runs an MCP stdio server proxying to a running server's API
//
// Every flag can also be set from the environment, and a .env file in the
// working directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/zero-blast/api"
	"github.com/wricardo/zero-blast/auth"
	"github.com/wricardo/zero-blast/game/config"
	"github.com/wricardo/zero-blast/game/engine"
	"github.com/wricardo/zero-blast/game/service"
	"github.com/wricardo/zero-blast/transport/mcp"
	"github.com/wricardo/zero-blast/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Zero Blast Server"
)

// serverOptions is everything runServer needs from the command line
type serverOptions struct {
	Host           string
	Port           int
	PresetsDir     string
	Preset         string
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AllowedOrigins []string
}

func (o serverOptions) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// gameServer is the wired application: hub, coordinator and the HTTP router
type gameServer struct {
	hub     *websocket.Hub
	coord   *service.Coordinator
	presets *config.Manager
	handler http.Handler
	board   *engine.BoardConfig
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("zero-blast exited")
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "zero-blast",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "presets-dir", Value: "presets", Usage: "Directory containing board presets", Sources: cli.EnvVars("PRESETS_DIR")},
			&cli.StringFlag{Name: "preset", Value: config.DefaultPresetName, Usage: "Board preset dealt to every match", Sources: cli.EnvVars("BOARD_PRESET")},
			&cli.StringFlag{Name: "jwt-secret", Usage: "HS256 secret used to verify player tokens", Sources: cli.EnvVars("JWT_SECRET")},
			&cli.StringFlag{Name: "jwt-issuer", Usage: "Required token issuer (optional)", Sources: cli.EnvVars("JWT_ISSUER")},
			&cli.StringFlag{Name: "jwt-audience", Usage: "Required token audience (optional)", Sources: cli.EnvVars("JWT_AUDIENCE")},
			&cli.StringSliceFlag{Name: "allowed-origins", Usage: "Origins allowed to open game connections (default: any)", Sources: cli.EnvVars("ALLOWED_ORIGINS")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level (debug, info, warn, error)", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging with console output"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger, err := setupLogging(cmd.String("log-level"), cmd.Bool("debug"), os.Stderr)
			if err != nil {
				return err
			}
			return runHTTPServer(ctx, optionsFromCommand(cmd), ngrokOptions{
				Enabled: cmd.Bool("ngrok"),
				Auth:    cmd.String("ngrok-auth"),
				Domain:  cmd.String("ngrok-domain"),
			}, logger)
		},
		Commands: []*cli.Command{
			{
				Name:  "presets",
				Usage: "Validate and list the board presets in --presets-dir",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return listPresets(cmd.String("presets-dir"), os.Stdout)
				},
			},
			{
				Name:  "mcp",
				Usage: "Run an MCP stdio server against a running Zero Blast API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "Base URL of the server's REST API", Sources: cli.EnvVars("ZERO_BLAST_API_URL")},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if _, err := setupLogging(cmd.String("log-level"), cmd.Bool("debug"), os.Stderr); err != nil {
						return err
					}
					return runStdioMCP(cmd.String("api-url"))
				},
			},
		},
	}
}

func optionsFromCommand(cmd *cli.Command) serverOptions {
	return serverOptions{
		Host:           cmd.String("host"),
		Port:           cmd.Int("port"),
		PresetsDir:     cmd.String("presets-dir"),
		Preset:         cmd.String("preset"),
		JWTSecret:      cmd.String("jwt-secret"),
		JWTIssuer:      cmd.String("jwt-issuer"),
		JWTAudience:    cmd.String("jwt-audience"),
		AllowedOrigins: cmd.StringSlice("allowed-origins"),
	}
}

// setupLogging configures the global zerolog logger and returns it. Stdio MCP
// owns stdout, so logs always go to w.
func setupLogging(level string, debug bool, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if debug {
		lvl = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger, nil
}

// newGameServer wires presets, token verification, the hub, the coordinator
// and the HTTP routes.
func newGameServer(opts serverOptions, logger zerolog.Logger) (*gameServer, error) {
	presets, err := config.NewManager(opts.PresetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset manager: %w", err)
	}

	board, err := presets.LoadPreset(opts.Preset)
	if err != nil {
		return nil, fmt.Errorf("failed to load preset %q: %w", opts.Preset, err)
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Secret:   opts.JWTSecret,
		Issuer:   opts.JWTIssuer,
		Audience: opts.JWTAudience,
	})
	if err != nil {
		return nil, err
	}

	hub := websocket.NewHub(logger.With().Str("component", "hub").Logger(), opts.AllowedOrigins...)

	coord, err := service.NewCoordinator(service.Options{
		Notifier: hub,
		Board:    board,
		Logger:   logger.With().Str("component", "coordinator").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}
	hub.SetDispatcher(coord)

	apiServer := api.NewServer(coord, presets, verifier, hub, logger.With().Str("component", "api").Logger())

	// MCP tools read through the REST API of this same process
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", opts.addr()))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpClient.HandleHTTP)

	return &gameServer{
		hub:     hub,
		coord:   coord,
		presets: presets,
		handler: mainRouter,
		board:   board,
	}, nil
}

// ngrokOptions controls the optional public tunnel
type ngrokOptions struct {
	Enabled bool
	Auth    string
	Domain  string
}

// runHTTPServer serves the game until ctx is done or a shutdown signal arrives.
// If ngrok is enabled, it also serves through a public tunnel.
func runHTTPServer(ctx context.Context, opts serverOptions, tunnel ngrokOptions, logger zerolog.Logger) error {
	gs, err := newGameServer(opts, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		gs.hub.Run(ctx)
	}()

	addr := opts.addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      gs.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info().
			Str("addr", addr).
			Str("board", gs.board.Name).
			Int("cells", gs.board.Size).
			Int("zeros", gs.board.ZeroCount()).
			Msg("http server listening")
		logger.Info().Msgf("websocket: ws://%s/ws", addr)
		logger.Info().Msgf("rest api: http://%s/api", addr)
		logger.Info().Msgf("mcp endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server failed: %w", err)
			cancel()
		}
	}()

	if tunnel.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveNgrok(ctx, tunnel, gs.handler, logger)
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	wg.Wait()
	<-hubDone

	stats := gs.coord.Stats()
	logger.Info().
		Int64("started", stats.MatchesStarted).
		Int64("finished", stats.MatchesFinished).
		Int64("abandoned", stats.MatchesAbandoned).
		Msg("server stopped")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// serveNgrok serves handler through an ngrok tunnel until ctx is done
func serveNgrok(ctx context.Context, opts ngrokOptions, handler http.Handler, logger zerolog.Logger) {
	if opts.Auth == "" {
		logger.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	logger.Info().Msg("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if opts.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.Domain))
		logger.Info().Str("domain", opts.Domain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.Auth))
	if err != nil {
		logger.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	logger.Info().Str("url", ngrokURL).Msg("ngrok tunnel established")
	logger.Info().Msgf("websocket (ngrok): %s/ws", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error().Err(err).Msg("ngrok server error")
	}
	logger.Info().Msg("ngrok tunnel closed")
}

// listPresets validates every preset file in dir and prints the usable ones
func listPresets(dir string, w io.Writer) error {
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}

	failures, err := manager.ValidatePresets()
	if err != nil {
		return err
	}

	presets, err := manager.ListPresets()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Presets in %s:\n\n", dir)
	for _, p := range presets {
		marker := ""
		if p.PresetID == config.DefaultPresetName {
			marker = " (default)"
		}
		fmt.Fprintf(w, "  %-12s %3d cells, %3d zeros, values %d-%d%s\n",
			p.PresetID, p.Size, p.LossMarkers, p.MinValue, p.MaxValue, marker)
	}

	if len(failures) == 0 {
		return nil
	}

	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "\nInvalid presets:\n\n")
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %v\n", name, failures[name])
	}
	return fmt.Errorf("%d invalid preset(s)", len(failures))
}

// runStdioMCP serves the operator tools over stdio, proxying to apiURL
func runStdioMCP(apiURL string) error {
	mcpClient := mcp.NewClient(apiURL)

	log.Info().Str("api", apiURL).Msg("mcp stdio server ready")
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}
