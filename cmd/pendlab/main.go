package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/pendlab/internal/client"
	"github.com/san-kum/pendlab/internal/config"
	"github.com/san-kum/pendlab/internal/server"
	"github.com/san-kum/pendlab/internal/tui"
	"github.com/spf13/cobra"
)

var (
	configFile string
	listen     string
	serverURL  string
	dt         float64
	gravity    float64
	scale      float64
	frameRate  int
)

// main wires the pendlab CLI: the bare command runs an embedded backend
// plus the viewer, `serve` runs the backend alone, `view` attaches the
// viewer to a running backend.
func main() {
	rootCmd := &cobra.Command{
		Use:   "pendlab",
		Short: "multi-bob pendulum lab",
		RunE:  runEmbedded,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().Float64Var(&scale, "scale", 0, "render units per simulation unit")
	rootCmd.PersistentFlags().IntVar(&frameRate, "fps", 0, "viewer frame rate")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the simulation backend",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listen, "listen", "", "listen address")
	serveCmd.Flags().Float64Var(&dt, "dt", 0, "simulation timestep")
	serveCmd.Flags().Float64Var(&gravity, "gravity", 0, "gravitational acceleration")
	rootCmd.AddCommand(serveCmd)

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "attach the viewer to a running backend",
		RunE:  runView,
	}
	viewCmd.Flags().StringVar(&serverURL, "url", "", "backend websocket url")
	rootCmd.AddCommand(viewCmd)

	rootCmd.Flags().StringVar(&listen, "listen", "", "listen address")
	rootCmd.Flags().Float64Var(&dt, "dt", 0, "simulation timestep")
	rootCmd.Flags().Float64Var(&gravity, "gravity", 0, "gravitational acceleration")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves settings in precedence order: defaults, then the
// config file if given, then any flags the user actually set.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if dt > 0 {
		cfg.Dt = dt
	}
	if gravity > 0 {
		cfg.Gravity = gravity
	}
	if scale > 0 {
		cfg.Scale = scale
	}
	if frameRate > 0 {
		cfg.FrameRate = frameRate
	}
	return cfg, nil
}

func startBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*server.Hub, *http.Server) {
	hub := server.NewHub(cfg.BuildChain(), cfg.Dt, logger)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.NewHandler(hub, logger).Handle)
	srv := &http.Server{Addr: cfg.Listen, Handler: mux}
	return hub, srv
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.New(os.Stderr, "pendlab ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, srv := startBackend(ctx, cfg, logger)
	logger.Printf("listening on %s", cfg.Listen)
	return srv.ListenAndServe()
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return runViewer(cfg, log.New(os.Stderr, "pendlab ", log.LstdFlags))
}

func runEmbedded(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// the embedded backend logs would corrupt the TUI on stderr
	logger := log.New(os.Stderr, "pendlab ", log.LstdFlags)
	if f, err := os.OpenFile("pendlab.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		defer f.Close()
		logger = log.New(f, "pendlab ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, srv := startBackend(ctx, cfg, logger)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("backend: %v", err)
		}
	}()
	defer srv.Close()

	// give the listener a moment before dialing it
	time.Sleep(100 * time.Millisecond)
	return runViewer(cfg, logger)
}

func runViewer(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, cfg.ServerURL, logger)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.ServerURL, err)
	}
	defer c.Close()

	model := tui.NewModel(c, c.Subscribe(), cfg.Scale, cfg.FrameRate)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
