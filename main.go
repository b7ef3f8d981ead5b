package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metutor/internal/api"
	"metutor/internal/config"
	"metutor/internal/service/assistant"
	"metutor/internal/service/upload"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// a missing .env is fine, the process environment still applies
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("metutor stopped")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "metutor",
		Short:         "Mechanical engineering AI tutor backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("METUTOR_CONFIG"), "path to config.json")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfgPath)
		},
	})
	root.AddCommand(newExtractCmd(&cfgPath))
	return root
}

func newExtractCmd(cfgPath *string) *cobra.Command {
	var mimeType string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the text extracted from a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			deps, err := newServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			if mimeType == "" {
				if mimeType, err = detectMIME(args[0]); err != nil {
					return err
				}
			}
			res, err := deps.extractor.Extract(cmd.Context(), args[0], mimeType)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n\n%s\n", res.ContentType.Label(), res.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type of the file (detected when empty)")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.BasicConfig.Debug)
	return cfg, nil
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.SetGlobalLevel(level)
}

func serve(parent context.Context, cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if !cfg.BasicConfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	tutor := assistant.NewTutor(deps.gateway, cfg.LLM.Temperature)
	handler := api.NewHandler(tutor, deps.uploads, api.Options{
		ClientDir: cfg.BasicConfig.ClientDir,
		Provider:  deps.gateway.Provider(),
		Model:     deps.gateway.Model(),
	})
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanInterval := time.Duration(cfg.BasicConfig.TempCleanInterval) * time.Minute
	if cleanInterval <= 0 {
		cleanInterval = upload.DefaultCleanupInterval
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("provider", deps.gateway.Provider()).
			Str("model", deps.gateway.Model()).
			Str("registry", cfg.BasicConfig.Registry).
			Msg("metutor listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return deps.uploads.RunCleaner(gctx, cleanInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
