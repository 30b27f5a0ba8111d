// Command coly-cache runs the cache maintenance process: ops endpoints,
// the fallback sweep and the warm loop. It also purges cache entries for a
// changed video, user or playlist.
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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/12dTa05/CoLy2/internal/app"
	"github.com/12dTa05/CoLy2/internal/config"
	"github.com/12dTa05/CoLy2/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        *config.Config
		logger     zerolog.Logger
	)

	root := &cobra.Command{
		Use:          "coly-cache",
		Short:        "Cache layer for the video catalog",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger = logging.Setup(cfg.LoggingConfig())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", envOr("COLY_CONFIG", "config.yaml"), "YAML config file (optional, env COLY_CONFIG)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve ops endpoints and run the sweep and warm loops",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return serve(ctx, cfg, logger)
			},
		},
		newPurgeCmd(&cfg, &logger),
		&cobra.Command{
			Use:   "warm",
			Short: "Run the warm set once and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return warmOnce(cmd.Context(), cfg, logger)
			},
		},
	)

	return root
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(a, logging.NewLogger(logging.ComponentHTTP)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Run(ctx)
	})
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("mode", a.Ready(ctx)).Msg("Starting ops server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info().Msg("Shut down")
	return err
}

func newPurgeCmd(cfg **config.Config, logger *zerolog.Logger) *cobra.Command {
	var videoID, userID, playlistID, key string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Invalidate cached entries for a changed video, user or playlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if videoID == "" && userID == "" && playlistID == "" && key == "" {
				return errors.New("one of --video, --user, --playlist or --key is required")
			}

			a := app.NewWithSource(cmd.Context(), *cfg, nil, *logger)
			defer a.Close()

			ctx := cmd.Context()
			var removed int64
			if videoID != "" {
				removed += a.Router.OnVideoChanged(ctx, videoID)
			}
			if userID != "" {
				removed += a.Router.OnUserChanged(ctx, userID)
			}
			if playlistID != "" {
				removed += a.Router.OnPlaylistChanged(ctx, playlistID)
			}
			if key != "" && a.Cache.Delete(ctx, key) {
				removed++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed=%d mode=%s\n", removed, a.Ready(ctx))
			return nil
		},
	}

	cmd.Flags().StringVar(&videoID, "video", "", "video id whose details, listings and searches are purged")
	cmd.Flags().StringVar(&userID, "user", "", "user id whose profile and user-scoped keys are purged")
	cmd.Flags().StringVar(&playlistID, "playlist", "", "playlist id to purge")
	cmd.Flags().StringVar(&key, "key", "", "single cache key to delete")

	return cmd
}

func warmOnce(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.Database.URL == "" {
		return errors.New("warm needs DATABASE_URL")
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Warm(ctx)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
