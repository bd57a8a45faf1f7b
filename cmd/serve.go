package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/snapshot/internal/config"
	"github.com/lehigh-university-libraries/snapshot/internal/events"
	"github.com/lehigh-university-libraries/snapshot/internal/handlers"
	"github.com/lehigh-university-libraries/snapshot/internal/immich"
	"github.com/lehigh-university-libraries/snapshot/internal/metrics"
	"github.com/lehigh-university-libraries/snapshot/internal/mirror"
	"github.com/lehigh-university-libraries/snapshot/internal/storage"
	"github.com/lehigh-university-libraries/snapshot/internal/thumbnail"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var photosDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the photo storage server",
		Long: `Starts the photo storage server.

Photos are saved to PHOTOS_DIR and, when IMMICH_BASE_URL, IMMICH_API_KEY,
IMMICH_ALBUM_ID and IMMICH_DEVICE_ID are all set, uploaded to the Immich
album in the background.`,
		Example: `  # Start server on the port from PORT (default 3000)
  snapshot serve

  # Start server on custom port and directory
  snapshot serve --port 8080 --photos ./booth-photos`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("photos") {
				cfg.PhotosDir = photosDir
			}

			store, err := storage.New(cfg.PhotosDir)
			if err != nil {
				return err
			}

			reg := metrics.NewRegistry()
			immichClient := immich.NewClient(cfg.Immich)
			if !cfg.Immich.Enabled() {
				slog.Warn("Remote mirroring disabled", "missing", cfg.Immich.Missing())
			}
			dispatcher := mirror.NewDispatcher(immichClient, cfg.Immich.Enabled(), reg)

			hub := events.NewHub()
			hubCtx, stopHub := context.WithCancel(context.Background())
			defer stopHub()
			go hub.Run(hubCtx)

			handler := handlers.New(handlers.Options{
				Store:        store,
				Mirror:       dispatcher,
				Album:        immichClient,
				Events:       hub,
				Thumbnails:   thumbnail.NewCache(),
				Metrics:      reg,
				MaxBodyBytes: int64(cfg.MaxBodyMB) << 20,
			})

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("SnapShot server available", "addr", addr, "url", "http://localhost"+addr, "photos", store.Dir())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				stopHub()
				slog.Info("Waiting for mirror uploads to finish")
				dispatcher.Wait()
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return fmt.Errorf("server failed: %w", err)
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "3000", "Port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&photosDir, "photos", "photos", "Directory photos are stored in (overrides PHOTOS_DIR)")

	return cmd
}
