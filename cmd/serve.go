package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/khanhnv2901/linkguard/internal/api"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run linkguard as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		services, err := appCtx.Services()
		if err != nil {
			return err
		}
		serverCfg := appCtx.Config.Server

		server := api.NewServer(api.Config{
			Scanner:     services.ScanService,
			Health:      services,
			AuthToken:   serverCfg.AuthToken,
			Logger:      appCtx.Logger,
			CORSOrigins: serverCfg.CORSOrigins,
			RateLimit:   serverCfg.RateLimit,
			RateBurst:   serverCfg.RateBurst,
			ScanTimeout: consts.ScanCeiling + 5*time.Second,
		})
		defer server.Close()

		httpServer := &http.Server{
			Addr:              serverCfg.Addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      consts.ScanCeiling + 15*time.Second,
			IdleTimeout:       120 * time.Second,
		}

		appCtx.Logger.Info("api server starting",
			zap.String("addr", serverCfg.Addr),
			zap.Strings("reputation_services", services.ReputationServices()),
			zap.Bool("auth", serverCfg.AuthToken != ""))
		return serveUntilDone(cmd.Context(), httpServer, serverCfg.ShutdownTimeout, func(format string, a ...any) {
			fmt.Fprintf(cmd.OutOrStdout(), format, a...)
		})
	},
}

// serveUntilDone runs srv until it fails or ctx is cancelled, then shuts it
// down gracefully within timeout.
func serveUntilDone(ctx context.Context, srv *http.Server, timeout time.Duration, printf func(string, ...any)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	serverErrors := make(chan error, 1)
	go func() {
		printf("%s API server listening on %s\n", colorInfo("→"), srv.Addr)
		printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	printf("\n%s Shutdown requested, draining connections...\n", colorInfo("→"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		if closeErr := srv.Close(); closeErr != nil {
			return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
		}
		return fmt.Errorf("failed to gracefully shutdown server: %w", err)
	}

	printf("%s Server shutdown complete\n", colorSuccess("✓"))
	return nil
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&cliConfig.Server.Addr, "addr", cliConfig.Server.Addr, "Address for the API server")
	flags.StringVar(&cliConfig.Server.AuthToken, "auth-token", "", "Optional shared secret for API requests (X-Auth-Token)")
	flags.DurationVar(&cliConfig.Server.ShutdownTimeout, "shutdown-timeout", cliConfig.Server.ShutdownTimeout, "Graceful shutdown timeout")
	flags.StringSliceVar(&cliConfig.Server.CORSOrigins, "cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	flags.IntVar(&cliConfig.Server.RateLimit, "rate-limit", cliConfig.Server.RateLimit, "Rate limit per IP (requests/second, 0 = disabled)")
	flags.IntVar(&cliConfig.Server.RateBurst, "rate-burst", cliConfig.Server.RateBurst, "Rate limit burst size")
}
