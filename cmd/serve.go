package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scribeflow/scribeflow/internal/resources"
	"github.com/scribeflow/scribeflow/internal/server"
	"github.com/scribeflow/scribeflow/internal/utils"

	"github.com/spf13/cobra"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serve correction jobs over HTTP with websocket progress streaming.
The memory monitor runs alongside the server and triggers cleanup when
system memory gets tight.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, manager, err := newRuntime()
		if err != nil {
			return err
		}

		if serveAddress != "" {
			cfg.Server.Address = serveAddress
		}

		monitor := resources.NewMonitor(manager,
			time.Duration(cfg.Resources.MonitorIntervalSec)*time.Second)
		monitor.Start()
		defer func() {
			if !monitor.Stop(5 * time.Second) {
				utils.LogWarning("Memory monitor did not stop in time")
			}
		}()

		srv := server.New(cfg.Server.Address, manager, llmLoadConfig(cfg))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			utils.LogInfo("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddress, "address", "a", "", "Listen address (overrides configuration)")
	rootCmd.AddCommand(serveCmd)
}
