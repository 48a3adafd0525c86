package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/rag-mcp/internal/rpc"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC dispatcher over stdio",
		Run:   runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	log := newLogger(cfg)
	svc := openService(cfg)
	defer svc.Close()

	d := rpc.New(svc, log, cfg.Search.DefaultK)

	// Install signal handlers before entering the read loop so that a signal
	// arriving early is never missed (spec §4.4 "Signal handling").
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		sig := <-sigCh
		log.Info("signal received, requesting shutdown", "signal", sig)
		d.RequestShutdown()
	}()

	log.Info("starting rag-mcp dispatcher on stdio")
	if err := d.Run(context.Background(), os.Stdin, os.Stdout); err != nil {
		exitErr("serve", err)
	}
	log.Info("dispatcher exited cleanly")
}
