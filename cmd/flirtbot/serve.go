package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"flirtbot/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat form and JSON API over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		responder, closer, err := buildResponder(ctx, appConfig, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		addr := appConfig.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := server.New(responder, server.Config{
			Addr:         addr,
			ReadTimeout:  time.Duration(appConfig.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(appConfig.Server.WriteTimeoutSecs) * time.Second,
		}, logger)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}
