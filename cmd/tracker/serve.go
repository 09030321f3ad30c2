package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ersonp/influence-tracker/internal/infrastructure/config"
	"github.com/ersonp/influence-tracker/internal/infrastructure/httpapi"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		release bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the archive over HTTP",
		Long:  "Starts the JSON API, the moderation endpoints and the live change stream (SSE and WebSocket).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if release {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx := cmd.Context()
			return withServer(ctx, addr, func(srv *httpapi.Server, cfg *config.Config) error {
				if cfg.Admin.Password == "" {
					log.Println("Admin password not set; moderation endpoints are disabled")
				}
				return srv.Run(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&release, "release", false, "Run gin in release mode")

	return cmd
}
