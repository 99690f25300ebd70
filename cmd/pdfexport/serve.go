package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	pdfexport "github.com/nicholasgasior/pdfexport-go"
	"github.com/nicholasgasior/pdfexport-go/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the export API over HTTP",
	Long: `Serve exposes POST /api/v1/pdf/process, GET /api/v1/capabilities and
GET /health. The listen address and limits come from the server section of
the config file or PDFEXPORT_SERVER_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		exp := pdfexport.New(cfg.ExporterOptions(logger)...)
		logger.WithField("layout", exp.LayoutAvailable()).WithField("workers", exp.Workers()).Info("exporter ready")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		h := server.New(exp, logger, cfg.Server.MaxUploadBytes).Routes()
		return server.Run(ctx, cfg.Server, h, logger)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, overrides server.addr")
	rootCmd.AddCommand(serveCmd)
}
