package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	pdfexport "github.com/nicholasgasior/pdfexport-go"
	"github.com/nicholasgasior/pdfexport-go/internal/mcptool"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the exporter as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		exp := pdfexport.New(cfg.ExporterOptions(logger)...)
		srv := mcp.NewServer(&mcp.Implementation{Name: "pdfexport", Version: version}, nil)
		mcptool.Register(srv, exp)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("mcp server listening on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
