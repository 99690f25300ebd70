// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Command pdfexport converts PDFs into Markdown, text, HTML and images, either
// once from the command line or as an HTTP or MCP service.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/nicholasgasior/pdfexport-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "pdfexport",
	Short: "Export PDFs as Markdown, text, HTML and images",
	Long: `pdfexport turns a PDF into synchronized per-page Markdown, plain text and
HTML, plus optional extracted images, delivered as a JSON envelope or a ZIP
archive.

Run "pdfexport convert" for a one-off export, "pdfexport serve" for the HTTP
API or "pdfexport mcp" to expose the exporter over stdio to MCP clients.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdfexport.yaml or ~/.config/pdfexport/pdfexport.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "override log.level (trace, debug, info, warn, error)")
}

// setup loads configuration and builds the logger every subcommand shares.
// Logs go to stderr so that stdout stays free for exports and MCP frames.
func setup(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	v := viper.New()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		v.Set("log.level", lvl)
	}
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.WithField("file", used).Debug("using config file")
	}

	// Set only fails if GOMAXPROCS holds an invalid value; keep the runtime default then.
	if _, err := maxprocs.Set(maxprocs.Logger(logger.Debugf)); err != nil {
		logger.WithError(err).Warn("maxprocs")
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
