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

// Package mcptool exposes the exporter as Model Context Protocol tools.
package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	pdfexport "github.com/nicholasgasior/pdfexport-go"
)

const (
	ToolExport       = "pdf_export"
	ToolCapabilities = "pdf_capabilities"
)

// Register adds the export tools to srv.
func Register(srv *mcp.Server, exp *pdfexport.Exporter) {
	registerExport(srv, exp)
	registerCapabilities(srv, exp)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type exportArgs struct {
	PDFPath       string `json:"pdf_path"`
	PDFURL        string `json:"pdf_url"`
	PDFBase64     string `json:"pdf_base64"`
	DPI           *int   `json:"dpi"`
	ExtractImages bool   `json:"extract_images"`
	ImageFormat   string `json:"image_format"`
	MaxImages     *int   `json:"max_images"`
	ForceText     *bool  `json:"force_text"`
	UseLayout     bool   `json:"use_layout"`
}

func (a exportArgs) request() pdfexport.Request {
	return pdfexport.Request{
		PDFPath:        a.PDFPath,
		PDFURL:         a.PDFURL,
		PDFBase64:      a.PDFBase64,
		DPI:            a.DPI,
		ExtractImages:  a.ExtractImages,
		ImageFormat:    a.ImageFormat,
		MaxImages:      a.MaxImages,
		ForceText:      a.ForceText,
		UseLayout:      a.UseLayout,
		ResponseFormat: string(pdfexport.ResponseJSON),
	}
}

func registerExport(srv *mcp.Server, exp *pdfexport.Exporter) {
	tool := &mcp.Tool{
		Name: ToolExport,
		Description: "Convert a PDF into Markdown, plain text and HTML, per page and in full. " +
			"Exactly one of pdf_path, pdf_url or pdf_base64 is required. Extracted images are returned as image content.",
		InputSchema: inputSchema(map[string]any{
			"pdf_path":       map[string]any{"type": "string", "description": "Path of a PDF readable by the server"},
			"pdf_url":        map[string]any{"type": "string", "description": "http(s) URL of a PDF"},
			"pdf_base64":     map[string]any{"type": "string", "description": "Base64-encoded PDF, optionally as a data: URI"},
			"dpi":            map[string]any{"type": "integer", "minimum": pdfexport.MinDPI, "maximum": pdfexport.MaxDPI},
			"extract_images": map[string]any{"type": "boolean"},
			"image_format":   map[string]any{"type": "string", "description": "png, jpeg, gif, bmp or tiff"},
			"max_images":     map[string]any{"type": "integer", "minimum": pdfexport.MinMaxImages, "maximum": pdfexport.MaxMaxImages},
			"force_text":     map[string]any{"type": "boolean", "description": "Fall back to raw text for pages that render empty"},
			"use_layout":     map[string]any{"type": "boolean", "description": "Use the layout-aware renderer"},
		}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args exportArgs
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}

		job, err := exp.Run(ctx, args.request())
		if err != nil {
			return toolError(err), nil
		}
		body, err := pdfexport.PackageJSON(job)
		if err != nil {
			return toolError(err), nil
		}

		content := []mcp.Content{&mcp.TextContent{Text: string(body)}}
		for _, img := range job.Result.Images {
			content = append(content, &mcp.ImageContent{Data: img.Data, MIMEType: img.MIMEType})
		}
		return &mcp.CallToolResult{Content: content}, nil
	})
}

func registerCapabilities(srv *mcp.Server, exp *pdfexport.Exporter) {
	tool := &mcp.Tool{
		Name:        ToolCapabilities,
		Description: "Report whether layout mode is available and the accepted option ranges.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	srv.AddTool(tool, func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		formats := pdfexport.SupportedImageFormats()
		names := make([]string, len(formats))
		for i, f := range formats {
			names[i] = string(f)
		}
		data, err := json.Marshal(map[string]any{
			"layout":           exp.LayoutAvailable(),
			"image_formats":    names,
			"dpi_range":        []int{pdfexport.MinDPI, pdfexport.MaxDPI},
			"max_images_range": []int{pdfexport.MinMaxImages, pdfexport.MaxMaxImages},
		})
		if err != nil {
			return toolError(fmt.Errorf("marshal: %w", err)), nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, nil
	})
}

// toolError reports err to the client as a tool-level failure, keeping the
// error kind visible in the message.
func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	var exportErr *pdfexport.Error
	if errors.As(err, &exportErr) {
		err = fmt.Errorf("%s: %s", exportErr.Kind, exportErr.Message())
	}
	res.SetError(err)
	return &res
}
