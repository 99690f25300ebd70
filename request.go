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

package pdfexport

import (
	"fmt"
	"net/url"
	"strings"
)

// Option bounds and defaults.
const (
	DefaultDPI       = 150
	MinDPI           = 36
	MaxDPI           = 1200
	DefaultMaxImages = 30
	MinMaxImages     = 1
	MaxMaxImages     = 1000
)

// Request is a raw export request as received from a transport.
// Nil pointers and empty strings mean "use the default".
type Request struct {
	// Exactly one source must be set. File counts as set when non-nil,
	// even if empty, so an empty upload is reported as InvalidDocument.
	File      []byte
	FileName  string
	PDFPath   string
	PDFURL    string
	PDFBase64 string

	DPI            *int
	ExtractImages  bool
	ImageFormat    string
	MaxImages      *int
	WriteImages    bool
	ForceText      *bool
	EmbedImages    bool
	UseLayout      bool
	ResponseFormat string
}

const layoutUnavailableMsg = "layout mode is unavailable in this deployment"

// Validate checks req without touching any document bytes and returns the
// selected source together with fully-defaulted options.
//
// Checks run in order: source cardinality, delivery-mode conflict, layout
// capability, option ranges. The first failure is returned.
func (e *Exporter) Validate(req Request) (Source, Options, error) {
	src, err := selectSource(req)
	if err != nil {
		return nil, Options{}, err
	}

	// The conflict holds even when extract_images is false.
	if req.WriteImages && req.EmbedImages {
		return nil, Options{}, newError(KindConflictingDeliveryMode, nil,
			"write_images and embed_images are mutually exclusive")
	}

	if req.UseLayout && !e.layout {
		return nil, Options{}, newError(KindCapabilityUnavailable, nil, layoutUnavailableMsg)
	}

	if u, ok := src.(URLSource); ok {
		if err := checkURL(u.URL); err != nil {
			return nil, Options{}, err
		}
	}

	opts, err := resolveOptions(req)
	if err != nil {
		return nil, Options{}, err
	}
	return src, opts, nil
}

func selectSource(req Request) (Source, error) {
	var sources []Source
	if req.File != nil {
		sources = append(sources, UploadSource{Filename: req.FileName, Data: req.File})
	}
	if p := strings.TrimSpace(req.PDFPath); p != "" {
		sources = append(sources, PathSource{Path: p})
	}
	if u := strings.TrimSpace(req.PDFURL); u != "" {
		sources = append(sources, URLSource{URL: u})
	}
	if b := strings.TrimSpace(req.PDFBase64); b != "" {
		sources = append(sources, Base64Source{Data: b})
	}

	switch len(sources) {
	case 0:
		return nil, newError(KindAmbiguousSource, nil,
			"one of file, pdf_path, pdf_url or pdf_base64 is required")
	case 1:
	default:
		kinds := make([]string, len(sources))
		for i, s := range sources {
			kinds[i] = string(s.Kind())
		}
		return nil, newError(KindAmbiguousSource, nil,
			"exactly one source is allowed, got %s", strings.Join(kinds, ", "))
	}
	return sources[0], nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return newError(KindInvalidOptions, err, "pdf_url is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newError(KindInvalidOptions, nil, "pdf_url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return newError(KindInvalidOptions, nil, "pdf_url has no host")
	}
	return nil
}

func resolveOptions(req Request) (Options, error) {
	opts := Options{
		DPI:           DefaultDPI,
		ExtractImages: req.ExtractImages,
		ImageFormat:   ImagePNG,
		MaxImages:     DefaultMaxImages,
		WriteImages:   req.WriteImages,
		ForceText:     true,
		EmbedImages:   req.EmbedImages,
		UseLayout:     req.UseLayout,
	}

	if req.DPI != nil {
		if *req.DPI < MinDPI || *req.DPI > MaxDPI {
			return Options{}, newError(KindInvalidOptions, nil,
				"dpi must be between %d and %d, got %d", MinDPI, MaxDPI, *req.DPI)
		}
		opts.DPI = *req.DPI
	}

	if req.MaxImages != nil {
		if *req.MaxImages < MinMaxImages || *req.MaxImages > MaxMaxImages {
			return Options{}, newError(KindInvalidOptions, nil,
				"max_images must be between %d and %d, got %d", MinMaxImages, MaxMaxImages, *req.MaxImages)
		}
		opts.MaxImages = *req.MaxImages
	}

	if req.ForceText != nil {
		opts.ForceText = *req.ForceText
	}

	if f := strings.TrimSpace(req.ImageFormat); f != "" {
		format, err := ParseImageFormat(f)
		if err != nil {
			return Options{}, err
		}
		opts.ImageFormat = format
	}

	format, err := ParseResponseFormat(req.ResponseFormat)
	if err != nil {
		return Options{}, err
	}
	opts.ResponseFormat = format

	return opts, nil
}

// ParseImageFormat maps a user-supplied name (case-insensitive, with the
// jpg and tif aliases) to an ImageFormat.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "jpg":
		return ImageJPEG, nil
	case "tif":
		return ImageTIFF, nil
	default:
		for _, f := range SupportedImageFormats() {
			if string(f) == v {
				return f, nil
			}
		}
	}
	return "", newError(KindInvalidOptions, nil,
		"unsupported image_format %q (want png, jpeg, gif, bmp or tiff)", s)
}

// ParseResponseFormat maps json, archive or zip (case-insensitive) to a
// ResponseFormat. The empty string selects the archive.
func ParseResponseFormat(s string) (ResponseFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "archive", "zip":
		return ResponseArchive, nil
	case "json":
		return ResponseJSON, nil
	}
	return "", newError(KindInvalidOptions, nil, "unsupported response_format %q (want json or archive)", s)
}

// ParseBool interprets the loose boolean spellings accepted by form and
// tool transports. The empty string is false.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "", "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, newError(KindInvalidOptions, nil, "invalid boolean %q", s)
}

// String renders the options for log lines.
func (o Options) String() string {
	return fmt.Sprintf("dpi=%d images=%t format=%s max=%d write=%t embed=%t force_text=%t layout=%t response=%s",
		o.DPI, o.ImagesRequested(), o.ImageFormat, o.MaxImages, o.WriteImages, o.EmbedImages,
		o.ForceText, o.UseLayout, o.ResponseFormat)
}
