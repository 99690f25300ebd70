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

// Package server exposes the exporter over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	pdfexport "github.com/nicholasgasior/pdfexport-go"
	"github.com/nicholasgasior/pdfexport-go/internal/config"
)

// multipartMemory is the part of an upload kept in memory; the rest spills to disk.
const multipartMemory = 32 << 20

// Server serves the export API.
type Server struct {
	exporter  *pdfexport.Exporter
	logger    logrus.FieldLogger
	maxUpload int64
}

// New creates a Server. maxUpload bounds the request body.
func New(exp *pdfexport.Exporter, logger logrus.FieldLogger, maxUpload int64) *Server {
	return &Server{exporter: exp, logger: logger, maxUpload: maxUpload}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/capabilities", s.handleCapabilities)
		r.Post("/pdf/process", s.handleProcess)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type capabilities struct {
	Layout          bool     `json:"layout"`
	Workers         int      `json:"workers"`
	ImageFormats    []string `json:"image_formats"`
	ResponseFormats []string `json:"response_formats"`
	DPI             [2]int   `json:"dpi_range"`
	MaxImages       [2]int   `json:"max_images_range"`
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	formats := pdfexport.SupportedImageFormats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	writeJSON(w, http.StatusOK, capabilities{
		Layout:          s.exporter.LayoutAvailable(),
		Workers:         s.exporter.Workers(),
		ImageFormats:    names,
		ResponseFormats: []string{string(pdfexport.ResponseJSON), string(pdfexport.ResponseArchive)},
		DPI:             [2]int{pdfexport.MinDPI, pdfexport.MaxDPI},
		MaxImages:       [2]int{pdfexport.MinMaxImages, pdfexport.MaxMaxImages},
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithField("request_id", middleware.GetReqID(r.Context()))

	req, err := s.parseRequest(w, r)
	if err != nil {
		s.fail(w, r, log, err)
		return
	}

	d, err := s.exporter.Export(r.Context(), req)
	if err != nil {
		s.fail(w, r, log, err)
		return
	}

	w.Header().Set("Content-Type", d.ContentType)
	if d.ContentType == pdfexport.ContentTypeZip {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(d.Body); err != nil {
		log.WithError(err).Debug("write response")
	}
}

// parseRequest reads a multipart or urlencoded form into a Request.
func (s *Server) parseRequest(w http.ResponseWriter, r *http.Request) (pdfexport.Request, error) {
	var req pdfexport.Request
	body := &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, s.maxUpload)}
	r.Body = body

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return req, body.formError(err)
		}
		if err := r.ParseForm(); err != nil {
			return req, body.formError(err)
		}
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return req, &pdfexport.Error{Kind: pdfexport.KindSourceUnreachable, Msg: "read upload", Err: err}
		}
		if data == nil {
			data = []byte{}
		}
		req.File = data
		req.FileName = header.Filename
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return req, &pdfexport.Error{Kind: pdfexport.KindInvalidOptions, Msg: "read upload", Err: err}
	}

	req.PDFPath = r.FormValue("pdf_path")
	req.PDFURL = r.FormValue("pdf_url")
	req.PDFBase64 = r.FormValue("pdf_base64")
	req.ImageFormat = r.FormValue("image_format")
	req.ResponseFormat = r.FormValue("response_format")

	var errs []error
	intField := func(name string) *int {
		v := strings.TrimSpace(r.FormValue(name))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer, got %q", name, v))
			return nil
		}
		return &n
	}
	boolField := func(name string) bool {
		v, err := pdfexport.ParseBool(r.FormValue(name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return v
	}

	req.DPI = intField("dpi")
	req.MaxImages = intField("max_images")
	req.ExtractImages = boolField("extract_images")
	req.WriteImages = boolField("write_images")
	req.EmbedImages = boolField("embed_images")
	req.UseLayout = boolField("use_layout")
	if strings.TrimSpace(r.FormValue("force_text")) != "" {
		v := boolField("force_text")
		req.ForceText = &v
	}

	if len(errs) > 0 {
		// Source cardinality is reported ahead of malformed fields.
		if _, _, err := s.exporter.Validate(req); pdfexport.IsKind(err, pdfexport.KindAmbiguousSource) {
			return req, err
		}
		return req, &pdfexport.Error{Kind: pdfexport.KindInvalidOptions, Msg: "invalid form field", Err: errors.Join(errs...)}
	}
	return req, nil
}

// limitedBody remembers whether the upload limit was hit, since form parsing
// does not always keep *http.MaxBytesError in the error chain.
type limitedBody struct {
	io.ReadCloser
	tooLarge *http.MaxBytesError
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.tooLarge = tooLarge
	}
	return n, err
}

// formError separates an oversized body from a malformed one.
func (b *limitedBody) formError(err error) error {
	tooLarge := b.tooLarge
	if tooLarge == nil && !errors.As(err, &tooLarge) {
		return &pdfexport.Error{Kind: pdfexport.KindInvalidOptions, Msg: "malformed form", Err: err}
	}
	return &pdfexport.Error{Kind: pdfexport.KindInvalidDocument, Msg: fmt.Sprintf("document exceeds %d bytes", tooLarge.Limit)}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	status, body := describe(r.Context(), err)
	entry := log.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("export failed")
	} else {
		entry.Info("export rejected")
	}
	writeJSON(w, status, body)
}

// describe maps an export error onto an HTTP status and a client-safe body.
func describe(ctx context.Context, err error) (int, errorBody) {
	// Fetch timeouts arrive wrapped in SourceUnreachable and keep that kind.
	var exportErr *pdfexport.Error
	isExport := errors.As(err, &exportErr)
	if ctx.Err() != nil || (!isExport && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))) {
		return http.StatusServiceUnavailable, errorBody{Error: errorDetail{Kind: "Canceled", Message: "request was cancelled before completion"}}
	}
	if !isExport {
		return http.StatusInternalServerError, errorBody{Error: errorDetail{Kind: "Internal", Message: "internal error"}}
	}

	status := http.StatusInternalServerError
	switch exportErr.Kind {
	case pdfexport.KindAmbiguousSource, pdfexport.KindInvalidOptions,
		pdfexport.KindConflictingDeliveryMode, pdfexport.KindCapabilityUnavailable:
		status = http.StatusBadRequest
	case pdfexport.KindInvalidDocument:
		status = http.StatusUnprocessableEntity
	case pdfexport.KindSourceUnreachable:
		status = http.StatusBadGateway
	case pdfexport.KindConversionFailure, pdfexport.KindPackagingFailure:
		status = http.StatusInternalServerError
	}

	return status, errorBody{Error: errorDetail{Kind: string(exportErr.Kind), Message: exportErr.Message()}}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).Round(time.Millisecond),
			}).Debug("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Run serves handler on cfg.Addr until ctx is done, then shuts down
// gracefully within cfg.ShutdownTimeout.
func Run(ctx context.Context, cfg config.ServerConfig, handler http.Handler, logger logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
