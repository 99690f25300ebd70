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

// Package pdfexport converts PDF documents into synchronized Markdown, plain
// text and HTML renditions (per page and full document), optionally extracts
// embedded images, and packages the result as a JSON envelope or a ZIP archive.
package pdfexport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultFetchTimeout bounds URL fetches and local reads.
	DefaultFetchTimeout = 60 * time.Second
	// DefaultMaxSourceBytes caps the size of one input document.
	DefaultMaxSourceBytes = 200 * 1024 * 1024
)

// Exporter runs the export pipeline: validate, resolve, convert, package.
// An Exporter is safe for concurrent use.
type Exporter struct {
	logger         logrus.FieldLogger
	layout         bool
	fetchTimeout   time.Duration
	httpClient     *http.Client
	maxSourceBytes int64
	allowLocal     bool
	localRoot      string
	workers        int
	sanitizeHTML   bool

	sem        *semaphore.Weighted
	openPlain  rendererFactory
	openLayout rendererFactory
	openImages imageSourceFactory
	newJobID   func() string
}

// New creates an Exporter with the given options.
func New(opts ...Option) *Exporter {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	e := &Exporter{
		logger:         discard,
		layout:         LayoutCompiled,
		fetchTimeout:   DefaultFetchTimeout,
		maxSourceBytes: DefaultMaxSourceBytes,
		allowLocal:     true,
		workers:        ResolveWorkers(0),
		sanitizeHTML:   true,
		openPlain:      openPlainRenderer,
		openImages:     openPDFCPUImages,
		newJobID: func() string {
			return uuid.New().String()
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: e.fetchTimeout}
	}
	if e.openLayout == nil {
		workers := e.workers
		e.openLayout = func(data []byte) (pageRenderer, error) {
			return openLayoutRenderer(data, workers)
		}
	}
	e.sem = semaphore.NewWeighted(int64(e.workers))
	return e
}

// LayoutAvailable reports whether layout mode can be requested.
func (e *Exporter) LayoutAvailable() bool {
	return e.layout
}

// Workers returns the number of conversions allowed to run at once.
func (e *Exporter) Workers() int {
	return e.workers
}

// Run validates req, resolves its source and converts the document.
// The returned Job is ready for packaging.
func (e *Exporter) Run(ctx context.Context, req Request) (*Job, error) {
	src, opts, err := e.Validate(req)
	if err != nil {
		return nil, err
	}

	doc, err := e.Resolve(ctx, src)
	if err != nil {
		return nil, err
	}

	log := e.logger.WithFields(logrus.Fields{
		"source": doc.Kind,
		"name":   doc.Name,
		"bytes":  len(doc.Data),
	})
	log.Debug("source resolved")

	start := time.Now()
	result, err := e.convert(ctx, doc.Data, opts, doc.PageCount)
	if err != nil {
		log.WithError(err).Warn("conversion failed")
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"pages":    result.PageCount(),
		"images":   len(result.Images),
		"layout":   result.LayoutActive,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("document converted")

	return &Job{
		ID:      e.newJobID(),
		Created: time.Now().UTC(),
		Source: SourceInfo{
			Kind:  doc.Kind,
			Name:  doc.Name,
			Bytes: len(doc.Data),
		},
		Options: opts,
		Result:  result,
	}, nil
}

// Export runs the full pipeline and packages the outcome per the request's
// response format. On any error no partial delivery is returned.
func (e *Exporter) Export(ctx context.Context, req Request) (*Delivery, error) {
	job, err := e.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return Package(job)
}
