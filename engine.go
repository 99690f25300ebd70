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
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// pageRenderer turns the pages of one open document into markdown.
type pageRenderer interface {
	// PageCount returns the number of pages in the document.
	PageCount() int
	// RenderPage returns the markdown for the zero-based page index.
	RenderPage(index int) (string, error)
	// RawText returns the page's glyph text without structure. It backs the
	// force_text fallback.
	RawText(index int) (string, error)
	Close() error
}

// rendererFactory opens a document. Errors must already be *Error values so
// that capability problems stay distinguishable from bad documents.
type rendererFactory func(data []byte) (pageRenderer, error)

// Convert renders data into per-page and full-document artifacts.
// Cancellation is observed between pages; a cancelled conversion returns the
// context's error and no partial result.
func (e *Exporter) Convert(ctx context.Context, data []byte, opts Options) (*Result, error) {
	return e.convert(ctx, data, opts, 0)
}

func (e *Exporter) convert(ctx context.Context, data []byte, opts Options, pageHint int) (*Result, error) {
	if opts.UseLayout && !e.layout {
		return nil, newError(KindCapabilityUnavailable, nil, layoutUnavailableMsg)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	open := e.openPlain
	if opts.UseLayout {
		open = e.openLayout
	}
	r, err := open(data)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var images imageSource
	if opts.ImagesRequested() {
		images, err = e.openImages(data)
		if err != nil {
			return nil, err
		}
	}

	n := r.PageCount()
	if pageHint > 0 && pageHint != n {
		e.logger.WithFields(logrus.Fields{"resolved": pageHint, "renderer": n}).Debug("page count mismatch")
	}

	html := newHTMLTransform(e.sanitizeHTML)
	res := &Result{
		Pages:        make([]PageArtifact, 0, n),
		LayoutActive: opts.UseLayout,
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := e.convertPage(r, html, i, opts)
		if err != nil {
			return nil, err
		}
		res.Pages = append(res.Pages, page)

		if images == nil {
			continue
		}
		remaining := opts.MaxImages - len(res.Images)
		if remaining <= 0 {
			// Budget spent; later pages are not scanned.
			images = nil
			continue
		}
		extracted, err := e.extractPageImages(images, i, opts, remaining)
		if err != nil {
			return nil, err
		}
		res.Images = append(res.Images, extracted...)
	}

	res.Markdown = joinPages(res.Pages, MarkdownPageBreak, func(p PageArtifact) string { return p.Markdown })
	res.Text = joinPages(res.Pages, TextPageBreak, func(p PageArtifact) string { return p.Text })
	res.HTML = joinPages(res.Pages, HTMLPageBreak, func(p PageArtifact) string { return p.HTML })
	return res, nil
}

// convertPage renders one page into its markdown, HTML and text forms.
// Parser panics on malformed content are turned into ConversionFailure.
func (e *Exporter) convertPage(r pageRenderer, html *htmlTransform, index int, opts Options) (page PageArtifact, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = newError(KindConversionFailure, fmt.Errorf("%v", rec), "render page %d", index)
		}
	}()

	md, err := r.RenderPage(index)
	if err != nil {
		return PageArtifact{}, asKind(KindConversionFailure, err, "render page %d", index)
	}
	md = normalizeOutput(md)

	htm, err := html.Render(md)
	if err != nil {
		return PageArtifact{}, newError(KindConversionFailure, err, "render page %d html", index)
	}

	text := textFromHTML(htm)
	if text == "" && opts.ForceText {
		raw, err := r.RawText(index)
		if err != nil {
			e.logger.WithError(err).WithField("page", index).Debug("raw text fallback failed")
		}
		text = normalizeOutput(raw)
	}

	return PageArtifact{
		Index:    index,
		Markdown: md,
		Text:     text,
		HTML:     htm,
	}, nil
}

func joinPages(pages []PageArtifact, sep string, field func(PageArtifact) string) string {
	return strings.Join(pageField(pages, field), sep)
}

// asKind keeps an existing *Error intact and wraps anything else.
func asKind(kind Kind, err error, format string, args ...any) error {
	if KindOf(err) != "" {
		return err
	}
	return newError(kind, err, format, args...)
}
