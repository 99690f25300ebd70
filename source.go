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
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// SourceKind names where a document came from.
type SourceKind string

const (
	SourceUpload SourceKind = "upload"
	SourcePath   SourceKind = "path"
	SourceURL    SourceKind = "url"
	SourceBase64 SourceKind = "base64"
)

const defaultDocumentName = "document.pdf"

// Source is one of UploadSource, PathSource, URLSource or Base64Source.
type Source interface {
	Kind() SourceKind
	// Name is a display name used for logs and artifact naming.
	Name() string
	isSource()
}

// UploadSource carries bytes received directly from the caller.
type UploadSource struct {
	Filename string
	Data     []byte
}

// PathSource names a file on the server's filesystem.
type PathSource struct {
	Path string
}

// URLSource names an http(s) resource to fetch.
type URLSource struct {
	URL string
}

// Base64Source carries base64 text, optionally with a data: URI prefix.
type Base64Source struct {
	Data string
}

func (UploadSource) Kind() SourceKind { return SourceUpload }
func (PathSource) Kind() SourceKind   { return SourcePath }
func (URLSource) Kind() SourceKind    { return SourceURL }
func (Base64Source) Kind() SourceKind { return SourceBase64 }

func (s UploadSource) Name() string {
	if name := filepath.Base(strings.TrimSpace(s.Filename)); name != "" && name != "." && name != string(filepath.Separator) {
		return name
	}
	return defaultDocumentName
}

func (s PathSource) Name() string {
	return filepath.Base(s.Path)
}

func (s URLSource) Name() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return defaultDocumentName
	}
	if name := path.Base(u.Path); name != "" && name != "." && name != "/" {
		return name
	}
	return defaultDocumentName
}

func (Base64Source) Name() string { return defaultDocumentName }

func (UploadSource) isSource() {}
func (PathSource) isSource()   {}
func (URLSource) isSource()    {}
func (Base64Source) isSource() {}

// Document is a resolved source: its bytes plus what was learned while
// fetching them.
type Document struct {
	Kind SourceKind
	Name string
	Data []byte
	// PageCount is the pdfcpu page count, or 0 if counting failed.
	PageCount int
}

// Resolve turns src into document bytes. Failures to obtain the bytes are
// SourceUnreachable; bytes that are empty, oversized, undecodable or not a
// PDF are InvalidDocument.
func (e *Exporter) Resolve(ctx context.Context, src Source) (*Document, error) {
	var (
		data []byte
		err  error
	)
	switch s := src.(type) {
	case UploadSource:
		data = s.Data
	case PathSource:
		data, err = e.readLocal(ctx, s.Path)
	case URLSource:
		data, err = e.fetchRemote(ctx, s.URL)
	case Base64Source:
		data, err = decodeBase64(s.Data)
	default:
		return nil, newError(KindInvalidOptions, nil, "unsupported source %T", src)
	}
	if err != nil {
		return nil, err
	}

	if err := e.checkDocument(data); err != nil {
		return nil, err
	}

	doc := &Document{
		Kind: src.Kind(),
		Name: src.Name(),
		Data: data,
	}
	doc.PageCount = e.countPages(data)
	return doc, nil
}

func (e *Exporter) checkDocument(data []byte) error {
	if len(data) == 0 {
		return newError(KindInvalidDocument, nil, "document is empty")
	}
	if int64(len(data)) > e.maxSourceBytes {
		return newError(KindInvalidDocument, nil, "document exceeds %d bytes", e.maxSourceBytes)
	}
	mt := mimetype.Detect(data)
	if !mt.Is("application/pdf") {
		return newError(KindInvalidDocument, nil, "expected application/pdf, detected %s", mt.String())
	}
	return nil
}

type readResult struct {
	data []byte
	err  error
}

// readLocal reads a file with the fetch timeout applied. The read runs in a
// goroutine so a stalled filesystem cannot hold the request past its deadline.
func (e *Exporter) readLocal(ctx context.Context, p string) ([]byte, error) {
	if !e.allowLocal {
		return nil, newError(KindSourceUnreachable, nil, "pdf_path sources are disabled")
	}

	abs, err := e.confine(p)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	done := make(chan readResult, 1)
	go func() {
		data, err := e.readFile(abs)
		done <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, newError(KindSourceUnreachable, ctx.Err(), "read %s", p)
	case res := <-done:
		return res.data, res.err
	}
}

func (e *Exporter) confine(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", newError(KindSourceUnreachable, err, "resolve %s", p)
	}
	if e.localRoot == "" {
		return abs, nil
	}

	root, err := filepath.Abs(e.localRoot)
	if err != nil {
		return "", newError(KindSourceUnreachable, err, "resolve local root")
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", newError(KindSourceUnreachable, nil, "%s is outside the allowed directory", p)
	}
	return abs, nil
}

func (e *Exporter) readFile(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, newError(KindSourceUnreachable, err, "open %s", p)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, newError(KindSourceUnreachable, err, "stat %s", p)
	}
	if info.IsDir() {
		return nil, newError(KindSourceUnreachable, nil, "%s is a directory", p)
	}
	if info.Size() > e.maxSourceBytes {
		return nil, newError(KindInvalidDocument, nil, "document exceeds %d bytes", e.maxSourceBytes)
	}

	data, err := io.ReadAll(io.LimitReader(f, e.maxSourceBytes+1))
	if err != nil {
		return nil, newError(KindSourceUnreachable, err, "read %s", p)
	}
	return data, nil
}

func (e *Exporter) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, newError(KindInvalidOptions, err, "build request")
	}
	req.Header.Set("Accept", "application/pdf, */*;q=0.5")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, newError(KindSourceUnreachable, err, "fetch %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(KindSourceUnreachable, nil, "fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxSourceBytes+1))
	if err != nil {
		return nil, newError(KindSourceUnreachable, err, "read response from %s", rawURL)
	}
	return data, nil
}

// decodeBase64 accepts plain base64 or a data: URI. Whitespace is ignored and
// padding is optional.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, newError(KindInvalidDocument, nil, "data URI has no payload")
		}
		s = s[idx+1:]
	}
	s = strings.Join(strings.Fields(s), "")

	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, newError(KindInvalidDocument, firstErr, "pdf_base64 is not valid base64")
}

// countPages asks pdfcpu for the page count. A failure is logged and
// reported as 0; the renderer remains the authority on page count.
func (e *Exporter) countPages(data []byte) (n int) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("panic", fmt.Sprint(r)).Debug("page count panicked")
			n = 0
		}
	}()

	n, err := api.PageCount(bytes.NewReader(data), pdfcpuConfig())
	if err != nil {
		e.logger.WithError(err).Debug("page count failed")
		return 0
	}
	return n
}
