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
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"
)

// Archive layout.
const (
	ArchiveMarkdown  = "full.md"
	ArchiveText      = "full.txt"
	ArchiveHTML      = "full.html"
	ArchiveManifest  = "manifest.json"
	pagesMarkdownDir = "pages"
	pagesTextDir     = "pages_text"
	pagesHTMLDir     = "pages_html"
	imagesDir        = "images"
)

// Content types of a Delivery.
const (
	ContentTypeJSON = "application/json"
	ContentTypeZip  = "application/zip"
)

// SourceInfo describes the resolved input of a job.
type SourceInfo struct {
	Kind  SourceKind `json:"kind"`
	Name  string     `json:"name"`
	Bytes int        `json:"bytes"`
}

// Job is one completed conversion awaiting packaging.
type Job struct {
	ID      string
	Created time.Time
	Source  SourceInfo
	Options Options
	Result  *Result
}

// Delivery is a packaged response: either a JSON document or a ZIP archive.
type Delivery struct {
	ContentType string
	Filename    string
	Body        []byte
}

// Stem is the source name without its extension; used to name downloads.
func (j *Job) Stem() string {
	name := j.Source.Name
	if ext := path.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" {
		return "document"
	}
	return name
}

// Package builds the delivery selected by the job's response format.
// Nothing is returned unless the whole envelope was assembled.
func Package(job *Job) (*Delivery, error) {
	switch job.Options.ResponseFormat {
	case ResponseJSON:
		body, err := PackageJSON(job)
		if err != nil {
			return nil, err
		}
		return &Delivery{ContentType: ContentTypeJSON, Filename: job.Stem() + ".json", Body: body}, nil
	default:
		body, err := PackageArchive(job)
		if err != nil {
			return nil, err
		}
		return &Delivery{ContentType: ContentTypeZip, Filename: job.Stem() + "-artifacts.zip", Body: body}, nil
	}
}

type envelope struct {
	JobID        string         `json:"job_id"`
	Input        envelopeInput  `json:"input"`
	LayoutActive bool           `json:"layout_active"`
	PageCount    int            `json:"page_count"`
	Output       envelopeOutput `json:"output"`
}

type envelopeInput struct {
	Source  SourceInfo `json:"source"`
	Options Options    `json:"options"`
}

type envelopeOutput struct {
	Markdown representation `json:"markdown"`
	Text     representation `json:"text"`
	HTML     representation `json:"html"`
	Images   []imageEntry   `json:"images"`
}

type representation struct {
	Full  string   `json:"full"`
	Pages []string `json:"pages"`
}

type imageEntry struct {
	Filename  string `json:"filename"`
	Page      int    `json:"page"`
	Seq       int    `json:"seq"`
	MIMEType  string `json:"mime_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Path      string `json:"path,omitempty"`
	Base64    string `json:"base64,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// PackageJSON renders the job as a single JSON document. Every image is
// inlined as base64; with write_images the archive path is given as a
// reference as well.
func PackageJSON(job *Job) ([]byte, error) {
	res := job.Result
	env := envelope{
		JobID:        job.ID,
		Input:        envelopeInput{Source: job.Source, Options: job.Options},
		LayoutActive: res.LayoutActive,
		PageCount:    res.PageCount(),
		Output: envelopeOutput{
			Markdown: representation{Full: res.Markdown, Pages: pageField(res.Pages, func(p PageArtifact) string { return p.Markdown })},
			Text:     representation{Full: res.Text, Pages: pageField(res.Pages, func(p PageArtifact) string { return p.Text })},
			HTML:     representation{Full: res.HTML, Pages: pageField(res.Pages, func(p PageArtifact) string { return p.HTML })},
			Images:   make([]imageEntry, 0, len(res.Images)),
		},
	}
	for _, img := range res.Images {
		entry := newImageEntry(img)
		entry.Base64 = base64.StdEncoding.EncodeToString(img.Data)
		if job.Options.WriteImages {
			entry.Reference = imagesDir + "/" + img.Filename
		}
		env.Output.Images = append(env.Output.Images, entry)
	}

	body, err := marshalJSON(env, "")
	if err != nil {
		return nil, newError(KindPackagingFailure, err, "encode JSON envelope")
	}
	return body, nil
}

type manifest struct {
	JobID        string       `json:"job_id"`
	Created      time.Time    `json:"created"`
	Source       SourceInfo   `json:"source"`
	Options      Options      `json:"options"`
	LayoutActive bool         `json:"layout_active"`
	PageCount    int          `json:"page_count"`
	ImageCount   int          `json:"image_count"`
	Images       []imageEntry `json:"images"`
	Files        []string     `json:"files"`
}

// PackageArchive renders the job as a ZIP archive. The archive is built in
// memory and returned only when complete.
func PackageArchive(job *Job) ([]byte, error) {
	res := job.Result
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	var files []string

	add := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: job.Created,
		})
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		files = append(files, name)
		return nil
	}

	fail := func(err error, name string) ([]byte, error) {
		return nil, newError(KindPackagingFailure, err, "write %s", name)
	}

	for _, f := range []struct {
		name string
		body string
	}{
		{ArchiveMarkdown, res.Markdown},
		{ArchiveText, res.Text},
		{ArchiveHTML, res.HTML},
	} {
		if err := add(f.name, []byte(f.body)); err != nil {
			return fail(err, f.name)
		}
	}

	for _, dir := range []struct {
		dir   string
		ext   string
		field func(PageArtifact) string
	}{
		{pagesMarkdownDir, "md", func(p PageArtifact) string { return p.Markdown }},
		{pagesTextDir, "txt", func(p PageArtifact) string { return p.Text }},
		{pagesHTMLDir, "html", func(p PageArtifact) string { return p.HTML }},
	} {
		for _, p := range res.Pages {
			name := fmt.Sprintf("%s/page-%04d.%s", dir.dir, p.Index, dir.ext)
			if err := add(name, []byte(dir.field(p))); err != nil {
				return fail(err, name)
			}
		}
	}

	m := manifest{
		JobID:        job.ID,
		Created:      job.Created,
		Source:       job.Source,
		Options:      job.Options,
		LayoutActive: res.LayoutActive,
		PageCount:    res.PageCount(),
		ImageCount:   len(res.Images),
		Images:       make([]imageEntry, 0, len(res.Images)),
	}
	for _, img := range res.Images {
		entry := newImageEntry(img)
		// Without write_images or embed_images the manifest only describes the image.
		switch {
		case job.Options.EmbedImages:
			entry.Base64 = base64.StdEncoding.EncodeToString(img.Data)
		case job.Options.WriteImages:
			entry.Path = imagesDir + "/" + img.Filename
			if err := add(entry.Path, img.Data); err != nil {
				return fail(err, entry.Path)
			}
		}
		m.Images = append(m.Images, entry)
	}
	m.Files = files

	body, err := marshalJSON(m, "  ")
	if err != nil {
		return nil, newError(KindPackagingFailure, err, "encode manifest")
	}
	if err := add(ArchiveManifest, body); err != nil {
		return fail(err, ArchiveManifest)
	}
	if err := zw.Close(); err != nil {
		return fail(err, "archive")
	}
	return buf.Bytes(), nil
}

func newImageEntry(img ImageArtifact) imageEntry {
	return imageEntry{
		Filename: img.Filename,
		Page:     img.Page,
		Seq:      img.Seq,
		MIMEType: img.MIMEType,
		Width:    img.Width,
		Height:   img.Height,
	}
}

func pageField(pages []PageArtifact, field func(PageArtifact) string) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = field(p)
	}
	return out
}

// marshalJSON encodes v without escaping HTML so that generated markup is
// carried byte-for-byte.
func marshalJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
