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
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlTransform renders page markdown to an HTML fragment. One transform is
// created per conversion.
type htmlTransform struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newHTMLTransform(sanitize bool) *htmlTransform {
	t := &htmlTransform{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithXHTML()),
		),
	}
	if sanitize {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
		p.AllowDataURIImages()
		t.policy = p
	}
	return t
}

// Render converts one page of markdown. Empty markdown yields empty HTML.
func (t *htmlTransform) Render(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := t.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	out := buf.Bytes()
	if t.policy != nil {
		out = t.policy.SanitizeBytes(out)
	}
	return strings.TrimSpace(string(out)), nil
}

var reBlankRun = regexp.MustCompile(`[ \t]*\n[ \t]*`)

// textFromHTML flattens an HTML fragment into plain text. Block elements end
// a line, paragraphs and headings end a paragraph, table cells are separated
// by tabs, and markup characters never survive.
func textFromHTML(fragment string) string {
	if fragment == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	pre, inText := 0, 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeOutput(b.String())

		case html.TextToken:
			text := string(z.Text())
			if pre == 0 {
				if strings.TrimSpace(text) == "" {
					// Layout whitespace between blocks; inside a block it is a soft break.
					if inText > 0 && !endsWithSpace(&b) {
						b.WriteString("\n")
					}
					continue
				}
				text = reBlankRun.ReplaceAllString(text, "\n")
			}
			b.WriteString(text)

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Pre:
				if tt == html.StartTagToken {
					pre++
				}
			case atom.Br:
				b.WriteString("\n")
			case atom.Hr:
				b.WriteString("\n\n")
			case atom.Td, atom.Th:
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteString("\t")
				}
				inText++
			case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Li:
				if tt == html.StartTagToken {
					inText++
				}
			case atom.Img:
				if alt := attr(z, hasAttr, "alt"); alt != "" {
					b.WriteString(alt)
				}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Pre:
				if pre > 0 {
					pre--
				}
				b.WriteString("\n\n")
			case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				inText = max(inText-1, 0)
				b.WriteString("\n\n")
			case atom.Blockquote, atom.Table, atom.Ul, atom.Ol:
				b.WriteString("\n\n")
			case atom.Li:
				inText = max(inText-1, 0)
				b.WriteString("\n")
			case atom.Td, atom.Th:
				inText = max(inText-1, 0)
			case atom.Tr, atom.Div:
				b.WriteString("\n")
			}
		}
	}
}

func endsWithSpace(b *strings.Builder) bool {
	s := b.String()
	return s == "" || strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\t")
}

func attr(z *html.Tokenizer, more bool, key string) string {
	for more {
		var k, v []byte
		k, v, more = z.TagAttr()
		if string(k) == key {
			return string(v)
		}
	}
	return ""
}
