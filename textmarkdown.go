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
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

func newHTMLToMarkdown() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle("atx"),
			),
			table.NewTablePlugin(),
		),
	)
}

// entityRef matches a character reference at the start of the input.
var entityRef = regexp.MustCompile(`^&(#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[A-Za-z][A-Za-z0-9]{1,31});`)

// textToMarkdown turns extracted glyph text into Markdown that renders back
// to the same characters. Every line is converted as a paragraph of its own,
// so block markers at line start are escaped too. Blank lines are kept as
// paragraph breaks.
func textToMarkdown(conv *converter.Converter, text string) (string, error) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		md, err := conv.ConvertString("<p>" + html.EscapeString(line) + "</p>")
		if err != nil {
			return "", err
		}
		lines[i] = escapeInlineHTML(strings.TrimSpace(md))
	}
	return strings.Join(lines, "\n"), nil
}

// escapeInlineHTML escapes what the converter leaves alone but a Markdown
// parser would still read as markup: tag openers and character references.
func escapeInlineHTML(md string) string {
	var b strings.Builder
	b.Grow(len(md))
	for i := 0; i < len(md); i++ {
		c := md[i]
		escaped := i > 0 && md[i-1] == '\\'
		if !escaped && (c == '<' || (c == '&' && entityRef.MatchString(md[i:]))) {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}
