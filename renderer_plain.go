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
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/ledongthuc/pdf"
)

// plainRenderer is the default renderer. It reads text row by row with
// ledongthuc/pdf and emits paragraphs; it does not infer headings.
type plainRenderer struct {
	reader *pdf.Reader
	conv   *converter.Converter
}

func openPlainRenderer(data []byte) (r pageRenderer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, newError(KindConversionFailure, fmt.Errorf("%v", rec), "open PDF")
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, newError(KindConversionFailure, err, "open PDF")
	}
	return &plainRenderer{reader: reader, conv: newHTMLToMarkdown()}, nil
}

func (p *plainRenderer) PageCount() int {
	return p.reader.NumPage()
}

func (p *plainRenderer) Close() error { return nil }

func (p *plainRenderer) RenderPage(index int) (string, error) {
	page := p.reader.Page(index + 1)
	if page.V.IsNull() {
		return "", nil
	}

	// Glyph text is not Markdown; characters like "#" or "<" must survive rendering.
	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		if text := rowsToMarkdown(rows); strings.TrimSpace(text) != "" {
			return textToMarkdown(p.conv, text)
		}
	}

	return textToMarkdown(p.conv, positionalText(page))
}

func (p *plainRenderer) RawText(index int) (string, error) {
	page := p.reader.Page(index + 1)
	if page.V.IsNull() {
		return "", nil
	}

	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		f := page.Font(name)
		fonts[name] = &f
	}
	return page.GetPlainText(fonts)
}

type textRow struct {
	y    float64
	text string
}

// rowsToMarkdown joins rows into lines and inserts a paragraph break where
// the vertical gap is clearly wider than the usual line spacing.
func rowsToMarkdown(rows pdf.Rows) string {
	var lines []textRow
	for _, row := range rows {
		var line strings.Builder
		prevWasEmpty := false
		for _, word := range row.Content {
			s := word.S
			if s == "" {
				prevWasEmpty = true
				continue
			}
			// An empty string between two runs marks a word boundary.
			if line.Len() > 0 && prevWasEmpty && !strings.HasSuffix(line.String(), " ") {
				line.WriteString(" ")
			}
			line.WriteString(s)
			prevWasEmpty = false
		}
		if text := strings.TrimSpace(line.String()); text != "" {
			lines = append(lines, textRow{y: float64(row.Position), text: text})
		}
	}
	if len(lines) == 0 {
		return ""
	}

	spacing := typicalGap(lines)

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
			if spacing > 0 && math.Abs(lines[i-1].y-l.y) > spacing*1.8 {
				b.WriteString("\n")
			}
		}
		b.WriteString(l.text)
	}
	return b.String()
}

// typicalGap returns the median distance between consecutive rows.
func typicalGap(lines []textRow) float64 {
	if len(lines) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(lines)-1)
	for i := 1; i < len(lines); i++ {
		if g := math.Abs(lines[i-1].y - lines[i].y); g > 0 {
			gaps = append(gaps, g)
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Float64s(gaps)
	return gaps[len(gaps)/2]
}

type glyphRun struct {
	x, y float64
	text string
	size float64
}

type glyphLine struct {
	y    float64
	runs []glyphRun
}

// positionalText rebuilds lines from individual glyph positions. It is the
// fallback for pages whose row extraction came back empty.
func positionalText(page pdf.Page) string {
	content := page.Content()

	var runs []glyphRun
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		runs = append(runs, glyphRun{x: t.X, y: t.Y, text: t.S, size: t.FontSize})
	}
	if len(runs) == 0 {
		return ""
	}

	yTolerance := 3.0
	if runs[0].size > 0 {
		yTolerance = runs[0].size * 0.3
	}

	var lines []glyphLine
	for _, run := range runs {
		placed := false
		for i := range lines {
			if math.Abs(lines[i].y-run.y) < yTolerance {
				lines[i].runs = append(lines[i].runs, run)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, glyphLine{y: run.y, runs: []glyphRun{run}})
		}
	}

	// PDF y grows upwards: top of page first.
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].y > lines[j].y
	})

	var out strings.Builder
	for _, ln := range lines {
		sort.Slice(ln.runs, func(i, j int) bool {
			return ln.runs[i].x < ln.runs[j].x
		})

		var line strings.Builder
		var lastEnd float64
		for i, run := range ln.runs {
			if i > 0 {
				threshold := math.Max(run.size*0.2, 1.0)
				if run.x-lastEnd > threshold {
					line.WriteString(" ")
				}
			}
			line.WriteString(run.text)
			// Approximate advance: average glyph width is ~0.55em.
			lastEnd = run.x + float64(len([]rune(run.text)))*run.size*0.55
		}

		if text := strings.TrimSpace(line.String()); text != "" {
			out.WriteString(text)
			out.WriteString("\n")
		}
	}
	return out.String()
}
