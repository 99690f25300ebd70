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

//go:build !nopdfium

package pdfexport

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
	"golang.org/x/net/html"
)

// LayoutCompiled reports whether this binary carries the layout renderer.
const LayoutCompiled = true

const instanceTimeout = 30 * time.Second

var (
	pdfiumPool     pdfium.Pool
	pdfiumPoolOnce sync.Once
	pdfiumPoolErr  error
)

// initPdfiumPool starts the shared wasm pool. The first caller decides its
// size; later callers share it.
func initPdfiumPool(size int) {
	pdfiumPoolOnce.Do(func() {
		pdfiumPool, pdfiumPoolErr = webassembly.Init(webassembly.Config{
			MinIdle:  1,
			MaxIdle:  1,
			MaxTotal: max(size, 1),
		})
	})
}

// layoutRenderer recovers headings and inline emphasis from font metrics
// reported by PDFium.
type layoutRenderer struct {
	instance pdfium.Pdfium
	doc      references.FPDF_DOCUMENT
	pages    int
	conv     *converter.Converter
}

func openLayoutRenderer(data []byte, workers int) (pageRenderer, error) {
	initPdfiumPool(workers)
	if pdfiumPoolErr != nil {
		return nil, newError(KindCapabilityUnavailable, pdfiumPoolErr, layoutUnavailableMsg)
	}

	instance, err := pdfiumPool.GetInstance(instanceTimeout)
	if err != nil {
		return nil, newError(KindCapabilityUnavailable, err, layoutUnavailableMsg)
	}

	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		instance.Close()
		return nil, newError(KindConversionFailure, err, "open PDF")
	}

	count, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: doc.Document})
	if err != nil {
		instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		instance.Close()
		return nil, newError(KindConversionFailure, err, "get page count")
	}

	return &layoutRenderer{
		instance: instance,
		doc:      doc.Document,
		pages:    count.PageCount,
		conv:     newHTMLToMarkdown(),
	}, nil
}

func (l *layoutRenderer) PageCount() int {
	return l.pages
}

func (l *layoutRenderer) Close() error {
	l.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: l.doc})
	return l.instance.Close()
}

func (l *layoutRenderer) page(index int) requests.Page {
	return requests.Page{
		ByIndex: &requests.PageByIndex{
			Document: l.doc,
			Index:    index,
		},
	}
}

func (l *layoutRenderer) RawText(index int) (string, error) {
	resp, err := l.instance.GetPageText(&requests.GetPageText{Page: l.page(index)})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (l *layoutRenderer) RenderPage(index int) (string, error) {
	structured, err := l.instance.GetPageTextStructured(&requests.GetPageTextStructured{
		Page:                   l.page(index),
		Mode:                   requests.GetPageTextStructuredModeRects,
		CollectFontInformation: true,
	})
	if err != nil || len(structured.Rects) == 0 {
		// No positioned text; fall back to the flat page text.
		raw, err := l.RawText(index)
		if err != nil {
			return "", err
		}
		return textToMarkdown(l.conv, raw)
	}

	var rects []pdfRect
	for _, r := range structured.Rects {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		pr := pdfRect{
			text:   r.Text,
			left:   r.PointPosition.Left,
			top:    r.PointPosition.Top,
			right:  r.PointPosition.Right,
			bottom: r.PointPosition.Bottom,
		}
		if r.FontInformation != nil {
			pr.fontSize = r.FontInformation.Size
			pr.fontName = r.FontInformation.Name
		}
		rects = append(rects, pr)
	}
	if len(rects) == 0 {
		return "", nil
	}

	lines := groupRectsIntoLines(rects)
	fragment := renderLinesHTML(lines, detectBodyFontSize(lines))
	return l.conv.ConvertString(fragment)
}

// pdfRect is a text rectangle with font metadata from PDFium.
type pdfRect struct {
	text     string
	left     float64
	top      float64
	right    float64
	bottom   float64
	fontSize float64
	fontName string
}

// pdfTextLine is a visual line built from rects sharing a baseline.
type pdfTextLine struct {
	rects    []pdfRect
	top      float64
	bottom   float64
	left     float64
	fontSize float64 // dominant on this line
	fontName string  // dominant on this line
}

func (l *pdfTextLine) text() string {
	var b strings.Builder
	for _, r := range l.rects {
		b.WriteString(r.text)
	}
	return b.String()
}

// groupRectsIntoLines groups rects into lines, top-to-bottom, with the rects
// of each line ordered left-to-right.
func groupRectsIntoLines(rects []pdfRect) []pdfTextLine {
	sort.Slice(rects, func(i, j int) bool {
		if math.Abs(rects[i].top-rects[j].top) < 2 {
			return rects[i].left < rects[j].left
		}
		return rects[i].top > rects[j].top
	})

	var lines []pdfTextLine
	for _, r := range rects {
		merged := false
		for i := range lines {
			if math.Abs(lines[i].top-r.top) < 3 {
				lines[i].rects = append(lines[i].rects, r)
				lines[i].left = math.Min(lines[i].left, r.left)
				merged = true
				break
			}
		}
		if !merged {
			lines = append(lines, pdfTextLine{
				rects:  []pdfRect{r},
				top:    r.top,
				bottom: r.bottom,
				left:   r.left,
			})
		}
	}

	sort.Slice(lines, func(i, j int) bool {
		return lines[i].top > lines[j].top
	})

	for i := range lines {
		sort.Slice(lines[i].rects, func(a, b int) bool {
			return lines[i].rects[a].left < lines[i].rects[b].left
		})
		lines[i].fontSize, lines[i].fontName = dominantFont(lines[i].rects)
	}
	return lines
}

type fontKey struct {
	size float64
	name string
}

// dominantFont returns the font covering the most characters of a line.
// Ties are broken by size then name so the result is stable.
func dominantFont(rects []pdfRect) (float64, string) {
	counts := map[fontKey]int{}
	for _, r := range rects {
		k := fontKey{size: math.Round(r.fontSize*10) / 10, name: r.fontName}
		counts[k] += len(r.text)
	}
	var best fontKey
	bestCount := 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && (k.size > best.size || (k.size == best.size && k.name < best.name))) {
			best, bestCount = k, c
		}
	}
	return best.size, best.name
}

// detectBodyFontSize returns the most common font size weighted by
// character count.
func detectBodyFontSize(lines []pdfTextLine) float64 {
	counts := map[float64]int{}
	for _, l := range lines {
		for _, r := range l.rects {
			counts[math.Round(r.fontSize*10)/10] += len(strings.TrimSpace(r.text))
		}
	}
	var body float64
	best := 0
	for size, c := range counts {
		if c > best || (c == best && size < body) {
			best, body = c, size
		}
	}
	return body
}

func fontIsBold(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "bold") ||
		strings.Contains(lower, "medi") || // NimbusRomNo9L-Medi
		strings.Contains(lower, "black") ||
		strings.HasSuffix(lower, "bd")
}

func fontIsItalic(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "ital") ||
		strings.Contains(lower, "obli") ||
		strings.HasSuffix(lower, "-it")
}

func fontIsMono(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "mono") ||
		strings.Contains(lower, "courier") ||
		strings.Contains(lower, "consola") ||
		strings.HasPrefix(lower, "cmtt") ||
		strings.Contains(lower, "typewriter")
}

func allRectsAreBold(rects []pdfRect) bool {
	for _, r := range rects {
		if strings.TrimSpace(r.text) != "" && !fontIsBold(r.fontName) {
			return false
		}
	}
	return true
}

// headingLevel maps a font size relative to the body size onto h1..h4.
// It returns 0 for body text.
func headingLevel(fontSize, bodySize float64, bold bool) int {
	if bodySize <= 0 {
		return 0
	}
	ratio := fontSize / bodySize
	switch {
	case ratio >= 2.0:
		return 1
	case ratio >= 1.5:
		return 2
	case ratio >= 1.1:
		if bold {
			return 3
		}
		return 4
	}
	return 0
}

// isFootnoteMark reports tiny standalone runs such as superscript markers.
func isFootnoteMark(size, bodySize float64, text string) bool {
	return size > 0 && bodySize > 0 && size < bodySize*0.6 && len(strings.TrimSpace(text)) <= 3
}

// renderLinesHTML turns positioned lines into an HTML fragment. Headings get
// h1..h4, consecutive body lines share a <p> until a vertical gap larger
// than 1.5 line heights, and inline runs become strong/em/code.
func renderLinesHTML(lines []pdfTextLine, bodySize float64) string {
	var b strings.Builder
	inPara := false
	closePara := func() {
		if inPara {
			b.WriteString("</p>\n")
			inPara = false
		}
	}

	for i, line := range lines {
		raw := strings.TrimSpace(line.text())
		if raw == "" || isFootnoteMark(line.fontSize, bodySize, raw) {
			continue
		}

		bold := fontIsBold(line.fontName)
		level := headingLevel(line.fontSize, bodySize, bold)
		// Short all-bold lines at body size read as subheadings ("References").
		if level == 0 && bold && line.fontSize >= bodySize && allRectsAreBold(line.rects) && len(raw) < 80 {
			level = 4
		}

		if level > 0 {
			closePara()
			tag := "h" + string(rune('0'+level))
			b.WriteString("<" + tag + ">")
			b.WriteString(html.EscapeString(raw))
			b.WriteString("</" + tag + ">\n")
			continue
		}

		inline := renderInlineHTML(line.rects, bodySize)
		if inline == "" {
			continue
		}

		if inPara && i > 0 {
			prev := lines[i-1]
			gap := prev.bottom - line.top
			height := line.top - line.bottom
			if height <= 0 {
				height = bodySize
			}
			if gap > height*1.5 {
				closePara()
			}
		}

		if inPara {
			b.WriteString("<br>")
		} else {
			b.WriteString("<p>")
			inPara = true
		}
		b.WriteString(inline)
	}
	closePara()
	return b.String()
}

type fmtRun struct {
	text   string
	bold   bool
	italic bool
	mono   bool
}

// renderInlineHTML merges consecutive rects with identical styling and
// wraps each run in the matching inline element.
func renderInlineHTML(rects []pdfRect, bodySize float64) string {
	var runs []fmtRun
	for _, r := range rects {
		if strings.TrimSpace(r.text) == "" || isFootnoteMark(r.fontSize, bodySize, r.text) {
			continue
		}
		run := fmtRun{
			text:   r.text,
			bold:   fontIsBold(r.fontName),
			italic: fontIsItalic(r.fontName),
			mono:   fontIsMono(r.fontName),
		}
		if n := len(runs); n > 0 {
			prev := &runs[n-1]
			if prev.bold == run.bold && prev.italic == run.italic && prev.mono == run.mono {
				prev.text += run.text
				continue
			}
		}
		runs = append(runs, run)
	}

	var b strings.Builder
	for _, run := range runs {
		trimmed := strings.TrimSpace(run.text)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(run.text, " ") && b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
			b.WriteString(" ")
		}
		text := html.EscapeString(trimmed)
		switch {
		case run.mono:
			text = "<code>" + text + "</code>"
		case run.bold && run.italic:
			text = "<strong><em>" + text + "</em></strong>"
		case run.bold:
			text = "<strong>" + text + "</strong>"
		case run.italic:
			text = "<em>" + text + "</em>"
		}
		b.WriteString(text)
		if strings.HasSuffix(run.text, " ") {
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}
