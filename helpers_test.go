package pdfexport

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

// buildTextPDF writes a minimal but well-formed PDF with one Helvetica text
// line per page.
func buildTextPDF(pages ...string) []byte {
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range pages {
		escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
		stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

// minimalPDF is enough to pass the content-type gate.
var minimalPDF = buildTextPDF("Hello")

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type fakeRenderer struct {
	pages   []string
	raw     []string
	panicOn int
	closed  bool
}

func (f *fakeRenderer) PageCount() int { return len(f.pages) }

func (f *fakeRenderer) RenderPage(i int) (string, error) {
	if f.panicOn == i+1 {
		panic("broken content stream")
	}
	return f.pages[i], nil
}

func (f *fakeRenderer) RawText(i int) (string, error) {
	if i < len(f.raw) {
		return f.raw[i], nil
	}
	return "", nil
}

func (f *fakeRenderer) Close() error {
	f.closed = true
	return nil
}

// rendererCounter hands out fakeRenderers and counts how often it was asked.
type rendererCounter struct {
	calls    int
	renderer *fakeRenderer
}

func (c *rendererCounter) open(data []byte) (pageRenderer, error) {
	c.calls++
	return c.renderer, nil
}

func fakeRenderers(pages ...string) rendererFactory {
	return func([]byte) (pageRenderer, error) {
		return &fakeRenderer{pages: pages}, nil
	}
}

type fakeImages struct {
	perPage map[int][]rawImage
	width   float64
	height  float64
	scanned []int
}

func (f *fakeImages) PageImages(i int) ([]rawImage, error) {
	f.scanned = append(f.scanned, i)
	return f.perPage[i], nil
}

func (f *fakeImages) PageSize(int) (float64, float64, bool) {
	if f.width == 0 {
		return 0, 0, false
	}
	return f.width, f.height, true
}

func imageSourceOf(src *fakeImages) imageSourceFactory {
	return func([]byte) (imageSource, error) {
		return src, nil
	}
}

func newTestExporter(opts ...Option) *Exporter {
	base := []Option{withJobIDs(func() string { return "job-1" })}
	return New(append(base, opts...)...)
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
