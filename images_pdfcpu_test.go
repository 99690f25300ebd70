package pdfexport

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildImagePDF writes a single-page PDF that paints one JPEG XObject.
func buildImagePDF(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, img, nil))

	content := "q 200 0 0 100 72 600 cm /Im1 Do Q"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /XObject << /Im1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n%s\nendstream",
			w, h, jpg.Len(), jpg.String()),
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

func TestPDFCPUImagesExtractsJPEG(t *testing.T) {
	src, err := openPDFCPUImages(buildImagePDF(t, 16, 8))
	require.NoError(t, err)

	w, h, ok := src.PageSize(0)
	require.True(t, ok)
	assert.Equal(t, 612.0, w)
	assert.Equal(t, 792.0, h)

	_, _, ok = src.PageSize(5)
	assert.False(t, ok)

	raws, err := src.PageImages(0)
	require.NoError(t, err)
	require.Len(t, raws, 1)

	decoded, _, err := image.Decode(bytes.NewReader(raws[0].Data))
	require.NoError(t, err)
	assert.Equal(t, 16, decoded.Bounds().Dx())
	assert.Equal(t, 8, decoded.Bounds().Dy())
}

func TestPDFCPUImagesRejectsGarbage(t *testing.T) {
	_, err := openPDFCPUImages([]byte("%PDF-1.4\nnot really"))
	require.Error(t, err)
	assert.Equal(t, KindConversionFailure, KindOf(err))
}

func TestConvertExtractsRealImages(t *testing.T) {
	opts := defaultOptions()
	opts.ExtractImages = true
	opts.ImageFormat = ImagePNG

	res, err := newTestExporter().Convert(context.Background(), buildImagePDF(t, 16, 8), opts)
	require.NoError(t, err)

	require.Equal(t, 1, res.PageCount())
	require.Len(t, res.Images, 1)
	assert.Equal(t, "page-0000-0.png", res.Images[0].Filename)
	assert.Equal(t, "image/png", res.Images[0].MIMEType)
}
