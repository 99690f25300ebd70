package pdfexport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSourceCardinality(t *testing.T) {
	e := newTestExporter()

	tests := []struct {
		name string
		req  Request
		want Kind
		kind SourceKind
	}{
		{name: "none", req: Request{}, want: KindAmbiguousSource},
		{name: "blank strings only", req: Request{PDFPath: "  ", PDFURL: "\t"}, want: KindAmbiguousSource},
		{name: "path and url", req: Request{PDFPath: "/tmp/a.pdf", PDFURL: "https://example.com/a.pdf"}, want: KindAmbiguousSource},
		{name: "upload and base64", req: Request{File: minimalPDF, PDFBase64: "JVBERi0="}, want: KindAmbiguousSource},
		{name: "empty upload still counts", req: Request{File: []byte{}, PDFPath: "/tmp/a.pdf"}, want: KindAmbiguousSource},
		{name: "upload", req: Request{File: minimalPDF, FileName: "a.pdf"}, kind: SourceUpload},
		{name: "path", req: Request{PDFPath: " /tmp/a.pdf "}, kind: SourcePath},
		{name: "url", req: Request{PDFURL: "https://example.com/a.pdf"}, kind: SourceURL},
		{name: "base64", req: Request{PDFBase64: "JVBERi0="}, kind: SourceBase64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _, err := e.Validate(tt.req)
			if tt.want != "" {
				require.Error(t, err)
				assert.Equal(t, tt.want, KindOf(err))
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, src.Kind())
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	_, opts, err := newTestExporter().Validate(Request{PDFPath: "a.pdf"})
	require.NoError(t, err)

	assert.Equal(t, Options{
		DPI:            DefaultDPI,
		ImageFormat:    ImagePNG,
		MaxImages:      DefaultMaxImages,
		ForceText:      true,
		ResponseFormat: ResponseArchive,
	}, opts)
	assert.False(t, opts.ImagesRequested())
}

func TestValidateOptionRanges(t *testing.T) {
	e := newTestExporter()

	tests := []struct {
		name string
		req  Request
		ok   bool
	}{
		{name: "dpi low bound", req: Request{DPI: intPtr(MinDPI)}, ok: true},
		{name: "dpi high bound", req: Request{DPI: intPtr(MaxDPI)}, ok: true},
		{name: "dpi too low", req: Request{DPI: intPtr(MinDPI - 1)}},
		{name: "dpi too high", req: Request{DPI: intPtr(MaxDPI + 1)}},
		{name: "max images zero", req: Request{MaxImages: intPtr(0)}},
		{name: "max images over", req: Request{MaxImages: intPtr(MaxMaxImages + 1)}},
		{name: "max images one", req: Request{MaxImages: intPtr(1)}, ok: true},
		{name: "bad image format", req: Request{ImageFormat: "webp"}},
		{name: "bad response format", req: Request{ResponseFormat: "xml"}},
		{name: "url scheme", req: Request{PDFURL: "ftp://example.com/a.pdf"}},
		{name: "url without host", req: Request{PDFURL: "https:///a.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if req.PDFURL == "" {
				req.PDFPath = "a.pdf"
			}
			_, _, err := e.Validate(req)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, KindInvalidOptions, KindOf(err))
		})
	}
}

func TestValidateFormatAliases(t *testing.T) {
	e := newTestExporter()

	for in, want := range map[string]ImageFormat{
		"png": ImagePNG, "JPG": ImageJPEG, "jpeg": ImageJPEG, "gif": ImageGIF,
		"bmp": ImageBMP, "tif": ImageTIFF, " TIFF ": ImageTIFF,
	} {
		_, opts, err := e.Validate(Request{PDFPath: "a.pdf", ImageFormat: in})
		require.NoError(t, err, in)
		assert.Equal(t, want, opts.ImageFormat, in)
	}

	for in, want := range map[string]ResponseFormat{
		"": ResponseArchive, "zip": ResponseArchive, "ARCHIVE": ResponseArchive, "json": ResponseJSON,
	} {
		_, opts, err := e.Validate(Request{PDFPath: "a.pdf", ResponseFormat: in})
		require.NoError(t, err, in)
		assert.Equal(t, want, opts.ResponseFormat, in)
	}
}

func TestValidateDeliveryConflict(t *testing.T) {
	e := newTestExporter()

	// Rejected even though extraction itself was not asked for.
	_, _, err := e.Validate(Request{PDFPath: "a.pdf", WriteImages: true, EmbedImages: true})
	require.Error(t, err)
	assert.Equal(t, KindConflictingDeliveryMode, KindOf(err))

	_, opts, err := e.Validate(Request{PDFPath: "a.pdf", WriteImages: true})
	require.NoError(t, err)
	assert.True(t, opts.ImagesRequested())
}

func TestValidateLayoutCapability(t *testing.T) {
	_, _, err := newTestExporter(WithLayout(false)).Validate(Request{PDFPath: "a.pdf", UseLayout: true})
	require.Error(t, err)
	assert.Equal(t, KindCapabilityUnavailable, KindOf(err))
	assert.False(t, IsValidation(err))

	var exportErr *Error
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "layout mode is unavailable in this deployment", exportErr.Message())
}

func TestValidateCheckOrder(t *testing.T) {
	e := newTestExporter(WithLayout(false))

	// Source problems win over everything else.
	_, _, err := e.Validate(Request{DPI: intPtr(1), WriteImages: true, EmbedImages: true, UseLayout: true})
	assert.Equal(t, KindAmbiguousSource, KindOf(err))

	// The conflict wins over the capability check and option ranges.
	_, _, err = e.Validate(Request{PDFPath: "a.pdf", DPI: intPtr(1), WriteImages: true, EmbedImages: true, UseLayout: true})
	assert.Equal(t, KindConflictingDeliveryMode, KindOf(err))

	// The capability check wins over option ranges.
	_, _, err = e.Validate(Request{PDFPath: "a.pdf", DPI: intPtr(1), UseLayout: true})
	assert.Equal(t, KindCapabilityUnavailable, KindOf(err))

	_, _, err = e.Validate(Request{PDFURL: "ftp://example.com/a.pdf", UseLayout: true})
	assert.Equal(t, KindCapabilityUnavailable, KindOf(err))
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"1", "true", "TRUE", "yes", "y", "on", " On "} {
		v, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"", "0", "false", "no", "n", "off"} {
		v, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := ParseBool("maybe")
	assert.Equal(t, KindInvalidOptions, KindOf(err))
}
