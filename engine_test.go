package pdfexport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOptions() Options {
	return Options{
		DPI:            DefaultDPI,
		ImageFormat:    ImagePNG,
		MaxImages:      DefaultMaxImages,
		ForceText:      true,
		ResponseFormat: ResponseArchive,
	}
}

func TestConvertPagesAndAggregates(t *testing.T) {
	e := newTestExporter(withRenderers(fakeRenderers(
		"# Introduction\n\nFirst page body.",
		"Second page with **bold** text.",
		"",
	), nil))

	res, err := e.Convert(context.Background(), nil, defaultOptions())
	require.NoError(t, err)

	require.Equal(t, 3, res.PageCount())
	for i, p := range res.Pages {
		assert.Equal(t, i, p.Index)
	}

	var md, txt, htm []string
	for _, p := range res.Pages {
		md = append(md, p.Markdown)
		txt = append(txt, p.Text)
		htm = append(htm, p.HTML)
	}
	assert.Equal(t, strings.Join(md, MarkdownPageBreak), res.Markdown)
	assert.Equal(t, strings.Join(txt, TextPageBreak), res.Text)
	assert.Equal(t, strings.Join(htm, HTMLPageBreak), res.HTML)

	assert.Equal(t, "", res.Pages[2].Markdown)
	assert.Equal(t, "", res.Pages[2].HTML)
	assert.Equal(t, "", res.Pages[2].Text)
	assert.False(t, res.LayoutActive)
}

func TestConvertRepresentationsAgree(t *testing.T) {
	e := newTestExporter(withRenderers(fakeRenderers("# Title\n\nSome *body* text."), nil))

	res, err := e.Convert(context.Background(), nil, defaultOptions())
	require.NoError(t, err)
	page := res.Pages[0]

	assert.Equal(t, "# Title\n\nSome *body* text.", page.Markdown)
	assert.Contains(t, page.HTML, `<h1 id="title">Title</h1>`)
	assert.Contains(t, page.HTML, "<em>body</em>")
	assert.Equal(t, "Title\n\nSome body text.", page.Text)
	assert.NotContains(t, page.Text, "#")
	assert.NotContains(t, page.Text, "<")
}

func TestConvertZeroPages(t *testing.T) {
	e := newTestExporter(withRenderers(fakeRenderers(), nil))

	res, err := e.Convert(context.Background(), nil, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, res.PageCount())
	assert.Empty(t, res.Markdown)
	assert.Empty(t, res.Text)
	assert.Empty(t, res.HTML)
}

func TestConvertForceText(t *testing.T) {
	renderer := &fakeRenderer{pages: []string{""}, raw: []string{"glyphs only\r\n"}}
	counter := &rendererCounter{renderer: renderer}
	e := newTestExporter(withRenderers(counter.open, nil))

	opts := defaultOptions()
	res, err := e.Convert(context.Background(), nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "glyphs only", res.Pages[0].Text)
	assert.Equal(t, "", res.Pages[0].Markdown)
	assert.True(t, renderer.closed)

	opts.ForceText = false
	res, err = e.Convert(context.Background(), nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "", res.Pages[0].Text)
}

func TestConvertImageLimitSpansPages(t *testing.T) {
	img := rawImage{Data: pngBytes(t, 4, 4), FileType: "png"}
	images := &fakeImages{perPage: map[int][]rawImage{
		0: {img},
		1: {img},
		2: {img},
	}}
	e := newTestExporter(
		withRenderers(fakeRenderers("one", "two", "three"), nil),
		withImageSource(imageSourceOf(images)),
	)

	opts := defaultOptions()
	opts.ExtractImages = true
	opts.MaxImages = 2

	res, err := e.Convert(context.Background(), nil, opts)
	require.NoError(t, err)

	require.Len(t, res.Images, 2)
	assert.Equal(t, 0, res.Images[0].Page)
	assert.Equal(t, 1, res.Images[1].Page)
	assert.Equal(t, "page-0000-0.png", res.Images[0].Filename)
	assert.Equal(t, "page-0001-0.png", res.Images[1].Filename)
	assert.Equal(t, []int{0, 1}, images.scanned, "third page must not be scanned")
}

func TestConvertImageLimitMidPage(t *testing.T) {
	img := rawImage{Data: pngBytes(t, 2, 2)}
	images := &fakeImages{perPage: map[int][]rawImage{0: {img, img, img}}}
	e := newTestExporter(
		withRenderers(fakeRenderers("one"), nil),
		withImageSource(imageSourceOf(images)),
	)

	opts := defaultOptions()
	opts.EmbedImages = true
	opts.MaxImages = 2

	res, err := e.Convert(context.Background(), nil, opts)
	require.NoError(t, err)
	require.Len(t, res.Images, 2)
	assert.Equal(t, 0, res.Images[0].Seq)
	assert.Equal(t, 1, res.Images[1].Seq)
}

func TestConvertSkipsUndecodableImages(t *testing.T) {
	images := &fakeImages{perPage: map[int][]rawImage{0: {
		{Data: []byte("jpx payload"), FileType: "jpx", ObjNr: 7},
		{Data: pngBytes(t, 3, 2), FileType: "png", ObjNr: 9},
	}}}
	e := newTestExporter(
		withRenderers(fakeRenderers("one"), nil),
		withImageSource(imageSourceOf(images)),
	)

	opts := defaultOptions()
	opts.ExtractImages = true
	opts.ImageFormat = ImageJPEG
	opts.MaxImages = 1

	res, err := e.Convert(context.Background(), nil, opts)
	require.NoError(t, err)
	require.Len(t, res.Images, 1)
	assert.Equal(t, "page-0000-0.jpg", res.Images[0].Filename)
	assert.Equal(t, "image/jpeg", res.Images[0].MIMEType)
	assert.Equal(t, 3, res.Images[0].Width)
	assert.Equal(t, 2, res.Images[0].Height)
}

func TestConvertWithoutImageOptionsSkipsExtraction(t *testing.T) {
	called := false
	e := newTestExporter(
		withRenderers(fakeRenderers("one"), nil),
		withImageSource(func([]byte) (imageSource, error) {
			called = true
			return &fakeImages{}, nil
		}),
	)

	res, err := e.Convert(context.Background(), nil, defaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Images)
	assert.False(t, called)
}

func TestConvertLayoutUnavailable(t *testing.T) {
	layout := &rendererCounter{renderer: &fakeRenderer{}}
	e := newTestExporter(WithLayout(false), withRenderers(nil, layout.open))

	opts := defaultOptions()
	opts.UseLayout = true
	_, err := e.Convert(context.Background(), nil, opts)

	require.Error(t, err)
	assert.Equal(t, KindCapabilityUnavailable, KindOf(err))
	assert.Zero(t, layout.calls, "no conversion may be attempted")
}

func TestConvertLayoutSelectsLayoutRenderer(t *testing.T) {
	plain := &rendererCounter{renderer: &fakeRenderer{pages: []string{"plain"}}}
	layout := &rendererCounter{renderer: &fakeRenderer{pages: []string{"## Layout"}}}
	e := newTestExporter(withRenderers(plain.open, layout.open))
	e.layout = true

	opts := defaultOptions()
	opts.UseLayout = true
	res, err := e.Convert(context.Background(), nil, opts)
	require.NoError(t, err)

	assert.True(t, res.LayoutActive)
	assert.Equal(t, "## Layout", res.Markdown)
	assert.Zero(t, plain.calls)
	assert.Equal(t, 1, layout.calls)
}

func TestConvertPanicBecomesConversionFailure(t *testing.T) {
	renderer := &fakeRenderer{pages: []string{"ok", "boom"}, panicOn: 2}
	counter := &rendererCounter{renderer: renderer}
	e := newTestExporter(withRenderers(counter.open, nil))

	_, err := e.Convert(context.Background(), nil, defaultOptions())
	require.Error(t, err)
	assert.Equal(t, KindConversionFailure, KindOf(err))
	assert.True(t, renderer.closed)
}

func TestConvertRendererErrorKeepsKind(t *testing.T) {
	e := newTestExporter(withRenderers(func([]byte) (pageRenderer, error) {
		return nil, newError(KindConversionFailure, errors.New("bad xref"), "open PDF")
	}, nil))

	_, err := e.Convert(context.Background(), nil, defaultOptions())
	assert.Equal(t, KindConversionFailure, KindOf(err))
}

func TestConvertCancelled(t *testing.T) {
	e := newTestExporter(withRenderers(fakeRenderers("one", "two"), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Convert(ctx, nil, defaultOptions())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertPlainRendererOnRealPDF(t *testing.T) {
	e := newTestExporter()

	res, err := e.Convert(context.Background(), buildTextPDF("Hello first page", "Hello second page"), defaultOptions())
	require.NoError(t, err)

	require.Equal(t, 2, res.PageCount())
	assert.Contains(t, res.Pages[0].Markdown, "first")
	assert.Contains(t, res.Pages[1].Text, "second")
	assert.Equal(t, 1, strings.Count(res.Markdown, MarkdownPageBreak))
}

func TestConvertPlainRendererKeepsMarkupCharacters(t *testing.T) {
	e := newTestExporter()

	res, err := e.Convert(context.Background(), buildTextPDF("Use <div> elements here", "# of units sold", "a*b*c and x_y_z"), defaultOptions())
	require.NoError(t, err)
	require.Equal(t, 3, res.PageCount())

	assert.Equal(t, "Use <div> elements here", res.Pages[0].Text)
	assert.Contains(t, res.Pages[0].HTML, "&lt;div&gt;")

	assert.Equal(t, "# of units sold", res.Pages[1].Text)
	assert.NotContains(t, res.Pages[1].HTML, "<h1")

	assert.Equal(t, "a*b*c and x_y_z", res.Pages[2].Text)
	assert.NotContains(t, res.Pages[2].HTML, "<em")
}
