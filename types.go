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

// Page boundary markers used to build the full-document aggregates.
// Full = strings.Join(pages, marker) for each representation.
const (
	MarkdownPageBreak = "\n\n-----\n\n"
	TextPageBreak     = "\n\f\n"
	HTMLPageBreak     = "\n<hr class=\"page-break\" />\n"
)

// ImageFormat is the encoding used for extracted images.
type ImageFormat string

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"
	ImageGIF  ImageFormat = "gif"
	ImageBMP  ImageFormat = "bmp"
	ImageTIFF ImageFormat = "tiff"
)

// Extension returns the file extension (without dot) for f.
func (f ImageFormat) Extension() string {
	switch f {
	case ImageJPEG:
		return "jpg"
	case ImageTIFF:
		return "tif"
	default:
		return string(f)
	}
}

// SupportedImageFormats lists the accepted image formats.
func SupportedImageFormats() []ImageFormat {
	return []ImageFormat{ImagePNG, ImageJPEG, ImageGIF, ImageBMP, ImageTIFF}
}

// ResponseFormat selects the delivery envelope.
type ResponseFormat string

const (
	ResponseJSON    ResponseFormat = "json"
	ResponseArchive ResponseFormat = "archive"
)

// Options are the validated conversion options for one request.
type Options struct {
	DPI            int            `json:"dpi"`
	ExtractImages  bool           `json:"extract_images"`
	ImageFormat    ImageFormat    `json:"image_format"`
	MaxImages      int            `json:"max_images"`
	WriteImages    bool           `json:"write_images"`
	ForceText      bool           `json:"force_text"`
	EmbedImages    bool           `json:"embed_images"`
	UseLayout      bool           `json:"use_layout"`
	ResponseFormat ResponseFormat `json:"response_format"`
}

// ImagesRequested reports whether any image option asks for extraction.
func (o Options) ImagesRequested() bool {
	return o.ExtractImages || o.WriteImages || o.EmbedImages
}

// PageArtifact is the markdown/text/html triple for exactly one page.
type PageArtifact struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
	Text     string `json:"text"`
	HTML     string `json:"html"`
}

// ImageArtifact is one extracted raster image.
type ImageArtifact struct {
	Filename string `json:"filename"`
	Page     int    `json:"page"`
	Seq      int    `json:"seq"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Data     []byte `json:"-"`
}

// Result is the synchronized output of a conversion.
type Result struct {
	Markdown     string
	Text         string
	HTML         string
	Pages        []PageArtifact
	Images       []ImageArtifact
	LayoutActive bool
}

// PageCount returns the number of converted pages.
func (r *Result) PageCount() int {
	return len(r.Pages)
}
