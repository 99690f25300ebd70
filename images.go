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
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	// Register decoders for image.Decode.
	_ "golang.org/x/image/webp"
)

// rawImage is an embedded image as stored in the PDF.
type rawImage struct {
	Data     []byte
	FileType string
	ObjNr    int
}

// imageSource lists the embedded images of an open document.
type imageSource interface {
	// PageImages returns the images on the zero-based page in discovery order.
	PageImages(index int) ([]rawImage, error)
	// PageSize returns the page's media box in points.
	PageSize(index int) (width, height float64, ok bool)
}

type imageSourceFactory func(data []byte) (imageSource, error)

// extractPageImages decodes and re-encodes up to limit images from one page.
// Images that cannot be decoded are skipped and do not count toward the limit.
func (e *Exporter) extractPageImages(src imageSource, index int, opts Options, limit int) ([]ImageArtifact, error) {
	raws, err := src.PageImages(index)
	if err != nil {
		return nil, asKind(KindConversionFailure, err, "extract images from page %d", index)
	}
	if len(raws) == 0 {
		return nil, nil
	}

	pageW, pageH, sized := src.PageSize(index)

	var out []ImageArtifact
	for _, raw := range raws {
		if len(out) >= limit {
			break
		}
		log := e.logger.WithFields(logrus.Fields{"page": index, "obj": raw.ObjNr, "type": raw.FileType})

		img, _, err := image.Decode(bytes.NewReader(raw.Data))
		if err != nil {
			log.WithError(err).Warn("skipping undecodable image")
			continue
		}
		if sized {
			img = fitToPage(img, pageW, pageH, opts.DPI)
		}

		data, err := encodeImage(img, opts.ImageFormat)
		if err != nil {
			return nil, newError(KindConversionFailure, err, "encode image %d on page %d", raw.ObjNr, index)
		}

		seq := len(out)
		b := img.Bounds()
		out = append(out, ImageArtifact{
			Filename: imageFilename(index, seq, opts.ImageFormat),
			Page:     index,
			Seq:      seq,
			MIMEType: mimetype.Detect(data).String(),
			Width:    b.Dx(),
			Height:   b.Dy(),
			Data:     data,
		})
	}
	return out, nil
}

func imageFilename(page, seq int, f ImageFormat) string {
	return fmt.Sprintf("page-%04d-%d.%s", page, seq, f.Extension())
}

// fitToPage downsamples img so it is no larger than the page rendered at dpi.
// Images already within bounds are returned unchanged.
func fitToPage(img image.Image, pageW, pageH float64, dpi int) image.Image {
	if pageW <= 0 || pageH <= 0 || dpi <= 0 {
		return img
	}
	maxW := int(math.Ceil(pageW * float64(dpi) / 72))
	maxH := int(math.Ceil(pageH * float64(dpi) / 72))

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encodeImage(img image.Image, f ImageFormat) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case ImagePNG:
		err = png.Encode(&buf, img)
	case ImageJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case ImageGIF:
		err = gif.Encode(&buf, img, nil)
	case ImageBMP:
		err = bmp.Encode(&buf, img)
	case ImageTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, fmt.Errorf("unsupported image format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
