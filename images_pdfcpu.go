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
	"io"
	"sort"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var disableConfigDir sync.Once

// pdfcpuConfig returns a relaxed configuration that never touches the
// user's config directory.
func pdfcpuConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

type pdfcpuImages struct {
	ctx  *model.Context
	dims []types.Dim
}

func openPDFCPUImages(data []byte) (src imageSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(KindConversionFailure, fmt.Errorf("%v", r), "open document for image extraction")
		}
	}()

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), pdfcpuConfig())
	if err != nil {
		return nil, newError(KindConversionFailure, err, "open document for image extraction")
	}

	dims, err := ctx.PageDims()
	if err != nil {
		// Without page sizes images are kept at native resolution.
		dims = nil
	}
	return &pdfcpuImages{ctx: ctx, dims: dims}, nil
}

func (p *pdfcpuImages) PageImages(index int) (out []rawImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract images: %v", r)
		}
	}()

	imgs, err := pdfcpu.ExtractPageImages(p.ctx, index+1, false)
	if err != nil {
		return nil, err
	}

	// Map order is random; object numbers follow the document's own order.
	objNrs := make([]int, 0, len(imgs))
	for nr := range imgs {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)

	out = make([]rawImage, 0, len(objNrs))
	for _, nr := range objNrs {
		img := imgs[nr]
		if img.Reader == nil {
			continue
		}
		data, err := io.ReadAll(img)
		if err != nil {
			return nil, fmt.Errorf("read image %d: %w", nr, err)
		}
		out = append(out, rawImage{Data: data, FileType: img.FileType, ObjNr: nr})
	}
	return out, nil
}

func (p *pdfcpuImages) PageSize(index int) (float64, float64, bool) {
	if index < 0 || index >= len(p.dims) {
		return 0, 0, false
	}
	d := p.dims[index]
	return d.Width, d.Height, true
}
