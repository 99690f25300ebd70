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

import "runtime"

// Worker sizing constants.
const (
	// MinWorkers ensures at least one conversion can run.
	MinWorkers = 1

	// MaxWorkers caps concurrent conversions; each holds a whole document plus
	// one pdfium instance (~50MB of wasm memory) in layout mode.
	MaxWorkers = 8

	// cpuDivisor leaves headroom for request I/O next to CPU-bound rendering.
	cpuDivisor = 2
)

// ResolveWorkers determines how many conversions may run concurrently.
// An explicit positive value wins; otherwise the value is derived from
// GOMAXPROCS (which automaxprocs adjusts to the container quota).
func ResolveWorkers(workers int) int {
	if workers > 0 {
		return workers
	}

	n := runtime.GOMAXPROCS(0) / cpuDivisor
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}
