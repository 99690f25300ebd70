package pdfexport

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger used by every pipeline stage.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLayout declares whether layout mode is available in this deployment.
// It is ANDed with LayoutCompiled: a binary built without pdfium never offers layout mode.
func WithLayout(available bool) Option {
	return func(e *Exporter) {
		e.layout = available && LayoutCompiled
	}
}

// WithFetchTimeout bounds remote fetches and local reads (default: 60s).
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exporter) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithMaxSourceBytes caps the size of a resolved document (default: 200 MB).
func WithMaxSourceBytes(n int64) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.maxSourceBytes = n
		}
	}
}

// WithLocalPaths enables or disables pdf_path sources (default: enabled).
func WithLocalPaths(enabled bool) Option {
	return func(e *Exporter) {
		e.allowLocal = enabled
	}
}

// WithLocalRoot confines pdf_path sources to files below dir.
func WithLocalRoot(dir string) Option {
	return func(e *Exporter) {
		e.localRoot = dir
	}
}

// WithWorkers bounds the number of conversions running at once.
// Zero or negative values fall back to ResolveWorkers(0).
func WithWorkers(n int) Option {
	return func(e *Exporter) {
		e.workers = ResolveWorkers(n)
	}
}

// WithSanitizeHTML toggles bluemonday sanitising of generated HTML (default: true).
func WithSanitizeHTML(sanitize bool) Option {
	return func(e *Exporter) {
		e.sanitizeHTML = sanitize
	}
}

// withRenderers replaces the page renderers; used by tests.
func withRenderers(plain, layout rendererFactory) Option {
	return func(e *Exporter) {
		if plain != nil {
			e.openPlain = plain
		}
		if layout != nil {
			e.openLayout = layout
		}
	}
}

// withImageSource replaces the image source; used by tests.
func withImageSource(f imageSourceFactory) Option {
	return func(e *Exporter) {
		e.openImages = f
	}
}

// withJobIDs replaces the job id generator; used by tests.
func withJobIDs(f func() string) Option {
	return func(e *Exporter) {
		e.newJobID = f
	}
}
