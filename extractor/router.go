package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type router struct {
	routes map[string]Extractor
}

func (r *router) Extract(ctx context.Context, name string, data []byte) (Result, error) {
	ext := strings.ToLower(filepath.Ext(name))

	e, ok := r.routes[ext]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return e.Extract(ctx, name, data)
}

// NewRouter picks an extractor by file extension, e.g. ".pdf".
func NewRouter(routes map[string]Extractor) Extractor {
	normalized := make(map[string]Extractor, len(routes))
	for ext, e := range routes {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[ext] = e
	}

	return &router{
		routes: normalized,
	}
}

type fallback struct {
	primary  Extractor
	fallback Extractor
}

func (f *fallback) Extract(ctx context.Context, name string, data []byte) (Result, error) {
	res, err := f.primary.Extract(ctx, name, data)
	if err == nil && len(strings.TrimSpace(res.Text)) > 0 {
		return res, nil
	}

	if err != nil && !errors.Is(err, ErrEmpty) {
		return Result{}, err
	}

	alt, err := f.fallback.Extract(ctx, name, data)
	if err != nil {
		return Result{}, err
	}

	if alt.Pages == 0 {
		alt.Pages = res.Pages
	}

	return alt, nil
}

// WithFallback tries secondary when primary finds no text, as with scanned
// documents that need OCR.
func WithFallback(primary Extractor, secondary Extractor) Extractor {
	return &fallback{
		primary:  primary,
		fallback: secondary,
	}
}
