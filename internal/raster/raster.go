package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"runtime"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
)

// PageImage is one rendered PDF page. It is owned by the extraction run
// that produced it and is never shared across runs.
type PageImage struct {
	PageNumber int
	Width      int
	Height     int
	PNG        []byte
}

// DecodeError means the input bytes could not be processed as a PDF:
// not a PDF, encrypted without a password, or zero pages.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode pdf: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode pdf: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Renderer converts PDF bytes into an ordered sequence of page images.
// It holds only read-only configuration and is safe for concurrent use.
type Renderer struct {
	DPI      float64
	MaxPages int

	encodeWorkers int
}

func NewRenderer(dpi float64, maxPages int) *Renderer {
	if dpi <= 0 {
		dpi = 144
	}
	if maxPages <= 0 {
		maxPages = 10
	}
	return &Renderer{
		DPI:           dpi,
		MaxPages:      maxPages,
		encodeWorkers: runtime.NumCPU(),
	}
}

// Render produces one PageImage per page, in page order, capped at
// MaxPages. A PDF that cannot be opened or has no pages fails with a
// *DecodeError before anything is rendered.
func (r *Renderer) Render(ctx context.Context, pdf []byte) (pages []PageImage, err error) {
	// Both pdfcpu and mupdf can panic on sufficiently mangled input.
	// Malformed bytes are a caller error, not a process error.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = &DecodeError{Reason: fmt.Sprintf("malformed document: %v", rec)}
		}
	}()

	if len(pdf) == 0 {
		return nil, &DecodeError{Reason: "empty input"}
	}

	// Preflight with pdfcpu: catches truncated, non-PDF, and encrypted
	// inputs with a better error than the renderer gives.
	pageCount, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return nil, &DecodeError{Reason: "not a readable pdf", Err: err}
	}
	if pageCount == 0 {
		return nil, &DecodeError{Reason: "document has no pages"}
	}

	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, &DecodeError{Reason: "open document", Err: err}
	}
	defer doc.Close()

	n := pageCount
	if docPages := doc.NumPage(); docPages < n {
		n = docPages
	}
	if n > r.MaxPages {
		n = r.MaxPages
	}
	if n == 0 {
		return nil, &DecodeError{Reason: "document has no pages"}
	}

	// The fitz document is not safe for concurrent use, so rendering is
	// sequential. PNG encoding dominates and parallelizes fine.
	rendered := make([]image.Image, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		img, err := doc.ImageDPI(i, r.DPI)
		if err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("render page %d", i+1), Err: err}
		}
		rendered[i] = img
	}

	pages = make([]PageImage, n)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(r.encodeWorkers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			var buf bytes.Buffer
			if err := png.Encode(&buf, rendered[i]); err != nil {
				return fmt.Errorf("encode page %d: %w", i+1, err)
			}
			bounds := rendered[i].Bounds()
			pages[i] = PageImage{
				PageNumber: i + 1,
				Width:      bounds.Dx(),
				Height:     bounds.Dy(),
				PNG:        buf.Bytes(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pages, nil
}
