package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

// minimalPDF assembles a syntactically complete PDF with n blank pages,
// tracking byte offsets so the xref table is exact.
func minimalPDF(n int) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, n+2)

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")

	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	writeObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", kids, n))

	for i := 0; i < n; i++ {
		writeObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Resources << >> >>\nendobj\n", 3+i))
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefOffset)

	return buf.Bytes()
}

func TestRender_EmptyInput(t *testing.T) {
	r := NewRenderer(144, 10)
	_, err := r.Render(context.Background(), nil)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
}

func TestRender_GarbageInput(t *testing.T) {
	r := NewRenderer(144, 10)
	_, err := r.Render(context.Background(), []byte("this is not a pdf at all"))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
}

func TestRender_TruncatedPDF(t *testing.T) {
	r := NewRenderer(144, 10)
	pdf := minimalPDF(2)
	_, err := r.Render(context.Background(), pdf[:len(pdf)/3])
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
}

func TestRender_MangledInputNeverPanics(t *testing.T) {
	r := NewRenderer(72, 10)
	pdf := minimalPDF(2)
	for cut := 1; cut < len(pdf); cut += 5 {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					t.Fatalf("cut at %d panicked: %v", cut, rec)
				}
			}()
			if _, err := r.Render(context.Background(), pdf[:cut]); err != nil {
				var decodeErr *DecodeError
				if !errors.As(err, &decodeErr) {
					t.Fatalf("cut at %d: expected *DecodeError, got %T: %v", cut, err, err)
				}
			}
		}()
	}
}

func TestRender_PageOrderAndCount(t *testing.T) {
	r := NewRenderer(72, 10)
	pages, err := r.Render(context.Background(), minimalPDF(3))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	for i, p := range pages {
		if p.PageNumber != i+1 {
			t.Errorf("page %d has number %d", i, p.PageNumber)
		}
		if len(p.PNG) == 0 {
			t.Errorf("page %d has no PNG bytes", i+1)
		}
		if p.Width <= 0 || p.Height <= 0 {
			t.Errorf("page %d has dimensions %dx%d", i+1, p.Width, p.Height)
		}
		if !bytes.HasPrefix(p.PNG, []byte("\x89PNG")) {
			t.Errorf("page %d is not a PNG", i+1)
		}
	}
}

func TestRender_CapsAtMaxPages(t *testing.T) {
	r := NewRenderer(72, 2)
	pages, err := r.Render(context.Background(), minimalPDF(5))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("expected cap at 2 pages, got %d", len(pages))
	}
	if pages[0].PageNumber != 1 || pages[1].PageNumber != 2 {
		t.Errorf("cap should keep the first pages: %v, %v", pages[0].PageNumber, pages[1].PageNumber)
	}
}

func TestRender_DPIScalesOutput(t *testing.T) {
	low := NewRenderer(72, 10)
	high := NewRenderer(144, 10)

	pdf := minimalPDF(1)
	lowPages, err := low.Render(context.Background(), pdf)
	if err != nil {
		t.Fatal(err)
	}
	highPages, err := high.Render(context.Background(), pdf)
	if err != nil {
		t.Fatal(err)
	}
	if highPages[0].Width <= lowPages[0].Width {
		t.Errorf("144 DPI width %d should exceed 72 DPI width %d",
			highPages[0].Width, lowPages[0].Width)
	}
}

func TestRender_CanceledContext(t *testing.T) {
	r := NewRenderer(72, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Render(ctx, minimalPDF(1))
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestNewRenderer_Defaults(t *testing.T) {
	r := NewRenderer(0, 0)
	if r.DPI != 144 || r.MaxPages != 10 {
		t.Errorf("defaults: dpi=%g maxPages=%d", r.DPI, r.MaxPages)
	}
}
