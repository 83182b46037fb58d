package document

import (
	"errors"
	"strings"
	"testing"
)

func TestNewTextDocument(t *testing.T) {
	text := "Key ratios\nFund capital carried forward 434.5\fBalance sheet\nTotal assets 184 676"
	d, err := New("halvarsrapport-2025.txt", 2025, []byte(text), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Kind != KindText {
		t.Errorf("kind = %q, want text", d.Kind)
	}
	if got := len(d.Pages()); got != 2 {
		t.Errorf("pages = %d, want 2", got)
	}
	if d.PageCount != 2 {
		t.Errorf("page count = %d, want 2", d.PageCount)
	}
}

func TestNewEmptyTextDocument(t *testing.T) {
	_, err := New("empty.txt", 2025, []byte("   \n \t"), "")
	if !errors.Is(err, ErrNoTextLayer) {
		t.Errorf("err = %v, want ErrNoTextLayer", err)
	}
}

func TestNewHTMLDocument(t *testing.T) {
	html := `<!DOCTYPE html><html><body><table><tr><td>Total assets</td><td>184 676</td></tr></table></body></html>`
	d, err := New("report.html", 2024, []byte(html), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Kind != KindHTML {
		t.Errorf("kind = %q, want html", d.Kind)
	}
	if string(d.Raw()) != html {
		t.Error("raw bytes not preserved")
	}
	// The text layer is derived from the markup so the pattern and
	// semantic tiers see the same figures as the table backend.
	if want := "Total assets   184 676"; !strings.Contains(d.Text(), want) {
		t.Errorf("text layer %q does not contain %q", d.Text(), want)
	}
}

func TestNewHTMLDocumentWithoutContent(t *testing.T) {
	_, err := New("empty.html", 2024, []byte("<html><body></body></html>"), "")
	if !errors.Is(err, ErrNoTextLayer) {
		t.Errorf("err = %v, want ErrNoTextLayer", err)
	}
}

func TestYearFromFilename(t *testing.T) {
	cases := []struct {
		name string
		want int
		ok   bool
	}{
		{"halvarsrapport-2023.pdf", 2023, true},
		{"ap2_half_year_2025_en.pdf", 2025, true},
		{"/data/reports/AP2-1999-annual.pdf", 1999, true},
		{"report.pdf", 0, false},
		{"q2-25.pdf", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := YearFromFilename(tc.name)
			if got != tc.want || ok != tc.ok {
				t.Errorf("YearFromFilename(%q) = (%d, %v), want (%d, %v)", tc.name, got, ok, tc.want, tc.ok)
			}
		})
	}
}
