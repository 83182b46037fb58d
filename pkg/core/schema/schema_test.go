package schema

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestDefaultCatalogShape(t *testing.T) {
	c := Default()

	if c.Len() != Size {
		t.Fatalf("expected %d fields, got %d", Size, c.Len())
	}

	fields := c.Fields()
	for i, f := range fields {
		if f.Ordinal != i+1 {
			t.Errorf("field %s: ordinal %d at position %d", f.ID, f.Ordinal, i)
		}
	}

	if !fields[0].FromMetadata {
		t.Error("ordinal 1 must be the metadata year column")
	}
	if fields[0].Header != "Unnamed: 0" {
		t.Errorf("year column header = %q", fields[0].Header)
	}

	if got := len(c.ValueFields()); got != 20 {
		t.Errorf("expected 20 value fields, got %d", got)
	}
}

func TestDefaultCatalogUnits(t *testing.T) {
	c := Default()

	billions := 0
	for _, f := range c.ValueFields() {
		switch f.Unit {
		case UnitBillionSEK:
			billions++
			if !f.Decimal {
				t.Errorf("%s: billion-scale fields carry decimals", f.ID)
			}
			if f.Section != SectionKeyRatios {
				t.Errorf("%s: billion-scale fields come from the key ratios page", f.ID)
			}
		case UnitMillionSEK:
			if f.Decimal {
				t.Errorf("%s: million-scale fields are integral", f.ID)
			}
		default:
			t.Errorf("%s: missing unit", f.ID)
		}
	}
	if billions != 3 {
		t.Errorf("expected 3 key-ratio fields, got %d", billions)
	}
}

func TestDefaultCatalogHeaders(t *testing.T) {
	c := Default()
	for _, f := range c.ValueFields() {
		want := "AP2." + strings.SplitN(strings.TrimPrefix(f.Header, "AP2."), ".", 2)[0]
		if !strings.HasPrefix(f.Header, want) || !strings.HasSuffix(f.Header, "@AP2") {
			t.Errorf("%s: malformed technical header %q", f.ID, f.Header)
		}
		if f.Description == "" {
			t.Errorf("%s: missing sub-header", f.ID)
		}
	}
}

func TestHintsSortedLongestFirst(t *testing.T) {
	c := Default()
	for _, f := range c.Fields() {
		for i := 1; i < len(f.Hints); i++ {
			if len(f.Hints[i]) > len(f.Hints[i-1]) {
				t.Errorf("%s: hint %q after shorter %q", f.ID, f.Hints[i], f.Hints[i-1])
			}
		}
	}
}

func TestListedHintDoesNotShadowUnlisted(t *testing.T) {
	c := Default()
	listed, _ := c.ByID("EQUITIESANDPARTICIPATIONSLISTED")
	unlisted, _ := c.ByID("EQUITIESANDPARTICIPATIONSUNLISTED")

	// "unlisted" contains "listed" as a substring; precedence relies on
	// the unlisted hints being longer or word-bounded.
	hasPlainListed := false
	for _, h := range listed.Hints {
		if h == "listed" {
			hasPlainListed = true
		}
	}
	if !hasPlainListed {
		t.Fatal("listed field lost its short hint")
	}
	for _, h := range unlisted.Hints {
		if len(h) <= len("listed") {
			t.Errorf("unlisted hint %q not longer than the listed short hint", h)
		}
	}
}

func TestNewRejectsBrokenCatalogs(t *testing.T) {
	base := Default().Fields()

	t.Run("wrong count", func(t *testing.T) {
		if _, err := New(base[:20]); err == nil {
			t.Error("expected error for short catalog")
		}
	})

	t.Run("duplicate ordinal", func(t *testing.T) {
		specs := make([]FieldSpec, len(base))
		copy(specs, base)
		specs[5].Ordinal = specs[4].Ordinal
		if _, err := New(specs); err == nil {
			t.Error("expected error for duplicate ordinal")
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		specs := make([]FieldSpec, len(base))
		copy(specs, base)
		specs[5].ID = specs[4].ID
		if _, err := New(specs); err == nil {
			t.Error("expected error for duplicate id")
		}
	})
}

func TestLoadRoundTrip(t *testing.T) {
	yaml := `fields:
  - id: REPORTYEAR
    ordinal: 1
    header: "Unnamed: 0"
    from_metadata: true
`
	for _, f := range Default().ValueFields() {
		yaml += "  - id: " + f.ID + "\n"
		yaml += "    ordinal: " + strconv.Itoa(f.Ordinal) + "\n"
		yaml += "    header: \"" + f.Header + "\"\n"
		yaml += "    description: \"" + f.Description + "\"\n"
		yaml += "    section: " + string(f.Section) + "\n"
		yaml += "    unit: " + string(f.Unit) + "\n"
	}

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != Size {
		t.Errorf("loaded %d fields", c.Len())
	}
	if _, ok := c.ByID("TOTALASSETS"); !ok {
		t.Error("TOTALASSETS missing after load")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
