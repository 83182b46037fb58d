package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ap2_extraction/pkg/core/reconcile"
	"ap2_extraction/pkg/core/schema"
)

func testRecord(year int, values map[string]float64) *reconcile.Record {
	rec := &reconcile.Record{Document: "test", Year: year}
	for _, f := range schema.Default().Fields() {
		fr := reconcile.FieldResult{FieldID: f.ID, Ordinal: f.Ordinal}
		if f.FromMetadata {
			v := float64(year)
			fr.Value = &v
			fr.Tier = reconcile.TierMetadata
		} else if v, ok := values[f.ID]; ok {
			val := v
			fr.Value = &val
			fr.Tier = reconcile.TierStructural
		}
		rec.Fields = append(rec.Fields, fr)
	}
	return rec
}

func TestWriteAllWorkbookLayout(t *testing.T) {
	dir := t.TempDir()
	catalog := schema.Default()
	w := NewWriter(zap.NewNop())

	recs := []*reconcile.Record{
		testRecord(2025, map[string]float64{"TOTALASSETS": 184676, "FUNDCAPITALCARRIEDFORWARDLEVEL": 434.5}),
		testRecord(2023, map[string]float64{"TOTALASSETS": 158000}),
	}

	res, err := w.WriteAll(dir, catalog, recs)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	f, err := excelize.OpenFile(res.XLSXPath)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	// Row 1: technical headers, leading cell blank.
	a1, _ := f.GetCellValue(sheetName, "A1")
	if a1 != "" {
		t.Errorf("A1 = %q, want empty", a1)
	}
	b1, _ := f.GetCellValue(sheetName, "B1")
	if b1 != "AP2.FUNDCAPITALCARRIEDFORWARD.LEVEL.NONE.H.1@AP2" {
		t.Errorf("B1 = %q", b1)
	}
	u1, _ := f.GetCellValue(sheetName, "U1")
	if u1 != "AP2.TOTALFUNDCAPITALANDLIABILITIES.FLOW.NONE.H.1@AP2" {
		t.Errorf("U1 = %q", u1)
	}

	// Row 2: human sub-headers.
	b2, _ := f.GetCellValue(sheetName, "B2")
	if b2 != "AP2 semi-annual: Fund capital carried forward" {
		t.Errorf("B2 = %q", b2)
	}

	// Rows 3+: data ordered by year ascending.
	a3, _ := f.GetCellValue(sheetName, "A3")
	a4, _ := f.GetCellValue(sheetName, "A4")
	if a3 != "2023" || a4 != "2025" {
		t.Errorf("year column = %q, %q, want 2023 then 2025", a3, a4)
	}

	// TOTALASSETS is ordinal 12 -> column L; 2025 is row 4.
	l4, _ := f.GetCellValue(sheetName, "L4")
	if l4 != "184676" {
		t.Errorf("L4 = %q, want 184676", l4)
	}
	b4, _ := f.GetCellValue(sheetName, "B4")
	if b4 != "434.5" {
		t.Errorf("B4 = %q, want 434.5", b4)
	}
	// Unresolved field stays blank.
	c4, _ := f.GetCellValue(sheetName, "C4")
	if c4 != "" {
		t.Errorf("C4 = %q, want blank", c4)
	}
}

func TestWriteAllCSVAndLatestCopy(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(zap.NewNop())

	res, err := w.WriteAll(dir, schema.Default(), []*reconcile.Record{
		testRecord(2025, map[string]float64{"TOTALASSETS": 184676}),
	})
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	file, err := os.Open(res.CSVPath)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d, want header + sub-header + 1 data", len(rows))
	}
	if len(rows[0]) != schema.Size {
		t.Errorf("csv columns = %d, want %d", len(rows[0]), schema.Size)
	}
	if rows[0][0] != "" || rows[0][11] != "AP2.TOTALASSETS.FLOW.NONE.H.1@AP2" {
		t.Errorf("csv header = %v", rows[0][:2])
	}
	if rows[2][0] != "2025" || rows[2][11] != "184676" {
		t.Errorf("csv data row = %v", rows[2])
	}

	for _, name := range []string{"ap2_extraction.xlsx", "ap2_extraction.csv"} {
		if _, err := os.Stat(filepath.Join(res.LatestDir, name)); err != nil {
			t.Errorf("latest copy missing: %v", err)
		}
	}

	want := 1.0 / 20.0
	if res.FillRate != want {
		t.Errorf("fill rate = %v, want %v", res.FillRate, want)
	}
}

func TestWriteAllEmptyInput(t *testing.T) {
	w := NewWriter(zap.NewNop())
	if _, err := w.WriteAll(t.TempDir(), schema.Default(), nil); err == nil {
		t.Error("expected error for empty record set")
	}
}
