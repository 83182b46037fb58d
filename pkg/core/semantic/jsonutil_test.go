package semantic

import (
	"testing"
)

func TestParseFieldValuesStrictJSON(t *testing.T) {
	got, err := ParseFieldValues(`{"TOTALASSETS": 184676, "NETRESULTFORTHEPERIOD": -3342}`)
	if err != nil {
		t.Fatalf("ParseFieldValues: %v", err)
	}
	if got["TOTALASSETS"] != 184676 {
		t.Errorf("TOTALASSETS = %v", got["TOTALASSETS"])
	}
	if got["NETRESULTFORTHEPERIOD"] != -3342 {
		t.Errorf("NETRESULTFORTHEPERIOD = %v", got["NETRESULTFORTHEPERIOD"])
	}
}

func TestParseFieldValuesMarkdownFences(t *testing.T) {
	raw := "```json\n{\"TOTALASSETS\": 184676}\n```"
	got, err := ParseFieldValues(raw)
	if err != nil {
		t.Fatalf("ParseFieldValues: %v", err)
	}
	if got["TOTALASSETS"] != 184676 {
		t.Errorf("TOTALASSETS = %v", got["TOTALASSETS"])
	}
}

func TestParseFieldValuesRepairsTrailingComma(t *testing.T) {
	got, err := ParseFieldValues(`{"TOTALASSETS": 184676,}`)
	if err != nil {
		t.Fatalf("ParseFieldValues: %v", err)
	}
	if got["TOTALASSETS"] != 184676 {
		t.Errorf("TOTALASSETS = %v", got["TOTALASSETS"])
	}
}

func TestParseFieldValuesHjsonFallback(t *testing.T) {
	// Unquoted keys, no commas: Hjson territory.
	raw := "{\n  TOTALASSETS: 184676\n  TOTALLIABILITIES: 23455\n}"
	got, err := ParseFieldValues(raw)
	if err != nil {
		t.Fatalf("ParseFieldValues: %v", err)
	}
	if got["TOTALASSETS"] != 184676 || got["TOTALLIABILITIES"] != 23455 {
		t.Errorf("got %v", got)
	}
}

func TestParseFieldValuesStringsAndNulls(t *testing.T) {
	got, err := ParseFieldValues(`{"TOTALASSETS": "184 676", "OTHERASSETS": null, "CASHANDBANKBALANCES": "n/a"}`)
	if err != nil {
		t.Fatalf("ParseFieldValues: %v", err)
	}
	if got["TOTALASSETS"] != 184676 {
		t.Errorf("TOTALASSETS = %v", got["TOTALASSETS"])
	}
	if _, ok := got["OTHERASSETS"]; ok {
		t.Error("null value should be absent")
	}
	if _, ok := got["CASHANDBANKBALANCES"]; ok {
		t.Error("n/a value should be absent")
	}
}

func TestParseFieldValuesLowercaseKeys(t *testing.T) {
	got, err := ParseFieldValues(`{"totalassets": 184676}`)
	if err != nil {
		t.Fatalf("ParseFieldValues: %v", err)
	}
	if got["TOTALASSETS"] != 184676 {
		t.Errorf("keys not upper-cased: %v", got)
	}
}

func TestParseFieldValuesGarbage(t *testing.T) {
	if _, err := ParseFieldValues("I could not find the requested figures."); err == nil {
		t.Error("expected error for prose response")
	}
}
