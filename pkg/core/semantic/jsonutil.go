package semantic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// =============================================================================
// RESPONSE PARSING - Lenient JSON decoding of model output
// =============================================================================

// StripMarkdownFences removes ```json ... ``` wrappers that chat
// models add despite JSON-only instructions.
func StripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ParseFieldValues decodes a model response into field-id → value.
// Decode order: strict JSON, then json-repair, then Hjson. Null and
// absent fields simply do not appear in the result. Values may arrive
// as numbers or as formatted strings ("184 676"); both are accepted.
func ParseFieldValues(raw string) (map[string]float64, error) {
	body := StripMarkdownFences(raw)

	var generic map[string]any
	if err := json.Unmarshal([]byte(body), &generic); err != nil {
		if repaired, rerr := jsonrepair.RepairJSON(body); rerr == nil {
			if err := json.Unmarshal([]byte(repaired), &generic); err == nil {
				return numericFields(generic)
			}
		}
		if herr := hjson.Unmarshal([]byte(body), &generic); herr != nil {
			return nil, fmt.Errorf("semantic: unparseable model response: %w", err)
		}
	}
	return numericFields(generic)
}

func numericFields(m map[string]any) (map[string]float64, error) {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case float64:
			out[strings.ToUpper(k)] = t
		case json.Number:
			f, err := t.Float64()
			if err == nil {
				out[strings.ToUpper(k)] = f
			}
		case string:
			if f, ok := parseLooseNumber(t); ok {
				out[strings.ToUpper(k)] = f
			}
		case nil:
			// Field not found in the document; leave unresolved.
		}
	}
	return out, nil
}

func parseLooseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
