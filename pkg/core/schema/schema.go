// Package schema defines the fixed 21-column output catalog for AP2
// financial reports. The catalog order is contractual: downstream
// consumers address columns by position, so ordinals must never change.
package schema

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"
)

// Section identifies which part of the report a field is read from.
// It drives section-boundary tracking during table binding: the label
// "Derivative instruments" appears in both the assets and liabilities
// sections and is only distinguishable by the section state.
type Section string

const (
	SectionKeyRatios   Section = "key_ratios"
	SectionAssets      Section = "assets"
	SectionLiabilities Section = "liabilities"
	SectionFundCapital Section = "fund_capital"
	SectionNone        Section = ""
)

// Unit is the scale the field is reported in.
type Unit string

const (
	UnitMillionSEK Unit = "sek_million"
	UnitBillionSEK Unit = "sek_billion"
)

// ValueRange is the expected numeric range for a field, used to reject
// implausible candidates (e.g. a percentage picked up next to a label).
type ValueRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v falls inside the range.
func (r *ValueRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FieldSpec describes one catalog entry.
type FieldSpec struct {
	// ID is the stable short identifier, e.g. "TOTALASSETS".
	ID string `yaml:"id"`
	// Ordinal is the 1-based output column position. Fixed forever.
	Ordinal int `yaml:"ordinal"`
	// Header is the technical column header emitted in output row 1.
	Header string `yaml:"header"`
	// Description is the human-readable sub-header (output row 2) and
	// is also what the semantic tier shows the language model.
	Description string `yaml:"description"`
	// Hints are label synonyms used by the structural and pattern
	// tiers. Matching must try longer hints before shorter ones.
	Hints   []string `yaml:"hints"`
	Section Section  `yaml:"section"`
	Unit    Unit     `yaml:"unit"`
	// Decimal marks fields reported with a decimal point (SEK billion
	// key ratios); everything else is integral SEK million.
	Decimal bool        `yaml:"decimal"`
	Range   *ValueRange `yaml:"range,omitempty"`
	// FromMetadata marks columns filled from document metadata rather
	// than extraction (the leading report-year column).
	FromMetadata bool `yaml:"from_metadata"`
}

// Catalog is the immutable, ordered field catalog.
type Catalog struct {
	fields []FieldSpec
	byID   map[string]int
}

// Size is the contractual number of catalog entries.
const Size = 21

// New builds a catalog from specs, validating ordinal integrity and
// sorting each field's hints longest-first.
func New(specs []FieldSpec) (*Catalog, error) {
	if len(specs) != Size {
		return nil, fmt.Errorf("schema: expected %d fields, got %d", Size, len(specs))
	}

	ordered := make([]FieldSpec, len(specs))
	copy(ordered, specs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })

	byID := make(map[string]int, len(ordered))
	for i := range ordered {
		f := &ordered[i]
		if f.Ordinal != i+1 {
			return nil, fmt.Errorf("schema: ordinals must cover 1..%d exactly, missing %d", Size, i+1)
		}
		if f.ID == "" {
			return nil, fmt.Errorf("schema: field at ordinal %d has empty id", f.Ordinal)
		}
		if _, dup := byID[f.ID]; dup {
			return nil, fmt.Errorf("schema: duplicate field id %q", f.ID)
		}
		byID[f.ID] = i

		// Longer hints first so "total fund capital and liabilities"
		// is tried before "total fund capital".
		sort.SliceStable(f.Hints, func(a, b int) bool { return len(f.Hints[a]) > len(f.Hints[b]) })
	}

	return &Catalog{fields: ordered, byID: byID}, nil
}

// Load reads a catalog from a YAML file. The file is fixed external
// configuration; reordering it is a configuration error, not a feature.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read catalog: %w", err)
	}

	var doc struct {
		Fields []FieldSpec `yaml:"fields"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: parse catalog: %w", err)
	}
	return New(doc.Fields)
}

// Fields returns the specs in ordinal order. Callers must not mutate.
func (c *Catalog) Fields() []FieldSpec {
	return c.fields
}

// ValueFields returns the extractable specs (metadata columns excluded).
func (c *Catalog) ValueFields() []FieldSpec {
	out := make([]FieldSpec, 0, len(c.fields))
	for _, f := range c.fields {
		if !f.FromMetadata {
			out = append(out, f)
		}
	}
	return out
}

// ByID looks up a spec by identifier.
func (c *Catalog) ByID(id string) (FieldSpec, bool) {
	i, ok := c.byID[id]
	if !ok {
		return FieldSpec{}, false
	}
	return c.fields[i], true
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.fields) }

func rng(min, max float64) *ValueRange { return &ValueRange{Min: min, Max: max} }

// Default returns the built-in AP2 semi-annual catalog. Headers and
// ordinals reproduce the established output layout exactly.
func Default() *Catalog {
	c, err := New([]FieldSpec{
		{
			ID:           "REPORTYEAR",
			Ordinal:      1,
			Header:       "Unnamed: 0",
			Description:  "",
			FromMetadata: true,
		},
		{
			ID:          "FUNDCAPITALCARRIEDFORWARDLEVEL",
			Ordinal:     2,
			Header:      "AP2.FUNDCAPITALCARRIEDFORWARD.LEVEL.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Fund capital carried forward",
			Hints: []string{
				"fund capital carried forward, sek billion",
				"fund capital brought forward",
				"opening fund capital",
				"fund capital at start",
			},
			Section: SectionKeyRatios,
			Unit:    UnitBillionSEK,
			Decimal: true,
			Range:   rng(100, 800),
		},
		{
			ID:          "NETOUTFLOWSTOTHENATIONALPENSIONSYSTEM",
			Ordinal:     3,
			Header:      "AP2.NETOUTFLOWSTOTHENATIONALPENSIONSYSTEM.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Net outflows to the national pension system",
			Hints: []string{
				"net outflows to the national pension system",
				"net outflow to the national pension system",
				"net outflows, sek billion",
				"net outflows",
			},
			Section: SectionKeyRatios,
			Unit:    UnitBillionSEK,
			Decimal: true,
			Range:   rng(-30, 10),
		},
		{
			ID:          "TOTAL",
			Ordinal:     4,
			Header:      "AP2.TOTAL.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Net result for the year",
			Hints: []string{
				"net result for the period, sek billion",
				"net result for the year, sek billion",
				"result for the period, sek billion",
				"result amounted to sek",
			},
			Section: SectionKeyRatios,
			Unit:    UnitBillionSEK,
			Decimal: true,
			Range:   rng(-100, 100),
		},
		{
			ID:          "EQUITIESANDPARTICIPATIONSLISTED",
			Ordinal:     5,
			Header:      "AP2.EQUITIESANDPARTICIPATIONSLISTED.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Equities and participations - Listed",
			Hints: []string{
				"equities and participations, listed",
				"equities and participations listed",
				"listed",
			},
			Section: SectionAssets,
			Unit:    UnitMillionSEK,
		},
		{
			ID:          "EQUITIESANDPARTICIPATIONSUNLISTED",
			Ordinal:     6,
			Header:      "AP2.EQUITIESANDPARTICIPATIONSUNLISTED.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Equities and participations - Unlisted",
			Hints: []string{
				"equities and participations, unlisted",
				"equities and participations unlisted",
				"non-listed",
				"unlisted",
			},
			Section: SectionAssets,
			Unit:    UnitMillionSEK,
		},
		{
			ID:          "BONDSANDOTHERFIXEDINCOMESECURITIES",
			Ordinal:     7,
			Header:      "AP2.BONDSANDOTHERFIXEDINCOMESECURITIES.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Bonds and other fixed-income securities",
			Hints: []string{
				"bonds and other fixed-income securities",
				"bonds and other fixed income securities",
				"bonds and other interest-bearing securities",
			},
			Section: SectionAssets,
			Unit:    UnitMillionSEK,
		},
		{
			ID:          "DERIVATIVEINSTRUMENTS",
			Ordinal:     8,
			Header:      "AP2.DERIVATIVEINSTRUMENTS.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Derivative instruments",
			Hints:       []string{"derivative instruments"},
			Section:     SectionAssets,
			Unit:        UnitMillionSEK,
		},
		{
			ID:          "CASHANDBANKBALANCES",
			Ordinal:     9,
			Header:      "AP2.CASHANDBANKBALANCES.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Cash and bank balances",
			Hints: []string{
				"cash and bank balances",
				"cash and cash equivalents",
			},
			Section: SectionAssets,
			Unit:    UnitMillionSEK,
		},
		{
			ID:          "OTHERASSETS",
			Ordinal:     10,
			Header:      "AP2.OTHERASSETS.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Other assets",
			Hints:       []string{"other assets"},
			Section:     SectionAssets,
			Unit:        UnitMillionSEK,
		},
		{
			ID:          "PREPAIDEXPENSESANDACCRUEDINCOME",
			Ordinal:     11,
			Header:      "AP2.PREPAIDEXPENSESANDACCRUEDINCOME.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Prepaid expenses and accrued income",
			Hints: []string{
				"prepaid expenses and accrued income",
				"prepaid costs and accrued income",
			},
			Section: SectionAssets,
			Unit:    UnitMillionSEK,
		},
		{
			ID:          "TOTALASSETS",
			Ordinal:     12,
			Header:      "AP2.TOTALASSETS.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Total Assets",
			Hints:       []string{"total assets"},
			Section:     SectionAssets,
			Unit:        UnitMillionSEK,
		},
		{
			ID:          "DERIVATIVEINSTRUMENTSLIABILITIES",
			Ordinal:     13,
			Header:      "AP2.DERIVATIVEINSTRUMENTSLIABILITIES.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Derivative instruments (liabilities)",
			Hints:       []string{"derivative instruments"},
			Section:     SectionLiabilities,
			Unit:        UnitMillionSEK,
		},
		{
			ID:          "OTHERLIABILITIES",
			Ordinal:     14,
			Header:      "AP2.OTHERLIABILITIES.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Other liabilities",
			Hints:       []string{"other liabilities"},
			Section:     SectionLiabilities,
			Unit:        UnitMillionSEK,
		},
		{
			ID:          "DEFERREDINCOMEANDACCRUEDEXPENSES",
			Ordinal:     15,
			Header:      "AP2.DEFERREDINCOMEANDACCRUEDEXPENSES.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Deferred income and accrued expenses",
			Hints: []string{
				"deferred income and accrued expenses",
				"deferred income and accrued costs",
			},
			Section: SectionLiabilities,
			Unit:    UnitMillionSEK,
		},
		{
			ID:          "TOTALLIABILITIES",
			Ordinal:     16,
			Header:      "AP2.TOTALLIABILITIES.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Total liabilities",
			Hints:       []string{"total liabilities"},
			Section:     SectionLiabilities,
			Unit:        UnitMillionSEK,
		},
		{
			ID:          "FUNDCAPITALCARRIEDFORWARD",
			Ordinal:     17,
			Header:      "AP2.FUNDCAPITALCARRIEDFORWARD.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Fund capital carried forward",
			Hints: []string{
				"fund capital carried forward",
				"fund capital brought forward",
			},
			Section: SectionFundCapital,
			Unit:    UnitMillionSEK,
		},
		{
			ID:          "NETPAYMENTSTOTHENATIONALPENSIONSYSTEM",
			Ordinal:     18,
			Header:      "AP2.NETPAYMENTSTOTHENATIONALPENSIONSYSTEM.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Net payments to the national pension system",
			Hints: []string{
				"net payments to the national pension system",
				"net payment to the national pension system",
				"net payments to/from the national pension system",
			},
			Section: SectionFundCapital,
			Unit:    UnitMillionSEK,
		},
		{
			ID:          "NETRESULTFORTHEPERIOD",
			Ordinal:     19,
			Header:      "AP2.NETRESULTFORTHEPERIOD.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Net result for the period",
			Hints: []string{
				"net result for the period",
				"net result for the year",
			},
			Section: SectionFundCapital,
			Unit:    UnitMillionSEK,
		},
		{
			ID:          "TOTALFUNDCAPITAL",
			Ordinal:     20,
			Header:      "AP2.TOTALFUNDCAPITAL.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Total Fund capital",
			Hints:       []string{"total fund capital"},
			Section:     SectionFundCapital,
			Unit:        UnitMillionSEK,
		},
		{
			ID:          "TOTALFUNDCAPITALANDLIABILITIES",
			Ordinal:     21,
			Header:      "AP2.TOTALFUNDCAPITALANDLIABILITIES.FLOW.NONE.H.1@AP2",
			Description: "AP2 semi-annual: Balance - Total Fund capital and other Liabilities",
			Hints: []string{
				"total fund capital and other liabilities",
				"total fund capital and liabilities",
			},
			Section: SectionFundCapital,
			Unit:    UnitMillionSEK,
		},
	})
	if err != nil {
		// The built-in catalog is validated by tests; a failure here is
		// a programming error, not a runtime condition.
		panic(err)
	}
	return c
}
