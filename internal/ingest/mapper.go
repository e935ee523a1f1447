// Package ingest maps loosely keyed input rows onto store.Record. It is the
// only place that knows about alternative column spellings.
package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Evergreen/internal/store"
)

// Field is a canonical record field.
type Field string

const (
	FieldCategory  Field = "category"
	FieldBrand     Field = "brand"
	FieldCountry   Field = "country"
	FieldYear      Field = "year"
	FieldCarbon    Field = "carbon"
	FieldWater     Field = "water"
	FieldWaste     Field = "waste"
	FieldPrice     Field = "price"
	FieldRating    Field = "rating"
	FieldRecycling Field = "recycling"
	FieldEcoFlag   Field = "eco_flag"
)

// Aliases lists the accepted spellings per field, in lookup order. Keys are
// compared after lower-casing and dropping spaces, underscores, dashes and
// parentheses.
var Aliases = map[Field][]string{
	FieldCategory:  {"category", "material", "material_type", "product_type", "fabric"},
	FieldBrand:     {"brand", "brand_name", "brand_id", "product", "product_name"},
	FieldCountry:   {"country", "country_name", "origin", "country_of_origin"},
	FieldYear:      {"year", "production_year"},
	FieldCarbon:    {"carbon", "carbon_footprint", "carbon_footprint_mt", "carbon_footprint_kg", "co2", "co2_emissions"},
	FieldWater:     {"water", "water_usage", "water_usage_liters", "water_consumption"},
	FieldWaste:     {"waste", "waste_production", "waste_production_kg", "waste_generated"},
	FieldPrice:     {"price", "average_price", "average_price_usd", "cost"},
	FieldRating:    {"rating", "sustainability_rating", "grade"},
	FieldRecycling: {"recycling", "recycling_programs", "recycling_program", "recyclable"},
	FieldEcoFlag:   {"eco_flag", "eco_friendly_manufacturing", "eco_friendly", "eco_manufacturing"},
}

// Mapper resolves aliases against a fixed lookup table built once.
type Mapper struct {
	lookup map[string]Field
	order  map[Field]map[string]int
}

// NewMapper builds a Mapper from an alias table. A nil table uses Aliases.
func NewMapper(aliases map[Field][]string) (*Mapper, error) {
	if aliases == nil {
		aliases = Aliases
	}
	m := &Mapper{lookup: make(map[string]Field), order: make(map[Field]map[string]int)}
	for field, names := range aliases {
		m.order[field] = make(map[string]int)
		for i, name := range names {
			key := canonicalKey(name)
			if prev, ok := m.lookup[key]; ok && prev != field {
				return nil, fmt.Errorf("alias %q maps to both %s and %s", name, prev, field)
			}
			m.lookup[key] = field
			m.order[field][key] = i
		}
	}
	return m, nil
}

// Map converts raw rows to canonical records. Unknown keys are ignored and
// unusable values leave the field empty; rows are never rejected.
func (m *Mapper) Map(rows []map[string]interface{}) []store.Record {
	out := make([]store.Record, len(rows))
	for i, row := range rows {
		out[i] = m.MapRow(row)
	}
	return out
}

// MapRow converts one raw row. When several aliases of a field are present
// the one listed first in the alias table wins.
func (m *Mapper) MapRow(row map[string]interface{}) store.Record {
	picked := make(map[Field]interface{})
	rank := make(map[Field]int)
	for k, v := range row {
		key := canonicalKey(k)
		field, ok := m.lookup[key]
		if !ok || v == nil {
			continue
		}
		r := m.order[field][key]
		if prev, seen := rank[field]; seen && prev <= r {
			continue
		}
		picked[field] = v
		rank[field] = r
	}

	var rec store.Record
	rec.Category = text(picked[FieldCategory])
	rec.Brand = text(picked[FieldBrand])
	rec.Country = text(picked[FieldCountry])
	if y := number(picked[FieldYear]); y != nil {
		rec.Year = int(*y)
	}
	rec.Carbon = number(picked[FieldCarbon])
	rec.Water = number(picked[FieldWater])
	rec.Waste = number(picked[FieldWaste])
	rec.Price = number(picked[FieldPrice])
	rec.Rating = text(picked[FieldRating])
	rec.Recycling = text(picked[FieldRecycling])
	rec.EcoFlag = text(picked[FieldEcoFlag])
	return rec
}

func canonicalKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		switch r {
		case ' ', '_', '-', '(', ')', '.', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// number parses numeric values, tolerating currency symbols, thousands
// separators and surrounding whitespace. Non-finite results count as missing.
func number(v interface{}) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.Map(func(r rune) rune {
			switch r {
			case ',', '$', '€', '£', ' ':
				return -1
			}
			return r
		}, t)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
