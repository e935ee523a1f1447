package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Evergreen/internal/scoring"
)

const sampleJSON = `[
  {"Brand_Name": "Verda", "Material_Type": "Organic Cotton", "Carbon_Footprint_MT": 1.2, "Water_Usage_Liters": 900, "Waste_Production_KG": 40, "Average_Price_USD": 55, "Sustainability_Rating": "A", "Recycling_Programs": "Yes", "Eco_Friendly_Manufacturing": "Yes"},
  {"Brand_Name": "Fastline", "Material_Type": "Polyester", "Carbon_Footprint_MT": 4.8, "Water_Usage_Liters": 2500, "Waste_Production_KG": 90, "Average_Price_USD": 20, "Sustainability_Rating": "D", "Recycling_Programs": "No", "Eco_Friendly_Manufacturing": "No"},
  {"Brand_Name": "Hempworks", "Material_Type": "Hemp", "Carbon_Footprint_MT": 0.9, "Water_Usage_Liters": 400, "Waste_Production_KG": 25, "Average_Price_USD": 70, "Sustainability_Rating": "A", "Recycling_Programs": "Yes", "Eco_Friendly_Manufacturing": "Yes"},
  {"Brand_Name": "Midway", "Material_Type": "Polyester", "Carbon_Footprint_MT": 3.1, "Water_Usage_Liters": 1800, "Waste_Production_KG": 60, "Average_Price_USD": 35, "Sustainability_Rating": "C", "Recycling_Programs": "Yes", "Eco_Friendly_Manufacturing": "No"}
]`

const sampleCSV = `Brand_Name,Material_Type,Carbon_Footprint_MT,Water_Usage_Liters,Waste_Production_KG,Average_Price_USD,Sustainability_Rating,Recycling_Programs,Eco_Friendly_Manufacturing
Verda,Organic Cotton,1.2,900,40,55,A,Yes,Yes
Fastline,Polyester,4.8,2500,90,20,D,No,No
Hempworks,Hemp,0.9,400,25,70,A,Yes,Yes
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScoreTable(t *testing.T) {
	path := writeFile(t, "brands.json", sampleJSON)

	out, err := execute(t, "score", path, "--seed", "7")
	require.NoError(t, err)

	assert.Contains(t, out, "Mode: ranked")
	for _, brand := range []string{"Verda", "Fastline", "Hempworks", "Midway"} {
		assert.Contains(t, out, brand)
	}
	assert.Less(t, strings.Index(out, "Hempworks"), strings.Index(out, "Fastline"))
}

func TestScoreJSONIsDeterministic(t *testing.T) {
	path := writeFile(t, "brands.json", sampleJSON)

	first, err := execute(t, "score", path, "-o", "json", "--seed", "3", "--top", "2")
	require.NoError(t, err)
	second, err := execute(t, "score", path, "-o", "json", "--seed", "3", "--top", "2")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var set scoring.RecommendationSet
	require.NoError(t, json.Unmarshal([]byte(first), &set))
	assert.Equal(t, scoring.ModeRanked, set.Mode)
	assert.Len(t, set.Ranked, 2)
}

func TestScoreCategorized(t *testing.T) {
	path := writeFile(t, "brands.json", sampleJSON)

	out, err := execute(t, "score", path, "--mode", "categorized")
	require.NoError(t, err)
	assert.Contains(t, out, "Max sustainability")
	assert.Contains(t, out, "Best value")
	assert.Contains(t, out, "Balanced")
}

func TestScoreCSV(t *testing.T) {
	path := writeFile(t, "brands.csv", sampleCSV)

	out, err := execute(t, "score", path, "-o", "json", "--priority", "1")
	require.NoError(t, err)

	var set scoring.RecommendationSet
	require.NoError(t, json.Unmarshal([]byte(out), &set))
	require.Len(t, set.Ranked, 3)
	assert.Equal(t, "Hempworks", set.Ranked[0].Brand)
}

func TestClusters(t *testing.T) {
	path := writeFile(t, "brands.json", sampleJSON)

	out, err := execute(t, "clusters", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Organic Cotton")
	assert.Contains(t, out, "Polyester")
	assert.Contains(t, out, "Elbow (selected k=")
}

func TestScoreErrors(t *testing.T) {
	path := writeFile(t, "brands.json", sampleJSON)
	empty := writeFile(t, "empty.json", "[]")

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"score", filepath.Join(t.TempDir(), "nope.json")}},
		{"no records", []string{"score", empty}},
		{"bad mode", []string{"score", path, "--mode", "loudest"}},
		{"bad priority", []string{"score", path, "--priority", "1.5"}},
		{"bad output", []string{"score", path, "-o", "xml"}},
		{"no args", []string{"score"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseCSVSkipsEmptyCells(t *testing.T) {
	rows, err := parseCSV([]byte("Brand_Name,Average_Price_USD\nVerda,\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Verda", rows[0]["Brand_Name"])
	_, ok := rows[0]["Average_Price_USD"]
	assert.False(t, ok)
}
