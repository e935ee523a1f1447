package scoring

import (
	"testing"

	"github.com/MikeSquared-Agency/Evergreen/internal/store"
)

func TestApplySIS(t *testing.T) {
	records := NewScorer(nil, discardLogger()).Score(sampleRecords())
	ApplySIS(records, Weights{Values: []float64{0.75, 0.25}}, BasisNormalized)

	want := []float64{1, 0, 0.5}
	for i, r := range records {
		if !approx(r.SIS, want[i]) {
			t.Errorf("record %d SIS = %v, want %v", i, r.SIS, want[i])
		}
	}
}

func TestApplySISStaysInUnitInterval(t *testing.T) {
	records := []ScoredRecord{
		{Environmental: 1, Policy: 1},
		{Environmental: 0, Policy: 1},
		{Environmental: 0.3, Policy: 0},
	}
	for _, w := range []Weights{EqualWeights(2), {Values: []float64{1, 0}}, {Values: []float64{0.1, 0.9}}} {
		ApplySIS(records, w, BasisNormalized)
		for i, r := range records {
			if r.SIS < 0 || r.SIS > 1 {
				t.Errorf("weights %v record %d SIS %v out of range", w.Values, i, r.SIS)
			}
		}
	}
}

func TestApplySISRawBasis(t *testing.T) {
	records := []ScoredRecord{{EnvironmentalRaw: 0.4, PolicyRaw: 0.8, Environmental: 1, Policy: 1}}
	ApplySIS(records, EqualWeights(2), BasisRaw)
	if !approx(records[0].SIS, 0.6) {
		t.Errorf("expected 0.6, got %v", records[0].SIS)
	}
}

func TestAggregateByCategory(t *testing.T) {
	mk := func(cat string, carbon *float64, sis float64) ScoredRecord {
		return ScoredRecord{
			NormalizedRecord: NormalizedRecord{Record: store.Record{Category: cat, Carbon: carbon}},
			SIS:              sis,
		}
	}
	records := []ScoredRecord{
		mk("Wool", nil, 0.2),
		mk("Cotton", float64Ptr(4), 0.8),
		mk("", nil, 0.5),
		mk(" Cotton ", float64Ptr(6), 0.4),
		mk("   ", nil, 0.1),
	}

	aggs := AggregateByCategory(records)
	if len(aggs) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(aggs))
	}

	wantOrder := []string{"Cotton", "Unknown", "Wool"}
	for i, a := range aggs {
		if a.Category != wantOrder[i] {
			t.Errorf("aggregate %d = %q, want %q", i, a.Category, wantOrder[i])
		}
		if a.Cluster != -1 {
			t.Errorf("expected unattached cluster, got %d", a.Cluster)
		}
	}

	cotton := aggs[0]
	if cotton.Count != 2 {
		t.Errorf("expected 2 cotton records, got %d", cotton.Count)
	}
	if cotton.Carbon == nil || *cotton.Carbon != 5 {
		t.Errorf("expected carbon mean 5, got %v", cotton.Carbon)
	}
	if !approx(cotton.SIS, 0.6) {
		t.Errorf("expected SIS mean 0.6, got %v", cotton.SIS)
	}
	if aggs[1].Count != 2 || !approx(aggs[1].SIS, 0.3) {
		t.Errorf("unknown bucket = %+v", aggs[1])
	}
	if aggs[2].Carbon != nil {
		t.Error("expected nil carbon mean when no member has carbon")
	}
}

func TestAggregateByCategoryIgnoresInputOrder(t *testing.T) {
	records := NewScorer(nil, discardLogger()).Score(sampleRecords())
	reversed := []ScoredRecord{records[2], records[1], records[0]}

	a := AggregateByCategory(records)
	b := AggregateByCategory(reversed)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Category != b[i].Category || a[i].Count != b[i].Count || !approx(a[i].Environmental, b[i].Environmental) {
			t.Errorf("aggregate %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestFeatureVectors(t *testing.T) {
	aggs := []CategoryAggregate{{SIS: 0.9, PriceNorm: 0.2, Environmental: 0.7, Policy: 0.4}}
	pts := FeatureVectors(aggs, []Feature{FeaturePrice, FeatureSIS})
	if len(pts) != 1 || pts[0][0] != 0.2 || pts[0][1] != 0.9 {
		t.Errorf("unexpected vectors %v", pts)
	}
	if _, err := ParseFeature("humidity"); err == nil {
		t.Error("expected error for unknown feature")
	}
}
