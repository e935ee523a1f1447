package hermes

import (
	"strings"
	"testing"
)

func TestRunSubjects(t *testing.T) {
	id := "8c1f"
	tests := map[string]string{
		SubjectRunStarted(id):    "evergreen.run.8c1f.started",
		SubjectRunCompleted(id):  "evergreen.run.8c1f.completed",
		SubjectRunSuperseded(id): "evergreen.run.8c1f.superseded",
		SubjectRunFailed(id):     "evergreen.run.8c1f.failed",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
		if !strings.HasPrefix(got, "evergreen.") {
			t.Errorf("%q is outside the event stream", got)
		}
	}
}

func TestDatasetIDFromSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{SubjectDatasetIngest("textiles"), "textiles"},
		{"evergreen.dataset.a-b.ingest", "a-b"},
		{"evergreen.dataset..ingest", ""},
		{"evergreen.run.x.started", ""},
		{"evergreen.dataset.x.removed", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DatasetIDFromSubject(tt.subject); got != tt.want {
			t.Errorf("DatasetIDFromSubject(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
