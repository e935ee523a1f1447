package hermes

const (
	SubjectDatasetIngestAll = "evergreen.dataset.*.ingest"
	SubjectRunStats         = "evergreen.run.stats"

	StreamName   = "EVERGREEN_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

// StreamSubjects are captured by StreamName.
var StreamSubjects = []string{"evergreen.>"}

// SubjectDatasetIngest is the subject a dataset's ingest events arrive on.
func SubjectDatasetIngest(datasetID string) string {
	return "evergreen.dataset." + datasetID + ".ingest"
}

// Run lifecycle subjects
func SubjectRunStarted(runID string) string    { return "evergreen.run." + runID + ".started" }
func SubjectRunCompleted(runID string) string  { return "evergreen.run." + runID + ".completed" }
func SubjectRunSuperseded(runID string) string { return "evergreen.run." + runID + ".superseded" }
func SubjectRunFailed(runID string) string     { return "evergreen.run." + runID + ".failed" }

// DatasetIDFromSubject extracts the dataset segment of an ingest subject, or
// "" when subject has another shape.
func DatasetIDFromSubject(subject string) string {
	const prefix, suffix = "evergreen.dataset.", ".ingest"
	if len(subject) <= len(prefix)+len(suffix) ||
		subject[:len(prefix)] != prefix || subject[len(subject)-len(suffix):] != suffix {
		return ""
	}
	return subject[len(prefix) : len(subject)-len(suffix)]
}
