package hermes

const (
	StreamName   = "WELLSPRING_EVENTS"
	StreamMaxAge = "720h" // 30 days

	subjectPrefix = "wellness.assessment."
)

// Record lifecycle events.
const (
	EventCreated    = "created"
	EventReassessed = "reassessed"
	EventDeleted    = "deleted"
	EventPromoted   = "promoted"
)

// SubjectAssessment returns wellness.assessment.<type>.<event>.
func SubjectAssessment(assessmentType, event string) string {
	return subjectPrefix + assessmentType + "." + event
}
