package model

// EventType classifies the event a reimbursement is requested for; each type
// carries the fraction of cost the company covers.
type EventType string

const (
	EventUniversityCourse EventType = "UNIVERSITY_COURSE"
	EventSeminar          EventType = "SEMINAR"
	EventCertPrepClass    EventType = "CERT_PREP_CLASS"
	EventCertification    EventType = "CERTIFICATION"
	EventTechTraining     EventType = "TECH_TRAINING"
	EventOther            EventType = "OTHER"
)

var eventRates = map[EventType]float64{
	EventUniversityCourse: 0.8,
	EventSeminar:          0.6,
	EventCertPrepClass:    0.75,
	EventCertification:    1.0,
	EventTechTraining:     0.9,
	EventOther:            0.3,
}

// Rate returns the reimbursement rate for the event type.
func (e EventType) Rate() float64 {
	return eventRates[e]
}

// EventTypes returns all event types, for pick-lists.
func EventTypes() []EventType {
	return []EventType{
		EventUniversityCourse,
		EventSeminar,
		EventCertPrepClass,
		EventCertification,
		EventTechTraining,
		EventOther,
	}
}

// GradeFormat describes how completion of the event is graded.
type GradeFormat string

const (
	GradeScore        GradeFormat = "SCORE"
	GradePresentation GradeFormat = "PRESENTATION"
	GradePassFail     GradeFormat = "PASS_FAIL"
	GradeOther        GradeFormat = "OTHER"
)

// DefaultPassingGrade returns the passing grade applied when the requester
// did not supply one.
func (g GradeFormat) DefaultPassingGrade() string {
	switch g {
	case GradeScore:
		return "70"
	case GradePassFail:
		return "pass"
	default:
		return "presentation"
	}
}

// GradeFormats returns all grade formats, for pick-lists.
func GradeFormats() []GradeFormat {
	return []GradeFormat{GradeScore, GradePresentation, GradePassFail, GradeOther}
}
