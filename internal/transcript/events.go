package transcript

// EventKind discriminates the events delivered by the recognizer.
type EventKind string

// Event kind constants
const (
	EventLineStarted     EventKind = "line_started"
	EventLineTextChanged EventKind = "line_text_changed"
	EventLineCompleted   EventKind = "line_completed"
	EventLineUpdated     EventKind = "line_updated"
	EventError           EventKind = "error"
)

// Event is one recognizer event. A line is created on the first event
// carrying its ID and updated in place by subsequent ones.
type Event struct {
	Kind      EventKind `json:"kind" validate:"required,oneof=line_started line_text_changed line_completed line_updated error"`
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	StartTime float64   `json:"start_time"`
	Duration  float64   `json:"duration" validate:"gte=0"`
	Source    Source    `json:"source"`
	Message   string    `json:"message,omitempty"`
}

// Line returns the line described by the event's payload fields.
func (e Event) Line() Line {
	return Line{
		ID:        e.ID,
		Text:      e.Text,
		StartTime: e.StartTime,
		Duration:  e.Duration,
		Source:    e.Source,
	}
}
