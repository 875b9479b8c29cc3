package transcript

// Source identifies which capture stream a transcript line came from.
type Source string

// Capture source constants
const (
	SourceMicrophone Source = "microphone"
	SourceSystem     Source = "system"
)

// Line is one unit of transcribed speech. The ID is stable across the
// incremental text refinements the recognizer emits for the same utterance.
// Times are wall-clock seconds since the Unix epoch.
type Line struct {
	ID        int64   `json:"id"`
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	Source    Source  `json:"source"`
}

// EndTime returns StartTime + Duration.
func (l Line) EndTime() float64 {
	return l.StartTime + l.Duration
}
