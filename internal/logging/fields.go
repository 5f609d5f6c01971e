package logging

// Field-key constants shared across the rfscout packages that log against a
// survey, segment, signal, or watch, so call sites don't each invent their
// own spelling of the same identifier.
const (
	KeyError     = "error"
	KeySurveyID  = "survey_id"
	KeySegmentID = "segment_id"
	KeySignalID  = "signal_id"
	KeyWatchID   = "watch_id"
	KeyAttempt   = "attempt"
)

// Err wraps an error as a structured field under the common "error" key.
// Logger implementations receive the error's message, not the error value
// itself, so a nil err still needs a guard at the call site.
func Err(err error) Field {
	return Field{Key: KeyError, Value: err.Error()}
}

// SurveyID, SegmentID, SignalID, and WatchID tag a log line with the
// domain identifier it concerns, matching the columns internal/store
// persists them under.
func SurveyID(id string) Field  { return Field{Key: KeySurveyID, Value: id} }
func SegmentID(id string) Field { return Field{Key: KeySegmentID, Value: id} }
func SignalID(id string) Field  { return Field{Key: KeySignalID, Value: id} }
func WatchID(id string) Field   { return Field{Key: KeyWatchID, Value: id} }

// Attempt tags a retry log line with its 1-based attempt number.
func Attempt(n int) Field { return Field{Key: KeyAttempt, Value: n} }
