package recorder

// Recorder is the call-audit interface workflow code records against.
// StartCall is invoked just before the provider call with everything known
// up front, and EndCall completes the record once the response is in.
// Implementations must tolerate EndCall for an unknown id.
type Recorder interface {
	// StartCall opens a record and returns its call id.
	StartCall(cc CallContext) string

	// EndCall finalizes the record opened by StartCall.
	EndCall(callID string, completion Completion)

	// UpdateReasoning back-fills the reasoning column of an already stored
	// call, used when reasoning is parsed after the call was recorded.
	UpdateReasoning(callID, reasoning string)

	// UpdateTripleCount back-fills the parsed triple count of an already
	// stored call. Parsing happens after the call is recorded.
	UpdateTripleCount(callID string, count int)

	// Close flushes pending writes and releases resources.
	Close() error
}

// NopRecorder discards everything. It is the default when recording is not
// enabled.
type NopRecorder struct{}

func (NopRecorder) StartCall(CallContext) string   { return "" }
func (NopRecorder) EndCall(string, Completion)     {}
func (NopRecorder) UpdateReasoning(string, string) {}
func (NopRecorder) UpdateTripleCount(string, int)  {}
func (NopRecorder) Close() error                   { return nil }
