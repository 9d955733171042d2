package codec

// Result is the outcome of a decode entry point.
//
// Success and IncompleteInput both leave valid pixels in the destination;
// IncompleteInput means only a prefix of rows was written (see
// Codec.RowsDecoded). InvalidInput, InvalidParameters, InvalidConversion,
// InvalidScale and Unimplemented are permanent. CouldNotRewind means the
// stream cannot support a second read.
//
// Result implements error so factory failures can wrap it.
type Result int

const (
	Success Result = iota
	IncompleteInput
	InvalidConversion
	InvalidScale
	InvalidParameters
	InvalidInput
	CouldNotRewind
	ScanlineDecodingNotStarted
	Unimplemented
)

var resultNames = [...]string{
	Success:                    "success",
	IncompleteInput:            "incomplete input",
	InvalidConversion:          "invalid conversion",
	InvalidScale:               "invalid scale",
	InvalidParameters:          "invalid parameters",
	InvalidInput:               "invalid input",
	CouldNotRewind:             "could not rewind",
	ScanlineDecodingNotStarted: "scanline decoding not started",
	Unimplemented:              "unimplemented",
}

// String returns a string representation of the result.
func (r Result) String() string {
	if r >= 0 && int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "unknown result"
}

// Error implements error.
func (r Result) Error() string {
	return "codec: " + r.String()
}

// IsPartial reports whether valid pixels were produced.
func (r Result) IsPartial() bool {
	return r == Success || r == IncompleteInput
}
