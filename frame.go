package codec

import "image"

// NoFrame is the RequiredFrame of a frame that starts from a cleared
// canvas.
const NoFrame = -1

// RepetitionInfinite is the RepetitionCount of an animation that loops
// forever.
const RepetitionInfinite = -1

// DisposalMethod says what happens to a frame's rectangle before the
// next frame is drawn.
type DisposalMethod uint8

const (
	// DisposalKeep leaves the frame in place.
	DisposalKeep DisposalMethod = iota
	// DisposalRestoreBGColor clears the frame's rectangle to transparent.
	DisposalRestoreBGColor
	// DisposalRestorePrevious restores the canvas to its state before the
	// frame was drawn.
	DisposalRestorePrevious
)

func (d DisposalMethod) String() string {
	switch d {
	case DisposalRestoreBGColor:
		return "restore-bg"
	case DisposalRestorePrevious:
		return "restore-previous"
	default:
		return "keep"
	}
}

// FrameInfo describes one frame of an animated image.
type FrameInfo struct {
	// Duration is the display time in milliseconds.
	Duration int
	// RequiredFrame is the index of the frame that must already be in
	// the destination before this one is drawn, or NoFrame. It is always
	// less than the frame's own index.
	RequiredFrame int
	Disposal      DisposalMethod
	// Rect is the frame's rectangle on the canvas, clipped to it.
	Rect image.Rectangle
	// FullyReceived reports whether all of the frame's data is present.
	FullyReceived bool
}
