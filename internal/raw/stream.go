package raw

import (
	"errors"
	"io"
)

// Stream errors.
var (
	ErrReadFile = errors.New("raw: read past end of data")
	ErrConsumed = errors.New("raw: stream already transferred")
)

const readChunk = 64 << 10

// Stream buffers an io.Reader on demand so container parsers can read at
// arbitrary offsets without seeking. Bytes are only pulled from the
// underlying reader when an offset beyond the buffer is requested.
type Stream struct {
	r        io.Reader
	buf      []byte
	eof      bool
	consumed bool
}

// NewStream wraps r. The Stream reads r sequentially from its current
// position, which becomes offset zero.
func NewStream(r io.Reader) *Stream {
	return &Stream{r: r}
}

// bufferTo makes at least n bytes available. It returns false if the
// reader ends first.
func (s *Stream) bufferTo(n int) bool {
	for len(s.buf) < n {
		if s.eof {
			return false
		}
		chunk := min(n-len(s.buf), readChunk)
		start := len(s.buf)
		s.buf = append(s.buf, make([]byte, chunk)...)
		got, err := io.ReadFull(s.r, s.buf[start:])
		s.buf = s.buf[:start+got]
		if err != nil {
			s.eof = true
		}
	}
	return true
}

// ReadAt implements io.ReaderAt over the buffered data.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if s.consumed {
		return 0, ErrConsumed
	}
	if off < 0 {
		return 0, ErrReadFile
	}
	end := int(off) + len(p)
	if !s.bufferTo(end) {
		if int(off) >= len(s.buf) {
			return 0, io.EOF
		}
		n := copy(p, s.buf[off:])
		return n, io.ErrUnexpectedEOF
	}
	return copy(p, s.buf[off:end]), nil
}

// GetData fills p from offset off. It fails unless every byte is present.
func (s *Stream) GetData(off int, p []byte) error {
	if s.consumed {
		return ErrConsumed
	}
	if off < 0 || !s.bufferTo(off+len(p)) {
		return ErrReadFile
	}
	copy(p, s.buf[off:])
	return nil
}

// Length reads the rest of the reader and returns the total length.
func (s *Stream) Length() (int, error) {
	if s.consumed {
		return 0, ErrConsumed
	}
	if !s.eof {
		rest, err := io.ReadAll(s.r)
		s.buf = append(s.buf, rest...)
		s.eof = true
		if err != nil {
			return len(s.buf), err
		}
	}
	return len(s.buf), nil
}

// Bytes returns the whole stream, reading to the end first.
func (s *Stream) Bytes() ([]byte, error) {
	if _, err := s.Length(); err != nil {
		return nil, err
	}
	return s.buf, nil
}

// TransferBuffer returns size bytes starting at offset as an independent
// slice. Bytes beyond the buffer are read straight from the reader without
// buffering, so the Stream must not be used afterwards; every later call
// fails with ErrConsumed. A short read yields a shorter slice.
func (s *Stream) TransferBuffer(offset, size int) ([]byte, error) {
	if s.consumed {
		return nil, ErrConsumed
	}
	if offset < 0 || size < 0 {
		return nil, ErrReadFile
	}
	s.consumed = true
	data := make([]byte, size)

	if offset > len(s.buf) {
		skip := int64(offset - len(s.buf))
		if s.eof {
			return nil, ErrReadFile
		}
		if n, err := io.CopyN(io.Discard, s.r, skip); n != skip {
			if err == nil {
				err = ErrReadFile
			}
			return nil, err
		}
		n, _ := io.ReadFull(s.r, data)
		s.buf = nil
		return data[:n], nil
	}

	buffered := copy(data, s.buf[offset:])
	n := 0
	if buffered < size && !s.eof {
		n, _ = io.ReadFull(s.r, data[buffered:])
	}
	s.buf = nil
	return data[:buffered+n], nil
}
