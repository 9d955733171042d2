package codec

import (
	"io"
	"sync"
)

// Stream is the encoded input of a Codec. The codec owns the stream from
// the moment it is passed to MakeFromStream; if the stream implements
// io.Closer it is closed by Codec.Close or when creation fails.
type Stream interface {
	io.Reader
	// Rewind moves to the start of the stream. It returns false if the
	// stream cannot go back.
	Rewind() bool
	// IsAtEnd reports whether every byte has been read.
	IsAtEnd() bool
}

// Peeker is implemented by streams that can return upcoming bytes without
// consuming them. Format sniffing uses it in place of read + rewind.
type Peeker interface {
	Peek(p []byte) int
}

// MemoryStream is a rewindable stream over a byte slice. Bytes can be
// appended after creation, which is how incremental decodes are fed.
//
// MemoryStream is safe for one reader and one appender at a time.
type MemoryStream struct {
	mu   sync.Mutex
	data []byte
	pos  int
}

// NewMemoryStream returns a stream reading data. The slice is not copied.
func NewMemoryStream(data []byte) *MemoryStream {
	return &MemoryStream{data: data}
}

// Read implements io.Reader.
func (m *MemoryStream) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += n
	return n, nil
}

// Peek copies upcoming bytes into p without consuming them.
func (m *MemoryStream) Peek(p []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copy(p, m.data[m.pos:])
}

// Rewind implements Stream.
func (m *MemoryStream) Rewind() bool {
	m.mu.Lock()
	m.pos = 0
	m.mu.Unlock()
	return true
}

// IsAtEnd implements Stream.
func (m *MemoryStream) IsAtEnd() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos >= len(m.data)
}

// Append adds bytes to the end of the stream.
func (m *MemoryStream) Append(b []byte) {
	m.mu.Lock()
	m.data = append(m.data, b...)
	m.mu.Unlock()
}

// Length returns the number of bytes currently in the stream.
func (m *MemoryStream) Length() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Position returns the read offset.
func (m *MemoryStream) Position() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// readerStream adapts an io.Reader. It can rewind only when the reader is
// also an io.Seeker.
type readerStream struct {
	r     io.Reader
	atEnd bool
}

// NewReaderStream wraps r as a Stream. Rewind succeeds only if r
// implements io.Seeker.
func NewReaderStream(r io.Reader) Stream {
	return &readerStream{r: r}
}

func (s *readerStream) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err == io.EOF {
		s.atEnd = true
	}
	return n, err
}

func (s *readerStream) Rewind() bool {
	seeker, ok := s.r.(io.Seeker)
	if !ok {
		return false
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return false
	}
	s.atEnd = false
	return true
}

func (s *readerStream) IsAtEnd() bool { return s.atEnd }

func (s *readerStream) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// closeStream closes s if it implements io.Closer.
func closeStream(s Stream) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}

// peekOrRead fills p with the stream's first bytes and leaves the stream
// at its start. It returns the number of bytes available and false if the
// stream had to be rewound and could not be.
func peekOrRead(s Stream, p []byte) (int, bool) {
	if pk, ok := s.(Peeker); ok {
		return pk.Peek(p), true
	}
	n, _ := io.ReadFull(s, p)
	return n, s.Rewind()
}

// readFull reads exactly len(p) bytes and reports whether it could.
func readFull(r io.Reader, p []byte) bool {
	_, err := io.ReadFull(r, p)
	return err == nil
}

// readAtMost reads up to len(p) bytes, stopping early only at the end of
// the stream. It returns the number of bytes read.
func readAtMost(r io.Reader, p []byte) int {
	n, _ := io.ReadFull(r, p)
	return n
}

// skipBytes discards n bytes and reports whether all were present.
func skipBytes(r io.Reader, n int) bool {
	if n <= 0 {
		return true
	}
	if pk, ok := r.(interface{ Skip(int) int }); ok {
		return pk.Skip(n) == n
	}
	copied, err := io.CopyN(io.Discard, r, int64(n))
	return err == nil && copied == int64(n)
}

// Skip advances the read offset by up to n bytes and returns how many
// were skipped.
func (m *MemoryStream) Skip(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n = min(n, len(m.data)-m.pos)
	if n < 0 {
		return 0
	}
	m.pos += n
	return n
}

// Bytes returns the unread bytes without consuming them. The slice
// aliases the stream's storage.
func (m *MemoryStream) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[m.pos:]
}
