package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestMemoryStream(t *testing.T) {
	s := NewMemoryStream([]byte("abc"))
	peek := make([]byte, 2)
	if n := s.Peek(peek); n != 2 || string(peek) != "ab" {
		t.Fatalf("Peek() = %d %q", n, peek)
	}
	got, err := io.ReadAll(s)
	if err != nil || string(got) != "abc" {
		t.Fatalf("ReadAll() = %q, %v", got, err)
	}
	if !s.IsAtEnd() {
		t.Error("IsAtEnd() = false after reading everything")
	}

	s.Append([]byte("de"))
	if s.IsAtEnd() {
		t.Error("IsAtEnd() = true after Append")
	}
	rest, _ := io.ReadAll(s)
	if string(rest) != "de" {
		t.Errorf("read after Append = %q, want %q", rest, "de")
	}
	if !s.Rewind() || s.Position() != 0 || s.Length() != 5 {
		t.Errorf("Rewind() left Position %d Length %d", s.Position(), s.Length())
	}
}

func TestReaderStreamRewind(t *testing.T) {
	tests := []struct {
		name   string
		r      io.Reader
		rewind bool
	}{
		{"seeker", bytes.NewReader([]byte("xyz")), true},
		{"plain reader", io.MultiReader(strings.NewReader("xyz")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewReaderStream(tt.r)
			if _, err := io.ReadAll(s); err != nil {
				t.Fatal(err)
			}
			if !s.IsAtEnd() {
				t.Error("IsAtEnd() = false after EOF")
			}
			if got := s.Rewind(); got != tt.rewind {
				t.Errorf("Rewind() = %v, want %v", got, tt.rewind)
			}
		})
	}
}

func TestPeekOrRead(t *testing.T) {
	s := NewReaderStream(bytes.NewReader([]byte("GIF89a")))
	buf := make([]byte, 3)
	n, ok := peekOrRead(s, buf)
	if n != 3 || !ok || string(buf) != "GIF" {
		t.Fatalf("peekOrRead() = %d, %v, %q", n, ok, buf)
	}
	all, _ := io.ReadAll(s)
	if string(all) != "GIF89a" {
		t.Errorf("stream not rewound: %q", all)
	}
}
