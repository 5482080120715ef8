package transport

import (
	"bytes"
	"errors"
	"fmt"
)

// maxLine caps a line, terminators included
const maxLine = 4096

// ErrLineTooLong is returned once a line exceeds maxLine.
// The buffered bytes are discarded, never delivered as a line.
var ErrLineTooLong = errors.New("line too long")

// LineSplitter accumulates a byte stream and yields complete lines.
// A line ends with '\n'; the terminator (and a preceding '\r') stays part of
// the line. The zero value is ready to use.
type LineSplitter struct {
	buf []byte
}

// Feed appends p and returns every line it completed. Returned slices are
// owned by the caller. Lines completed before an overrun are still returned
// alongside ErrLineTooLong.
func (s *LineSplitter) Feed(p []byte) ([][]byte, error) {
	s.buf = append(s.buf, p...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 || i+1 > maxLine {
			break
		}
		lines = append(lines, s.take(i+1))
	}
	if len(s.buf) > maxLine {
		n := len(s.buf)
		s.buf = s.buf[:0]
		return lines, fmt.Errorf("%w: more than %d bytes buffered (%d)", ErrLineTooLong, maxLine, n)
	}
	return lines, nil
}

// Flush returns the unterminated remainder, or nil if there is none
func (s *LineSplitter) Flush() []byte {
	if len(s.buf) == 0 {
		return nil
	}
	return s.take(len(s.buf))
}

// Pending returns the number of buffered bytes
func (s *LineSplitter) Pending() int {
	return len(s.buf)
}

func (s *LineSplitter) take(n int) []byte {
	line := make([]byte, n)
	copy(line, s.buf[:n])
	s.buf = append(s.buf[:0], s.buf[n:]...)
	return line
}
