package runner

import (
	"bytes"
	"io"
	"sync"
)

// syncWriter serializes writes of stdout and stderr lines into the sink.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}

// lineWriter forwards complete lines to dst as soon as they are written.
// A trailing partial line is kept until the next newline or Flush.
type lineWriter struct {
	dst io.Writer
	buf bytes.Buffer
	// max bounds the partial line kept in memory; longer lines are forwarded in chunks.
	max int
}

func newLineWriter(dst io.Writer, max int) *lineWriter {
	return &lineWriter{dst: dst, max: max}
}

func (l *lineWriter) Write(p []byte) (int, error) {
	n := len(p)

	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			l.buf.Write(p)
			if l.max > 0 && l.buf.Len() >= l.max {
				if err := l.emit(); err != nil {
					return n, err
				}
			}
			return n, nil
		}

		l.buf.Write(p[:i+1])
		p = p[i+1:]

		if err := l.emit(); err != nil {
			return n, err
		}
	}

	return n, nil
}

// Flush forwards a trailing partial line, terminated with a newline.
func (l *lineWriter) Flush() error {
	if l.buf.Len() == 0 {
		return nil
	}
	l.buf.WriteByte('\n')

	return l.emit()
}

func (l *lineWriter) emit() error {
	defer l.buf.Reset()

	_, err := l.dst.Write(l.buf.Bytes())

	return err
}
