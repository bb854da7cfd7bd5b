package mailmsg

import "io"

// countingSink wraps the caller's io.Writer, counting bytes written and
// translating the first write failure into a *SinkError. Once broken, it
// refuses further writes so a partially-written stream never silently
// resumes.
type countingSink struct {
	w       io.Writer
	written int64
	broken  error
}

func newCountingSink(w io.Writer) *countingSink {
	return &countingSink{w: w}
}

func (s *countingSink) Write(p []byte) (int, error) {
	if s.broken != nil {
		return 0, s.broken
	}
	n, err := s.w.Write(p)
	s.written += int64(n)
	if err != nil {
		s.broken = wrapSink(err)
		return n, s.broken
	}
	return n, nil
}

func (s *countingSink) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}
