package frame

// State is the scanner state.
type State int

const (
	// WaitingForStart discards bytes until a start marker arrives.
	WaitingForStart State = iota
	// Collecting appends destuffed bytes to the frame buffer.
	Collecting
	// AfterEscape follows an escape marker inside a frame.
	AfterEscape
)

func (s State) String() string {
	switch s {
	case WaitingForStart:
		return "waiting-for-start"
	case Collecting:
		return "collecting"
	case AfterEscape:
		return "after-escape"
	default:
		return "unknown"
	}
}

// Result is the outcome of a terminator: either a frame or a rejection.
type Result struct {
	Frame *Frame
	Err   error
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMaxFrameLen limits the destuffed frame length. Longer frames are
// dropped with ErrFrameTooLong.
func WithMaxFrameLen(n int) Option {
	return func(s *Scanner) {
		if n >= MinFrameLen {
			s.maxLen = n
		}
	}
}

// Scanner recovers frames from a byte stream one byte at a time.
// A Scanner belongs to exactly one stream and must not be fed concurrently.
type Scanner struct {
	types  TypeResolver
	state  State
	buf    []byte
	maxLen int
}

// NewScanner creates a scanner resolving type ids with types.
// types may be nil, in which case every frame is Unrecognized.
func NewScanner(types TypeResolver, opts ...Option) *Scanner {
	s := &Scanner{
		types:  types,
		maxLen: DefaultMaxFrameLen,
		buf:    make([]byte, 0, 64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Scanner) State() State {
	return s.state
}

// Buffered returns the number of destuffed bytes held for the frame in progress.
func (s *Scanner) Buffered() int {
	return len(s.buf)
}

// Reset drops any frame in progress.
func (s *Scanner) Reset() {
	s.state = WaitingForStart
	s.buf = s.buf[:0]
}

// Feed consumes one byte. It returns (nil, nil) unless b completes a frame,
// in which case it returns the frame or the reason it was rejected.
func (s *Scanner) Feed(b byte) (*Frame, error) {
	switch s.state {
	case WaitingForStart:
		if b == Start {
			s.buf = append(s.buf, b)
			s.state = Collecting
		}
		return nil, nil

	case Collecting:
		if b == Esc {
			s.state = AfterEscape
			return nil, nil
		}
		return nil, s.push(b)

	case AfterEscape:
		switch b {
		case Esc:
			s.state = Collecting
			return nil, s.push(Esc)
		case Terminator:
			return s.complete()
		default:
			// The escape was the start marker of a new frame; the previous
			// frame lost its terminator.
			s.buf = append(s.buf[:0], Start, b)
			s.state = Collecting
			return nil, nil
		}
	}

	s.Reset()
	return nil, nil
}

// FeedBytes feeds p and returns the outcomes in stream order.
func (s *Scanner) FeedBytes(p []byte) []Result {
	var results []Result
	for _, b := range p {
		f, err := s.Feed(b)
		if f != nil || err != nil {
			results = append(results, Result{Frame: f, Err: err})
		}
	}
	return results
}

func (s *Scanner) push(b byte) error {
	if len(s.buf) >= s.maxLen {
		s.Reset()
		return ErrFrameTooLong
	}
	s.buf = append(s.buf, b)
	return nil
}

func (s *Scanner) complete() (*Frame, error) {
	defer s.Reset()

	if len(s.buf) < MinFrameLen {
		return nil, ErrFrameTooShort
	}
	if !Verify(s.buf) {
		return nil, ErrChecksumMismatch
	}

	f := &Frame{
		TypeID:  s.buf[1],
		Name:    Unrecognized,
		Payload: append([]byte(nil), s.buf[1:len(s.buf)-1]...),
	}
	if s.types != nil {
		if name, ok := s.types.TypeName(f.TypeID); ok {
			f.Name, f.Known = name, true
		}
	}
	return f, nil
}
