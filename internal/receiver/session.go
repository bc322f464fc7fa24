package receiver

import "time"

// Session is the receiver's per-peer state for one in-progress inbound
// transfer, keyed by the peer's "<ip>:<port>" string (§3).
type Session struct {
	Key       string
	SessionID int64

	Filename   string
	TargetPath string
	Total      uint32

	Expected uint32 // next in-order sequence expected
	Received uint32 // count of chunks actually written

	LastActivity time.Time

	sink Sink
}

// AckSeq returns the cumulative ACK sequence for this session's current
// state: expected-1 once anything has been received, else 0 — the
// documented §9 ambiguity between "nothing received yet" and "seq 0
// received".
func (s *Session) AckSeq() uint32 {
	if s.Expected == 0 {
		return 0
	}
	return s.Expected - 1
}

// Accept appends payload to the session's sink if seq is the next
// in-order sequence, advancing Expected and Received. Out-of-order
// payloads are silently discarded — pure Go-Back-N, no reordering buffer.
func (s *Session) Accept(seq uint32, payload []byte) error {
	if seq != s.Expected {
		return nil
	}
	if len(payload) > 0 {
		if _, err := s.sink.Write(payload); err != nil {
			return err
		}
	}
	s.Expected++
	s.Received++
	return nil
}

// Close flushes and closes the session's output sink.
func (s *Session) Close() error {
	if s.sink == nil {
		return nil
	}
	return s.sink.Close()
}
