// Package sender implements the three-phase sender state machine of
// §4.C: a bounded-retry handshake, a Go-Back-N windowed data phase driven
// by a single retransmission timer, and a FIN/FIN_ACK teardown — plus the
// optional scheduler (scheduler.go) and host-stats sampler (monitor.go)
// this module adds around that unmodified core.
package sender

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/sentora-labs/rudp/internal/config"
	"github.com/sentora-labs/rudp/internal/protocol"
)

// Exit codes mirror the sender's four terminal states plus local I/O
// failure, as specified in §4.C.
const (
	ExitSuccess            = 0
	ExitIOError            = 1
	ExitHandshakeFailed    = 2
	ExitMaxRetriesExceeded = 3
	ExitFinNotAcked        = 4
)

// pollInterval is the sleep between non-blocking receive attempts inside a
// bounded wait, per §4.C.
const pollInterval = 5 * time.Millisecond

// maxDatagram bounds a single read; it comfortably exceeds header size plus
// any realistic chunk size.
const maxDatagram = 65535

// Sender drives one transfer over conn, which must already be connected to
// the receiver (e.g. the result of net.Dial("udp", addr)).
type Sender struct {
	conn   net.Conn
	cfg    config.SenderConfig
	logger *slog.Logger
}

// New builds a Sender.
func New(conn net.Conn, cfg config.SenderConfig, logger *slog.Logger) *Sender {
	return &Sender{conn: conn, cfg: cfg, logger: logger}
}

// Send runs the full handshake/data/teardown cycle for the file at path and
// returns the spec's exit code alongside a descriptive error for anything
// other than success.
func (s *Sender) Send(path string) (int, error) {
	chunks, filename, size, err := LoadFile(path, s.cfg.ChunkSize)
	if err != nil {
		return ExitIOError, err
	}
	total := uint32(len(chunks))
	s.logger.Info("prepared transfer", "file", filename, "size", size, "total_chunks", total)

	if err := s.handshake(filename, uint64(size), total); err != nil {
		if errors.Is(err, errHandshakeFailed) {
			return ExitHandshakeFailed, err
		}
		return ExitIOError, err
	}
	s.logger.Info("handshake complete")

	if err := s.sendWindowed(chunks, total); err != nil {
		if errors.Is(err, errMaxRetries) {
			return ExitMaxRetriesExceeded, err
		}
		return ExitIOError, err
	}
	s.logger.Info("data phase complete", "total_chunks", total)

	if err := s.teardown(); err != nil {
		if errors.Is(err, errFinNotAcked) {
			return ExitFinNotAcked, err
		}
		return ExitIOError, err
	}
	s.logger.Info("transfer complete")
	return ExitSuccess, nil
}

var errHandshakeFailed = errors.New("sender: handshake not acknowledged")

func (s *Sender) handshake(filename string, size uint64, total uint32) error {
	h := protocol.Handshake{
		Filename:   filename,
		FileSize:   size,
		Total:      total,
		ChunkSize:  s.cfg.ChunkSize,
		WindowSize: s.cfg.Window,
	}
	pkt := protocol.Packet{Type: protocol.Handshake, Total: total, Window: s.cfg.Window, Payload: h.Marshal()}
	buf := pkt.Encode()

	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if _, err := s.conn.Write(buf); err != nil {
			return fmt.Errorf("sending handshake: %w", err)
		}
		reply, ok, err := s.pollFor(protocol.HandshakeAck, s.cfg.Timeout)
		if err != nil {
			return err
		}
		if ok {
			s.logger.Debug("handshake acked", "total", reply.Total)
			return nil
		}
		s.logger.Debug("handshake timed out, retrying", "attempt", attempt+1)
	}
	return fmt.Errorf("%w after %d attempts", errHandshakeFailed, s.cfg.MaxRetries)
}

var errMaxRetries = errors.New("sender: retry limit exceeded during data phase")

func (s *Sender) sendWindowed(chunks [][]byte, total uint32) error {
	w := NewWindow(chunks, uint32(s.cfg.Window))
	recvBuf := make([]byte, maxDatagram)

	for !w.Done() {
		now := time.Now()

		for w.CanSend() {
			seq, payload := w.NextChunk(now)
			pkt := protocol.Packet{Type: protocol.Data, Seq: seq, Total: total, Window: s.cfg.Window, Payload: payload}
			if _, err := s.conn.Write(pkt.Encode()); err != nil {
				return fmt.Errorf("sending data seq=%d: %w", seq, err)
			}
		}

		if err := s.conn.SetReadDeadline(time.Now()); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}
		n, err := s.conn.Read(recvBuf)
		if err == nil {
			if ack, decodeErr := protocol.Decode(recvBuf[:n]); decodeErr == nil && ack.Type == protocol.Ack {
				w.Ack(ack.Seq, time.Now())
			}
		} else if !isTimeout(err) {
			return fmt.Errorf("reading ack: %w", err)
		}

		if w.TimedOut(time.Now(), s.cfg.Timeout) {
			if w.Retries() >= s.cfg.MaxRetries {
				return errMaxRetries
			}
			inFlight := w.Retransmit(time.Now())
			s.logger.Debug("retransmitting window", "count", len(inFlight), "retry", w.Retries())
			for _, f := range inFlight {
				pkt := protocol.Packet{Type: protocol.Data, Seq: f.Seq, Total: total, Window: s.cfg.Window, Payload: f.Payload}
				if _, err := s.conn.Write(pkt.Encode()); err != nil {
					return fmt.Errorf("retransmitting seq=%d: %w", f.Seq, err)
				}
			}
		}
	}
	return nil
}

var errFinNotAcked = errors.New("sender: FIN not acknowledged")

func (s *Sender) teardown() error {
	pkt := protocol.Packet{Type: protocol.Fin}
	buf := pkt.Encode()

	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if _, err := s.conn.Write(buf); err != nil {
			return fmt.Errorf("sending FIN: %w", err)
		}
		_, ok, err := s.pollFor(protocol.FinAck, s.cfg.Timeout)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		s.logger.Debug("FIN timed out, retrying", "attempt", attempt+1)
	}
	return fmt.Errorf("%w after %d attempts", errFinNotAcked, s.cfg.MaxRetries)
}

// pollFor waits up to timeout for a packet of the given type, sleeping
// pollInterval between non-blocking receive attempts. Decode failures and
// packets of a different type are ignored and do not reset the deadline.
func (s *Sender) pollFor(want protocol.Type, timeout time.Duration) (protocol.Packet, bool, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, maxDatagram)

	for time.Now().Before(deadline) {
		if err := s.conn.SetReadDeadline(time.Now()); err != nil {
			return protocol.Packet{}, false, fmt.Errorf("setting read deadline: %w", err)
		}
		n, err := s.conn.Read(buf)
		if err != nil {
			if isTimeout(err) {
				time.Sleep(pollInterval)
				continue
			}
			return protocol.Packet{}, false, fmt.Errorf("reading reply: %w", err)
		}
		pkt, decodeErr := protocol.Decode(buf[:n])
		if decodeErr != nil || pkt.Type != want {
			continue
		}
		return pkt, true, nil
	}
	return protocol.Packet{}, false, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
