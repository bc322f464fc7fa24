// Package receiver implements the receiver state machine of §4.D: a
// single-threaded event loop over a non-blocking UDP socket, demultiplexing
// inbound datagrams by peer address into a bounded Table of Sessions, plus
// the optional output sink chain (sink.go, compress.go, s3backend.go) and
// host-stats sampler (stats.go) this module adds around that core.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/sentora-labs/rudp/internal/config"
	"github.com/sentora-labs/rudp/internal/crc32"
	"github.com/sentora-labs/rudp/internal/protocol"
)

// pollInterval is the sleep between non-blocking receive attempts when no
// datagram is pending (§4.D).
const pollInterval = 5 * time.Millisecond

// reapInterval is how often the idle reaper sweeps the session table.
const reapInterval = 10 * time.Second

const maxDatagram = 65535

// Server runs the receiver's event loop over pc.
type Server struct {
	pc     net.PacketConn
	cfg    config.ReceiverConfig
	logger *slog.Logger
	table  *Table
	s3     *S3Mirror
}

// NewServer builds a Server. s3 may be nil when S3 mirroring is disabled.
func NewServer(pc net.PacketConn, cfg config.ReceiverConfig, logger *slog.Logger, s3 *S3Mirror) *Server {
	return &Server{
		pc:     pc,
		cfg:    cfg,
		logger: logger,
		table:  NewTable(),
		s3:     s3,
	}
}

// Run drives the event loop until ctx is cancelled, then flushes and closes
// every open session before returning.
func (s *Server) Run(ctx context.Context) error {
	buf := make([]byte, maxDatagram)
	lastReap := time.Now()

	for {
		select {
		case <-ctx.Done():
			return s.table.CloseAll()
		default:
		}

		if err := s.pc.SetReadDeadline(time.Now()); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}
		n, addr, err := s.pc.ReadFrom(buf)
		if err != nil {
			if isTimeout(err) {
				time.Sleep(pollInterval)
			} else {
				select {
				case <-ctx.Done():
					return s.table.CloseAll()
				default:
					return fmt.Errorf("reading datagram: %w", err)
				}
			}
		} else {
			s.handleDatagram(addr, buf[:n])
		}

		if time.Since(lastReap) > reapInterval {
			evicted, reapErr := s.table.ReapIdle(time.Now())
			for _, key := range evicted {
				s.logger.Info("reaped idle session", "peer", key)
			}
			if reapErr != nil {
				s.logger.Error("error reaping idle sessions", "error", reapErr)
			}
			lastReap = time.Now()
		}
	}
}

func (s *Server) handleDatagram(addr net.Addr, raw []byte) {
	pkt, err := protocol.Decode(raw)
	if err != nil {
		s.logger.Debug("dropping undecodable datagram", "peer", addr.String(), "error", err)
		return
	}
	key := addr.String()

	switch pkt.Type {
	case protocol.Handshake:
		s.handleHandshake(addr, key, pkt)
	case protocol.Data:
		s.handleData(addr, key, pkt)
	case protocol.Fin:
		s.handleFin(addr, key, pkt)
	default:
		s.logger.Debug("ignoring packet type", "type", pkt.Type.String(), "peer", key)
	}
}

func (s *Server) reply(addr net.Addr, pkt protocol.Packet) {
	if _, err := s.pc.WriteTo(pkt.Encode(), addr); err != nil {
		s.logger.Error("failed to send reply", "type", pkt.Type.String(), "peer", addr.String(), "error", err)
	}
}

func (s *Server) handleHandshake(addr net.Addr, key string, pkt protocol.Packet) {
	hs, err := protocol.ParseHandshake(pkt.Payload)
	if err != nil {
		s.logger.Warn("malformed handshake", "peer", key, "error", err)
		s.reply(addr, protocol.Packet{Type: protocol.Error, Payload: []byte("bad handshake")})
		return
	}

	if old, ok := s.table.Lookup(key); ok {
		if err := old.Close(); err != nil {
			s.logger.Error("error closing superseded session", "peer", key, "error", err)
		}
		s.table.Remove(key)
	}

	if s.table.Full() {
		s.logger.Warn("session table full, dropping handshake", "peer", key)
		return
	}

	if err := validatePathComponent(hs.Filename, "filename"); err != nil {
		s.logger.Warn("rejected handshake filename", "peer", key, "filename", hs.Filename, "error", err)
		s.reply(addr, protocol.Packet{Type: protocol.Error, Payload: []byte("bad handshake")})
		return
	}

	sessionID := s.table.NextSessionID()
	sink, targetPath, err := NewSink(s.cfg.OutDir, hs.Filename, sessionID, key, s.cfg.Compress)
	if err != nil {
		s.logger.Error("failed to open output sink", "peer", key, "error", err)
		s.reply(addr, protocol.Packet{Type: protocol.Error, Payload: []byte("bad handshake")})
		return
	}
	if err := validatePathInBaseDir(s.cfg.OutDir, targetPath); err != nil {
		s.logger.Warn("rejected handshake target path", "peer", key, "path", targetPath, "error", err)
		sink.Close()
		s.reply(addr, protocol.Packet{Type: protocol.Error, Payload: []byte("bad handshake")})
		return
	}

	session := &Session{
		Key:          key,
		SessionID:    sessionID,
		Filename:     hs.Filename,
		TargetPath:   targetPath,
		Total:        hs.Total,
		LastActivity: time.Now(),
		sink:         sink,
	}
	if err := s.table.Insert(session); err != nil {
		s.logger.Error("failed to register session", "peer", key, "error", err)
		return
	}

	s.logger.Info("session opened", "peer", key, "filename", hs.Filename, "total", hs.Total, "path", targetPath)
	s.reply(addr, protocol.Packet{Type: protocol.HandshakeAck, Total: hs.Total, Window: s.cfg.Window})
}

func (s *Server) handleData(addr net.Addr, key string, pkt protocol.Packet) {
	session, ok := s.table.Lookup(key)
	if !ok {
		s.reply(addr, protocol.Packet{Type: protocol.Error, Payload: []byte("no session")})
		return
	}
	session.LastActivity = time.Now()

	if crc32.Checksum(pkt.Payload) == pkt.Checksum {
		if err := session.Accept(pkt.Seq, pkt.Payload); err != nil {
			s.logger.Error("failed to write accepted chunk", "peer", key, "seq", pkt.Seq, "error", err)
		}
	} else {
		s.logger.Debug("dropping corrupt chunk", "peer", key, "seq", pkt.Seq)
	}

	s.reply(addr, protocol.Packet{Type: protocol.Ack, Seq: session.AckSeq(), Total: session.Total})
}

func (s *Server) handleFin(addr net.Addr, key string, pkt protocol.Packet) {
	if session, ok := s.table.Lookup(key); ok {
		if err := session.Close(); err != nil {
			s.logger.Error("error closing session output", "peer", key, "error", err)
		} else if s.s3 != nil {
			if err := s.s3.Upload(context.Background(), session.TargetPath); err != nil {
				s.logger.Error("s3 mirror upload failed", "peer", key, "path", session.TargetPath, "error", err)
			}
		}
		s.logger.Info("session closed",
			"peer", key, "filename", session.Filename,
			"received", session.Received, "total", session.Total,
		)
		s.table.Remove(key)
	}
	s.reply(addr, protocol.Packet{Type: protocol.FinAck})
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
