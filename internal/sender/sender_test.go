package sender

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sentora-labs/rudp/internal/config"
	"github.com/sentora-labs/rudp/internal/protocol"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeReceiver is a minimal, single-threaded stand-in for the receiver FSM,
// used only to drive the sender's side of the protocol in isolation.
type fakeReceiver struct {
	pc       net.PacketConn
	expected uint32
	received [][]byte
	dropOnce map[uint32]bool
}

func newFakeReceiver(t *testing.T) *fakeReceiver {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return &fakeReceiver{pc: pc, dropOnce: map[uint32]bool{}}
}

func (f *fakeReceiver) addr() net.Addr { return f.pc.LocalAddr() }

func (f *fakeReceiver) run(t *testing.T, done <-chan struct{}) {
	buf := make([]byte, 65535)
	for {
		select {
		case <-done:
			return
		default:
		}
		f.pc.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
		n, addr, err := f.pc.ReadFrom(buf)
		if err != nil {
			continue
		}
		pkt, err := protocol.Decode(buf[:n])
		if err != nil {
			continue
		}
		switch pkt.Type {
		case protocol.Handshake:
			reply := protocol.Packet{Type: protocol.HandshakeAck, Total: pkt.Total, Window: pkt.Window}
			f.pc.WriteTo(reply.Encode(), addr)
		case protocol.Data:
			if f.dropOnce[pkt.Seq] {
				delete(f.dropOnce, pkt.Seq)
				continue
			}
			if pkt.Seq == f.expected {
				f.received = append(f.received, pkt.Payload)
				f.expected++
			}
			ackSeq := uint32(0)
			if f.expected > 0 {
				ackSeq = f.expected - 1
			}
			reply := protocol.Packet{Type: protocol.Ack, Seq: ackSeq}
			f.pc.WriteTo(reply.Encode(), addr)
		case protocol.Fin:
			reply := protocol.Packet{Type: protocol.FinAck}
			f.pc.WriteTo(reply.Encode(), addr)
		}
	}
}

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSender_EndToEnd_SingleChunk(t *testing.T) {
	recv := newFakeReceiver(t)
	done := make(chan struct{})
	go recv.run(t, done)
	defer close(done)

	conn, err := net.Dial("udp", recv.addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	cfg := config.DefaultSenderConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxRetries = 5
	cfg.ChunkSize = 1024

	data := bytes.Repeat([]byte{0xAB}, 1024)
	path := writeTempFile(t, data)

	s := New(conn, cfg, discardLogger())
	code, err := s.Send(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if len(recv.received) != 1 || !bytes.Equal(recv.received[0], data) {
		t.Fatalf("receiver did not get expected single chunk")
	}
}

func TestSender_EndToEnd_LossOfFirstData(t *testing.T) {
	recv := newFakeReceiver(t)
	recv.dropOnce[0] = true
	done := make(chan struct{})
	go recv.run(t, done)
	defer close(done)

	conn, err := net.Dial("udp", recv.addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	cfg := config.DefaultSenderConfig()
	cfg.Timeout = 30 * time.Millisecond
	cfg.MaxRetries = 10
	cfg.ChunkSize = 4
	cfg.Window = 8

	data := []byte("abcdefgh") // two 4-byte chunks
	path := writeTempFile(t, data)

	s := New(conn, cfg, discardLogger())
	code, err := s.Send(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}

	var got []byte
	for _, c := range recv.received {
		got = append(got, c...)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("expected reassembled %q, got %q", data, got)
	}
}

func TestSender_EmptyFile(t *testing.T) {
	recv := newFakeReceiver(t)
	done := make(chan struct{})
	go recv.run(t, done)
	defer close(done)

	conn, err := net.Dial("udp", recv.addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	cfg := config.DefaultSenderConfig()
	cfg.Timeout = 30 * time.Millisecond

	path := writeTempFile(t, nil)
	s := New(conn, cfg, discardLogger())
	code, err := s.Send(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if len(recv.received) != 0 {
		t.Fatalf("expected no DATA packets for empty file, got %d", len(recv.received))
	}
}

func TestSender_HandshakeFailsWhenReceiverSilent(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close() // never replies

	conn, err := net.Dial("udp", pc.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	cfg := config.DefaultSenderConfig()
	cfg.Timeout = 10 * time.Millisecond
	cfg.MaxRetries = 2
	cfg.ChunkSize = 1024

	path := writeTempFile(t, []byte("x"))
	s := New(conn, cfg, discardLogger())
	code, err := s.Send(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if code != ExitHandshakeFailed {
		t.Fatalf("expected exit %d, got %d", ExitHandshakeFailed, code)
	}
}
