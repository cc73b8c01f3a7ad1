package protocol

import (
	"bytes"
	"testing"
)

func TestFrameRoundTripUncompressed(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(&buf, &buf)

	want := Packet{Kind: KindChatSend, Body: []byte("hello")}
	if err := conn.WritePacket(want); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	got, err := conn.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if got.Kind != want.Kind || !bytes.Equal(got.Body, want.Body) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestFrameRoundTripZstd(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(&buf, &buf)
	if err := conn.EnableCompression(CompressionZstd); err != nil {
		t.Fatalf("EnableCompression: %v", err)
	}
	defer conn.Close()

	want := Packet{Kind: KindTileUpdate, Body: bytes.Repeat([]byte{0xAB}, 1024)}
	if err := conn.WritePacket(want); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	got, err := conn.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if got.Kind != want.Kind || !bytes.Equal(got.Body, want.Body) {
		t.Fatalf("zstd round trip mismatch: kind=%v len=%d", got.Kind, len(got.Body))
	}
}

func TestReadPacketUnknownKindMarksError(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(&buf, &buf)
	if err := conn.WritePacket(Packet{Kind: KindChatSend}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	raw := buf.Bytes()
	raw[0] = 0xFF // corrupt the kind byte to something out of range

	var corrupt bytes.Buffer
	corrupt.Write(raw)
	conn2 := NewConn(&corrupt, &corrupt)
	if _, err := conn2.ReadPacket(); err != ErrUnknownKind {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
