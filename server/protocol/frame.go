package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Compression names the per-connection compression mode negotiated in
// ProtocolResponse.info.compression.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

func (c Compression) String() string {
	if c == CompressionZstd {
		return "zstd"
	}
	return "none"
}

// ErrUnknownKind is returned by ReadPacket when the wire byte doesn't name a
// recognised Kind.
var ErrUnknownKind = errors.New("protocol: unknown packet kind")

// maxBodySize bounds a single frame's body to guard against a corrupt or
// hostile length prefix causing an unbounded allocation.
const maxBodySize = 16 << 20

// Conn wraps a byte stream with packet framing (`type:u8, length:u32,
// body`) and optional streaming zstd compression, one encoder/decoder pair
// per connection as spec'd ("streaming window").
type Conn struct {
	r io.Reader
	w io.Writer

	br *bufio.Reader
	bw *bufio.Writer

	zr *zstd.Decoder
	zw *zstd.Encoder

	compression Compression
}

// NewConn wraps rw with no compression. EnableCompression upgrades it once
// the handshake has negotiated a mode.
func NewConn(r io.Reader, w io.Writer) *Conn {
	c := &Conn{r: r, w: w, br: bufio.NewReader(r), bw: bufio.NewWriter(w)}
	return c
}

// EnableCompression switches the connection to mode. It must be called at
// most once, immediately after ProtocolResponse is sent/received.
func (c *Conn) EnableCompression(mode Compression) error {
	c.compression = mode
	if mode != CompressionZstd {
		return nil
	}
	zr, err := zstd.NewReader(c.br)
	if err != nil {
		return fmt.Errorf("protocol: enable zstd reader: %w", err)
	}
	zw, err := zstd.NewWriter(c.bw)
	if err != nil {
		zr.Close()
		return fmt.Errorf("protocol: enable zstd writer: %w", err)
	}
	c.zr, c.zw = zr, zw
	return nil
}

func (c *Conn) reader() io.Reader {
	if c.zr != nil {
		return c.zr
	}
	return c.br
}

func (c *Conn) writer() io.Writer {
	if c.zw != nil {
		return c.zw
	}
	return c.bw
}

// WritePacket frames and writes p, flushing the underlying writer (and the
// zstd stream, if enabled) so the peer observes the packet promptly.
func (c *Conn) WritePacket(p Packet) error {
	if !p.Kind.Valid() {
		return fmt.Errorf("protocol: refusing to write invalid kind %d", p.Kind)
	}
	w := c.writer()
	var header [5]byte
	header[0] = byte(p.Kind)
	binary.BigEndian.PutUint32(header[1:], uint32(len(p.Body)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(p.Body) > 0 {
		if _, err := w.Write(p.Body); err != nil {
			return err
		}
	}
	if c.zw != nil {
		if err := c.zw.Flush(); err != nil {
			return err
		}
	}
	return c.bw.Flush()
}

// ReadPacket reads one framed packet. ErrUnknownKind is returned (with the
// body already consumed) when the kind byte is unrecognised.
func (c *Conn) ReadPacket() (Packet, error) {
	r := c.reader()
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Packet{}, err
	}
	kind := Kind(header[0])
	length := binary.BigEndian.Uint32(header[1:])
	if length > maxBodySize {
		return Packet{}, fmt.Errorf("protocol: frame body too large (%d bytes)", length)
	}
	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return Packet{}, err
		}
	}
	if !kind.Valid() {
		return Packet{Kind: kind, Body: body}, ErrUnknownKind
	}
	return Packet{Kind: kind, Body: body}, nil
}

// Close releases the zstd encoder/decoder, if any were allocated.
func (c *Conn) Close() error {
	if c.zw != nil {
		c.zw.Close()
	}
	if c.zr != nil {
		c.zr.Close()
	}
	return nil
}
