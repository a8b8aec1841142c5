// Package dataencryption implements the MSEH at-rest encryption envelope and
// the Service that routes ciphertext to the provider that produced it.
//
// Wire format:
//
//	[4 bytes]   "MSEH" magic
//	[varint32]  header length, in bytes
//	[header]    protobuf-wire-encoded EncryptionHeader (version, providerId, nonce)
//	[...]       ciphertext
//
// The header is encoded field-by-field with protowire rather than through a
// generated message type, so no protoc step is needed to read or write it;
// the wire bytes are standard protobuf and interoperate with any reader that
// does generate a message for the three fields below.
package dataencryption

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

var magic = [4]byte{0x4D, 0x53, 0x45, 0x48} // "MSEH"

const (
	fieldVersion    protowire.Number = 1
	fieldProviderID protowire.Number = 2
	fieldNonce      protowire.Number = 3
)

// Header is the decoded MSEH envelope header.
type Header struct {
	Version    uint32
	ProviderID string
	Nonce      []byte
}

// HasMagic reports whether b starts with the MSEH magic bytes.
func HasMagic(b []byte) bool {
	return len(b) >= 4 &&
		b[0] == magic[0] && b[1] == magic[1] && b[2] == magic[2] && b[3] == magic[3]
}

// WriteHeader encodes h as an MSEH envelope prefix and writes it to w.
func WriteHeader(w io.Writer, h Header) error {
	var headerBytes []byte
	headerBytes = protowire.AppendTag(headerBytes, fieldVersion, protowire.VarintType)
	headerBytes = protowire.AppendVarint(headerBytes, uint64(h.Version))
	headerBytes = protowire.AppendTag(headerBytes, fieldProviderID, protowire.BytesType)
	headerBytes = protowire.AppendString(headerBytes, h.ProviderID)
	headerBytes = protowire.AppendTag(headerBytes, fieldNonce, protowire.BytesType)
	headerBytes = protowire.AppendBytes(headerBytes, h.Nonce)

	buf := make([]byte, 0, 4+varintLen(uint32(len(headerBytes)))+len(headerBytes))
	buf = append(buf, magic[:]...)
	buf = appendVarint32(buf, uint32(len(headerBytes)))
	buf = append(buf, headerBytes...)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads the MSEH magic, length prefix, and header fields from r.
// Returns (header, true, nil) on success, (nil, false, nil) if the magic is
// absent, or (nil, true, err) on a read/decode error once the magic has
// already been confirmed present.
func ReadHeader(r io.Reader) (*Header, bool, error) {
	var mgc [4]byte
	if _, err := io.ReadFull(r, mgc[:]); err != nil {
		return nil, false, nil // not enough bytes — treat as no magic
	}
	if mgc != magic {
		return nil, false, nil
	}

	headerLen, err := readVarint32(r)
	if err != nil {
		return nil, true, fmt.Errorf("mseh: reading header length: %w", err)
	}
	// Guard against a crafted envelope advertising a huge header length.
	// A real header (version + provider id + 12-byte GCM nonce) is well
	// under 64 bytes; 4 KiB is orders of magnitude above any legitimate value.
	const maxHeaderLen = 4096
	if headerLen > maxHeaderLen {
		return nil, true, fmt.Errorf("mseh: header length %d exceeds maximum %d", headerLen, maxHeaderLen)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, true, fmt.Errorf("mseh: reading header bytes: %w", err)
	}

	h, err := decodeHeaderFields(headerBytes)
	if err != nil {
		return nil, true, fmt.Errorf("mseh: decoding header: %w", err)
	}
	return h, true, nil
}

// decodeHeaderFields walks the protobuf wire fields of an EncryptionHeader,
// tolerating unknown fields and any field order (per protobuf's own rules).
func decodeHeaderFields(b []byte) (*Header, error) {
	h := &Header{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch num {
		case fieldVersion:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			h.Version = uint32(v)
			b = b[n:]
		case fieldProviderID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			h.ProviderID = v
			b = b[n:]
		case fieldNonce:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			h.Nonce = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return h, nil
}

// ── outer framing varint32 (the header *length* prefix; unrelated to the
// protobuf wire varints used for the header's own fields) ──

func appendVarint32(b []byte, v uint32) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

func varintLen(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

func readVarint32(r io.Reader) (uint32, error) {
	var v uint32
	var buf [1]byte
	for i := range 5 {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v |= uint32(buf[0]&0x7F) << (7 * uint(i))
		if buf[0]&0x80 == 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("mseh: varint32 overflow")
}
