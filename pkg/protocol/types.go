package protocol

import (
	"encoding/binary"

	"github.com/ostrachat/ostra-node/pkg/crypto"
)

// Protocol constants
const (
	// Every packet on the wire is exactly this long. 504 bytes fits the
	// IPv4 minimum path MTU after IPv4 and UDP headers.
	PacketSize = 504

	// AEAD authentication tag length
	AuthTagLen = 16

	// Field lengths
	MsgIDLen     = 6
	MsgIDHashLen = 6
	MsgHashLen   = 16
	ChannelIDLen = 32

	// Ed25519 key and signature lengths
	EdPubLen = 32
	EdSigLen = 64

	// Envelope plaintext length: the packet minus the id hash prefix and
	// the AEAD tag suffix.
	EnvelopeSize = PacketSize - MsgIDHashLen - AuthTagLen

	// IntraChannelReference wire length
	RefLen = MsgIDLen + MsgHashLen

	// VaryingSpace is the size of the envelope region shared between the
	// in-reply-to list and the payload.
	VaryingSpace = EnvelopeSize - headerLen - RefLen - MsgHashLen - EdSigLen

	// MaxMessageID is the largest 48-bit message id.
	MaxMessageID = 1<<48 - 1
)

// Domain-separation magic strings. The leading character is U+0231,
// LATIN SMALL LETTER O WITH STROKE AND DESCENDER.
var (
	magicIDHash      = []byte("ȱ id hash")
	magicMessageHash = []byte("ȱ message hash")
	magicMessage     = []byte("ȱ message")
)

// ChannelID identifies a channel. It is opaque to the protocol core and
// doubles as the symmetric AEAD key for every message in the channel.
type ChannelID [ChannelIDLen]byte

// MessageID is a 48-bit big-endian counter, unique per channel and
// monotonically increasing per sender.
type MessageID [MsgIDLen]byte

// MessageIDHash is the public wire identifier of a message. It does not
// leak the plaintext message id.
type MessageIDHash [MsgIDHashLen]byte

// MessageHash is a digest of a full 504-byte wire image, used to reference
// prior messages in the channel.
type MessageHash [MsgHashLen]byte

// IntraChannelReference points at an earlier message in the same channel
// by id and wire-image hash.
type IntraChannelReference struct {
	ID   MessageID
	Hash MessageHash
}

// NewMessageID builds a message id from an integer. Values above
// MaxMessageID are truncated to 48 bits.
func NewMessageID(v uint64) MessageID {
	var id MessageID
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v&MaxMessageID)
	copy(id[:], buf[2:])
	return id
}

// Uint64 returns the integer value of the id.
func (id MessageID) Uint64() uint64 {
	var buf [8]byte
	copy(buf[2:], id[:])
	return binary.BigEndian.Uint64(buf[:])
}

// Next returns the following message id. Overflow wraps; senders are not
// expected to exhaust 2^48 ids within one channel.
func (id MessageID) Next() MessageID {
	return NewMessageID(id.Uint64() + 1)
}

// CalculateMessageIDHash derives the public id hash for a message id
// within a channel.
func CalculateMessageIDHash(channel ChannelID, id MessageID) MessageIDHash {
	var h MessageIDHash
	crypto.GimliHash(h[:], magicIDHash, channel[:], id[:])
	return h
}

// CalculateMessageHash digests a full message wire image.
func CalculateMessageHash(wire []byte) MessageHash {
	var h MessageHash
	crypto.GimliHash(h[:], magicMessageHash, wire)
	return h
}

// encode writes the reference in wire order: 6-byte id, 16-byte hash.
func (r IntraChannelReference) encode(dst []byte) {
	copy(dst[:MsgIDLen], r.ID[:])
	copy(dst[MsgIDLen:RefLen], r.Hash[:])
}

// decodeRef reads a reference written by encode.
func decodeRef(src []byte) IntraChannelReference {
	var r IntraChannelReference
	copy(r.ID[:], src[:MsgIDLen])
	copy(r.Hash[:], src[MsgIDLen:RefLen])
	return r
}
