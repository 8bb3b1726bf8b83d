package protocol

import (
	"errors"

	"github.com/ostrachat/ostra-node/pkg/crypto"
)

var (
	ErrInvalidSize          = errors.New("message: invalid packet size")
	ErrAuthenticationFailed = errors.New("message authentication failed")
)

// Message packet layout
const (
	idHashOff     = 0
	ciphertextOff = idHashOff + MsgIDHashLen
	tagOff        = ciphertextOff + EnvelopeSize
)

// Message is a sealed 504-byte wire packet: the channel-bound id hash,
// the AEAD ciphertext of an envelope, and the authentication tag. Once
// sealed it is immutable.
type Message struct {
	raw [PacketSize]byte
}

// Compile-time layout checks
var (
	_ [PacketSize]byte = Message{}.raw
	_ [PacketSize - tagOff - AuthTagLen]struct{}
)

// NewMessage seals an envelope into a wire packet bound to the channel
// and message id. The channel id is the AEAD key and the message id the
// nonce, each zero-padded to the cipher's lengths.
func NewMessage(channel ChannelID, id MessageID, envelope *Envelope) *Message {
	m := &Message{}
	idHash := CalculateMessageIDHash(channel, id)
	copy(m.raw[idHashOff:ciphertextOff], idHash[:])

	var nonce [crypto.GimliNonceLen]byte
	copy(nonce[:], id[:])
	crypto.GimliSeal(
		m.raw[ciphertextOff:tagOff], m.raw[tagOff:],
		channel[:], nonce[:],
		magicMessage, envelope.Bytes(),
	)
	return m
}

// DecodeMessage parses a received packet. Every valid packet is exactly
// PacketSize bytes.
func DecodeMessage(buf []byte) (*Message, error) {
	if len(buf) != PacketSize {
		return nil, ErrInvalidSize
	}
	m := &Message{}
	copy(m.raw[:], buf)
	return m, nil
}

// Bytes returns the 504-byte wire image.
func (m *Message) Bytes() []byte {
	return m.raw[:]
}

// IDHash returns the channel-bound id hash prefix. Receivers match it
// against CalculateMessageIDHash for an anticipated (channel, id) pair
// before attempting decryption.
func (m *Message) IDHash() MessageIDHash {
	var h MessageIDHash
	copy(h[:], m.raw[idHashOff:ciphertextOff])
	return h
}

// Hash digests the full wire image for use in reply references.
func (m *Message) Hash() MessageHash {
	return CalculateMessageHash(m.raw[:])
}

// Decrypt opens the sealed envelope. It returns ErrAuthenticationFailed
// when the tag does not verify, including when (channel, id) is not the
// pair the message was sealed under.
func (m *Message) Decrypt(channel ChannelID, id MessageID) (*Envelope, error) {
	var nonce [crypto.GimliNonceLen]byte
	copy(nonce[:], id[:])

	e := &Envelope{}
	err := crypto.GimliOpen(
		e.raw[:],
		channel[:], nonce[:],
		magicMessage,
		m.raw[ciphertextOff:tagOff], m.raw[tagOff:],
	)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	if err := e.validateHeader(); err != nil {
		return nil, err
	}
	return e, nil
}
