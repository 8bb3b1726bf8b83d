package protocol

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
)

var (
	ErrInvalidHeader         = errors.New("invalid envelope header")
	ErrSignatureVerification = errors.New("envelope signature verification failed")
)

// PayloadType describes what the envelope's payload region carries.
// The core stores the value verbatim; interpretation belongs to the
// layer above.
type PayloadType uint8

const (
	PayloadTypeAuthorization    PayloadType = 0
	PayloadTypePayload          PayloadType = 1
	PayloadTypeEncryptedPayload PayloadType = 2
)

// Envelope byte layout. The two-byte header word packs, MSB first:
// continuation:1 | payload_type:2 | padding:4 | n_in_reply_to_bytes:9.
const (
	headerLen = 2

	authOff    = headerLen
	firstOff   = authOff + RefLen
	varyingOff = firstOff + MsgHashLen
	sigOff     = varyingOff + VaryingSpace

	// Signatures cover everything before the signature field.
	signedLen = sigOff

	continuationBit = 0x8000
	payloadTypeMask = 0x6000
	headerPadMask   = 0x1E00
	replyBytesMask  = 0x01FF
)

// Envelope is the plaintext, signed inner record of a message. It is a
// fixed 482-byte value; all field access reads and writes the packed
// wire image directly.
type Envelope struct {
	raw [EnvelopeSize]byte
}

// Compile-time layout checks
var (
	_ [EnvelopeSize]byte = Envelope{}.raw
	_ [EnvelopeSize - sigOff - EdSigLen]struct{}
	_ [signedLen - 418]struct{}
	_ [418 - signedLen]struct{}
)

// NewEnvelope constructs an envelope referencing its authorization
// capability and the immediate message being replied to. The payload
// type starts as PayloadTypePayload with an empty in-reply-to list;
// callers write the payload and sign before sealing.
func NewEnvelope(authorization IntraChannelReference, firstInReplyTo MessageHash) *Envelope {
	e := &Envelope{}
	e.SetPayloadType(PayloadTypePayload)
	authorization.encode(e.raw[authOff:firstOff])
	copy(e.raw[firstOff:varyingOff], firstInReplyTo[:])
	return e
}

// DecodeEnvelope parses a 482-byte plaintext image, validating the
// header word.
func DecodeEnvelope(buf []byte) (*Envelope, error) {
	if len(buf) != EnvelopeSize {
		return nil, ErrInvalidHeader
	}
	e := &Envelope{}
	copy(e.raw[:], buf)
	if err := e.validateHeader(); err != nil {
		return nil, err
	}
	return e, nil
}

// Bytes returns the packed 482-byte image.
func (e *Envelope) Bytes() []byte {
	return e.raw[:]
}

func (e *Envelope) header() uint16 {
	return binary.BigEndian.Uint16(e.raw[0:headerLen])
}

func (e *Envelope) setHeader(w uint16) {
	binary.BigEndian.PutUint16(e.raw[0:headerLen], w)
}

// validateHeader rejects non-zero padding bits and reply-list lengths
// beyond the variable region.
func (e *Envelope) validateHeader() error {
	w := e.header()
	if w&headerPadMask != 0 {
		return ErrInvalidHeader
	}
	if int(w&replyBytesMask) > VaryingSpace {
		return ErrInvalidHeader
	}
	return nil
}

// Continuation reports the reserved continuation bit.
func (e *Envelope) Continuation() bool {
	return e.header()&continuationBit != 0
}

// SetContinuation sets or clears the reserved continuation bit.
func (e *Envelope) SetContinuation(v bool) {
	w := e.header() &^ continuationBit
	if v {
		w |= continuationBit
	}
	e.setHeader(w)
}

// PayloadType reports the payload type bits.
func (e *Envelope) PayloadType() PayloadType {
	return PayloadType((e.header() & payloadTypeMask) >> 13)
}

// SetPayloadType sets the payload type bits.
func (e *Envelope) SetPayloadType(t PayloadType) {
	w := e.header()&^payloadTypeMask | uint16(t&0x3)<<13
	e.setHeader(w)
}

// InReplyToBytes reports how many bytes at the front of the variable
// region hold additional reply entries.
func (e *Envelope) InReplyToBytes() int {
	return int(e.header() & replyBytesMask)
}

func (e *Envelope) setInReplyToBytes(n int) {
	w := e.header()&^replyBytesMask | uint16(n)&replyBytesMask
	e.setHeader(w)
}

// AuthorizationRef returns the reference to the capability envelope that
// authorizes this one.
func (e *Envelope) AuthorizationRef() IntraChannelReference {
	return decodeRef(e.raw[authOff:firstOff])
}

// FirstInReplyTo returns the hash of the immediate previous message
// being replied to.
func (e *Envelope) FirstInReplyTo() MessageHash {
	var h MessageHash
	copy(h[:], e.raw[firstOff:varyingOff])
	return h
}

// PayloadSlice returns the mutable payload view: the variable region
// minus the bytes claimed by the in-reply-to list. Its capacity shrinks
// as reply entries are added.
func (e *Envelope) PayloadSlice() []byte {
	return e.raw[varyingOff+e.InReplyToBytes() : sigOff]
}

// varying returns the full 378-byte variable region.
func (e *Envelope) varying() []byte {
	return e.raw[varyingOff:sigOff]
}

// Signature returns the Ed25519 signature field.
func (e *Envelope) Signature() []byte {
	return e.raw[sigOff:]
}

// Sign writes the Ed25519 signature over the envelope image excluding
// the signature field.
func (e *Envelope) Sign(priv ed25519.PrivateKey) {
	sig := ed25519.Sign(priv, e.raw[:signedLen])
	copy(e.raw[sigOff:], sig)
}

// Verify checks the envelope signature against a public key.
func (e *Envelope) Verify(pub ed25519.PublicKey) error {
	if len(pub) != ed25519.PublicKeySize {
		return ErrSignatureVerification
	}
	if !ed25519.Verify(pub, e.raw[:signedLen], e.raw[sigOff:]) {
		return ErrSignatureVerification
	}
	return nil
}
