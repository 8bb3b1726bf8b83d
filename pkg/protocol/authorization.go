package protocol

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrCapabilityTooShort = errors.New("capability payload shorter than a public key")
	ErrInvalidPadding     = errors.New("capability padding contains non-zero bytes")
	ErrUnknownCondition   = errors.New("unknown condition tag")
	ErrMalformedCondition = errors.New("malformed condition list")
)

// Authorization is an in-memory view of a capability: the payload region
// of an envelope whose role is to convey authorization data, plus the id
// of the message that minted it. The payload starts with a 32-byte
// Ed25519 public key, followed by one JSON array of conditions, followed
// by zero padding to the end of the region.
type Authorization struct {
	Bytes     []byte
	MessageID MessageID
}

// PublicKey returns the Ed25519 public key granted by the capability.
func (a *Authorization) PublicKey() (ed25519.PublicKey, error) {
	if len(a.Bytes) < EdPubLen {
		return nil, ErrCapabilityTooShort
	}
	return ed25519.PublicKey(a.Bytes[:EdPubLen]), nil
}

// Authorizes reports whether the capability authorizes a candidate
// envelope carrying the given message id. A failed signature yields
// (false, nil); a malformed capability — bad condition JSON, an unknown
// tag, or non-zero padding — propagates as an error.
func (a *Authorization) Authorizes(candidate *Envelope, candidateID MessageID) (bool, error) {
	pub, err := a.PublicKey()
	if err != nil {
		return false, err
	}
	if candidate.Verify(pub) != nil {
		return false, nil
	}

	conditions, consumed, err := parseConditions(a.Bytes[EdPubLen:])
	if err != nil {
		return false, err
	}
	for _, b := range a.Bytes[EdPubLen+consumed:] {
		if b != 0 {
			return false, ErrInvalidPadding
		}
	}

	for _, c := range conditions {
		if !c.check(a, candidate, candidateID) {
			return false, nil
		}
	}
	return true, nil
}

// Condition is one predicate attached to a capability. The set is
// closed; the JSON surface is a single-field object {"<tag>": value}.
type Condition interface {
	check(auth *Authorization, candidate *Envelope, candidateID MessageID) bool
}

// TTLCondition limits how far past the minting message a capability
// stays valid: it admits candidate ids up to TTL ids after the
// capability's own, inclusive.
type TTLCondition struct {
	TTL uint64
}

func (c TTLCondition) check(auth *Authorization, _ *Envelope, candidateID MessageID) bool {
	return candidateID.Uint64() <= auth.MessageID.Uint64()+c.TTL
}

// parseConditions consumes exactly one JSON value from the front of src
// and returns the decoded conditions plus the count of bytes consumed.
// Trailing data after the value is left to the caller.
func parseConditions(src []byte) ([]Condition, int, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	var raw []map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedCondition, err)
	}
	consumed := int(dec.InputOffset())

	conditions := make([]Condition, 0, len(raw))
	for _, obj := range raw {
		if len(obj) != 1 {
			return nil, 0, ErrMalformedCondition
		}
		for tag, value := range obj {
			c, err := decodeCondition(tag, value)
			if err != nil {
				return nil, 0, err
			}
			conditions = append(conditions, c)
		}
	}
	return conditions, consumed, nil
}

func decodeCondition(tag string, value json.RawMessage) (Condition, error) {
	switch tag {
	case "ttl":
		var ttl uint64
		if err := json.Unmarshal(value, &ttl); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCondition, err)
		}
		if ttl > MaxMessageID {
			return nil, fmt.Errorf("%w: ttl exceeds 48 bits", ErrMalformedCondition)
		}
		return TTLCondition{TTL: ttl}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, tag)
	}
}
