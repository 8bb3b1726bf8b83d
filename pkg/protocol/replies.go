package protocol

import "errors"

var (
	ErrNoSpace            = errors.New("no space left in envelope for reply entry")
	ErrReplyNotEarlier    = errors.New("in-reply-to id must precede the envelope's own id")
	ErrReplyListTruncated = errors.New("truncated in-reply-to list")
	ErrReplyListUnderflow = errors.New("in-reply-to deltas underflow message id zero")
)

// The in-reply-to list occupies the front of the variable region, sorted
// strictly decreasing by message id. Each entry is varint(delta) followed
// by the 16-byte message hash, where delta counts down from the previous
// entry's id. The implicit predecessor of the first entry is own_id - 1,
// so replies clustered near the envelope's own id encode in few bytes.
// The first in-reply-to never appears here; it has its own hash field.

// AddInReplyTo inserts an additional reply entry, keeping the list
// sorted. own is the envelope's own message id; entry.ID must precede
// it. Returns ErrNoSpace, with the envelope unmodified, when the
// insertion would exceed the variable region.
func (e *Envelope) AddInReplyTo(own MessageID, entry IntraChannelReference) error {
	target := entry.ID.Uint64()
	if target >= own.Uint64() {
		return ErrReplyNotEarlier
	}

	region := e.varying()
	n := e.InReplyToBytes()
	prevID := own.Uint64() - 1

	// Walk to the first stored entry whose id precedes the new one.
	off := 0
	succID := uint64(0)
	succDeltaLen := 0
	mid := false
	for off < n {
		delta, dlen, err := uvarint(region[off:n])
		if err != nil {
			return err
		}
		if off+dlen+MsgHashLen > n {
			return ErrReplyListTruncated
		}
		if delta > prevID {
			return ErrReplyListUnderflow
		}
		cur := prevID - delta
		if cur < target {
			succID = cur
			succDeltaLen = dlen
			mid = true
			break
		}
		prevID = cur
		off += dlen + MsgHashLen
	}

	// Mid-list, the successor's stored delta is re-encoded relative to
	// the new entry; its varint may shrink. End-of-list leaves it at 0.
	newDeltaLen := varintSize(prevID - target)
	need := newDeltaLen + MsgHashLen
	if mid {
		need += varintSize(target-succID) - succDeltaLen
	}
	if n+need > VaryingSpace {
		return ErrNoSpace
	}

	// Shift everything after the successor's old varint, then write the
	// new entry and the successor's re-encoded delta.
	tail := off + succDeltaLen
	copy(region[tail+need:VaryingSpace], region[tail:VaryingSpace-need])
	off += putUvarint(region[off:], prevID-target)
	copy(region[off:], entry.Hash[:])
	off += MsgHashLen
	if mid {
		putUvarint(region[off:], target-succID)
	}
	e.setInReplyToBytes(n + need)
	return nil
}

// InReplyTo returns a cursor over the additional reply entries, given
// the envelope's own message id. Entries come out in stored order,
// strictly decreasing by id. The cursor is single-pass; build a new one
// to restart.
func (e *Envelope) InReplyTo(own MessageID) *ReplyIterator {
	return &ReplyIterator{
		region: e.varying()[:e.InReplyToBytes()],
		prev:   own.Uint64(),
	}
}

// ReplyIterator walks an envelope's delta-encoded reply list.
type ReplyIterator struct {
	region  []byte
	off     int
	prev    uint64 // own id until started, then the previous entry's id
	started bool
	ref     IntraChannelReference
	err     error
}

// Next advances to the next entry. It returns false at the end of the
// list or on a malformed list; check Err afterwards.
func (it *ReplyIterator) Next() bool {
	if it.err != nil || it.off >= len(it.region) {
		return false
	}
	if !it.started {
		if it.prev == 0 {
			it.err = ErrReplyListUnderflow
			return false
		}
		it.prev--
		it.started = true
	}
	delta, dlen, err := uvarint(it.region[it.off:])
	if err != nil {
		it.err = err
		return false
	}
	if it.off+dlen+MsgHashLen > len(it.region) {
		it.err = ErrReplyListTruncated
		return false
	}
	if delta > it.prev {
		it.err = ErrReplyListUnderflow
		return false
	}
	it.prev -= delta
	it.ref.ID = NewMessageID(it.prev)
	copy(it.ref.Hash[:], it.region[it.off+dlen:it.off+dlen+MsgHashLen])
	it.off += dlen + MsgHashLen
	return true
}

// Entry returns the reference at the cursor's current position. Valid
// only after Next reports true.
func (it *ReplyIterator) Entry() IntraChannelReference {
	return it.ref
}

// Err reports the decode error that stopped iteration, if any.
func (it *ReplyIterator) Err() error {
	return it.err
}
