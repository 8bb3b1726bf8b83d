package protocol

import (
	"bytes"
	"testing"
)

// collectReplies drains an iterator, failing the test on decode errors.
func collectReplies(t *testing.T, e *Envelope, own MessageID) []IntraChannelReference {
	t.Helper()
	var entries []IntraChannelReference
	it := e.InReplyTo(own)
	for it.Next() {
		entries = append(entries, it.Entry())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("reply iteration error = %v", err)
	}
	return entries
}

func TestTwoParentEnvelope(t *testing.T) {
	own := NewMessageID(3)
	firstHash := testHash("abcdef1234567890")
	second := IntraChannelReference{ID: NewMessageID(1), Hash: testHash("abcdef1234567891")}

	e := NewEnvelope(IntraChannelReference{}, firstHash)
	if err := e.AddInReplyTo(own, second); err != nil {
		t.Fatalf("AddInReplyTo() error = %v", err)
	}

	payload := e.PayloadSlice()
	if len(payload) != 361 {
		t.Fatalf("payload slice = %d bytes, want 361", len(payload))
	}
	for i := range payload {
		payload[i] = '@'
	}

	pub, priv := testKeyPair(t)
	e.Sign(priv)

	entries := collectReplies(t, e, own)
	if len(entries) != 1 {
		t.Fatalf("iterator yielded %d entries, want 1", len(entries))
	}
	if entries[0] != second {
		t.Errorf("entry = %+v, want %+v", entries[0], second)
	}

	if !bytes.Equal(e.PayloadSlice(), bytes.Repeat([]byte{'@'}, 361)) {
		t.Errorf("payload slice does not hold the written bytes")
	}
	if err := e.Verify(pub); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestAddInReplyToOrdering(t *testing.T) {
	own := NewMessageID(100000)
	ids := []uint64{50, 99998, 7, 1024, 99999, 500}

	e := NewEnvelope(IntraChannelReference{}, MessageHash{})
	want := map[uint64]MessageHash{}
	for i, id := range ids {
		ref := IntraChannelReference{ID: NewMessageID(id)}
		ref.Hash[0] = byte(i + 1)
		if err := e.AddInReplyTo(own, ref); err != nil {
			t.Fatalf("AddInReplyTo(%d) error = %v", id, err)
		}
		want[id] = ref.Hash

		// The payload never overlaps the reply list.
		if e.InReplyToBytes()+len(e.PayloadSlice()) != VaryingSpace {
			t.Fatalf("reply bytes %d + payload %d != %d",
				e.InReplyToBytes(), len(e.PayloadSlice()), VaryingSpace)
		}
	}

	entries := collectReplies(t, e, own)
	if len(entries) != len(ids) {
		t.Fatalf("iterator yielded %d entries, want %d", len(entries), len(ids))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].ID.Uint64() >= entries[i-1].ID.Uint64() {
			t.Fatalf("entries not strictly decreasing: %d then %d",
				entries[i-1].ID.Uint64(), entries[i].ID.Uint64())
		}
	}
	for _, entry := range entries {
		hash, ok := want[entry.ID.Uint64()]
		if !ok {
			t.Errorf("unexpected entry id %d", entry.ID.Uint64())
			continue
		}
		if entry.Hash != hash {
			t.Errorf("entry %d hash = %x, want %x", entry.ID.Uint64(), entry.Hash, hash)
		}
		delete(want, entry.ID.Uint64())
	}
	if len(want) != 0 {
		t.Errorf("missing entries: %v", want)
	}
}

func TestAddInReplyToMidListReencode(t *testing.T) {
	own := NewMessageID(1000)
	e := NewEnvelope(IntraChannelReference{}, MessageHash{})

	older := IntraChannelReference{ID: NewMessageID(600), Hash: testHash("oldoldoldoldold1")}
	if err := e.AddInReplyTo(own, older); err != nil {
		t.Fatalf("AddInReplyTo(600) error = %v", err)
	}
	// delta 999-600 = 399: two-byte varint
	if got := e.InReplyToBytes(); got != 2+MsgHashLen {
		t.Fatalf("InReplyToBytes() = %d, want %d", got, 2+MsgHashLen)
	}

	// Mid-list insert: the successor delta shrinks from 399 (2 bytes)
	// to 20 (1 byte).
	mid := IntraChannelReference{ID: NewMessageID(620), Hash: testHash("midmidmidmidmid2")}
	if err := e.AddInReplyTo(own, mid); err != nil {
		t.Fatalf("AddInReplyTo(620) error = %v", err)
	}
	if got := e.InReplyToBytes(); got != 2+MsgHashLen+1+MsgHashLen {
		t.Fatalf("InReplyToBytes() = %d, want %d", got, 2+1+2*MsgHashLen)
	}

	entries := collectReplies(t, e, own)
	if len(entries) != 2 {
		t.Fatalf("iterator yielded %d entries, want 2", len(entries))
	}
	if entries[0] != mid {
		t.Errorf("first entry = %+v, want %+v", entries[0], mid)
	}
	if entries[1] != older {
		t.Errorf("second entry = %+v, want %+v", entries[1], older)
	}
}

func TestAddInReplyToPreservesPayloadFront(t *testing.T) {
	own := NewMessageID(10)
	e := NewEnvelope(IntraChannelReference{}, MessageHash{})
	copy(e.PayloadSlice(), "keep me around")

	ref := IntraChannelReference{ID: NewMessageID(4), Hash: testHash("hashhashhashhash")}
	if err := e.AddInReplyTo(own, ref); err != nil {
		t.Fatalf("AddInReplyTo() error = %v", err)
	}

	if got := string(e.PayloadSlice()[:14]); got != "keep me around" {
		t.Errorf("payload after insert = %q, want %q", got, "keep me around")
	}
}

func TestAddInReplyToNoSpace(t *testing.T) {
	own := NewMessageID(100)
	e := NewEnvelope(IntraChannelReference{}, MessageHash{})

	// Single-byte deltas: 17 bytes per entry, 22 entries fit in 378.
	id := uint64(99)
	for i := 0; i < 22; i++ {
		ref := IntraChannelReference{ID: NewMessageID(id)}
		ref.Hash[0] = byte(i + 1)
		if err := e.AddInReplyTo(own, ref); err != nil {
			t.Fatalf("AddInReplyTo(#%d) error = %v", i, err)
		}
		id--
	}
	if got := e.InReplyToBytes(); got != 22*(1+MsgHashLen) {
		t.Fatalf("InReplyToBytes() = %d, want %d", got, 22*(1+MsgHashLen))
	}

	before := *e
	err := e.AddInReplyTo(own, IntraChannelReference{ID: NewMessageID(id)})
	if err != ErrNoSpace {
		t.Fatalf("AddInReplyTo(full) error = %v, want %v", err, ErrNoSpace)
	}
	if !bytes.Equal(e.Bytes(), before.Bytes()) {
		t.Errorf("failed insertion modified the envelope")
	}
}

func TestAddInReplyToRejectsLaterID(t *testing.T) {
	e := NewEnvelope(IntraChannelReference{}, MessageHash{})
	own := NewMessageID(5)

	for _, id := range []uint64{5, 6} {
		err := e.AddInReplyTo(own, IntraChannelReference{ID: NewMessageID(id)})
		if err != ErrReplyNotEarlier {
			t.Errorf("AddInReplyTo(id=%d) error = %v, want %v", id, err, ErrReplyNotEarlier)
		}
	}
}

func TestReplyIterationUnderflow(t *testing.T) {
	e := NewEnvelope(IntraChannelReference{}, MessageHash{})

	// Hand-craft a list whose delta drops below id zero: own=5, delta=10.
	region := e.varying()
	n := putUvarint(region, 10)
	h := testHash("hashhashhashhash")
	n += copy(region[n:], h[:])
	e.setInReplyToBytes(n)

	it := e.InReplyTo(NewMessageID(5))
	if it.Next() {
		t.Fatalf("Next() = true on underflowing list")
	}
	if err := it.Err(); err != ErrReplyListUnderflow {
		t.Errorf("Err() = %v, want %v", err, ErrReplyListUnderflow)
	}
}

func TestReplyIterationTruncated(t *testing.T) {
	e := NewEnvelope(IntraChannelReference{}, MessageHash{})

	// A delta with no room left for its hash.
	region := e.varying()
	n := putUvarint(region, 1)
	e.setInReplyToBytes(n + MsgHashLen/2)

	it := e.InReplyTo(NewMessageID(5))
	if it.Next() {
		t.Fatalf("Next() = true on truncated list")
	}
	if err := it.Err(); err != ErrReplyListTruncated {
		t.Errorf("Err() = %v, want %v", err, ErrReplyListTruncated)
	}
}
