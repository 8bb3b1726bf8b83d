// Package protocol implements the Ostra message envelope and framing
// core.
//
// Ostra is a peer-to-peer, channel-based messaging protocol. Every
// on-wire unit is a fixed 504-byte packet, sized to fit the IPv4
// minimum path MTU after IPv4 and UDP headers. This package defines
// what a message is and how it is constructed, verified, and parsed;
// transport, relaying, storage policy, and payload schemas live
// elsewhere.
//
// # Packet Format
//
// Every packet is exactly 504 bytes:
//   - IDHash (6 bytes): keyed digest of (channel id, message id)
//   - Ciphertext (482 bytes): AEAD-sealed envelope
//   - Tag (16 bytes): AEAD authentication tag
//
// The channel id doubles as the AEAD key and the message id as the
// nonce, so a packet can only be opened by a holder of the channel id
// who anticipates the right message id. The id hash prefix lets
// receivers match inbound packets against anticipated ids without
// revealing the plaintext counter.
//
// # Envelope Format
//
// The sealed plaintext is a packed 482-byte envelope:
//   - Header word (2 bytes): continuation bit, payload type, and the
//     in-reply-to byte count, packed MSB first
//   - Authorization (22 bytes): reference to the capability envelope
//   - FirstInReplyTo (16 bytes): hash of the message being replied to
//   - Variable region (378 bytes): delta-encoded additional reply
//     references at the front, payload in the remainder
//   - Signature (64 bytes): Ed25519 over everything above
//
// All multi-byte integers are big-endian, on the wire and in hashes.
//
// # Reply Graph
//
// Messages reference earlier messages in their channel by
// (id, wire-image hash) pairs. The first reference has a dedicated
// field; further references are stored sorted strictly decreasing by
// id, each as a varint delta from its predecessor plus the 16-byte
// hash. Deltas count down from the envelope's own id, so replies that
// cluster near the message encode in a handful of bytes.
//
// # Capabilities
//
// An authorization capability is an envelope whose payload carries an
// Ed25519 public key followed by a JSON condition list and zero
// padding. A capability authorizes a candidate envelope when the
// candidate's signature verifies under the key and every condition
// holds. The v1 condition set is closed: ttl, which bounds how many
// ids past the minting message the capability stays valid.
//
// # Cryptographic Primitives
//
// The protocol uses:
//   - Gimli sponge hash for message and id digests
//   - Gimli AEAD for sealing envelopes into packets
//   - Ed25519 for envelope signatures
//
// Domain separation uses magic strings beginning with U+0231 ("ȱ").
//
// # Usage Example
//
//	// Build and seal a reply
//	env := protocol.NewEnvelope(capabilityRef, parentHash)
//	env.AddInReplyTo(ownID, olderRef)
//	copy(env.PayloadSlice(), body)
//	env.Sign(privateKey)
//
//	msg := protocol.NewMessage(channel, ownID, env)
//	// msg.Bytes() is the 504-byte packet; send over transport...
//
//	// Receive side
//	if msg.IDHash() == protocol.CalculateMessageIDHash(channel, expected) {
//	    env, err := msg.Decrypt(channel, expected)
//	    ...
//	}
//
// # Concurrency
//
// Values are plain data with no shared state. Distinct envelopes and
// messages may be used from multiple goroutines without coordination;
// a single envelope must not be mutated concurrently. Signed and
// sealed structures are immutable.
package protocol
