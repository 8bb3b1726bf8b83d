package storage

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/ostrachat/ostra-node/pkg/crypto"
	"github.com/ostrachat/ostra-node/pkg/protocol"
)

// SavePacket stores a sealed packet. Saving the same id hash twice is a
// no-op, so replayed packets collapse to one row.
func (s *PacketStore) SavePacket(channel protocol.ChannelID, msg *protocol.Message) error {
	idHash := msg.IDHash()
	messageHash := msg.Hash()

	checksum, err := crypto.Hash(msg.Bytes())
	if err != nil {
		return fmt.Errorf("failed to checksum packet: %v", err)
	}

	query := `
		INSERT OR IGNORE INTO packets (
			channel_id, id_hash, message_hash, packet, checksum, received_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(
		query,
		hex.EncodeToString(channel[:]),
		hex.EncodeToString(idHash[:]),
		hex.EncodeToString(messageHash[:]),
		msg.Bytes(),
		checksum,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save packet: %v", err)
	}

	return nil
}

// GetPacket retrieves a sealed packet by its public id hash.
func (s *PacketStore) GetPacket(idHash protocol.MessageIDHash) (*protocol.Message, error) {
	query := `SELECT packet, checksum FROM packets WHERE id_hash = ?`
	return s.queryPacket(query, hex.EncodeToString(idHash[:]))
}

// GetByMessageHash retrieves a sealed packet by its wire-image hash, as
// carried in reply references.
func (s *PacketStore) GetByMessageHash(hash protocol.MessageHash) (*protocol.Message, error) {
	query := `SELECT packet, checksum FROM packets WHERE message_hash = ?`
	return s.queryPacket(query, hex.EncodeToString(hash[:]))
}

func (s *PacketStore) queryPacket(query string, key string) (*protocol.Message, error) {
	var blob, checksum []byte
	err := s.db.QueryRow(query, key).Scan(&blob, &checksum)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load packet: %v", err)
	}
	return decodeStoredPacket(blob, checksum)
}

// ChannelPackets returns up to limit packets for a channel, newest
// first.
func (s *PacketStore) ChannelPackets(channel protocol.ChannelID, limit int) ([]*protocol.Message, error) {
	query := `
		SELECT packet, checksum FROM packets
		WHERE channel_id = ?
		ORDER BY received_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, hex.EncodeToString(channel[:]), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel packets: %v", err)
	}
	defer rows.Close()

	var packets []*protocol.Message
	for rows.Next() {
		var blob, checksum []byte
		if err := rows.Scan(&blob, &checksum); err != nil {
			return nil, err
		}
		msg, err := decodeStoredPacket(blob, checksum)
		if err != nil {
			return nil, err
		}
		packets = append(packets, msg)
	}

	return packets, rows.Err()
}

// PrunePackets deletes packets received before the cutoff and returns
// how many rows were removed.
func (s *PacketStore) PrunePackets(olderThan time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM packets WHERE received_at < ?`, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune packets: %v", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("Pruned %d expired packets", removed)
	}

	return removed, nil
}

// decodeStoredPacket verifies the checksum and re-validates the wire
// size before handing the packet back.
func decodeStoredPacket(blob, checksum []byte) (*protocol.Message, error) {
	ok, err := crypto.VerifyHash(blob, checksum)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCorrupted
	}
	return protocol.DecodeMessage(blob)
}
