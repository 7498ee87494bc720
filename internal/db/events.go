package db

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventRecord is one privileged room event as written to the audit trail.
type EventRecord struct {
	RoomCode   string          `json:"room"`
	Seq        int             `json:"seq"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recordedAt"`
}

func (d *DB) BatchRecordEvents(events []EventRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO room_events (room_code, seq, type, payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.RoomCode, ev.Seq, ev.Type, []byte(ev.Payload), ev.RecordedAt); err != nil {
			return fmt.Errorf("recording event in batch: %w", err)
		}
	}

	return tx.Commit()
}

// RoomEvents returns the history of the most recent room that used code.
// Codes are reused once a room is gone, so older rooms are cut off at the
// latest new_room event.
func (d *DB) RoomEvents(code string) ([]EventRecord, error) {
	rows, err := d.conn.Query(`
		SELECT room_code, seq, type, payload, recorded_at
		FROM room_events
		WHERE room_code = $1
		  AND id >= (
		    SELECT COALESCE(MAX(id), 0) FROM room_events
		    WHERE room_code = $1 AND type = 'new_room'
		  )
		ORDER BY seq, id
	`, code)
	if err != nil {
		return nil, fmt.Errorf("querying room events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var ev EventRecord
		var payload []byte
		if err := rows.Scan(&ev.RoomCode, &ev.Seq, &ev.Type, &payload, &ev.RecordedAt); err != nil {
			return nil, err
		}
		ev.Payload = payload
		events = append(events, ev)
	}
	return events, rows.Err()
}
