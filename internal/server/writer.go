package server

import (
	"time"

	"github.com/rs/zerolog/log"

	"guessroom/internal/db"
	"guessroom/internal/protocol"
	"guessroom/internal/room"
)

const batchSize = 50

// eventRecorder is the part of db.DB the batch writer needs.
type eventRecorder interface {
	BatchRecordEvents(events []db.EventRecord) error
}

// recordEvent queues a privileged event for the audit trail. It runs under
// the room lock, so a full buffer drops the event instead of blocking.
func (s *Server) recordEvent(roomID string, seq int, e room.Event, data []byte) {
	if s.Events == nil {
		return
	}
	rec := db.EventRecord{
		RoomCode:   roomID,
		Seq:        seq,
		Type:       protocol.EventType(e),
		Payload:    data,
		RecordedAt: time.Now(),
	}
	select {
	case s.Events <- rec:
	default:
		log.Warn().Str("room", roomID).Int("seq", seq).Msg("audit buffer full, event dropped")
	}
}

// eventBatchWriter drains buffer in batches until it is closed.
func eventBatchWriter(database eventRecorder, buffer <-chan db.EventRecord) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	batch := make([]db.EventRecord, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := database.BatchRecordEvents(batch); err != nil {
			log.Error().Err(err).Int("events", len(batch)).Msg("BatchRecordEvents failed")
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-buffer:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
