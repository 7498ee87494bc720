package db

import (
	"encoding/json"
	"os"
	"testing"
	"time"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	database, err := Connect(dsn)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	t.Cleanup(func() {
		database.conn.Exec("DELETE FROM room_events")
		database.Close()
	})
	return database
}

func TestConnect(t *testing.T) {
	database := getTestDB(t)
	if err := database.Ping(); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	database := getTestDB(t)
	if err := database.Migrate(); err != nil {
		t.Fatalf("second Migrate() error: %v", err)
	}

	var exists bool
	err := database.conn.QueryRow(`
		SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)
	`, "room_events").Scan(&exists)
	if err != nil {
		t.Fatalf("checking table: %v", err)
	}
	if !exists {
		t.Error("table room_events does not exist")
	}
}

func record(code string, seq int, typ string) EventRecord {
	return EventRecord{
		RoomCode:   code,
		Seq:        seq,
		Type:       typ,
		Payload:    json.RawMessage(`{"type":"` + typ + `"}`),
		RecordedAt: time.Now(),
	}
}

func TestBatchRecordEvents(t *testing.T) {
	database := getTestDB(t)

	err := database.BatchRecordEvents([]EventRecord{
		record("ABCD", 0, "new_room"),
		record("ABCD", 1, "player_join"),
		record("WXYZ", 0, "new_room"),
	})
	if err != nil {
		t.Fatalf("BatchRecordEvents() error: %v", err)
	}

	events, err := database.RoomEvents("ABCD")
	if err != nil {
		t.Fatalf("RoomEvents() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(RoomEvents()) = %d, want 2", len(events))
	}
	if events[0].Type != "new_room" || events[1].Type != "player_join" {
		t.Errorf("types = %q, %q; want new_room, player_join", events[0].Type, events[1].Type)
	}
	var payload map[string]string
	if err := json.Unmarshal(events[1].Payload, &payload); err != nil || payload["type"] != "player_join" {
		t.Errorf("payload = %s, want the stored JSON", events[1].Payload)
	}
}

func TestRoomEvents_LatestRoomOnly(t *testing.T) {
	database := getTestDB(t)

	database.BatchRecordEvents([]EventRecord{
		record("EFGH", 0, "new_room"),
		record("EFGH", 1, "room_closed"),
	})
	database.BatchRecordEvents([]EventRecord{
		record("EFGH", 0, "new_room"),
	})

	events, err := database.RoomEvents("EFGH")
	if err != nil {
		t.Fatalf("RoomEvents() error: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("len(RoomEvents()) = %d, want 1 for the reused code", len(events))
	}
}

func TestRoomEvents_Unknown(t *testing.T) {
	database := getTestDB(t)

	events, err := database.RoomEvents("NONE")
	if err != nil {
		t.Fatalf("RoomEvents() error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("len(RoomEvents()) = %d, want 0", len(events))
	}
}
