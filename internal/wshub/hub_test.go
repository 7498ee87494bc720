package wshub

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/go-cmp/cmp"
	dto "github.com/prometheus/client_model/go"

	"guessroom/internal/game"
	"guessroom/internal/metrics"
	"guessroom/internal/protocol"
	"guessroom/internal/room"
	"guessroom/internal/roomsession"
	"guessroom/internal/timer/timertest"
)

type identity struct{}

func (identity) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

type fakeSocket struct {
	msgs   [][]byte
	closed bool
	code   websocket.StatusCode
	reason string
}

func (s *fakeSocket) Replay(history [][]byte) {
	s.msgs = append(s.msgs, history...)
}

func (s *fakeSocket) Send(data []byte) error {
	if s.closed {
		return ErrSocketClosed
	}
	s.msgs = append(s.msgs, data)
	return nil
}

func (s *fakeSocket) Close(code websocket.StatusCode, reason string) {
	if s.closed {
		return
	}
	s.closed, s.code, s.reason = true, code, reason
}

type frame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   *struct {
		Type   string `json:"type"`
		Answer []int  `json:"answer"`
	} `json:"event"`
}

func (s *fakeSocket) frames(t *testing.T) []frame {
	t.Helper()
	out := make([]frame, len(s.msgs))
	for i, m := range s.msgs {
		if err := json.Unmarshal(m, &out[i]); err != nil {
			t.Fatalf("bad frame %s: %v", m, err)
		}
	}
	return out
}

// kinds lists event types, or "ok"/"err" for responses.
func (s *fakeSocket) kinds(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, f := range s.frames(t) {
		switch f.Code {
		case "success":
			out = append(out, "ok")
		case "error":
			out = append(out, "err")
		default:
			out = append(out, f.Type)
		}
	}
	return out
}

func (s *fakeSocket) reset() { s.msgs = nil }

const testKey = "secret"

type testHub struct {
	*Hub
	t      *testing.T
	sched  *timertest.Scheduler
	closed []string
	events []room.Event
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	th := &testHub{t: t, sched: timertest.New()}
	th.Hub = New("123", testKey, room.Config{
		MaxPlayers: 4,
		Game:       game.Config{AnswerLength: 4, PlayerTimeoutMillis: time.Minute.Milliseconds()},
	}, Options{
		Scheduler: th.sched,
		Shuffler:  identity{},
		OnClosed:  func(id string) { th.closed = append(th.closed, id) },
		OnEvent:   th.record,
	})
	return th
}

func (th *testHub) record(_ string, seq int, e room.Event, _ []byte) {
	if seq != len(th.events) {
		th.t.Errorf("OnEvent seq = %d, want %d", seq, len(th.events))
	}
	th.events = append(th.events, e)
}

func connect(t *testing.T, h *testHub, name string) *fakeSocket {
	t.Helper()
	s := &fakeSocket{}
	if err := h.ConnectPlayer(s, name); err != nil {
		t.Fatalf("ConnectPlayer(%q) error: %v", name, err)
	}
	return s
}

func send(h *testHub, s *fakeSocket, msg string) {
	h.HandleMessage(s, []byte(msg))
}

func TestConnectPlayer_ReplaysHistory(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "a")
	b := connect(t, h, "b")

	if diff := cmp.Diff([]string{"new_room", "player_join", "player_join"}, a.kinds(t)); diff != "" {
		t.Errorf("a frames mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"new_room", "player_join", "player_join"}, b.kinds(t)); diff != "" {
		t.Errorf("b frames mismatch (-want +got):\n%s", diff)
	}
	if h.PlayerCount() != 2 {
		t.Errorf("PlayerCount() = %d, want 2", h.PlayerCount())
	}
}

func TestConnectPlayer_Rejected(t *testing.T) {
	h := newTestHub(t)
	connect(t, h, "a")

	dup := &fakeSocket{}
	err := h.ConnectPlayer(dup, "a")
	if !errors.Is(err, roomsession.ErrNameRepeated) {
		t.Fatalf("ConnectPlayer() err = %v, want ErrNameRepeated", err)
	}
	if !dup.closed || dup.code != StatusRejected || dup.reason != "error.name_repeated" {
		t.Errorf("socket close = (%v, %d, %q), want (true, %d, error.name_repeated)", dup.closed, dup.code, dup.reason, StatusRejected)
	}
	if len(dup.msgs) != 0 {
		t.Errorf("rejected socket got %d frames, want 0", len(dup.msgs))
	}
	if h.Sockets() != 1 {
		t.Errorf("Sockets() = %d, want 1", h.Sockets())
	}
}

func TestObserver(t *testing.T) {
	h := newTestHub(t)
	connect(t, h, "a")
	obs := &fakeSocket{}
	if err := h.ConnectObserver(obs); err != nil {
		t.Fatalf("ConnectObserver() error: %v", err)
	}
	if diff := cmp.Diff([]string{"new_room", "player_join"}, obs.kinds(t)); diff != "" {
		t.Errorf("observer replay mismatch (-want +got):\n%s", diff)
	}

	obs.reset()
	send(h, obs, `{"type":"chat","msg":{"name":"x","msg":"hi"}}`)
	frames := obs.frames(t)
	if len(frames) != 1 || frames[0].Message != "error.not_permitted" {
		t.Errorf("observer request frames = %+v, want one not_permitted error", frames)
	}
}

func TestMaster(t *testing.T) {
	h := newTestHub(t)

	bad := &fakeSocket{}
	if err := h.ConnectMaster(bad, "nope"); !errors.Is(err, ErrIncorrectKey) {
		t.Errorf("ConnectMaster(wrong key) err = %v, want ErrIncorrectKey", err)
	}
	if bad.code != StatusIncorrectKey {
		t.Errorf("close code = %d, want %d", bad.code, StatusIncorrectKey)
	}

	master := &fakeSocket{}
	if err := h.ConnectMaster(master, testKey); err != nil {
		t.Fatalf("ConnectMaster() error: %v", err)
	}
	second := &fakeSocket{}
	if err := h.ConnectMaster(second, testKey); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second ConnectMaster() err = %v, want ErrAlreadyConnected", err)
	}
	if second.code != StatusAlreadyConnected {
		t.Errorf("close code = %d, want %d", second.code, StatusAlreadyConnected)
	}

	a := connect(t, h, "a")
	send(h, a, `{"type":"ready","player":"a"}`)
	send(h, master, `{"type":"start","answer":[1,2,3,4]}`)

	var masterStart, playerStart *frame
	for _, f := range master.frames(t) {
		if f.Type == "game_started" {
			masterStart = &f
		}
	}
	for _, f := range a.frames(t) {
		if f.Type == "game_started" {
			playerStart = &f
		}
	}
	if masterStart == nil || masterStart.Event.Type != "new_game_server" || len(masterStart.Event.Answer) != 4 {
		t.Errorf("master start = %+v, want server start with answer", masterStart)
	}
	if playerStart == nil || playerStart.Event.Type != "new_game_client" || playerStart.Event.Answer != nil {
		t.Errorf("player start = %+v, want client start without answer", playerStart)
	}

	master.reset()
	h.Disconnect(master)
	again := &fakeSocket{}
	if err := h.ConnectMaster(again, testKey); err != nil {
		t.Errorf("ConnectMaster() after disconnect error: %v", err)
	}
}

func TestFullGame(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "a")
	b := connect(t, h, "b")
	send(h, a, `{"type":"ready","player":"a"}`)
	send(h, b, `{"type":"ready","player":"b"}`)
	master := &fakeSocket{}
	if err := h.ConnectMaster(master, testKey); err != nil {
		t.Fatalf("ConnectMaster() error: %v", err)
	}
	send(h, master, `{"type":"start","answer":[1,2,3,4]}`)
	a.reset()
	b.reset()

	send(h, b, `{"type":"game","request":{"type":"guess","player":"b","guess":[1,2,3,4]}}`)
	if got := b.frames(t); len(got) != 1 || got[0].Message != "error.not_your_round" {
		t.Errorf("out of turn frames = %+v, want one not_your_round error", got)
	}
	b.reset()

	send(h, a, `{"type":"game","request":{"type":"guess","player":"a","guess":[5,6,7,8]}}`)
	h.sched.Advance(time.Minute)
	send(h, a, `{"type":"game","request":{"type":"guess","player":"a","guess":[1,2,3,4]}}`)

	want := []string{"game_event", "ok", "game_event", "game_event", "game_finished", "room_closed", "ok"}
	if diff := cmp.Diff(want, a.kinds(t)); diff != "" {
		t.Errorf("a frames mismatch (-want +got):\n%s", diff)
	}
	wantB := []string{"game_event", "game_event", "game_event", "game_finished", "room_closed"}
	if diff := cmp.Diff(wantB, b.kinds(t)); diff != "" {
		t.Errorf("b frames mismatch (-want +got):\n%s", diff)
	}

	for name, s := range map[string]*fakeSocket{"a": a, "b": b} {
		if !s.closed || s.code != StatusRoomClosing {
			t.Errorf("%s close = (%v, %d), want (true, %d)", name, s.closed, s.code, StatusRoomClosing)
		}
	}
	if diff := cmp.Diff([]string{"123"}, h.closed); diff != "" {
		t.Errorf("OnClosed calls mismatch (-want +got):\n%s", diff)
	}
	if !h.Closed() || h.Sockets() != 0 {
		t.Errorf("Closed() = %v, Sockets() = %d; want true, 0", h.Closed(), h.Sockets())
	}
	if _, ok := h.events[len(h.events)-1].(room.RoomClosed); !ok {
		t.Errorf("last hooked event = %T, want RoomClosed", h.events[len(h.events)-1])
	}
}

func TestDisconnect(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "a")
	b := connect(t, h, "b")
	a.reset()

	h.Disconnect(b)
	h.Disconnect(b)

	if diff := cmp.Diff([]string{"player_left"}, a.kinds(t)); diff != "" {
		t.Errorf("a frames mismatch (-want +got):\n%s", diff)
	}
	if h.PlayerCount() != 1 {
		t.Errorf("PlayerCount() = %d, want 1", h.PlayerCount())
	}
}

func TestReconnectWhileGaming(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "a")
	send(h, a, `{"type":"ready","player":"a"}`)
	send(h, a, `{"type":"start"}`)

	a2 := connect(t, h, "a")
	h.Disconnect(a)
	if h.PlayerCount() != 1 {
		t.Errorf("PlayerCount() = %d after closing one of two sockets, want 1", h.PlayerCount())
	}
	h.Disconnect(a2)
	if h.PlayerCount() != 0 {
		t.Errorf("PlayerCount() = %d after closing both sockets, want 0", h.PlayerCount())
	}
	if !h.CanConnect("a") {
		t.Error("CanConnect(a) = false for a player of the running game")
	}
	if h.CanConnect("z") {
		t.Error("CanConnect(z) = true for a stranger while gaming")
	}
}

func TestHandleMessage_Malformed(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "a")
	a.reset()
	before := h.LastActive()

	send(h, a, `{"type":`)
	frames := a.frames(t)
	if len(frames) != 1 || frames[0].Code != "error" || !strings.HasPrefix(frames[0].Message, "error.malformed_message") {
		t.Errorf("frames = %+v, want one malformed error", frames)
	}
	if h.LastActive().Before(before) {
		t.Error("LastActive() moved backwards")
	}
}

func rejected(t *testing.T, reason string) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.RejectedRequests.WithLabelValues(reason).Write(&m); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestHandleMessage_RejectReasonLabel(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "a")
	before := rejected(t, "error.unknown_type")

	send(h, a, `{"type":"bogus_one"}`)
	send(h, a, `{"type":"bogus_two"}`)

	if got := rejected(t, "error.unknown_type"); got != before+2 {
		t.Errorf("rejected_requests_total{reason=error.unknown_type} = %v, want %v", got, before+2)
	}

	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: %q", protocol.ErrUnknownType, "x"), "error.unknown_type"},
		{fmt.Errorf("%w: unexpected end of JSON input", protocol.ErrMalformed), "error.malformed_message"},
		{fmt.Errorf("%w: %w", room.ErrInvalidSettings, game.ErrInvalidConfig), "error.invalid_settings"},
		{game.ErrNotYourTurn, "error.not_your_round"},
		{errors.New("something else"), "other"},
	}
	for _, tt := range tests {
		if got := rejectReason(tt.err); got != tt.want {
			t.Errorf("rejectReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestGetState(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "a")
	a.reset()

	send(h, a, `{"type":"get_state"}`)
	var resp struct {
		Code string `json:"code"`
		Resp struct {
			Room room.View `json:"room"`
		} `json:"resp"`
	}
	if err := json.Unmarshal(a.msgs[0], &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "success" || resp.Resp.Room.ID != "123" || len(resp.Resp.Room.PlayerIDs) != 1 {
		t.Errorf("get_state = %s", a.msgs[0])
	}
}

func TestClose(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "a")
	obs := &fakeSocket{}
	h.ConnectObserver(obs)
	a.reset()

	h.Close()
	h.Close()

	if diff := cmp.Diff([]string{"room_closed"}, a.kinds(t)); diff != "" {
		t.Errorf("a frames mismatch (-want +got):\n%s", diff)
	}
	if obs.code != StatusRoomClosing {
		t.Errorf("observer close code = %d, want %d", obs.code, StatusRoomClosing)
	}
	if len(h.closed) != 1 {
		t.Errorf("OnClosed called %d times, want 1", len(h.closed))
	}

	late := &fakeSocket{}
	if err := h.ConnectPlayer(late, "b"); !errors.Is(err, roomsession.ErrRoomClosed) {
		t.Errorf("ConnectPlayer() after close err = %v, want ErrRoomClosed", err)
	}
	if late.code != StatusRoomClosing {
		t.Errorf("late close code = %d, want %d", late.code, StatusRoomClosing)
	}
}

func TestConnectPlayer_LongHistory(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "a")
	for range sendBuffer + 100 {
		send(h, a, `{"type":"chat","msg":{"name":"a","msg":"hi"}}`)
	}

	c := NewClient(nil)
	if err := h.ConnectPlayer(c, "b"); err != nil {
		t.Fatalf("ConnectPlayer() error: %v", err)
	}
	select {
	case <-c.Done():
		t.Fatalf("client closed during replay: code=%d reason=%q", c.code, c.reason)
	default:
	}
	want := sendBuffer + 100 + 3
	if len(c.backlog) != want {
		t.Errorf("replayed %d frames, want %d", len(c.backlog), want)
	}
	if len(c.send) != 0 {
		t.Errorf("send queue holds %d frames after replay, want 0", len(c.send))
	}

	send(h, a, `{"type":"chat","msg":{"name":"a","msg":"after"}}`)
	if len(c.send) != 1 {
		t.Errorf("send queue holds %d frames after a new event, want 1", len(c.send))
	}
}

func TestClient_SendAndClose(t *testing.T) {
	c := NewClient(nil)
	for range sendBuffer {
		if err := c.Send([]byte("x")); err != nil {
			t.Fatalf("Send() error: %v", err)
		}
	}
	if err := c.Send([]byte("x")); !errors.Is(err, ErrSlowConsumer) {
		t.Errorf("Send() on full buffer err = %v, want ErrSlowConsumer", err)
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("client not closed after overflow")
	}
	if c.code != StatusSlowConsumer {
		t.Errorf("close code = %d, want %d", c.code, StatusSlowConsumer)
	}
	c.Close(websocket.StatusNormalClosure, "")
	if c.code != StatusSlowConsumer {
		t.Error("second Close() overwrote the close code")
	}
	if err := c.Send([]byte("x")); !errors.Is(err, ErrSocketClosed) {
		t.Errorf("Send() after close err = %v, want ErrSocketClosed", err)
	}
}
