package room

import (
	"maps"
	"slices"
)

// Apply returns the snapshot after e. It has no side effects.
func (r Room) Apply(e Event) Room {
	switch e := e.(type) {
	case NewRoom:
		return r
	case ChangeSettings:
		r.config = e.Config
	case PlayerJoin:
		if r.HasPlayer(e.Name) {
			return r
		}
		r.playerIDs = append(slices.Clone(r.playerIDs), e.Name)
		r.playerReady = r.withReady(e.Name, false)
	case PlayerLeft:
		if !r.HasPlayer(e.Name) {
			return r
		}
		r.playerIDs = slices.DeleteFunc(slices.Clone(r.playerIDs), func(v string) bool { return v == e.Name })
		ready := maps.Clone(r.playerReady)
		delete(ready, e.Name)
		r.playerReady = ready
	case PlayerRename:
		if !r.HasPlayer(e.From) || r.HasPlayer(e.To) {
			return r
		}
		ids := slices.Clone(r.playerIDs)
		ids[slices.Index(ids, e.From)] = e.To
		r.playerIDs = ids
		ready := maps.Clone(r.playerReady)
		ready[e.To] = ready[e.From]
		delete(ready, e.From)
		r.playerReady = ready
	case PlayerReady:
		if r.HasPlayer(e.Name) {
			r.playerReady = r.withReady(e.Name, true)
		}
	case PlayerUnready:
		if r.HasPlayer(e.Name) {
			r.playerReady = r.withReady(e.Name, false)
		}
	case GameStarted:
		r.state = Gaming
	case GameEvent:
	case GameFinished:
		r.state = Idle
		ready := make(map[string]bool, len(r.playerReady))
		for name := range r.playerReady {
			ready[name] = false
		}
		r.playerReady = ready
	case Chat:
		r.chats = append(slices.Clone(r.chats), e.Line)
	case RoomClosed:
	default:
		panic("room: unhandled event type")
	}
	return r
}

func (r Room) withReady(name string, ready bool) map[string]bool {
	m := maps.Clone(r.playerReady)
	if m == nil {
		m = map[string]bool{}
	}
	m[name] = ready
	return m
}
