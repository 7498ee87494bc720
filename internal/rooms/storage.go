// Package rooms is the registry of live rooms. It allocates room codes and
// master keys and evicts rooms that sat idle for too long.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"guessroom/internal/metrics"
	"guessroom/internal/room"
	"guessroom/internal/wshub"
)

var ErrCodeExhausted = errors.New("failed to generate unique room code")

const codeAttempts = 10

type Options struct {
	Room          room.Config
	EmptyTTL      time.Duration
	OccupiedTTL   time.Duration
	SweepInterval time.Duration
	// Hub is the template for every hub; OnClosed is set by the store.
	Hub wshub.Options
}

type Store struct {
	mu    sync.Mutex
	rooms map[string]*wshub.Hub
	opts  Options
}

func NewStore(opts Options) *Store {
	return &Store{
		rooms: make(map[string]*wshub.Hub),
		opts:  opts,
	}
}

// Create allocates a room with the store's default config.
func (s *Store) Create() (*wshub.Hub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range codeAttempts {
		code, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}

		hubOpts := s.opts.Hub
		hubOpts.OnClosed = s.Delete
		h := wshub.New(code, NewKey(), s.opts.Room, hubOpts)
		s.rooms[code] = h

		metrics.RoomsCreated.Inc()
		metrics.RoomsActive.Set(float64(len(s.rooms)))
		log.Info().Str("room", code).Msg("room created")
		return h, nil
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrCodeExhausted, codeAttempts)
}

func (s *Store) Get(code string) *wshub.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[code]
}

func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return
	}
	delete(s.rooms, code)
	metrics.RoomsActive.Set(float64(len(s.rooms)))
}

func (s *Store) List() []*wshub.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*wshub.Hub, 0, len(s.rooms))
	for _, h := range s.rooms {
		list = append(list, h)
	}
	return list
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Sweep closes and removes every room idle for longer than its TTL: the
// empty one when nobody is on the roster, the occupied one otherwise. Rooms
// that closed on their own are removed too. It returns the removed codes.
func (s *Store) Sweep(now time.Time) []string {
	var removed []string
	for _, h := range s.List() {
		if h.Closed() {
			s.Delete(h.ID())
			removed = append(removed, h.ID())
			continue
		}
		occupancy, ttl := "empty", s.opts.EmptyTTL
		if h.PlayerCount() > 0 {
			occupancy, ttl = "occupied", s.opts.OccupiedTTL
		}
		if now.Sub(h.LastActive()) <= ttl {
			continue
		}
		h.Close()
		s.Delete(h.ID())
		removed = append(removed, h.ID())
		metrics.RoomsEvicted.WithLabelValues(occupancy).Inc()
		log.Info().Str("room", h.ID()).Str("occupancy", occupancy).Msg("room evicted")
	}
	return removed
}

// Run sweeps every SweepInterval until ctx ends.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}
