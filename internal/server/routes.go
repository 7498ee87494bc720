package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"guessroom/internal/config"
	"guessroom/internal/db"
	"guessroom/internal/rooms"
	"guessroom/internal/wshub"
)

const eventBuffer = 1000

// Run serves until ctx ends, then shuts the listener down and flushes the
// audit writer. An invalid room config fails before anything starts.
func Run(ctx context.Context, appCfg config.Config) error {
	if err := appCfg.Validate(); err != nil {
		return err
	}
	srv := &Server{Origins: appCfg.AllowedOrigins}

	// Optional database connection
	var writerDone chan struct{}
	if appCfg.DatabaseURL != "" {
		database, err := db.Connect(appCfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, running without audit trail")
		} else {
			if err := database.Migrate(); err != nil {
				log.Error().Err(err).Msg("migration failed")
			}
			defer database.Close()
			srv.DB = database
			srv.Events = make(chan db.EventRecord, eventBuffer)
			writerDone = make(chan struct{})
			go func() {
				eventBatchWriter(database, srv.Events)
				close(writerDone)
			}()
			log.Info().Msg("database connected and migrations applied")
		}
	} else {
		log.Info().Msg("DATABASE_URL not set, running without audit trail")
	}

	srv.Rooms = rooms.NewStore(rooms.Options{
		Room:          appCfg.Room(),
		EmptyTTL:      appCfg.EmptyRoomTTL,
		OccupiedTTL:   appCfg.OccupiedRoomTTL,
		SweepInterval: appCfg.GCInterval,
		Hub:           wshub.Options{OnEvent: srv.recordEvent},
	})
	go srv.Rooms.Run(ctx)

	httpSrv := &http.Server{
		Addr:    "0.0.0.0:" + appCfg.Port,
		Handler: srv.Routes(),
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", appCfg.Port).Msg("server listening")
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := httpSrv.Shutdown(shutdownCtx)
	for _, h := range srv.Rooms.List() {
		h.Close()
	}
	if srv.Events != nil {
		close(srv.Events)
		<-writerDone
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /rooms/{id}/config", s.handleRoomConfig)
	mux.HandleFunc("GET /rooms/{id}/player/joinable", s.handleJoinable)
	mux.HandleFunc("GET /rooms/{id}/player", s.handlePlayerSocket)
	mux.HandleFunc("GET /rooms/{id}/observe", s.handleObserverSocket)
	mux.HandleFunc("GET /rooms/{id}/master", s.handleMasterSocket)
	mux.HandleFunc("GET /audit/rooms/{id}", s.handleAudit)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return cors(s.Origins, mux)
}
