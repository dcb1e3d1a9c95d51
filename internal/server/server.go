package server

import (
	"context"
	"net/http"
	"time"

	"lightsout/internal/broadcast"
	"lightsout/internal/challenge"
	"lightsout/internal/config"
	"lightsout/internal/db"
	"lightsout/internal/events"
	"lightsout/internal/leaderboard"
	"lightsout/internal/metrics"
	"lightsout/internal/sessions"
	"lightsout/internal/validation"

	"github.com/sirupsen/logrus"
)

// Server wires the game stores, validation pipeline and fan-out
// channels behind the HTTP API.
type Server struct {
	Sessions    *sessions.Store
	Challenges  *challenge.Service
	Boards      *leaderboard.Board
	Validator   *validation.Engine
	Broadcaster *broadcast.Broadcaster
	Bus         *events.Bus
	DB          *db.DB             // nil if no database configured
	ScoreBuffer chan db.ScoreEvent // nil if no database configured
}

func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	ctx := context.Background()

	rdb, err := leaderboard.InitRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	srv := &Server{
		Sessions:    sessions.NewStore(),
		Boards:      leaderboard.NewBoard(rdb),
		Broadcaster: broadcast.NewBroadcaster(bus),
		Bus:         bus,
	}

	// Optional database connection
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			logrus.Warnf("database unavailable, running without persistence: %v", err)
		} else {
			if err := database.Migrate(); err != nil {
				return err
			}
			srv.DB = database
			srv.ScoreBuffer = make(chan db.ScoreEvent, 1000)
			go scoreBatchWriter(database, srv.ScoreBuffer)

			if history, err := database.ValidReactionTimes(); err != nil {
				logrus.Warnf("loading score history: %v", err)
			} else {
				rebuild := make([]leaderboard.RebuildEvent, 0, len(history))
				for _, ev := range history {
					rebuild = append(rebuild, leaderboard.RebuildEvent{
						PlayerID:   ev.PlayerID,
						ReactionMs: ev.ReactionMs,
						Community:  ev.Community,
						RecordedAt: ev.RecordedAt,
					})
				}
				if err := srv.Boards.Rebuild(ctx, rebuild); err != nil {
					logrus.Warnf("rebuilding leaderboards: %v", err)
				}
			}
		}
	} else {
		logrus.Info("DATABASE_URL not set, running without persistence")
	}

	srv.Challenges = challenge.NewService(srv.DB, bus)

	limiter := validation.NewRateLimiter(rdb, cfg.SubmitPerMinute, cfg.SubmitPerDay)
	var history validation.HistorySource
	if srv.DB != nil {
		history = srv.DB
	}
	srv.Validator = validation.NewEngine(limiter, history)

	mts := metrics.NewServer(":" + cfg.MetricsPort)
	mts.Setup(metrics.SessionsGauge(srv.Sessions.Count))
	mts.Start()

	addr := "0.0.0.0:" + cfg.Port
	logrus.Infof("server listening on %s", addr)
	return http.ListenAndServe(addr, srv.routes())
}

// scoreBatchWriter drains the score buffer into Postgres in batches so
// a burst of submissions costs one transaction instead of many.
func scoreBatchWriter(database *db.DB, buffer chan db.ScoreEvent) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	batch := make([]db.ScoreEvent, 0, 50)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := database.BatchRecordScores(batch); err != nil {
			logrus.Errorf("writing score batch: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-buffer:
			batch = append(batch, ev)
			if len(batch) >= 50 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// bufferScore queues a score for persistence, dropping on overflow.
func (s *Server) bufferScore(ev db.ScoreEvent) {
	if s.ScoreBuffer == nil {
		return
	}
	select {
	case s.ScoreBuffer <- ev:
	default:
		logrus.Warn("score buffer full, dropping event")
	}
}
