package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Refresher periodically re-ingests every known playlist so long-running
// sessions keep serving a recent snapshot without manual refreshes.
type Refresher struct {
	session   *Session
	scheduler gocron.Scheduler
	interval  time.Duration
	logger    *slog.Logger
}

// NewRefresher creates a refresher running every interval. Intervals below one
// minute are clamped to one minute.
func NewRefresher(session *Session, interval time.Duration, logger *slog.Logger) (*Refresher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval < time.Minute {
		interval = time.Minute
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	r := &Refresher{
		session:   session,
		scheduler: s,
		interval:  interval,
		logger:    logger,
	}

	// Singleton mode: a refresh sweep that outlasts the interval must not
	// overlap the next one.
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.refreshAll),
		gocron.WithName("refresh-playlists"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Start begins the refresh schedule.
func (r *Refresher) Start() {
	r.scheduler.Start()
	r.logger.Info("refresh schedule started", "interval", r.interval)
}

// Stop shuts the scheduler down and waits for a running refresh to finish.
func (r *Refresher) Stop() error {
	return r.scheduler.Shutdown()
}

func (r *Refresher) refreshAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, p := range r.session.Playlists() {
		res := r.session.RefreshPlaylist(ctx, p.ID)
		if !res.Success {
			// One failed playlist must not block the others.
			r.logger.Warn("scheduled refresh failed", "playlistID", p.ID, "message", res.Message)
			continue
		}
		r.logger.Info("scheduled refresh complete", "playlistID", p.ID, "records", res.Playlist.Stats.Total)
	}
}
