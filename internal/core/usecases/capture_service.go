package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/ports"
	"github.com/capturegame/capture/internal/pkg/geodesy"
	"github.com/capturegame/capture/internal/pkg/metrics"
)

// CaptureService runs live capture sessions: it acquires the position
// feed, filters GPS noise into a clean vertex sequence, and resolves a
// finished session into exactly one Territory or Run.
//
// One session per user. Each session owns a single consumer goroutine
// reading from a fix channel, so the "append only if far enough from
// the last point" rule is applied to fixes strictly in order.
type CaptureService struct {
	source      ports.PositionSource
	territories *TerritoryService
	runs        ports.RunRepository
	prefs       ports.PreferenceProvider
	publisher   ports.EventPublisher

	mu       sync.Mutex
	sessions map[string]*captureSession
}

// NewCaptureService creates a new CaptureService.
func NewCaptureService(
	source ports.PositionSource,
	territories *TerritoryService,
	runs ports.RunRepository,
	prefs ports.PreferenceProvider,
	publisher ports.EventPublisher,
) *CaptureService {
	return &CaptureService{
		source:      source,
		territories: territories,
		runs:        runs,
		prefs:       prefs,
		publisher:   publisher,
		sessions:    make(map[string]*captureSession),
	}
}

// SessionStatus is a point-in-time snapshot of a live session.
type SessionStatus struct {
	UserID     string        `json:"user_id"`
	StartedAt  time.Time     `json:"started_at"`
	Points     int           `json:"points"`
	DistanceKm float64       `json:"distance_km"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Start begins a capture session for the user, optionally seeding the
// path with an initial fix. The live feed is acquired here; if that
// fails, no session is created and domain.ErrLocationUnavailable is
// returned.
func (svc *CaptureService) Start(ctx context.Context, userID string, initial *domain.GeoPoint) (SessionStatus, error) {
	sess := &captureSession{
		userID:    userID,
		startedAt: time.Now(),
		fixes:     make(chan domain.GeoPoint, 64),
		done:      make(chan struct{}),
	}
	if initial != nil {
		if err := geodesy.Validate(*initial); err != nil {
			return SessionStatus{}, err
		}
		sess.path.Points = append(sess.path.Points, *initial)
	}

	svc.mu.Lock()
	if _, ok := svc.sessions[userID]; ok {
		svc.mu.Unlock()
		return SessionStatus{}, domain.ErrSessionActive
	}
	svc.sessions[userID] = sess
	svc.mu.Unlock()

	sub, err := svc.source.Subscribe(ctx, userID, func(fix domain.PositionFix) {
		sess.offer(fix.Location)
	})
	if err != nil {
		svc.mu.Lock()
		delete(svc.sessions, userID)
		svc.mu.Unlock()
		return SessionStatus{}, fmt.Errorf("%w: %v", domain.ErrLocationUnavailable, err)
	}
	sess.sub = sub

	go sess.consume()
	metrics.ActiveSessions.Inc()

	slog.Info("capture session started", "user_id", userID, "seeded", initial != nil)
	return sess.status(), nil
}

// Ingest forwards a position fix to the live feed. Sessions receive it
// through their feed subscription, which keeps a single delivery path
// whether fixes arrive over HTTP or straight from the broker.
func (svc *CaptureService) Ingest(ctx context.Context, fix domain.PositionFix) error {
	if err := geodesy.Validate(fix.Location); err != nil {
		return err
	}
	if fix.Time.IsZero() {
		fix.Time = time.Now()
	}
	if err := svc.publisher.PublishPositionFix(ctx, &fix); err != nil {
		return fmt.Errorf("publish fix: %w", err)
	}
	return nil
}

// Status returns a snapshot of the user's live session.
func (svc *CaptureService) Status(userID string) (SessionStatus, error) {
	svc.mu.Lock()
	sess, ok := svc.sessions[userID]
	svc.mu.Unlock()
	if !ok {
		return SessionStatus{}, domain.ErrNoSession
	}
	return sess.status(), nil
}

// Stop ends the user's session and classifies the accumulated path.
// The feed subscription is released before classification on every
// exit path. A persistence failure is surfaced alongside the computed
// result so the caller still holds the classified run or territory.
func (svc *CaptureService) Stop(ctx context.Context, userID, name string) (domain.CaptureResult, error) {
	svc.mu.Lock()
	sess, ok := svc.sessions[userID]
	if ok {
		delete(svc.sessions, userID)
	}
	svc.mu.Unlock()
	if !ok {
		return domain.CaptureResult{}, domain.ErrNoSession
	}

	path := sess.finish()
	metrics.ActiveSessions.Dec()

	color := domain.DefaultPreferences().TerritoryColor
	if prefs, err := svc.prefs.PreferencesFor(ctx, userID); err == nil && prefs.TerritoryColor != "" {
		color = prefs.TerritoryColor
	}
	if name == "" {
		name = svc.nextTerritoryName(ctx, userID)
	}

	result := Classify(path, userID, name, color, time.Now())
	slog.Info("capture session classified",
		"user_id", userID,
		"outcome", string(result.Outcome),
		"points", len(path.Points),
		"distance_km", path.DistanceKm,
	)

	if result.Territory != nil {
		if err := svc.territories.Create(ctx, result.Territory); err != nil {
			return result, fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
		}
		metrics.TerritoriesCreated.Inc()
		svc.reportSponsoredOverlaps(ctx, result.Territory)
		return result, nil
	}

	if err := svc.runs.Create(ctx, result.Run); err != nil {
		return result, fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	metrics.RunsSaved.Inc()
	_ = svc.publisher.PublishRunSaved(ctx, result.Run)
	return result, nil
}

// Cancel discards the user's session without classifying it. The feed
// subscription is still released.
func (svc *CaptureService) Cancel(ctx context.Context, userID string) error {
	svc.mu.Lock()
	sess, ok := svc.sessions[userID]
	if ok {
		delete(svc.sessions, userID)
	}
	svc.mu.Unlock()
	if !ok {
		return domain.ErrNoSession
	}

	sess.finish()
	metrics.ActiveSessions.Dec()
	slog.Info("capture session cancelled", "user_id", userID)
	return nil
}

// reportSponsoredOverlaps publishes a SponsoredCapture event for each
// brand zone the new territory overlaps. Reward issuance itself is the
// rewarder worker's job.
func (svc *CaptureService) reportSponsoredOverlaps(ctx context.Context, t *domain.Territory) {
	overlaps, err := svc.territories.FindOverlaps(ctx, t.Ring)
	if err != nil {
		slog.Warn("sponsored overlap scan failed", "territory_id", t.ID, "error", err)
		return
	}
	for _, ov := range overlaps {
		if !ov.Territory.Sponsored || ov.Territory.Reward == nil {
			continue
		}
		ev := &domain.SponsoredCapture{
			UserID:         t.UserID,
			TerritoryID:    t.ID,
			ZoneID:         ov.Territory.ID,
			Brand:          ov.Territory.Reward.Brand,
			Reward:         *ov.Territory.Reward,
			OverlapAreaKm2: ov.OverlapAreaKm2,
		}
		if err := svc.publisher.PublishSponsoredCapture(ctx, ev); err != nil {
			slog.Warn("publish sponsored capture", "zone_id", ev.ZoneID, "error", err)
		}
	}
}

func (svc *CaptureService) nextTerritoryName(ctx context.Context, userID string) string {
	existing, err := svc.territories.ListByUser(ctx, userID)
	if err != nil {
		return "Territory"
	}
	return fmt.Sprintf("Territory %d", len(existing)+1)
}

// captureSession is the ephemeral state machine between start and end
// of a capture. The path is owned by the consumer goroutine while the
// session is live; snapshots go through the mutex.
type captureSession struct {
	userID    string
	startedAt time.Time
	sub       ports.Subscription

	fixes chan domain.GeoPoint
	done  chan struct{}

	sendMu sync.Mutex
	closed bool

	mu   sync.Mutex
	path domain.Path
}

// offer enqueues a fix for the consumer. It never blocks the feed
// callback: if the session is closed or the buffer is full the fix is
// dropped and counted.
func (s *captureSession) offer(p domain.GeoPoint) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.fixes <- p:
	default:
		metrics.FixesDropped.Inc()
	}
}

// consume is the session's single logical writer.
func (s *captureSession) consume() {
	defer close(s.done)
	for fix := range s.fixes {
		s.ingest(fix)
	}
}

// ingest appends a fix if it moved more than the noise threshold from
// the last accepted point. The first fix is always accepted. Path
// length is recomputed over the full path rather than summed
// incrementally, so the reported distance is reproducible from the
// points alone.
func (s *captureSession) ingest(p domain.GeoPoint) {
	if err := geodesy.Validate(p); err != nil {
		metrics.FixesRejected.Inc()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.path.Last(); ok {
		d, err := geodesy.Distance(last, p)
		if err != nil || d <= noiseFilterKm {
			metrics.FixesFiltered.Inc()
			return
		}
	}

	s.path.Points = append(s.path.Points, p)
	if total, err := geodesy.PathLength(s.path.Points); err == nil {
		s.path.DistanceKm = total
	}
	s.path.Duration = time.Since(s.startedAt)
	metrics.FixesAccepted.Inc()
}

// finish releases the feed, drains in-flight fixes, and returns the
// materialized path. Safe to call exactly once.
func (s *captureSession) finish() domain.Path {
	defer func() {
		if s.sub != nil {
			_ = s.sub.Unsubscribe()
		}
	}()

	s.sendMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.fixes)
	}
	s.sendMu.Unlock()
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	s.path.Duration = time.Since(s.startedAt)
	return s.path
}

func (s *captureSession) status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatus{
		UserID:     s.userID,
		StartedAt:  s.startedAt,
		Points:     len(s.path.Points),
		DistanceKm: s.path.DistanceKm,
		Elapsed:    time.Since(s.startedAt),
	}
}
