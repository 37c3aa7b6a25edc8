package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/ports"
	"github.com/capturegame/capture/internal/core/usecases"
)

// --- Mock PositionSource ---

type mockSubscription struct {
	mu           sync.Mutex
	unsubscribed bool
}

func (m *mockSubscription) Unsubscribe() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = true
	return nil
}

func (m *mockSubscription) isUnsubscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubscribed
}

type mockSource struct {
	mu          sync.Mutex
	subscribeFn func(ctx context.Context, userID string) error
	handlers    map[string]func(fix domain.PositionFix)
	subs        map[string]*mockSubscription
}

func newMockSource() *mockSource {
	return &mockSource{
		handlers: make(map[string]func(fix domain.PositionFix)),
		subs:     make(map[string]*mockSubscription),
	}
}

func (m *mockSource) Subscribe(ctx context.Context, userID string, handler func(fix domain.PositionFix)) (ports.Subscription, error) {
	if m.subscribeFn != nil {
		if err := m.subscribeFn(ctx, userID); err != nil {
			return nil, err
		}
	}
	sub := &mockSubscription{}
	m.mu.Lock()
	m.handlers[userID] = handler
	m.subs[userID] = sub
	m.mu.Unlock()
	return sub, nil
}

// push delivers a fix the way the broker would: through the handler
// registered at subscribe time.
func (m *mockSource) push(userID string, p domain.GeoPoint) {
	m.mu.Lock()
	handler := m.handlers[userID]
	m.mu.Unlock()
	if handler != nil {
		handler(domain.PositionFix{UserID: userID, Location: p, Time: time.Now()})
	}
}

func (m *mockSource) subscription(userID string) *mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[userID]
}

// --- Mock RunRepository ---

type mockRunRepo struct {
	mu       sync.Mutex
	createFn func(ctx context.Context, r *domain.Run) error
	saved    []*domain.Run
	listFn   func(ctx context.Context, userID string) ([]domain.Run, error)
}

func (m *mockRunRepo) Create(ctx context.Context, r *domain.Run) error {
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, r)
	return nil
}

func (m *mockRunRepo) ListByUser(ctx context.Context, userID string) ([]domain.Run, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

// --- Mock PreferenceProvider ---

type mockPrefs struct {
	prefsFn func(ctx context.Context, userID string) (domain.Preferences, error)
}

func (m *mockPrefs) PreferencesFor(ctx context.Context, userID string) (domain.Preferences, error) {
	if m.prefsFn != nil {
		return m.prefsFn(ctx, userID)
	}
	return domain.Preferences{}, errors.New("no preferences")
}

// --- Test helpers ---

type captureFixture struct {
	svc    *usecases.CaptureService
	source *mockSource
	repo   *mockTerritoryRepo
	runs   *mockRunRepo
	prefs  *mockPrefs
	pub    *mockPublisher
}

func newCaptureFixture(seeds []domain.Territory) *captureFixture {
	f := &captureFixture{
		source: newMockSource(),
		repo:   &mockTerritoryRepo{},
		runs:   &mockRunRepo{},
		prefs:  &mockPrefs{},
		pub:    &mockPublisher{},
	}
	territories := usecases.NewTerritoryService(f.repo, seeds, nil, f.pub)
	f.svc = usecases.NewCaptureService(f.source, territories, f.runs, f.prefs, f.pub)
	return f
}

// waitForPoints polls the session status until the path reaches the
// expected vertex count. Fix delivery is asynchronous through the
// session's consumer goroutine.
func waitForPoints(t *testing.T, svc *usecases.CaptureService, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, err := svc.Status(userID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if status.Points >= want {
			if status.Points > want {
				t.Fatalf("path has %d points, want %d", status.Points, want)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	status, _ := svc.Status(userID)
	t.Fatalf("timed out waiting for %d points, have %d", want, status.Points)
}

func TestCaptureService_StartAndStatus(t *testing.T) {
	f := newCaptureFixture(nil)
	initial := &domain.GeoPoint{Lat: 12.9000, Lon: 77.5980}

	status, err := f.svc.Start(context.Background(), "u1", initial)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.svc.Cancel(context.Background(), "u1")

	if status.UserID != "u1" || status.Points != 1 {
		t.Errorf("status = %+v, want u1 with 1 seeded point", status)
	}
	if _, err := f.svc.Status("u1"); err != nil {
		t.Errorf("Status after start: %v", err)
	}
}

func TestCaptureService_StartTwiceFails(t *testing.T) {
	f := newCaptureFixture(nil)

	if _, err := f.svc.Start(context.Background(), "u1", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.svc.Cancel(context.Background(), "u1")

	if _, err := f.svc.Start(context.Background(), "u1", nil); !errors.Is(err, domain.ErrSessionActive) {
		t.Errorf("second Start = %v, want ErrSessionActive", err)
	}
}

func TestCaptureService_StartInvalidSeed(t *testing.T) {
	f := newCaptureFixture(nil)

	_, err := f.svc.Start(context.Background(), "u1", &domain.GeoPoint{Lat: 91, Lon: 0})
	if !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Fatalf("Start = %v, want ErrInvalidCoordinate", err)
	}
	if _, err := f.svc.Status("u1"); !errors.Is(err, domain.ErrNoSession) {
		t.Error("session left behind after rejected start")
	}
}

func TestCaptureService_StartFeedUnavailable(t *testing.T) {
	f := newCaptureFixture(nil)
	f.source.subscribeFn = func(ctx context.Context, userID string) error {
		return errors.New("broker down")
	}

	_, err := f.svc.Start(context.Background(), "u1", nil)
	if !errors.Is(err, domain.ErrLocationUnavailable) {
		t.Fatalf("Start = %v, want ErrLocationUnavailable", err)
	}
	if _, err := f.svc.Status("u1"); !errors.Is(err, domain.ErrNoSession) {
		t.Error("session left behind after failed feed acquisition")
	}
}

func TestCaptureService_NoiseFilter(t *testing.T) {
	f := newCaptureFixture(nil)
	start := domain.GeoPoint{Lat: 12.9000, Lon: 77.5980}

	if _, err := f.svc.Start(context.Background(), "u1", &start); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.svc.Cancel(context.Background(), "u1")

	// ~111 m away: accepted.
	f.source.push("u1", domain.GeoPoint{Lat: 12.9010, Lon: 77.5980})
	waitForPoints(t, f.svc, "u1", 2)

	// ~1 m of jitter: filtered out.
	f.source.push("u1", domain.GeoPoint{Lat: 12.901009, Lon: 77.5980})
	// ~111 m again: accepted.
	f.source.push("u1", domain.GeoPoint{Lat: 12.9020, Lon: 77.5980})
	waitForPoints(t, f.svc, "u1", 3)

	status, err := f.svc.Status("u1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.DistanceKm < 0.21 || status.DistanceKm > 0.24 {
		t.Errorf("distance = %v km, want ~0.222", status.DistanceKm)
	}
}

func TestCaptureService_InvalidFixRejected(t *testing.T) {
	f := newCaptureFixture(nil)
	start := domain.GeoPoint{Lat: 12.9000, Lon: 77.5980}

	if _, err := f.svc.Start(context.Background(), "u1", &start); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.svc.Cancel(context.Background(), "u1")

	f.source.push("u1", domain.GeoPoint{Lat: 200, Lon: 0})
	f.source.push("u1", domain.GeoPoint{Lat: 12.9010, Lon: 77.5980})
	waitForPoints(t, f.svc, "u1", 2)
}

func TestCaptureService_StopSavesRun(t *testing.T) {
	f := newCaptureFixture(nil)
	start := domain.GeoPoint{Lat: 12.9000, Lon: 77.5980}

	if _, err := f.svc.Start(context.Background(), "u1", &start); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.source.push("u1", domain.GeoPoint{Lat: 12.9010, Lon: 77.5980})
	waitForPoints(t, f.svc, "u1", 2)

	result, err := f.svc.Stop(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if result.Outcome != domain.OutcomeInsufficientPoints {
		t.Errorf("outcome = %s, want insufficient_points", result.Outcome)
	}
	if len(f.runs.saved) != 1 {
		t.Fatalf("saved %d runs, want 1", len(f.runs.saved))
	}
	if len(f.runs.saved[0].Points) != 2 {
		t.Errorf("saved run has %d points, want 2", len(f.runs.saved[0].Points))
	}
	if !f.source.subscription("u1").isUnsubscribed() {
		t.Error("feed subscription not released on stop")
	}
	if _, err := f.svc.Status("u1"); !errors.Is(err, domain.ErrNoSession) {
		t.Error("session still registered after stop")
	}
}

func TestCaptureService_StopClaimsTerritory(t *testing.T) {
	f := newCaptureFixture(nil)
	var created *domain.Territory
	f.repo.createFn = func(ctx context.Context, tr *domain.Territory) error {
		created = tr
		return nil
	}
	f.prefs.prefsFn = func(ctx context.Context, userID string) (domain.Preferences, error) {
		return domain.Preferences{TerritoryColor: "#3B82F6"}, nil
	}

	points := closedSquarePath()
	if _, err := f.svc.Start(context.Background(), "u1", &points[0]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, p := range points[1:] {
		f.source.push("u1", p)
	}
	waitForPoints(t, f.svc, "u1", len(points))

	result, err := f.svc.Stop(context.Background(), "u1", "Lalbagh Loop")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if result.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", result.Outcome)
	}
	if created == nil {
		t.Fatal("territory not persisted")
	}
	if created.Name != "Lalbagh Loop" || created.Color != "#3B82F6" {
		t.Errorf("territory = %q / %q, want Lalbagh Loop / #3B82F6", created.Name, created.Color)
	}
	if !f.source.subscription("u1").isUnsubscribed() {
		t.Error("feed subscription not released on stop")
	}
}

func TestCaptureService_StopDefaultsNameAndColor(t *testing.T) {
	f := newCaptureFixture(nil)
	f.repo.listFn = func(ctx context.Context, userID string) ([]domain.Territory, error) {
		return []domain.Territory{{ID: "t1"}, {ID: "t2"}}, nil
	}
	var created *domain.Territory
	f.repo.createFn = func(ctx context.Context, tr *domain.Territory) error {
		created = tr
		return nil
	}

	points := closedSquarePath()
	if _, err := f.svc.Start(context.Background(), "u1", &points[0]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, p := range points[1:] {
		f.source.push("u1", p)
	}
	waitForPoints(t, f.svc, "u1", len(points))

	result, err := f.svc.Stop(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if result.Territory == nil {
		t.Fatal("expected a territory")
	}
	if created.Name != "Territory 3" {
		t.Errorf("default name = %q, want Territory 3", created.Name)
	}
	if created.Color != domain.DefaultPreferences().TerritoryColor {
		t.Errorf("default color = %q, want %q", created.Color, domain.DefaultPreferences().TerritoryColor)
	}
}

func TestCaptureService_StopReportsSponsoredOverlap(t *testing.T) {
	// A sponsored zone that fully contains the capture square.
	zone := seedZone("coffee-zone", 77.5970, 12.8990, 0.004, true)
	f := newCaptureFixture([]domain.Territory{zone})

	points := closedSquarePath()
	if _, err := f.svc.Start(context.Background(), "u1", &points[0]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, p := range points[1:] {
		f.source.push("u1", p)
	}
	waitForPoints(t, f.svc, "u1", len(points))

	result, err := f.svc.Stop(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if result.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", result.Outcome)
	}

	events := f.pub.sponsoredEvents()
	if len(events) != 1 {
		t.Fatalf("got %d sponsored capture events, want 1", len(events))
	}
	ev := events[0]
	if ev.ZoneID != "coffee-zone" || ev.UserID != "u1" {
		t.Errorf("event = %+v, want zone coffee-zone for u1", ev)
	}
	if ev.OverlapAreaKm2 <= 0 {
		t.Errorf("overlap area = %v, want > 0", ev.OverlapAreaKm2)
	}
}

func TestCaptureService_StopPersistenceFailureKeepsResult(t *testing.T) {
	f := newCaptureFixture(nil)
	f.runs.createFn = func(ctx context.Context, r *domain.Run) error {
		return errors.New("db down")
	}

	if _, err := f.svc.Start(context.Background(), "u1", &domain.GeoPoint{Lat: 12.9, Lon: 77.6}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	result, err := f.svc.Stop(context.Background(), "u1", "")
	if !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("Stop = %v, want ErrPersistenceUnavailable", err)
	}
	if result.Run == nil {
		t.Error("classified run lost on persistence failure")
	}
}

func TestCaptureService_StopWithoutSession(t *testing.T) {
	f := newCaptureFixture(nil)

	if _, err := f.svc.Stop(context.Background(), "ghost", ""); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("Stop = %v, want ErrNoSession", err)
	}
}

func TestCaptureService_Cancel(t *testing.T) {
	f := newCaptureFixture(nil)

	if _, err := f.svc.Start(context.Background(), "u1", &domain.GeoPoint{Lat: 12.9, Lon: 77.6}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.svc.Cancel(context.Background(), "u1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if !f.source.subscription("u1").isUnsubscribed() {
		t.Error("feed subscription not released on cancel")
	}
	if len(f.runs.saved) != 0 {
		t.Error("cancelled session persisted a run")
	}
	if _, err := f.svc.Status("u1"); !errors.Is(err, domain.ErrNoSession) {
		t.Error("session still registered after cancel")
	}
	if err := f.svc.Cancel(context.Background(), "u1"); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("second Cancel = %v, want ErrNoSession", err)
	}
}

func TestCaptureService_IngestPublishes(t *testing.T) {
	f := newCaptureFixture(nil)

	fix := domain.PositionFix{UserID: "u1", Location: domain.GeoPoint{Lat: 12.9, Lon: 77.6}}
	if err := f.svc.Ingest(context.Background(), fix); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(f.pub.fixes) != 1 {
		t.Fatalf("published %d fixes, want 1", len(f.pub.fixes))
	}
	if f.pub.fixes[0].Time.IsZero() {
		t.Error("fix timestamp not defaulted")
	}

	bad := domain.PositionFix{UserID: "u1", Location: domain.GeoPoint{Lat: 500, Lon: 0}}
	if err := f.svc.Ingest(context.Background(), bad); !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("Ingest = %v, want ErrInvalidCoordinate", err)
	}
}

func TestCaptureService_IndependentSessions(t *testing.T) {
	f := newCaptureFixture(nil)

	if _, err := f.svc.Start(context.Background(), "u1", &domain.GeoPoint{Lat: 12.9000, Lon: 77.5980}); err != nil {
		t.Fatalf("Start u1: %v", err)
	}
	if _, err := f.svc.Start(context.Background(), "u2", &domain.GeoPoint{Lat: 12.9000, Lon: 77.5980}); err != nil {
		t.Fatalf("Start u2: %v", err)
	}
	defer f.svc.Cancel(context.Background(), "u2")

	f.source.push("u1", domain.GeoPoint{Lat: 12.9010, Lon: 77.5980})
	waitForPoints(t, f.svc, "u1", 2)

	status, err := f.svc.Status("u2")
	if err != nil {
		t.Fatalf("Status u2: %v", err)
	}
	if status.Points != 1 {
		t.Errorf("u2 has %d points, want 1; sessions leaked fixes", status.Points)
	}

	if err := f.svc.Cancel(context.Background(), "u1"); err != nil {
		t.Fatalf("Cancel u1: %v", err)
	}
	if _, err := f.svc.Status("u2"); err != nil {
		t.Error("cancelling u1 tore down u2's session")
	}
}
