package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	valkeyadapter "github.com/capturegame/capture/internal/adapters/valkey"
	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/usecases"
)

// --- Mock TerritoryRepository ---

type mockTerritoryRepo struct {
	createFn      func(ctx context.Context, t *domain.Territory) error
	listFn        func(ctx context.Context, userID string) ([]domain.Territory, error)
	getByIDFn     func(ctx context.Context, id string) (*domain.Territory, error)
	findNearbyFn  func(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Territory, error)
	claimFn       func(ctx context.Context, id, newOwnerID, newColor string) error
	deleteFn      func(ctx context.Context, id string) error
	leaderboardFn func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

func (m *mockTerritoryRepo) Create(ctx context.Context, t *domain.Territory) error {
	if m.createFn != nil {
		return m.createFn(ctx, t)
	}
	return nil
}

func (m *mockTerritoryRepo) List(ctx context.Context, userID string) ([]domain.Territory, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockTerritoryRepo) GetByID(ctx context.Context, id string) (*domain.Territory, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrTerritoryNotFound
}

func (m *mockTerritoryRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Territory, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radiusMeters, limit)
	}
	return nil, nil
}

func (m *mockTerritoryRepo) Claim(ctx context.Context, id, newOwnerID, newColor string) error {
	if m.claimFn != nil {
		return m.claimFn(ctx, id, newOwnerID, newColor)
	}
	return nil
}

func (m *mockTerritoryRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockTerritoryRepo) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if m.leaderboardFn != nil {
		return m.leaderboardFn(ctx, limit)
	}
	return nil, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	fixes     []*domain.PositionFix
	created   []*domain.Territory
	claimed   []*domain.Territory
	runs      []*domain.Run
	sponsored []*domain.SponsoredCapture
}

func (m *mockPublisher) PublishPositionFix(ctx context.Context, fix *domain.PositionFix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixes = append(m.fixes, fix)
	return nil
}

func (m *mockPublisher) PublishTerritoryCreated(ctx context.Context, t *domain.Territory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, t)
	return nil
}

func (m *mockPublisher) PublishTerritoryClaimed(ctx context.Context, t *domain.Territory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimed = append(m.claimed, t)
	return nil
}

func (m *mockPublisher) PublishRunSaved(ctx context.Context, r *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

func (m *mockPublisher) PublishSponsoredCapture(ctx context.Context, ev *domain.SponsoredCapture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sponsored = append(m.sponsored, ev)
	return nil
}

func (m *mockPublisher) sponsoredEvents() []*domain.SponsoredCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.SponsoredCapture(nil), m.sponsored...)
}

// --- Mock CacheService ---

type mockCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return data, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	m.deletes = append(m.deletes, key)
	return nil
}

// --- Tests ---

func seedZone(id string, lon, lat, side float64, sponsored bool) domain.Territory {
	t := domain.Territory{
		ID:     id,
		UserID: "brand:" + id,
		Name:   id,
		Ring: domain.Ring{
			{lon, lat},
			{lon + side, lat},
			{lon + side, lat + side},
			{lon, lat + side},
			{lon, lat},
		},
		Color:     "#F59E0B",
		Sponsored: sponsored,
	}
	if sponsored {
		t.Reward = &domain.Reward{Brand: id, Discount: "20% off", Code: "PROMO"}
	}
	return t
}

func TestTerritoryService_ListAllMergesSeeds(t *testing.T) {
	repo := &mockTerritoryRepo{
		listFn: func(ctx context.Context, userID string) ([]domain.Territory, error) {
			if userID != "" {
				t.Errorf("ListAll queried with userID %q, want empty", userID)
			}
			return []domain.Territory{{ID: "t1"}, {ID: "t2"}}, nil
		},
	}
	seeds := []domain.Territory{seedZone("zone-a", 77.59, 12.90, 0.002, true)}
	svc := usecases.NewTerritoryService(repo, seeds, nil, nil)

	all, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d territories, want 3", len(all))
	}
	// Persisted first, seeds appended.
	if all[0].ID != "t1" || all[1].ID != "t2" || all[2].ID != "zone-a" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}
}

func TestTerritoryService_ListAllUsesCache(t *testing.T) {
	calls := 0
	repo := &mockTerritoryRepo{
		listFn: func(ctx context.Context, userID string) ([]domain.Territory, error) {
			calls++
			return []domain.Territory{{ID: "t1"}}, nil
		},
	}
	svc := usecases.NewTerritoryService(repo, nil, newMockCache(), nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.ListAll(context.Background()); err != nil {
			t.Fatalf("ListAll: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("repository hit %d times, want 1 (cached afterwards)", calls)
	}
}

func TestTerritoryService_ListAllToleratesDegradedCache(t *testing.T) {
	repo := &mockTerritoryRepo{
		listFn: func(ctx context.Context, userID string) ([]domain.Territory, error) {
			return []domain.Territory{{ID: "t1"}}, nil
		},
	}
	// A nil *valkey.Cache behind the interface is what the API wires
	// when valkey is down at startup; reads must fall through to the
	// repository instead of panicking.
	var degraded *valkeyadapter.Cache
	svc := usecases.NewTerritoryService(repo, nil, degraded, nil)

	all, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll with degraded cache: %v", err)
	}
	if len(all) != 1 || all[0].ID != "t1" {
		t.Errorf("got %+v, want repository data", all)
	}
}

func TestTerritoryService_CreateInvalidatesCache(t *testing.T) {
	calls := 0
	repo := &mockTerritoryRepo{
		listFn: func(ctx context.Context, userID string) ([]domain.Territory, error) {
			calls++
			return nil, nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewTerritoryService(repo, nil, newMockCache(), pub)

	if _, err := svc.ListAll(context.Background()); err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if err := svc.Create(context.Background(), &domain.Territory{ID: "t-new"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.ListAll(context.Background()); err != nil {
		t.Fatalf("ListAll after create: %v", err)
	}
	if calls != 2 {
		t.Errorf("repository hit %d times, want 2 (cache invalidated by create)", calls)
	}
	if len(pub.created) != 1 || pub.created[0].ID != "t-new" {
		t.Error("territory created event not published")
	}
}

func TestTerritoryService_GetChecksSeedsFirst(t *testing.T) {
	repo := &mockTerritoryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Territory, error) {
			t.Error("repository queried for a seed id")
			return nil, domain.ErrTerritoryNotFound
		},
	}
	seeds := []domain.Territory{seedZone("zone-a", 77.59, 12.90, 0.002, true)}
	svc := usecases.NewTerritoryService(repo, seeds, nil, nil)

	got, err := svc.Get(context.Background(), "zone-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "zone-a" || !got.Sponsored {
		t.Errorf("got %+v, want seed zone-a", got)
	}
}

func TestTerritoryService_FindOverlaps(t *testing.T) {
	stored := domain.Territory{
		ID: "t1",
		Ring: domain.Ring{
			{77.5980, 12.9000},
			{77.6000, 12.9000},
			{77.6000, 12.9020},
			{77.5980, 12.9020},
			{77.5980, 12.9000},
		},
	}
	farAway := domain.Territory{
		ID: "t2",
		Ring: domain.Ring{
			{77.7000, 12.9500},
			{77.7010, 12.9500},
			{77.7010, 12.9510},
			{77.7000, 12.9510},
			{77.7000, 12.9500},
		},
	}
	repo := &mockTerritoryRepo{
		listFn: func(ctx context.Context, userID string) ([]domain.Territory, error) {
			return []domain.Territory{stored, farAway}, nil
		},
	}
	svc := usecases.NewTerritoryService(repo, nil, nil, nil)

	// Candidate overlapping half of t1.
	candidate := domain.Ring{
		{77.5990, 12.9000},
		{77.6010, 12.9000},
		{77.6010, 12.9020},
		{77.5990, 12.9020},
		{77.5990, 12.9000},
	}

	overlaps, err := svc.FindOverlaps(context.Background(), candidate)
	if err != nil {
		t.Fatalf("FindOverlaps: %v", err)
	}
	if len(overlaps) != 1 {
		t.Fatalf("got %d overlaps, want 1", len(overlaps))
	}
	if overlaps[0].Territory.ID != "t1" {
		t.Errorf("overlap territory = %s, want t1", overlaps[0].Territory.ID)
	}
	if overlaps[0].OverlapAreaKm2 <= 0 {
		t.Errorf("overlap area = %v, want > 0", overlaps[0].OverlapAreaKm2)
	}
}

func TestTerritoryService_FindOverlapsSkipsMalformedRing(t *testing.T) {
	broken := domain.Territory{ID: "bad", Ring: domain.Ring{{0, 0}, {1, 1}}}
	good := domain.Territory{
		ID: "good",
		Ring: domain.Ring{
			{77.5980, 12.9000},
			{77.6000, 12.9000},
			{77.6000, 12.9020},
			{77.5980, 12.9020},
			{77.5980, 12.9000},
		},
	}
	repo := &mockTerritoryRepo{
		listFn: func(ctx context.Context, userID string) ([]domain.Territory, error) {
			return []domain.Territory{broken, good}, nil
		},
	}
	svc := usecases.NewTerritoryService(repo, nil, nil, nil)

	overlaps, err := svc.FindOverlaps(context.Background(), good.Ring)
	if err != nil {
		t.Fatalf("FindOverlaps: %v", err)
	}
	if len(overlaps) != 1 || overlaps[0].Territory.ID != "good" {
		t.Errorf("got %d overlaps, want only the well-formed territory", len(overlaps))
	}
}

func TestTerritoryService_FindOverlapsRejectsBadCandidate(t *testing.T) {
	svc := usecases.NewTerritoryService(&mockTerritoryRepo{}, nil, nil, nil)

	if _, err := svc.FindOverlaps(context.Background(), domain.Ring{{0, 0}, {1, 1}}); err == nil {
		t.Error("expected error for a malformed candidate ring")
	}
}

func TestTerritoryService_FindNearbyIncludesSeeds(t *testing.T) {
	repo := &mockTerritoryRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Territory, error) {
			return []domain.Territory{{ID: "t1"}}, nil
		},
	}
	seeds := []domain.Territory{
		seedZone("near-zone", 77.5980, 12.9000, 0.001, true),
		seedZone("far-zone", 77.8000, 13.1000, 0.001, true),
	}
	svc := usecases.NewTerritoryService(repo, seeds, nil, nil)

	got, err := svc.FindNearby(context.Background(), 12.9000, 77.5980, 500, 10)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d territories, want persisted t1 plus near-zone", len(got))
	}
	if got[0].ID != "t1" || got[1].ID != "near-zone" {
		t.Errorf("unexpected results: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestTerritoryService_Claim(t *testing.T) {
	var claimedID, claimedOwner, claimedColor string
	lookups := 0
	repo := &mockTerritoryRepo{
		claimFn: func(ctx context.Context, id, newOwnerID, newColor string) error {
			claimedID, claimedOwner, claimedColor = id, newOwnerID, newColor
			return nil
		},
		getByIDFn: func(ctx context.Context, id string) (*domain.Territory, error) {
			lookups++
			return &domain.Territory{ID: id, UserID: "u1", Color: "#EF4444", AreaKm2: 0.5}, nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewTerritoryService(repo, nil, nil, pub)

	got, err := svc.Claim(context.Background(), "t1", "u2", "#10B981")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimedID != "t1" || claimedOwner != "u2" || claimedColor != "#10B981" {
		t.Errorf("repo claim called with (%s, %s, %s)", claimedID, claimedOwner, claimedColor)
	}
	if got == nil || got.UserID != "u2" || got.Color != "#10B981" {
		t.Errorf("claimed territory = %+v, want owner u2 and color #10B981", got)
	}
	if got.AreaKm2 != 0.5 {
		t.Errorf("claimed territory area = %v, want geometry untouched", got.AreaKm2)
	}
	// A single lookup before the update; success never depends on a
	// refetch after the row changed hands.
	if lookups != 1 {
		t.Errorf("repo GetByID called %d times, want 1", lookups)
	}
	if len(pub.claimed) != 1 || pub.claimed[0].UserID != "u2" {
		t.Error("territory claimed event not published with new owner")
	}
}

func TestTerritoryService_ClaimLookupFailureReportsError(t *testing.T) {
	storeDown := errors.New("store down")
	updated := false
	repo := &mockTerritoryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Territory, error) {
			return nil, storeDown
		},
		claimFn: func(ctx context.Context, id, newOwnerID, newColor string) error {
			updated = true
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewTerritoryService(repo, nil, nil, pub)

	got, err := svc.Claim(context.Background(), "t1", "u2", "#10B981")
	if !errors.Is(err, storeDown) {
		t.Errorf("Claim error = %v, want the store failure", err)
	}
	// The caller must never see a silent (nil, nil) outcome.
	if got != nil {
		t.Errorf("claim returned %+v alongside a failure", got)
	}
	if updated {
		t.Error("ownership updated despite the failed lookup")
	}
	if len(pub.claimed) != 0 {
		t.Error("claim event published for a failed claim")
	}
}

func TestTerritoryService_ClaimNotFound(t *testing.T) {
	repo := &mockTerritoryRepo{
		claimFn: func(ctx context.Context, id, newOwnerID, newColor string) error {
			return domain.ErrTerritoryNotFound
		},
	}
	svc := usecases.NewTerritoryService(repo, nil, nil, nil)

	if _, err := svc.Claim(context.Background(), "missing", "u2", "#fff"); !errors.Is(err, domain.ErrTerritoryNotFound) {
		t.Errorf("Claim = %v, want ErrTerritoryNotFound", err)
	}
}
