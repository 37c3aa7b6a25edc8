package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"

	"github.com/capturegame/capture/internal/adapters/postgres"
	"github.com/capturegame/capture/internal/core/domain"
)

func TestRunRepo_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := postgres.NewRunRepo(mock)

	run := &domain.Run{
		ID:     "r1",
		UserID: "u1",
		Points: []domain.GeoPoint{
			{Lat: 12.9000, Lon: 77.5980},
			{Lat: 12.9010, Lon: 77.5980},
		},
		DistanceKm:  0.11,
		DurationSec: 60,
		CreatedAt:   time.Now(),
	}

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(run.ID, run.UserID, run.Points, run.DistanceKm, run.DurationSec, run.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunRepo_ListByUser(t *testing.T) {
	mock := newMockPool(t)
	repo := postgres.NewRunRepo(mock)

	points := []domain.GeoPoint{{Lat: 12.9, Lon: 77.6}}
	rows := pgxmock.NewRows([]string{
		"id", "user_id", "points", "distance_km", "duration_sec", "created_at",
	}).
		AddRow("r2", "u1", points, 1.2, 480, time.Now()).
		AddRow("r1", "u1", points, 0.8, 300, time.Now().Add(-time.Hour))

	mock.ExpectQuery(`SELECT .+ FROM runs WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs("u1").
		WillReturnRows(rows)

	runs, err := repo.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "r2" {
		t.Errorf("first run = %s, want newest r2", runs[0].ID)
	}
	if len(runs[0].Points) != 1 {
		t.Errorf("points lost in round-trip")
	}
}
