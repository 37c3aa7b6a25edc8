package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	natsadapter "github.com/capturegame/capture/internal/adapters/nats"
	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/pkg/config"
)

// Walk simulator: drives noisy GPS loops through the live pipeline.
// Each walker starts a capture session over the API, publishes fixes to
// NATS, and stops the session so the path gets classified.

var (
	walkers  = flag.Int("walkers", 3, "number of simulated players")
	apiBase  = flag.String("api", "http://localhost:8080", "capture API base URL")
	lat      = flag.Float64("lat", 12.9000, "loop center latitude")
	lon      = flag.Float64("lon", 77.5980, "loop center longitude")
	radiusM  = flag.Float64("radius", 120, "loop radius in meters")
	steps    = flag.Int("steps", 40, "fixes per loop")
	interval = flag.Duration("interval", 1*time.Second, "delay between fixes")
	jitterM  = flag.Float64("jitter", 3, "GPS noise amplitude in meters")
)

func main() {
	flag.Parse()

	cfg, err := config.Load("capture-simulate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	var wg sync.WaitGroup
	for i := 0; i < *walkers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("sim-walker-%d", n)
			if err := walk(ctx, pub, userID, n); err != nil {
				log.Printf("ERROR [%s]: %v", userID, err)
			}
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

// walk runs one closed loop for a user: start session, publish fixes
// around a circle with GPS noise, stop session, report the outcome.
func walk(ctx context.Context, pub *natsadapter.Publisher, userID string, n int) error {
	// Offset each walker so loops don't stack on one spot.
	centerLat := *lat + float64(n)*0.004
	centerLon := *lon + float64(n)*0.004

	if err := post("/v1/capture/start", map[string]any{
		"user_id": userID,
		"lat":     centerLat,
		"lon":     centerLon,
	}); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	// Meters to degrees at this latitude.
	latPerM := 1.0 / 111320.0
	lonPerM := 1.0 / (111320.0 * math.Cos(centerLat*math.Pi/180))

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(n)))

	for i := 0; i <= *steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(*interval):
		}

		angle := 2 * math.Pi * float64(i) / float64(*steps)
		noiseLat := (rng.Float64()*2 - 1) * *jitterM * latPerM
		noiseLon := (rng.Float64()*2 - 1) * *jitterM * lonPerM

		fix := domain.PositionFix{
			Time:   time.Now(),
			UserID: userID,
			Location: domain.GeoPoint{
				Lat: centerLat + *radiusM*math.Sin(angle)*latPerM + noiseLat,
				Lon: centerLon + *radiusM*math.Cos(angle)*lonPerM + noiseLon,
			},
			AccuracyM: *jitterM,
		}
		if err := pub.PublishPositionFix(ctx, &fix); err != nil {
			return fmt.Errorf("publish fix %d: %w", i, err)
		}
	}

	if err := post("/v1/capture/stop", map[string]any{
		"user_id": userID,
		"name":    fmt.Sprintf("Simulated Loop %d", n+1),
	}); err != nil {
		return fmt.Errorf("stop session: %w", err)
	}

	log.Printf("[%s] loop finished", userID)
	return nil
}

func post(path string, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(*apiBase+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return nil
}
