package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/capturegame/capture/internal/core/domain"
)

// GameStats holds row counts from the game tables.
type GameStats struct {
	Users       int    `json:"users"`
	Territories int    `json:"territories"`
	Runs        int    `json:"runs"`
	Coupons     int    `json:"coupons"`
	LastCapture string `json:"last_capture,omitempty"`
}

// GameStatsHandler returns row counts from the game tables.
func GameStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats GameStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM users),
				(SELECT count(*) FROM territories),
				(SELECT count(*) FROM runs),
				(SELECT count(*) FROM coupons),
				COALESCE((SELECT max(created_at)::text FROM territories), '')
		`)
		if err := row.Scan(&stats.Users, &stats.Territories, &stats.Runs,
			&stats.Coupons, &stats.LastCapture); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

type createUserRequest struct {
	Email       string              `json:"email"`
	DisplayName string              `json:"display_name"`
	Preferences *domain.Preferences `json:"preferences"`
}

// CreateUserHandler registers a new player.
func CreateUserHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createUserRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Email == "" || req.DisplayName == "" {
			return errBadRequest(c, "email and display_name are required")
		}

		user, err := deps.Users.Create(c.Context(), req.Email, req.DisplayName, req.Preferences)
		if errors.Is(err, domain.ErrEmailTaken) {
			return errConflict(c, "email already registered")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(201).JSON(user)
	}
}

// GetUserHandler returns a player by id.
func GetUserHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := deps.Users.GetByID(c.Context(), c.Params("id"))
		if errors.Is(err, domain.ErrUserNotFound) {
			return errNotFound(c, "user not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(user)
	}
}

// UpdatePreferencesHandler replaces a player's preferences.
func UpdatePreferencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var prefs domain.Preferences
		if err := c.BodyParser(&prefs); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		err := deps.Users.UpdatePreferences(c.Context(), c.Params("id"), prefs)
		if errors.Is(err, domain.ErrUserNotFound) {
			return errNotFound(c, "user not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(prefs)
	}
}

// UserStatsHandler returns display-formatted totals for a player.
func UserStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := deps.Users.Stats(c.Context(), c.Params("id"))
		if errors.Is(err, domain.ErrUserNotFound) {
			return errNotFound(c, "user not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(stats)
	}
}

// ListRunsHandler returns a player's saved runs.
func ListRunsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		runs, err := deps.Runs.ListByUser(c.Context(), c.Params("id"))
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(runs)
		if offset >= total {
			runs = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			runs = runs[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: runs, Pagination: pg})
	}
}

// ListTerritoriesHandler returns the shared territory map, brand zones
// included. With user_id it narrows to one owner's territories.
func ListTerritoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Query("user_id")

		var (
			territories []domain.Territory
			err         error
		)
		if userID != "" {
			territories, err = deps.Territories.ListByUser(c.Context(), userID)
		} else {
			territories, err = deps.Territories.ListAll(c.Context())
		}
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=15")
		return c.JSON(territories)
	}
}

// GetTerritoryHandler returns a single territory by id.
func GetTerritoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := deps.Territories.Get(c.Context(), c.Params("id"))
		if errors.Is(err, domain.ErrTerritoryNotFound) {
			return errNotFound(c, "territory not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(t)
	}
}

// NearbyTerritoriesHandler returns territories within a radius of a point.
func NearbyTerritoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 50)

		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000 meters")
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		territories, err := deps.Territories.FindNearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=30")
		return c.JSON(territories)
	}
}

type overlapsRequest struct {
	Coordinates domain.Ring `json:"coordinates"`
}

// FindOverlapsHandler computes intersections between a candidate ring
// and every territory on the map.
func FindOverlapsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req overlapsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		overlaps, err := deps.Territories.FindOverlaps(c.Context(), req.Coordinates)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(overlaps)
	}
}

type claimRequest struct {
	NewOwnerID string `json:"new_owner_id"`
	NewColor   string `json:"new_color"`
}

// ClaimTerritoryHandler transfers territory ownership. Last writer
// wins; geometry never changes.
func ClaimTerritoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req claimRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.NewOwnerID == "" {
			return errBadRequest(c, "new_owner_id is required")
		}

		t, err := deps.Territories.Claim(c.Context(), c.Params("id"), req.NewOwnerID, req.NewColor)
		if errors.Is(err, domain.ErrTerritoryNotFound) {
			return errNotFound(c, "territory not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(t)
	}
}

// DeleteTerritoryHandler removes a territory from the map.
func DeleteTerritoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := deps.Territories.Delete(c.Context(), c.Params("id"))
		if errors.Is(err, domain.ErrTerritoryNotFound) {
			return errNotFound(c, "territory not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// LeaderboardHandler returns the top players by captured area.
func LeaderboardHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 10)
		entries, err := deps.Leaderboard.Top(c.Context(), limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(entries)
	}
}

type startCaptureRequest struct {
	UserID string   `json:"user_id"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
}

// StartCaptureHandler opens a capture session for the player.
func StartCaptureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req startCaptureRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.UserID == "" {
			return errBadRequest(c, "user_id is required")
		}

		var initial *domain.GeoPoint
		if req.Lat != nil && req.Lon != nil {
			initial = &domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon}
		}

		status, err := deps.Capture.Start(c.Context(), req.UserID, initial)
		switch {
		case errors.Is(err, domain.ErrSessionActive):
			return errConflict(c, "a capture session is already running")
		case errors.Is(err, domain.ErrInvalidCoordinate):
			return errBadRequest(c, err.Error())
		case errors.Is(err, domain.ErrLocationUnavailable):
			return errUnavailable(c, "location feed unavailable")
		case err != nil:
			return errInternal(c, err.Error())
		}
		return c.Status(201).JSON(status)
	}
}

type fixRequest struct {
	UserID    string    `json:"user_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	AccuracyM float64   `json:"accuracy"`
	Time      time.Time `json:"time"`
}

// IngestFixHandler accepts a GPS fix and publishes it to the player's
// live feed. The session consumes it asynchronously.
func IngestFixHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req fixRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.UserID == "" {
			return errBadRequest(c, "user_id is required")
		}

		fix := domain.PositionFix{
			Time:      req.Time,
			UserID:    req.UserID,
			Location:  domain.GeoPoint{Lat: req.Lat, Lon: req.Lon},
			AccuracyM: req.AccuracyM,
		}

		err := deps.Capture.Ingest(c.Context(), fix)
		switch {
		case errors.Is(err, domain.ErrNoSession):
			return errNotFound(c, "no active capture session")
		case errors.Is(err, domain.ErrInvalidCoordinate):
			return errBadRequest(c, err.Error())
		case err != nil:
			return errInternal(c, err.Error())
		}
		return c.SendStatus(202)
	}
}

// CaptureStatusHandler reports the live session state.
func CaptureStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return errBadRequest(c, "user_id query parameter is required")
		}

		status, err := deps.Capture.Status(userID)
		if errors.Is(err, domain.ErrNoSession) {
			return errNotFound(c, "no active capture session")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(status)
	}
}

// LastPositionHandler serves a player's last known position, as
// recorded by the tracker worker from the fix stream.
func LastPositionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return errBadRequest(c, "user_id query parameter is required")
		}

		fix, err := deps.Presence.LastKnown(c.Context(), userID)
		if errors.Is(err, domain.ErrPresenceNotFound) {
			return errNotFound(c, "no recent position for user")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fix)
	}
}

type stopCaptureRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// StopCaptureHandler ends the session and classifies the recorded path.
// The classification is returned even when persistence fails, so the
// player always learns the outcome.
func StopCaptureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req stopCaptureRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.UserID == "" {
			return errBadRequest(c, "user_id is required")
		}

		result, err := deps.Capture.Stop(c.Context(), req.UserID, req.Name)
		if errors.Is(err, domain.ErrNoSession) {
			return errNotFound(c, "no active capture session")
		}
		if err != nil {
			return c.Status(503).JSON(fiber.Map{
				"result": result,
				"error":  "saving failed, the result was not recorded",
			})
		}
		return c.JSON(result)
	}
}

type cancelCaptureRequest struct {
	UserID string `json:"user_id"`
}

// CancelCaptureHandler discards the session without classification.
func CancelCaptureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req cancelCaptureRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.UserID == "" {
			return errBadRequest(c, "user_id is required")
		}

		err := deps.Capture.Cancel(c.Context(), req.UserID)
		if errors.Is(err, domain.ErrNoSession) {
			return errNotFound(c, "no active capture session")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// GetCouponHandler returns an issued coupon by code.
func GetCouponHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		coupon, err := deps.Rewards.GetByCode(c.Context(), c.Params("code"))
		if errors.Is(err, domain.ErrCouponNotFound) {
			return errNotFound(c, "coupon not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(coupon)
	}
}

// RedeemCouponHandler marks a coupon as used.
func RedeemCouponHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := deps.Rewards.Redeem(c.Context(), c.Params("code"))
		if errors.Is(err, domain.ErrCouponNotFound) {
			return errNotFound(c, "coupon not found, expired, or already redeemed")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"status": "redeemed"})
	}
}
