// Package seeds holds the static brand territory catalog. The catalog
// is loaded once at startup and injected into the TerritoryService;
// brand zones are never created or mutated at runtime.
package seeds

import (
	"time"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/pkg/geometry"
)

var catalogDate = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

var brandRewards = map[string]domain.Reward{
	"MuscleBlaze": {
		Brand:       "MuscleBlaze",
		Discount:    "₹500 OFF",
		Code:        "CAPTURE500",
		Description: "on your next MuscleBlaze order",
	},
	"Super You": {
		Brand:       "Super You",
		Discount:    "30% OFF",
		Code:        "SUPERYOU30",
		Description: "on all SuperYou products",
	},
	"The Whole Truth": {
		Brand:       "The Whole Truth",
		Discount:    "FREE BAR",
		Code:        "TRUTHBAR",
		Description: "Get 1 protein bar free",
	},
}

type zone struct {
	id    string
	name  string
	brand string
	color string
	ring  domain.Ring
}

// Sponsored zones along Bannerghatta Road, Bangalore.
var zones = []zone{
	{
		id: "brand_muscleblaze_1", name: "MuscleBlaze - Decathlon Bannerghatta",
		brand: "MuscleBlaze", color: "#FF6B00",
		ring: domain.Ring{
			{77.5985, 12.8850}, {77.6020, 12.8850}, {77.6020, 12.8820},
			{77.5985, 12.8820}, {77.5985, 12.8850},
		},
	},
	{
		id: "brand_muscleblaze_2", name: "MuscleBlaze - Meenakshi Mall",
		brand: "MuscleBlaze", color: "#FF6B00",
		ring: domain.Ring{
			{77.5980, 12.9010}, {77.6020, 12.9010}, {77.6020, 12.8980},
			{77.5980, 12.8980}, {77.5980, 12.9010},
		},
	},
	{
		id: "brand_muscleblaze_3", name: "MuscleBlaze - Hulimavu Gate",
		brand: "MuscleBlaze", color: "#FF6B00",
		ring: domain.Ring{
			{77.5950, 12.8920}, {77.5990, 12.8920}, {77.5990, 12.8890},
			{77.5950, 12.8890}, {77.5950, 12.8920},
		},
	},
	{
		id: "brand_superyou_1", name: "Super You - Arekere Signal",
		brand: "Super You", color: "#EF4444",
		ring: domain.Ring{
			{77.5995, 12.9070}, {77.6030, 12.9070}, {77.6030, 12.9040},
			{77.5995, 12.9040}, {77.5995, 12.9070},
		},
	},
	{
		id: "brand_superyou_2", name: "Super You - IIM Bangalore",
		brand: "Super You", color: "#EF4444",
		ring: domain.Ring{
			{77.5940, 12.9110}, {77.5980, 12.9110}, {77.5980, 12.9085},
			{77.5940, 12.9085}, {77.5940, 12.9110},
		},
	},
	{
		id: "brand_twt_1", name: "The Whole Truth - Vega City Mall",
		brand: "The Whole Truth", color: "#6B21A8",
		ring: domain.Ring{
			{77.5960, 12.8960}, {77.6000, 12.8960}, {77.6000, 12.8930},
			{77.5960, 12.8930}, {77.5960, 12.8960},
		},
	},
	{
		id: "brand_twt_2", name: "The Whole Truth - Jayadeva Flyover",
		brand: "The Whole Truth", color: "#6B21A8",
		ring: domain.Ring{
			{77.5920, 12.9150}, {77.5960, 12.9150}, {77.5960, 12.9120},
			{77.5920, 12.9120}, {77.5920, 12.9150},
		},
	},
}

// RewardFor returns the catalog reward for a brand. Unknown brands get
// a zero Reward.
func RewardFor(brand string) domain.Reward {
	return brandRewards[brand]
}

// BrandTerritories returns a fresh copy of the sponsored zone catalog.
// Areas are computed with the same algorithm the classifier and the
// overlap resolver use, so all reported figures are comparable.
func BrandTerritories() []domain.Territory {
	out := make([]domain.Territory, 0, len(zones))
	for _, z := range zones {
		var areaKm2 float64
		if poly, err := geometry.FromRing(z.ring); err == nil {
			areaKm2 = poly.AreaKm2()
		}
		reward := brandRewards[z.brand]
		out = append(out, domain.Territory{
			ID:        z.id,
			UserID:    z.brand,
			Name:      z.name,
			Ring:      append(domain.Ring(nil), z.ring...),
			Color:     z.color,
			AreaKm2:   areaKm2,
			Sponsored: true,
			Reward:    &reward,
			CreatedAt: catalogDate,
		})
	}
	return out
}
