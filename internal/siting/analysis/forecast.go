package analysis

import (
	"fmt"
	"math"

	"h2-siting-workers/internal/models"
)

const (
	DefaultForecastYears = 10
	MaxForecastYears     = 30

	hoursPerYear = 8760.0
	// Electrolysis at 55 kWh/kg is 55 MWh per tonne of hydrogen.
	mwhPerTonneH2          = 55.0
	co2AvoidedPerTonneH2   = 10.0
	annualStackDegradation = 0.01
)

// rampUp is the share of nameplate output reached in the first operating years.
var rampUp = []float64{0.60, 0.85}

type ForecastYear struct {
	Year             int     `json:"year"`
	Utilization      float64 `json:"utilization"`
	EnergyMWh        float64 `json:"energyMWh"`
	HydrogenTonnes   float64 `json:"hydrogenTonnes"`
	CO2AvoidedTonnes float64 `json:"co2AvoidedTonnes"`
}

type ProductionForecast struct {
	Latitude              float64        `json:"latitude"`
	Longitude             float64        `json:"longitude"`
	CapacityMW            float64        `json:"capacityMW"`
	CapacityFactor        float64        `json:"capacityFactor"`
	Years                 []ForecastYear `json:"years"`
	TotalHydrogenTonnes   float64        `json:"totalHydrogenTonnes"`
	TotalCO2AvoidedTonnes float64        `json:"totalCO2AvoidedTonnes"`
}

// CapacityFactor scales with the renewable factor from 25% up to 60%.
func CapacityFactor(renewableScore float64) float64 {
	return 0.25 + 0.35*math.Max(0, math.Min(100, renewableScore))/100
}

// Forecast projects yearly output of the recommended capacity. years 0 means the default horizon.
func Forecast(score models.SiteScore, years int) (*ProductionForecast, error) {
	if years == 0 {
		years = DefaultForecastYears
	}
	if years < 1 || years > MaxForecastYears {
		return nil, fmt.Errorf("%w: %d (allowed 1-%d)", ErrInvalidHorizon, years, MaxForecastYears)
	}

	cf := CapacityFactor(score.Factors.RenewableScore)
	nameplate := score.RecommendedCapacity * hoursPerYear * cf

	out := &ProductionForecast{
		Latitude:       score.Latitude,
		Longitude:      score.Longitude,
		CapacityMW:     score.RecommendedCapacity,
		CapacityFactor: round2(cf),
		Years:          make([]ForecastYear, 0, years),
	}
	for y := 1; y <= years; y++ {
		utilization := 1.0
		if y <= len(rampUp) {
			utilization = rampUp[y-1]
		}
		utilization *= math.Pow(1-annualStackDegradation, float64(y-1))

		energy := nameplate * utilization
		h2 := energy / mwhPerTonneH2
		co2 := h2 * co2AvoidedPerTonneH2
		out.Years = append(out.Years, ForecastYear{
			Year:             y,
			Utilization:      round2(utilization),
			EnergyMWh:        round2(energy),
			HydrogenTonnes:   round2(h2),
			CO2AvoidedTonnes: round2(co2),
		})
		out.TotalHydrogenTonnes += h2
		out.TotalCO2AvoidedTonnes += co2
	}
	out.TotalHydrogenTonnes = round2(out.TotalHydrogenTonnes)
	out.TotalCO2AvoidedTonnes = round2(out.TotalCO2AvoidedTonnes)
	return out, nil
}
