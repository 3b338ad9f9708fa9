package analysis

import (
	"math"

	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/geomath"
)

type CapitalCosts struct {
	Total                 float64 `json:"total"`
	Base                  float64 `json:"base"`
	InfrastructurePremium float64 `json:"infrastructurePremium"`
	LocationPremium       float64 `json:"locationPremium"`
}

// OperationalBenefits are proxy savings in million per year.
type OperationalBenefits struct {
	RenewableEnergySavings  float64 `json:"renewableEnergySavings"`
	TransportSavings        float64 `json:"transportSavings"`
	InfrastructureSynergies float64 `json:"infrastructureSynergies"`
	Total                   float64 `json:"total"`
}

type EconomicAnalysis struct {
	CapitalCosts        CapitalCosts        `json:"capitalCosts"`
	OperationalBenefits OperationalBenefits `json:"operationalBenefits"`
	PaybackYears        float64             `json:"paybackYears"`
	NPV                 float64             `json:"npv"`
	// NearestPipelineKm is nil when the dataset has no pipelines.
	NearestPipelineKm      *float64 `json:"nearestPipelineKm,omitempty"`
	NearbyPipelineLengthKm float64  `json:"nearbyPipelineLengthKm"`
}

func (a *Analyzer) Economic(score models.SiteScore, nearby NearbyCounts, ds models.Dataset) EconomicAnalysis {
	cost := score.EstimatedCost
	renewable := 0.5 * float64(nearby.Renewables)
	transport := 0.3 * float64(nearby.DemandCenters)
	synergies := 0.4 * float64(nearby.Plants)

	out := EconomicAnalysis{
		CapitalCosts: CapitalCosts{
			Total:                 cost,
			Base:                  round2(cost * 0.7),
			InfrastructurePremium: round2(cost * 0.2),
			LocationPremium:       round2(cost * 0.1),
		},
		OperationalBenefits: OperationalBenefits{
			RenewableEnergySavings:  round2(renewable),
			TransportSavings:        round2(transport),
			InfrastructureSynergies: round2(synergies),
			Total:                   round2(renewable + transport + synergies),
		},
		PaybackYears: round2(math.Max(5, 15-score.TotalScore/10)),
		NPV:          round2(cost * (score.TotalScore / 100) * 1.5),
	}

	point := score.Point()
	nearest := math.Inf(1)
	length := 0.0
	for _, asset := range ds.Infrastructure {
		if !asset.IsPipeline() {
			continue
		}
		vertices := asset.Vertices()
		if d := geomath.DistanceToLine(point, vertices); d < nearest {
			nearest = d
		}
		if a.pipelineNearby(point, asset) {
			length += geomath.LineLength(vertices)
		}
	}
	if !math.IsInf(nearest, 1) {
		v := round2(nearest)
		out.NearestPipelineKm = &v
	}
	out.NearbyPipelineLengthKm = round2(length)
	return out
}

type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "Low"
	ImpactModerate ImpactLevel = "Moderate"
	ImpactHigh     ImpactLevel = "High"
)

// EnvironmentalImpacts are fixed qualitative labels until site-level surveys are available.
type EnvironmentalImpacts struct {
	Water  ImpactLevel `json:"water"`
	Land   ImpactLevel `json:"land"`
	Noise  ImpactLevel `json:"noise"`
	Visual ImpactLevel `json:"visual"`
}

type EnvironmentalAnalysis struct {
	CarbonReductionTonnesPerYear  float64              `json:"carbonReductionTonnesPerYear"`
	LifetimeCarbonReductionTonnes float64              `json:"lifetimeCarbonReductionTonnes"`
	SustainabilityScore           float64              `json:"sustainabilityScore"`
	Impacts                       EnvironmentalImpacts `json:"impacts"`
}

const facilityLifetimeYears = 20

func Environmental(_ models.SiteScore, nearby NearbyCounts) EnvironmentalAnalysis {
	annual := float64(nearby.DemandCenters) * 1000
	return EnvironmentalAnalysis{
		CarbonReductionTonnesPerYear:  annual,
		LifetimeCarbonReductionTonnes: annual * facilityLifetimeYears,
		SustainabilityScore:           math.Min(100, float64(nearby.Renewables)*20),
		Impacts: EnvironmentalImpacts{
			Water:  ImpactLow,
			Land:   ImpactModerate,
			Noise:  ImpactLow,
			Visual: ImpactModerate,
		},
	}
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

type RiskAnalysis struct {
	RenewableReliability RiskLevel `json:"renewableReliability"`
	DemandStability      RiskLevel `json:"demandStability"`
	Regulatory           RiskLevel `json:"regulatory"`
	Infrastructure       RiskLevel `json:"infrastructure"`
	// OverallRiskScore runs from 1 (lowest risk) to 10.
	OverallRiskScore float64 `json:"overallRiskScore"`
}

func Risk(score models.SiteScore, nearby NearbyCounts) RiskAnalysis {
	f := score.Factors
	out := RiskAnalysis{
		RenewableReliability: RiskMedium,
		DemandStability:      RiskMedium,
		Regulatory:           RiskMedium,
		Infrastructure:       RiskMedium,
		OverallRiskScore:     round2(math.Max(1, 10-score.TotalScore/10)),
	}
	if f.RenewableScore > 70 {
		out.RenewableReliability = RiskLow
	}
	if f.DemandScore > 60 {
		out.DemandStability = RiskLow
	}
	switch {
	case f.RegulatoryScore > 70:
		out.Regulatory = RiskLow
	case f.RegulatoryScore < 40:
		out.Regulatory = RiskHigh
	}
	if nearby.Pipelines > 0 || nearby.Plants > 0 {
		out.Infrastructure = RiskLow
	}
	return out
}
