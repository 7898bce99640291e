package models

// Payload is the stage-specific output carried by a successful StageResult.
// Exactly one concrete type exists per stage.
type Payload interface {
	// PayloadStage returns the stage that produces this payload type.
	PayloadStage() Stage
}

// RateTier is one pricing tier extracted from a bill.
type RateTier struct {
	// Tier is the tier label (e.g. "off-peak", "tier-1").
	Tier string `json:"tier"`
	// Rate is the price per unit in the bill's currency.
	Rate float64 `json:"rate"`
}

// BillData holds the structured fields extracted from a utility bill.
type BillData struct {
	// UtilityType is the kind of utility (electricity, water, gas).
	UtilityType string `json:"utility_type"`
	// BillingPeriodStart is the start date in YYYY-MM-DD form.
	BillingPeriodStart string `json:"billing_period_start"`
	// BillingPeriodEnd is the end date in YYYY-MM-DD form.
	BillingPeriodEnd string `json:"billing_period_end"`
	// TotalConsumption is the billed consumption amount.
	TotalConsumption float64 `json:"total_consumption"`
	// ConsumptionUnit is the unit of TotalConsumption (kWh, gallons, therms).
	ConsumptionUnit string `json:"consumption_unit"`
	// TotalCost is the amount due.
	TotalCost float64 `json:"total_cost"`
	// Currency is the ISO currency code.
	Currency string `json:"currency"`
	// PreviousBalance is any carried-over balance, zero if none.
	PreviousBalance float64 `json:"previous_balance"`
	// DueDate is the payment due date in YYYY-MM-DD form.
	DueDate string `json:"due_date"`
	// RateTiers lists the visible pricing tiers, if any.
	RateTiers []RateTier `json:"rate_tiers,omitempty"`
}

// PayloadStage implements Payload.
func (*BillData) PayloadStage() Stage { return StageParser }

// ConsumptionTrend describes the overall direction of consumption.
type ConsumptionTrend struct {
	// TrendType is "increasing", "decreasing", or "stable".
	TrendType string `json:"trend_type"`
	// PercentageChange is the change over the analyzed window.
	PercentageChange float64 `json:"percentage_change"`
}

// UsagePattern is one recurring pattern found in the meter series.
type UsagePattern struct {
	// PatternType is a short identifier (morning_spike, overnight_baseline, ...).
	PatternType string `json:"pattern_type"`
	// Description is a human-readable explanation of the pattern.
	Description string `json:"description"`
}

// PatternSummary holds the meter analyzer's consumption pattern analysis.
type PatternSummary struct {
	// PeakHours are the hours of day with the highest consumption.
	PeakHours []int `json:"peak_hours"`
	// OffPeakHours are the hours of day with the lowest consumption.
	OffPeakHours []int `json:"off_peak_hours"`
	// AverageConsumption is the mean reading over the series.
	AverageConsumption float64 `json:"average_consumption"`
	// TotalConsumption is the sum over the series.
	TotalConsumption float64 `json:"total_consumption"`
	// ConsumptionUnit is the unit of the readings.
	ConsumptionUnit string `json:"consumption_unit"`
	// Trend describes the overall consumption direction.
	Trend ConsumptionTrend `json:"trends"`
	// Patterns lists recurring usage patterns.
	Patterns []UsagePattern `json:"patterns,omitempty"`
	// Insights are natural-language observations about the series.
	Insights []string `json:"insights,omitempty"`
}

// PayloadStage implements Payload.
func (*PatternSummary) PayloadStage() Stage { return StageMeterAnalyzer }

// Anomaly is one unusual reading flagged by the anomaly detector.
type Anomaly struct {
	// Timestamp is the reading time in RFC 3339 form.
	Timestamp string `json:"timestamp"`
	// ConsumptionKWh is the observed reading.
	ConsumptionKWh float64 `json:"consumption_kwh"`
	// ExpectedKWh is the reading predicted by the baseline.
	ExpectedKWh float64 `json:"expected_kwh"`
	// DeviationPercentage is how far the reading deviates from expected.
	DeviationPercentage float64 `json:"deviation_percentage"`
	// AnomalyType is "spike", "drop", or "unusual_pattern".
	AnomalyType string `json:"anomaly_type"`
	// Severity is "low", "medium", or "high".
	Severity string `json:"severity"`
	// PossibleCauses lists likely explanations.
	PossibleCauses []string `json:"possible_causes,omitempty"`
	// CostImpact is the estimated cost of the anomaly.
	CostImpact float64 `json:"cost_impact"`
}

// AnomalySummary aggregates the anomaly list.
type AnomalySummary struct {
	// TotalAnomalies is the number of anomalies found.
	TotalAnomalies int `json:"total_anomalies"`
	// HighSeverityCount is the number of high-severity anomalies.
	HighSeverityCount int `json:"high_severity_count"`
	// EstimatedWaste is the estimated wasted spend across anomalies.
	EstimatedWaste float64 `json:"estimated_waste"`
}

// AnomalyReport holds the anomaly detector's findings.
type AnomalyReport struct {
	// Anomalies lists the detected anomalies, possibly empty.
	Anomalies []Anomaly `json:"anomalies"`
	// Summary aggregates the list.
	Summary AnomalySummary `json:"summary"`
}

// PayloadStage implements Payload.
func (*AnomalyReport) PayloadStage() Stage { return StageAnomalyDetector }

// Recommendation is one actionable savings suggestion.
type Recommendation struct {
	// Priority orders recommendations by impact, 1 is highest.
	Priority int `json:"priority"`
	// Title is the short recommendation title.
	Title string `json:"title"`
	// Description explains the recommendation.
	Description string `json:"description"`
	// Category is appliances, heating_cooling, lighting, behavior, or automation.
	Category string `json:"category"`
	// EstimatedSavingsPercentage is the expected consumption reduction.
	EstimatedSavingsPercentage float64 `json:"estimated_savings_percentage"`
	// EstimatedAnnualSavingsUSD is the expected yearly savings.
	EstimatedAnnualSavingsUSD float64 `json:"estimated_annual_savings_usd"`
	// ImplementationDifficulty is "easy", "medium", or "hard".
	ImplementationDifficulty string `json:"implementation_difficulty"`
	// ImplementationSteps lists concrete steps, if provided.
	ImplementationSteps []string `json:"implementation_steps,omitempty"`
}

// RecommendationSummary aggregates the recommendation list.
type RecommendationSummary struct {
	// TotalRecommendations is the number of recommendations.
	TotalRecommendations int `json:"total_recommendations"`
	// PotentialAnnualSavingsUSD is the combined yearly savings estimate.
	PotentialAnnualSavingsUSD float64 `json:"potential_annual_savings_usd"`
	// QuickWins lists the easiest high-impact recommendations.
	QuickWins []string `json:"quick_wins,omitempty"`
}

// RecommendationSet holds the recommendation engine's output.
type RecommendationSet struct {
	// Recommendations lists suggestions ordered by priority.
	Recommendations []Recommendation `json:"recommendations"`
	// Summary aggregates the list.
	Summary RecommendationSummary `json:"summary"`
}

// PayloadStage implements Payload.
func (*RecommendationSet) PayloadStage() Stage { return StageRecommendation }
