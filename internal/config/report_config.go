package config

import "time"

const (
	// Reputation
	InitialReputation    = 1000
	MinReputation        = 0
	ConfirmedReportBonus = 50

	// Ban
	BanThresholdReputation = 500
	BanThresholdFrequency  = 5
	BanFrequencyWindow     = 24 * time.Hour
	BanLevel1Duration      = 30 * time.Minute
	BanLevel2Duration      = 6 * time.Hour
	BanLevel3Duration      = 24 * time.Hour

	// Admin login throttling
	LoginAttemptLimit  = 5
	LoginAttemptWindow = 15 * time.Minute
)

// ReportWeights maps a report severity to its reputation penalty.
var ReportWeights = map[string]int{
	"Low":      5,
	"Medium":   50,
	"Critical": 250,
}
