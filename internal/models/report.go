package models

import "gorm.io/gorm"

// Report is a complaint filed by one session participant against the other.
type Report struct {
	gorm.Model

	ReporterID string `gorm:"index"`
	TargetID   string `gorm:"index"`
	SessionID  string
	// Severity is one of the configured report categories ("Low", "Medium",
	// "Critical"); unknown categories carry zero weight.
	Severity string
	Status   string // "new", "processed", "confirmed"
}
