// Package report handles peer reports filed during a session: it applies
// severity-weighted reputation penalties and leveled time bans when a
// user's reputation or report frequency crosses the configured thresholds.
package report

import (
	"log"
	"time"

	"kindred/backend/internal/config"
	"kindred/backend/internal/models"
	"kindred/backend/internal/storage"
)

// Service handles the business logic for peer reports.
type Service struct {
	Storage storage.Storage
}

// NewService creates a new report service.
func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

// severityWeight returns the reputation penalty for a report severity.
// Unknown severities weigh zero.
func severityWeight(severity string) int {
	return config.ReportWeights[severity]
}

// HandleReport files a report, applies the reputation penalty and checks
// whether the target crossed a ban threshold.
func (s *Service) HandleReport(rep *models.Report) error {
	if err := s.Storage.SaveReport(rep); err != nil {
		return err
	}

	weight := severityWeight(rep.Severity)
	if weight == 0 {
		return nil
	}
	if err := s.Storage.UpdateUserReputation(rep.TargetID, -weight); err != nil {
		return err
	}

	return s.CheckForBan(rep.TargetID)
}

// CheckForBan bans a user whose reputation dropped below the threshold or
// who collected too many reports inside the frequency window.
func (s *Service) CheckForBan(userID string) error {
	user, err := s.Storage.GetUserByID(userID)
	if err != nil {
		return err
	}

	// Threshold ban
	if user.ReputationScore < config.BanThresholdReputation {
		return s.applyBan(user)
	}

	// Frequency ban
	reports, err := s.Storage.GetReportsForUser(userID, time.Now().Add(-config.BanFrequencyWindow))
	if err != nil {
		return err
	}
	if len(reports) > config.BanThresholdFrequency {
		return s.applyBan(user)
	}

	return nil
}

// applyBan escalates the ban level for repeat offenders: a second ban
// within a week of the last one is level 2, within a month level 3.
func (s *Service) applyBan(user *models.User) error {
	level := 1
	if user.LastBanDate > 0 {
		if time.Since(time.Unix(user.LastBanDate, 0)) < 7*24*time.Hour {
			level = 2
		} else if time.Since(time.Unix(user.LastBanDate, 0)) < 30*24*time.Hour {
			level = 3
		}
	}

	duration := banDuration(level)
	user.IsBlocked = true
	user.BlockEndTime = time.Now().Add(duration).Unix()
	user.BlockLevel = level
	user.LastBanDate = time.Now().Unix()

	if err := s.Storage.BanUser(user.ID, duration); err != nil {
		log.Printf("ERROR: failed to set ban key for %s: %v", user.ID, err)
	}
	return s.Storage.UpdateUser(user)
}

func banDuration(level int) time.Duration {
	switch level {
	case 1:
		return config.BanLevel1Duration
	case 2:
		return config.BanLevel2Duration
	default:
		return config.BanLevel3Duration
	}
}
