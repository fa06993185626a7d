package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"kindred/backend/internal/config"
	"kindred/backend/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrSessionNotFound is returned when a session row does not exist.
var ErrSessionNotFound = errors.New("chat session not found")

// Storage is the persistence boundary of the engine: durable session and
// user records in PostgreSQL, volatile state (queue mirror, ban keys,
// login-attempt counters) in Redis.
type Storage interface {
	SaveUser(user *models.User) error
	EnsureUser(userID string, interests []string) error
	GetUserByID(userID string) (*models.User, error)
	UpdateUser(user *models.User) error
	UpdateUserReputation(userID string, change int) error

	IsUserBanned(anonID string) (bool, error)
	BanUser(anonID string, duration time.Duration) error
	UnbanUser(anonID string) error

	SaveSession(session *models.ChatSession) error
	CloseSession(sessionID, reason string) error
	GetSessionByID(sessionID string) (*models.ChatSession, error)
	GetActiveSessionIDs() ([]string, error)
	GetActiveSessionIDForUser(userID string) (string, error)
	CloseAllActiveSessions(reason string) (int64, error)

	ListInterests() ([]models.Interest, error)
	CreateInterest(name string) error
	DeleteInterest(name string) error

	SaveReport(report *models.Report) error
	GetReportsForUser(userID string, since time.Time) ([]models.Report, error)

	AddUserToSearchQueue(userID string) error
	RemoveUserFromSearchQueue(userID string) error
	GetSearchingUsers() ([]string, error)

	RegisterLoginAttempt(ip string) (int64, error)
}

// Service implements Storage over GORM and go-redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// SaveUser stores a user row in PostgreSQL.
func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// EnsureUser creates the durable row behind an anonymous ID on first
// contact and refreshes the declared interests on every enrollment.
func (s *Service) EnsureUser(userID string, interests []string) error {
	var user models.User
	defaults := models.User{
		ID:              userID,
		ReputationScore: config.InitialReputation,
	}
	result := s.DB.Where("id = ?", userID).FirstOrCreate(&user, defaults)
	if result.Error != nil {
		log.Printf("ERROR: Failed to ensure user %s: %v", userID, result.Error)
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("INFO: New anonymous user %s saved to database.", userID)
	}
	return s.DB.Model(&user).Update("interests", pq.StringArray(interests)).Error
}

func (s *Service) GetUserByID(userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) UpdateUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// UpdateUserReputation adjusts the reputation score, clamped at the floor.
func (s *Service) UpdateUserReputation(userID string, change int) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("reputation_score", gorm.Expr(
			"GREATEST(reputation_score + ?, ?)", change, config.MinReputation)).Error
}

// IsUserBanned checks the ban key in Redis (fast path, no DB hit).
func (s *Service) IsUserBanned(anonID string) (bool, error) {
	key := "ban:" + anonID
	status, err := s.Redis.Get(s.Ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// BanUser sets a ban key with the given TTL. Duration zero bans until
// an explicit unban.
func (s *Service) BanUser(anonID string, duration time.Duration) error {
	return s.Redis.Set(s.Ctx, "ban:"+anonID, "active", duration).Err()
}

func (s *Service) UnbanUser(anonID string) error {
	return s.Redis.Del(s.Ctx, "ban:"+anonID).Err()
}

// SaveSession stores a session row in PostgreSQL.
func (s *Service) SaveSession(session *models.ChatSession) error {
	return s.DB.Save(session).Error
}

// CloseSession marks the row ended with the termination reason.
func (s *Service) CloseSession(sessionID, reason string) error {
	return s.DB.Model(&models.ChatSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":     models.SessionEnded,
			"ended_at":   gorm.Expr("NOW()"),
			"end_reason": reason,
		}).Error
}

func (s *Service) GetSessionByID(sessionID string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.DB.Where("id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get session %s: %v", sessionID, err)
		return nil, err
	}
	return &session, nil
}

// GetActiveSessionIDs returns the IDs of every session still marked active.
func (s *Service) GetActiveSessionIDs() ([]string, error) {
	var ids []string
	if err := s.DB.Model(&models.ChatSession{}).
		Where("status = ?", models.SessionActive).
		Pluck("id", &ids).Error; err != nil {
		log.Printf("ERROR: Failed to retrieve active session IDs: %v", err)
		return nil, err
	}
	return ids, nil
}

// GetActiveSessionIDForUser finds the active session the user belongs to,
// or "" when there is none.
func (s *Service) GetActiveSessionIDForUser(userID string) (string, error) {
	var session models.ChatSession
	err := s.DB.Where("status = ?", models.SessionActive).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to find active session for user %s: %v", userID, err)
		return "", err
	}
	return session.ID, nil
}

// CloseAllActiveSessions ends every session still marked active. Used at
// boot: the in-memory engine cannot resurrect sessions from a previous run.
func (s *Service) CloseAllActiveSessions(reason string) (int64, error) {
	result := s.DB.Model(&models.ChatSession{}).
		Where("status = ?", models.SessionActive).
		Updates(map[string]interface{}{
			"status":     models.SessionEnded,
			"ended_at":   gorm.Expr("NOW()"),
			"end_reason": reason,
		})
	return result.RowsAffected, result.Error
}

// ListInterests returns the current interest catalog, sorted by name.
func (s *Service) ListInterests() ([]models.Interest, error) {
	var interests []models.Interest
	if err := s.DB.Order("name asc").Find(&interests).Error; err != nil {
		return nil, err
	}
	return interests, nil
}

func (s *Service) CreateInterest(name string) error {
	return s.DB.Create(&models.Interest{Name: name}).Error
}

func (s *Service) DeleteInterest(name string) error {
	return s.DB.Delete(&models.Interest{}, "name = ?", name).Error
}

func (s *Service) SaveReport(report *models.Report) error {
	if report.Status == "" {
		report.Status = "new"
	}
	if err := s.DB.Create(report).Error; err != nil {
		log.Printf("ERROR: Failed to save report for session %s: %v", report.SessionID, err)
		return err
	}
	return nil
}

func (s *Service) GetReportsForUser(userID string, since time.Time) ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.Where("target_id = ? AND created_at > ?", userID, since).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// AddUserToSearchQueue mirrors queue membership into Redis for operator
// visibility; the in-memory waiting set stays authoritative.
func (s *Service) AddUserToSearchQueue(userID string) error {
	return s.Redis.SAdd(s.Ctx, "search_queue", userID).Err()
}

// RemoveUserFromSearchQueue removes a user from the Redis queue mirror.
func (s *Service) RemoveUserFromSearchQueue(userID string) error {
	return s.Redis.SRem(s.Ctx, "search_queue", userID).Err()
}

// GetSearchingUsers returns the mirrored waiting set.
func (s *Service) GetSearchingUsers() ([]string, error) {
	return s.Redis.SMembers(s.Ctx, "search_queue").Result()
}

// RegisterLoginAttempt counts an admin login attempt for the given IP and
// returns the attempt number inside the current window.
func (s *Service) RegisterLoginAttempt(ip string) (int64, error) {
	key := "login_attempts:" + ip
	count, err := s.Redis.Incr(s.Ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.Redis.Expire(s.Ctx, key, config.LoginAttemptWindow).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
