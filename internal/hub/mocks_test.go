package hub_test

import (
	"time"

	"kindred/backend/internal/catalog"
	"kindred/backend/internal/config"
	"kindred/backend/internal/hub"
	"kindred/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) EnsureUser(userID string, interests []string) error {
	args := m.Called(userID, interests)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) UpdateUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) UpdateUserReputation(userID string, change int) error {
	args := m.Called(userID, change)
	return args.Error(0)
}

func (m *MockStorage) IsUserBanned(anonID string) (bool, error) {
	args := m.Called(anonID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) BanUser(anonID string, duration time.Duration) error {
	args := m.Called(anonID, duration)
	return args.Error(0)
}

func (m *MockStorage) UnbanUser(anonID string) error {
	args := m.Called(anonID)
	return args.Error(0)
}

func (m *MockStorage) SaveSession(session *models.ChatSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockStorage) CloseSession(sessionID, reason string) error {
	args := m.Called(sessionID, reason)
	return args.Error(0)
}

func (m *MockStorage) GetSessionByID(sessionID string) (*models.ChatSession, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockStorage) GetActiveSessionIDs() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) GetActiveSessionIDForUser(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) CloseAllActiveSessions(reason string) (int64, error) {
	args := m.Called(reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) ListInterests() ([]models.Interest, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Interest), args.Error(1)
}

func (m *MockStorage) CreateInterest(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockStorage) DeleteInterest(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockStorage) SaveReport(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockStorage) GetReportsForUser(userID string, since time.Time) ([]models.Report, error) {
	args := m.Called(userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockStorage) AddUserToSearchQueue(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) RemoveUserFromSearchQueue(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) GetSearchingUsers() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) RegisterLoginAttempt(ip string) (int64, error) {
	args := m.Called(ip)
	return args.Get(0).(int64), args.Error(1)
}

// newMockStorage returns a MockStorage preloaded with the expectations
// every happy-path engine flow hits.
func newMockStorage() *MockStorage {
	s := new(MockStorage)
	s.On("AddUserToSearchQueue", mock.AnythingOfType("string")).Return(nil)
	s.On("RemoveUserFromSearchQueue", mock.AnythingOfType("string")).Return(nil)
	s.On("SaveSession", mock.AnythingOfType("*models.ChatSession")).Return(nil)
	s.On("CloseSession", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)
	s.On("EnsureUser", mock.AnythingOfType("string"), mock.Anything).Return(nil)
	s.On("IsUserBanned", mock.AnythingOfType("string")).Return(false, nil)
	return s
}

// MockClient is a test double for the hub.Client interface. RecvChannel
// buffers everything the hub pushes to this client.
type MockClient struct {
	userID      string
	RecvChannel chan models.ServerEvent
}

func newMockClient(userID string) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan models.ServerEvent, 32),
	}
}

func (c *MockClient) GetUserID() string { return c.userID }

func (c *MockClient) GetSendChannel() chan<- models.ServerEvent { return c.RecvChannel }

func (c *MockClient) Run() {}

func (c *MockClient) Close() {}

// DrainEvents empties the receive channel and returns everything seen.
func (c *MockClient) DrainEvents() []models.ServerEvent {
	var events []models.ServerEvent
	for {
		select {
		case ev := <-c.RecvChannel:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// CountByType tallies drained events per event type.
func CountByType(events []models.ServerEvent) map[string]int {
	counts := make(map[string]int)
	for _, ev := range events {
		counts[ev.Type]++
	}
	return counts
}

// testCatalog returns a snapshot with the interests the tests enroll with.
func testCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.Put("Gaming", "Music", "Art", "Travel", "Cooking", "Books")
	return cat
}

// testEngineConfig keeps timers short so tests run quickly.
func testEngineConfig() config.Engine {
	return config.Engine{
		GracePeriod:    150 * time.Millisecond,
		MaxQueueWait:   time.Minute,
		MatchInterval:  20 * time.Millisecond,
		PeerBufferSize: 4,
	}
}

// createTestHub builds a hub over mocked storage, without reports.
func createTestHub(s *MockStorage) *hub.Hub {
	return hub.NewHub(s, testCatalog(), nil, testEngineConfig())
}
