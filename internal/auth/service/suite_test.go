package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"keygate/internal/app"
	"keygate/internal/auth/service/mocks"
	"keygate/internal/user"
	id "keygate/pkg/domain"
)

type ServiceSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockApps     *mocks.MockApplicationStore
	mockUsers    *mocks.MockUserStore
	mockPolicy   *mocks.MockPolicyEngine
	mockLicenses *mocks.MockLicenseManager
	mockSessions *mocks.MockSessionTracker
	mockAudit    *mocks.MockAuditRecorder
	mockNotifier *mocks.MockWebhookNotifier
	mockHasher   *mocks.MockPasswordHasher
	service      *Service

	testApp  *app.Application
	testUser *user.User
	now      time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockApps = mocks.NewMockApplicationStore(s.ctrl)
	s.mockUsers = mocks.NewMockUserStore(s.ctrl)
	s.mockPolicy = mocks.NewMockPolicyEngine(s.ctrl)
	s.mockLicenses = mocks.NewMockLicenseManager(s.ctrl)
	s.mockSessions = mocks.NewMockSessionTracker(s.ctrl)
	s.mockAudit = mocks.NewMockAuditRecorder(s.ctrl)
	s.mockNotifier = mocks.NewMockWebhookNotifier(s.ctrl)
	s.mockHasher = mocks.NewMockPasswordHasher(s.ctrl)

	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.mockApps, s.mockUsers, s.mockPolicy, s.mockLicenses, s.mockSessions,
		WithLogger(logger),
		WithAuditRecorder(s.mockAudit),
		WithWebhookNotifier(s.mockNotifier),
		WithPasswordHasher(s.mockHasher),
		WithClock(func() time.Time { return s.now }),
	)

	s.testApp = &app.Application{
		ID:       id.AppID(uuid.New()),
		TenantID: id.TenantID(uuid.New()),
		Name:     "Test App",
		APIKey:   "app_test_key",
		Active:   true,
		Settings: app.Settings{EnableWebhooks: true},
	}
	s.testUser = &user.User{
		ID:           id.UserID(uuid.New()),
		AppID:        s.testApp.ID,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		Active:       true,
	}
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
