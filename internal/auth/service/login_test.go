package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/mock/gomock"

	"keygate/internal/audit"
	"keygate/internal/policy"
	"keygate/internal/session"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/sentinel"
)

func (s *ServiceSuite) loginRequest() LoginRequest {
	return LoginRequest{
		APIKey:   s.testApp.APIKey,
		Username: "alice",
		Password: "hunter2",
		Client:   id.ClientInfo{IP: "203.0.113.7", UserAgent: "test-agent", Hwid: "hw-1"},
	}
}

func (s *ServiceSuite) TestLoginSuccess() {
	req := s.loginRequest()
	sess := &session.Session{ID: id.NewSessionID(), Token: "sess_abc"}

	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.mockUsers.EXPECT().ByUsername(gomock.Any(), s.testApp.ID, "alice").Return(s.testUser, nil)
	s.mockPolicy.EXPECT().Evaluate(gomock.Any(), s.testApp, s.testUser, req.Client).Return(policy.Result{Allowed: true}, nil)
	s.mockHasher.EXPECT().Verify("hunter2", s.testUser.PasswordHash).Return(true)
	s.mockSessions.EXPECT().Open(gomock.Any(), s.testApp.ID, s.testUser.ID, req.Client).Return(sess, nil)
	s.mockUsers.EXPECT().RecordLogin(gomock.Any(), s.testUser.ID, s.now).Return(nil)
	s.mockAudit.EXPECT().Record(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
		s.Equal(id.EventUserLogin, e.Event)
		s.True(e.Success)
		s.Equal("alice", e.Username)
	})
	s.mockNotifier.EXPECT().Notify(gomock.Any(), s.testApp.ID, gomock.Any())

	outcome, err := s.service.Login(context.Background(), req)

	s.Require().NoError(err)
	s.True(outcome.Allowed)
	s.Equal(sess, outcome.Session)
	s.Equal(s.testUser, outcome.User)
	s.NotEmpty(outcome.Message)
}

func (s *ServiceSuite) TestLoginUnknownAPIKey() {
	req := s.loginRequest()
	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).
		Return(nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound))

	_, err := s.service.Login(context.Background(), req)

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLoginDisabledApplication() {
	req := s.loginRequest()
	s.testApp.Active = false
	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.expectFailureRecorded(id.EventLoginFailed, id.ReasonAppDisabled)

	outcome, err := s.service.Login(context.Background(), req)

	s.Require().NoError(err)
	s.False(outcome.Allowed)
	s.Equal(id.ReasonAppDisabled, outcome.Reason)
}

func (s *ServiceSuite) TestLoginUnknownUsernameIsInvalidCredentials() {
	req := s.loginRequest()
	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.mockUsers.EXPECT().ByUsername(gomock.Any(), s.testApp.ID, "alice").
		Return(nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound))
	s.expectFailureRecorded(id.EventLoginFailed, id.ReasonInvalidCredentials)

	outcome, err := s.service.Login(context.Background(), req)

	s.Require().NoError(err)
	s.False(outcome.Allowed)
	s.Equal(id.ReasonInvalidCredentials, outcome.Reason)
	s.Nil(outcome.Session)
}

func (s *ServiceSuite) TestLoginWrongPasswordMatchesUnknownUsername() {
	req := s.loginRequest()
	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.mockUsers.EXPECT().ByUsername(gomock.Any(), s.testApp.ID, "alice").Return(s.testUser, nil)
	s.mockPolicy.EXPECT().Evaluate(gomock.Any(), s.testApp, s.testUser, req.Client).Return(policy.Result{Allowed: true}, nil)
	s.mockHasher.EXPECT().Verify("hunter2", s.testUser.PasswordHash).Return(false)
	s.mockUsers.EXPECT().RecordAttempt(gomock.Any(), s.testUser.ID).Return(nil)
	s.expectFailureRecorded(id.EventLoginFailed, id.ReasonInvalidCredentials)

	outcome, err := s.service.Login(context.Background(), req)

	s.Require().NoError(err)
	s.False(outcome.Allowed)
	// Same reason as an unknown username so callers cannot tell the two
	// cases apart.
	s.Equal(id.ReasonInvalidCredentials, outcome.Reason)
}

func (s *ServiceSuite) TestLoginPausedAccountDeniedWithoutSession() {
	req := s.loginRequest()
	s.testUser.Paused = true
	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.mockUsers.EXPECT().ByUsername(gomock.Any(), s.testApp.ID, "alice").Return(s.testUser, nil)
	s.mockPolicy.EXPECT().Evaluate(gomock.Any(), s.testApp, s.testUser, req.Client).
		Return(policy.Result{Reason: id.ReasonAccountPaused}, nil)
	s.mockUsers.EXPECT().RecordAttempt(gomock.Any(), s.testUser.ID).Return(nil)
	s.expectFailureRecorded(id.EventLoginFailed, id.ReasonAccountPaused)

	outcome, err := s.service.Login(context.Background(), req)

	s.Require().NoError(err)
	s.False(outcome.Allowed)
	s.Equal(id.ReasonAccountPaused, outcome.Reason)
	s.Nil(outcome.Session)
}

func (s *ServiceSuite) TestLoginUsesTenantMessageTemplate() {
	req := s.loginRequest()
	s.testApp.Messages.Blacklisted = "begone"
	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.mockUsers.EXPECT().ByUsername(gomock.Any(), s.testApp.ID, "alice").Return(s.testUser, nil)
	s.mockPolicy.EXPECT().Evaluate(gomock.Any(), s.testApp, s.testUser, req.Client).
		Return(policy.Result{Reason: id.ReasonBlacklisted}, nil)
	s.mockUsers.EXPECT().RecordAttempt(gomock.Any(), s.testUser.ID).Return(nil)
	s.expectFailureRecorded(id.EventLoginFailed, id.ReasonBlacklisted)

	outcome, err := s.service.Login(context.Background(), req)

	s.Require().NoError(err)
	s.Equal("begone", outcome.Message)
	s.Equal(id.ReasonBlacklisted, outcome.Reason)
}

func (s *ServiceSuite) TestLoginPolicyInfrastructureFailurePropagates() {
	req := s.loginRequest()
	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.mockUsers.EXPECT().ByUsername(gomock.Any(), s.testApp.ID, "alice").Return(s.testUser, nil)
	s.mockPolicy.EXPECT().Evaluate(gomock.Any(), s.testApp, s.testUser, req.Client).
		Return(policy.Result{}, errors.New("store unreachable"))

	_, err := s.service.Login(context.Background(), req)

	s.Require().Error(err)
}

func (s *ServiceSuite) TestLoginNoWebhookWhenDisabled() {
	req := s.loginRequest()
	s.testApp.Settings.EnableWebhooks = false
	sess := &session.Session{ID: id.NewSessionID(), Token: "sess_abc"}

	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.mockUsers.EXPECT().ByUsername(gomock.Any(), s.testApp.ID, "alice").Return(s.testUser, nil)
	s.mockPolicy.EXPECT().Evaluate(gomock.Any(), s.testApp, s.testUser, req.Client).Return(policy.Result{Allowed: true}, nil)
	s.mockHasher.EXPECT().Verify("hunter2", s.testUser.PasswordHash).Return(true)
	s.mockSessions.EXPECT().Open(gomock.Any(), s.testApp.ID, s.testUser.ID, req.Client).Return(sess, nil)
	s.mockUsers.EXPECT().RecordLogin(gomock.Any(), s.testUser.ID, s.now).Return(nil)
	s.mockAudit.EXPECT().Record(gomock.Any(), gomock.Any())
	// No Notify expectation: dispatch must be skipped entirely.

	outcome, err := s.service.Login(context.Background(), req)

	s.Require().NoError(err)
	s.True(outcome.Allowed)
}

// expectFailureRecorded sets the audit and webhook expectations every denial
// path shares.
func (s *ServiceSuite) expectFailureRecorded(event id.Event, reason id.Reason) {
	s.mockAudit.EXPECT().Record(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
		s.Equal(event, e.Event)
		s.False(e.Success)
		s.Equal(string(reason), e.Error)
	})
	s.mockNotifier.EXPECT().Notify(gomock.Any(), s.testApp.ID, gomock.Any())
}
