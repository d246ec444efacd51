package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/mock/gomock"

	"keygate/internal/audit"
	"keygate/internal/license"
	"keygate/internal/user"
	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

func (s *ServiceSuite) registerRequest() RegisterRequest {
	return RegisterRequest{
		APIKey:   s.testApp.APIKey,
		Username: "bob",
		Email:    "bob@example.com",
		Password: "hunter2",
		Client:   id.ClientInfo{IP: "203.0.113.7", Hwid: "hw-2"},
	}
}

func (s *ServiceSuite) expectOpenGate(req RegisterRequest) {
	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.mockPolicy.EXPECT().CheckBlacklist(gomock.Any(), s.testApp.ID, req.Username, req.Email, req.Client).Return(false, nil)
	s.mockUsers.EXPECT().ByUsername(gomock.Any(), s.testApp.ID, req.Username).
		Return(nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound))
}

func (s *ServiceSuite) TestRegisterSuccessWithoutLicense() {
	req := s.registerRequest()
	s.expectOpenGate(req)
	s.mockHasher.EXPECT().Hash("hunter2").Return("hashed", nil)
	s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).Do(func(_ context.Context, u *user.User) {
		s.Equal("bob", u.Username)
		s.Equal("hashed", u.PasswordHash)
		s.Nil(u.LicenseID)
	}).Return(nil)
	s.mockAudit.EXPECT().Record(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
		s.Equal(id.EventUserRegister, e.Event)
		s.True(e.Success)
	})
	s.mockNotifier.EXPECT().Notify(gomock.Any(), s.testApp.ID, gomock.Any())

	outcome, err := s.service.Register(context.Background(), req)

	s.Require().NoError(err)
	s.True(outcome.Created)
	s.Require().NotNil(outcome.User)
	s.Equal("bob", outcome.User.Username)
}

func (s *ServiceSuite) TestRegisterBlacklisted() {
	req := s.registerRequest()
	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.mockPolicy.EXPECT().CheckBlacklist(gomock.Any(), s.testApp.ID, req.Username, req.Email, req.Client).Return(true, nil)
	s.expectFailureRecorded(id.EventRegisterFailed, id.ReasonBlacklisted)

	outcome, err := s.service.Register(context.Background(), req)

	s.Require().NoError(err)
	s.False(outcome.Created)
	s.Equal(id.ReasonBlacklisted, outcome.Reason)
}

func (s *ServiceSuite) TestRegisterUsernameTaken() {
	req := s.registerRequest()
	s.mockApps.EXPECT().ByAPIKey(gomock.Any(), req.APIKey).Return(s.testApp, nil)
	s.mockPolicy.EXPECT().CheckBlacklist(gomock.Any(), s.testApp.ID, req.Username, req.Email, req.Client).Return(false, nil)
	s.mockUsers.EXPECT().ByUsername(gomock.Any(), s.testApp.ID, req.Username).Return(s.testUser, nil)
	s.expectFailureRecorded(id.EventRegisterFailed, id.ReasonUsernameTaken)

	outcome, err := s.service.Register(context.Background(), req)

	s.Require().NoError(err)
	s.False(outcome.Created)
	s.Equal(id.ReasonUsernameTaken, outcome.Reason)
}

func (s *ServiceSuite) TestRegisterMaxUsersReached() {
	req := s.registerRequest()
	s.testApp.Settings.MaxUsers = 10
	s.expectOpenGate(req)
	s.mockUsers.EXPECT().CountByApplication(gomock.Any(), s.testApp.ID).Return(10, nil)
	s.expectFailureRecorded(id.EventRegisterFailed, id.ReasonMaxUsersReached)

	outcome, err := s.service.Register(context.Background(), req)

	s.Require().NoError(err)
	s.False(outcome.Created)
	s.Equal(id.ReasonMaxUsersReached, outcome.Reason)
}

func (s *ServiceSuite) TestRegisterWithLicenseConsumesSeat() {
	req := s.registerRequest()
	req.LicenseKey = "lic_abc"
	s.testApp.Settings.RequireLicense = true
	exp := s.now.Add(30 * 24 * time.Hour)
	key := &license.Key{ID: id.NewLicenseID(), AppID: s.testApp.ID, Key: "lic_abc", MaxUsers: 5, ExpiresAt: &exp, Active: true}

	s.expectOpenGate(req)
	s.mockLicenses.EXPECT().Validate(gomock.Any(), "lic_abc", s.testApp.ID).Return(key, id.ReasonNone, nil)
	s.mockLicenses.EXPECT().ConsumeSeat(gomock.Any(), key.ID).Return(true, nil)
	s.mockHasher.EXPECT().Hash("hunter2").Return("hashed", nil)
	s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).Do(func(_ context.Context, u *user.User) {
		s.Require().NotNil(u.LicenseID)
		s.Equal(key.ID, *u.LicenseID)
		s.Require().NotNil(u.ExpiresAt)
		s.Equal(exp, *u.ExpiresAt)
	}).Return(nil)
	s.mockAudit.EXPECT().Record(gomock.Any(), gomock.Any())
	s.mockNotifier.EXPECT().Notify(gomock.Any(), s.testApp.ID, gomock.Any())

	outcome, err := s.service.Register(context.Background(), req)

	s.Require().NoError(err)
	s.True(outcome.Created)
}

func (s *ServiceSuite) TestRegisterSeatRaceLostDenies() {
	req := s.registerRequest()
	req.LicenseKey = "lic_abc"
	s.testApp.Settings.RequireLicense = true
	key := &license.Key{ID: id.NewLicenseID(), AppID: s.testApp.ID, Key: "lic_abc", MaxUsers: 1, Active: true}

	s.expectOpenGate(req)
	s.mockLicenses.EXPECT().Validate(gomock.Any(), "lic_abc", s.testApp.ID).Return(key, id.ReasonNone, nil)
	s.mockLicenses.EXPECT().ConsumeSeat(gomock.Any(), key.ID).Return(false, nil)
	s.expectFailureRecorded(id.EventRegisterFailed, id.ReasonSeatsExhausted)

	outcome, err := s.service.Register(context.Background(), req)

	s.Require().NoError(err)
	s.False(outcome.Created)
	s.Equal(id.ReasonSeatsExhausted, outcome.Reason)
}

func (s *ServiceSuite) TestRegisterLicenseDenialShortCircuits() {
	req := s.registerRequest()
	req.LicenseKey = "lic_expired"
	s.testApp.Settings.RequireLicense = true

	s.expectOpenGate(req)
	s.mockLicenses.EXPECT().Validate(gomock.Any(), "lic_expired", s.testApp.ID).
		Return(nil, id.ReasonLicenseExpired, nil)
	s.expectFailureRecorded(id.EventRegisterFailed, id.ReasonLicenseExpired)

	outcome, err := s.service.Register(context.Background(), req)

	s.Require().NoError(err)
	s.Equal(id.ReasonLicenseExpired, outcome.Reason)
}

func (s *ServiceSuite) TestRegisterSeatReleasedWhenCreateFails() {
	req := s.registerRequest()
	req.LicenseKey = "lic_abc"
	s.testApp.Settings.RequireLicense = true
	key := &license.Key{ID: id.NewLicenseID(), AppID: s.testApp.ID, Key: "lic_abc", MaxUsers: 5, Active: true}

	s.expectOpenGate(req)
	s.mockLicenses.EXPECT().Validate(gomock.Any(), "lic_abc", s.testApp.ID).Return(key, id.ReasonNone, nil)
	s.mockLicenses.EXPECT().ConsumeSeat(gomock.Any(), key.ID).Return(true, nil)
	s.mockHasher.EXPECT().Hash("hunter2").Return("hashed", nil)
	s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("insert failed"))
	// The consumed seat must be handed back on the failure path.
	s.mockLicenses.EXPECT().ReleaseSeat(gomock.Any(), key.ID).Return(nil)

	_, err := s.service.Register(context.Background(), req)

	s.Require().Error(err)
}

func (s *ServiceSuite) TestRegisterSeatReleasedWhenUsernameRaceLost() {
	req := s.registerRequest()
	req.LicenseKey = "lic_abc"
	s.testApp.Settings.RequireLicense = true
	key := &license.Key{ID: id.NewLicenseID(), AppID: s.testApp.ID, Key: "lic_abc", MaxUsers: 5, Active: true}

	s.expectOpenGate(req)
	s.mockLicenses.EXPECT().Validate(gomock.Any(), "lic_abc", s.testApp.ID).Return(key, id.ReasonNone, nil)
	s.mockLicenses.EXPECT().ConsumeSeat(gomock.Any(), key.ID).Return(true, nil)
	s.mockHasher.EXPECT().Hash("hunter2").Return("hashed", nil)
	s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("username taken: %w", sentinel.ErrConflict))
	s.mockLicenses.EXPECT().ReleaseSeat(gomock.Any(), key.ID).Return(nil)
	s.expectFailureRecorded(id.EventRegisterFailed, id.ReasonUsernameTaken)

	outcome, err := s.service.Register(context.Background(), req)

	s.Require().NoError(err)
	s.Equal(id.ReasonUsernameTaken, outcome.Reason)
}
