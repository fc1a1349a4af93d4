package mocks

import (
	"context"

	"accountapi/internal/model"
	"accountapi/internal/scratch"

	"github.com/stretchr/testify/mock"
)

type MockRegistrationService struct {
	mock.Mock
}

func (m *MockRegistrationService) Register(ctx context.Context, req model.RegistrationRequest, files map[string]*scratch.File) (*model.User, error) {
	args := m.Called(ctx, req, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
