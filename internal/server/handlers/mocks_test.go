package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/geo"
	"stagemap/internal/domain/identity"
	"stagemap/internal/domain/messaging"
)

// MockEventManager is a mock implementation of event.Manager
type MockEventManager struct {
	mock.Mock
}

func (m *MockEventManager) CreateEvent(ctx context.Context, actor *identity.User, input event.Input) (*event.Event, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventManager) UpdateEvent(ctx context.Context, actor *identity.User, id string, input event.Input) (*event.Event, error) {
	args := m.Called(ctx, actor, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventManager) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventManager) ListEvents(ctx context.Context, filter event.Filter) ([]event.Event, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.Event), args.Error(1)
}

func (m *MockEventManager) ListOwnEvents(ctx context.Context, actor *identity.User) ([]event.Event, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.Event), args.Error(1)
}

func (m *MockEventManager) FindNearby(ctx context.Context, query geo.ProximityQuery) ([]event.NearbyEvent, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.NearbyEvent), args.Error(1)
}

func (m *MockEventManager) LocateSubsection(ctx context.Context, eventID string, point geo.Coordinate) (*event.Subsection, error) {
	args := m.Called(ctx, eventID, point)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Subsection), args.Error(1)
}

func (m *MockEventManager) ListCategories(ctx context.Context) ([]event.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.Category), args.Error(1)
}

// MockStageService is a mock implementation of StageService
type MockStageService struct {
	mock.Mock
}

func (m *MockStageService) StageStatus(ctx context.Context, subsectionID string) (*event.StageStatus, error) {
	args := m.Called(ctx, subsectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.StageStatus), args.Error(1)
}

func (m *MockStageService) StatusUpdate(ctx context.Context, subsectionID string) (*messaging.StageStatusUpdate, error) {
	args := m.Called(ctx, subsectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.StageStatusUpdate), args.Error(1)
}

func (m *MockStageService) StageSchedule(ctx context.Context, subsectionID string) (*event.StageSchedule, error) {
	args := m.Called(ctx, subsectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.StageSchedule), args.Error(1)
}

func (m *MockStageService) AddStageEvent(ctx context.Context, actor *identity.User, subsectionID string, input event.StageEventInput) (*event.StageEvent, error) {
	args := m.Called(ctx, actor, subsectionID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.StageEvent), args.Error(1)
}

func (m *MockStageService) UpdateStageEvent(ctx context.Context, actor *identity.User, id string, input event.StageEventInput) (*event.StageEvent, error) {
	args := m.Called(ctx, actor, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.StageEvent), args.Error(1)
}

func (m *MockStageService) DeleteStageEvent(ctx context.Context, actor *identity.User, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockStageService) ImportSchedule(ctx context.Context, actor *identity.User, subsectionID string, inputs []event.StageEventInput) ([]event.StageEvent, error) {
	args := m.Called(ctx, actor, subsectionID, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.StageEvent), args.Error(1)
}

func (m *MockStageService) ExportCalendar(ctx context.Context, subsectionID string) ([]byte, error) {
	args := m.Called(ctx, subsectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUserWithProfile(ctx context.Context, actor *identity.User, input identity.NewUser) (*identity.User, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, actor *identity.User) ([]identity.User, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, actor *identity.User, id string, input identity.UserUpdate) (*identity.User, error) {
	args := m.Called(ctx, actor, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, actor *identity.User, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockUserService) Summary(ctx context.Context, actor *identity.User) (*identity.Summary, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Summary), args.Error(1)
}

func (m *MockUserService) IssueToken(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockUserService) IssueTokenFor(ctx context.Context, actor *identity.User, userID string) (string, error) {
	args := m.Called(ctx, actor, userID)
	return args.String(0), args.Error(1)
}
