package handlers_test

import (
	"context"
	"time"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/query"
	"task-tracker/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) ListTasks(ctx context.Context, ownerID uuid.UUID, f query.Filter, s query.Sort) ([]models.Task, error) {
	args := m.Called(ctx, ownerID, f, s)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskService) GetTask(ctx context.Context, taskID, callerID uuid.UUID) (*models.Task, models.AccessLevel, error) {
	args := m.Called(ctx, taskID, callerID)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Get(1).(models.AccessLevel), args.Error(2)
}

func (m *MockTaskService) CreateTask(ctx context.Context, ownerID uuid.UUID, in services.TaskInput) (*models.Task, error) {
	args := m.Called(ctx, ownerID, in)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, taskID, callerID uuid.UUID, in services.TaskUpdate) (*models.Task, error) {
	args := m.Called(ctx, taskID, callerID, in)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) SetStatus(ctx context.Context, taskID, callerID uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	args := m.Called(ctx, taskID, callerID, status)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, taskID, callerID uuid.UUID) error {
	return m.Called(ctx, taskID, callerID).Error(0)
}

type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) AddComment(ctx context.Context, taskID, callerID uuid.UUID, body string) (*models.Comment, error) {
	args := m.Called(ctx, taskID, callerID, body)
	comment, _ := args.Get(0).(*models.Comment)
	return comment, args.Error(1)
}

func (m *MockCommentService) ListComments(ctx context.Context, taskID, callerID uuid.UUID) ([]models.Comment, error) {
	args := m.Called(ctx, taskID, callerID)
	comments, _ := args.Get(0).([]models.Comment)
	return comments, args.Error(1)
}

type MockShareService struct {
	mock.Mock
}

func (m *MockShareService) ShareTask(ctx context.Context, taskID, ownerID, granteeID uuid.UUID, permission models.SharePermission) (*models.ShareGrant, error) {
	args := m.Called(ctx, taskID, ownerID, granteeID, permission)
	grant, _ := args.Get(0).(*models.ShareGrant)
	return grant, args.Error(1)
}

func (m *MockShareService) RevokeShare(ctx context.Context, taskID, ownerID, granteeID uuid.UUID) error {
	return m.Called(ctx, taskID, ownerID, granteeID).Error(0)
}

func (m *MockShareService) ListGrants(ctx context.Context, taskID, ownerID uuid.UUID) ([]models.ShareGrant, error) {
	args := m.Called(ctx, taskID, ownerID)
	grants, _ := args.Get(0).([]models.ShareGrant)
	return grants, args.Error(1)
}

func (m *MockShareService) ListSharedWithMe(ctx context.Context, userID uuid.UUID) ([]models.SharedTask, error) {
	args := m.Called(ctx, userID)
	tasks, _ := args.Get(0).([]models.SharedTask)
	return tasks, args.Error(1)
}

func (m *MockShareService) LeaveShare(ctx context.Context, taskID, userID uuid.UUID) error {
	return m.Called(ctx, taskID, userID).Error(0)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) GenerateDueSoon(ctx context.Context, userID uuid.UUID, horizon time.Duration) ([]models.Notification, error) {
	args := m.Called(ctx, userID, horizon)
	notifications, _ := args.Get(0).([]models.Notification)
	return notifications, args.Error(1)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockNotificationService) SweepDueSoon(ctx context.Context, horizon time.Duration) (services.SweepResult, error) {
	args := m.Called(ctx, horizon)
	return args.Get(0).(services.SweepResult), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) LoginUser(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(ctx, username, password)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockAuthService) GenerateToken(ctx context.Context, user *models.User) (*services.TokenPair, error) {
	args := m.Called(ctx, user)
	pair, _ := args.Get(0).(*services.TokenPair)
	return pair, args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	pair, _ := args.Get(0).(*services.TokenPair)
	return pair, args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockAuthService) ParseAccessToken(token string) (*services.Claims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*services.Claims)
	return claims, args.Error(1)
}

type MockRegisterService struct {
	mock.Mock
}

func (m *MockRegisterService) RegisterUser(ctx context.Context, req services.RegistrationRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ListUsers(ctx context.Context, caller services.Caller) ([]models.User, error) {
	args := m.Called(ctx, caller)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, caller services.Caller, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, caller, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, caller services.Caller, id uuid.UUID, in services.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, caller, id, in)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserService) SetRole(ctx context.Context, caller services.Caller, id uuid.UUID, role models.Role) (*models.User, error) {
	args := m.Called(ctx, caller, id, role)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
