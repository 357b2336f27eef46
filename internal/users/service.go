package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dreamtoapp/jbrtechno-admin/internal/authz"
	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
)

// Store is the persistence surface consumed by the service.
type Store interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, id, email, name, passwordHash string, role authz.Role) (User, error)
	UpdateUser(ctx context.Context, id, email, name string) (User, error)
	SetActive(ctx context.Context, id string, active bool) (User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Service orchestrates principal administration.
type Service struct {
	store    Store
	activity *shared.ActivityLogger
	logger   *slog.Logger
}

// NewService constructs a Service. Activity logger may be nil.
func NewService(store Store, activity *shared.ActivityLogger, logger *slog.Logger) *Service {
	return &Service{store: store, activity: activity, logger: logger}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// Get fetches a single user.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.GetUser(ctx, id)
}

// Create registers a new user with a hashed password.
func (s *Service) Create(ctx context.Context, actorID, email, name, password, role string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return User{}, errors.New("users: email and name required")
	}
	parsedRole, err := authz.ParseRole(role)
	if err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(password)), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.store.CreateUser(ctx, uuid.NewString(), email, name, string(hash), parsedRole)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, shared.ActivityUserCreated, "user created", user.ID)
	return user, nil
}

// Update changes a user's email and display name.
func (s *Service) Update(ctx context.Context, actorID, id, email, name string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return User{}, errors.New("users: email and name required")
	}
	user, err := s.store.UpdateUser(ctx, id, email, name)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, shared.ActivityUserUpdated, "user updated", user.ID)
	return user, nil
}

// SetActive toggles the active flag. An inactive user is denied every
// route by the resolver regardless of stored grants.
func (s *Service) SetActive(ctx context.Context, actorID, id string, active bool) (User, error) {
	user, err := s.store.SetActive(ctx, id, active)
	if err != nil {
		return User{}, err
	}
	activityType := shared.ActivityUserDeactivated
	if active {
		activityType = shared.ActivityUserActivated
	}
	s.record(ctx, actorID, activityType, "user active flag changed", user.ID)
	return user, nil
}

// Delete removes a user and its grants.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.ActivityUserDeleted, "user deleted", id)
	return nil
}

func (s *Service) record(ctx context.Context, actorID, activityType, description, subjectID string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, shared.ActivityEntry{
		ActorID:     actorID,
		Type:        activityType,
		Description: description,
		Meta:        map[string]any{"user_id": subjectID},
	}); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "record user activity", slog.Any("error", err))
	}
}
