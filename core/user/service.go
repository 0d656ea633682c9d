package user

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core"
)

var (
	// errors
	ErrUserExists = errors.New("a profile with this id already exists")
	ErrInactive   = errors.New("profile deactivated")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateUser returns ErrUserExists when the ID is taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, id string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// AddPoints atomically increments the points of the user and returns the updated User.
		AddPoints(ctx context.Context, id string, points int) (User, error)
	}

	Service struct {
		repo      Repository
		publisher core.EventPublisher
		logger    core.Logger
	}
)

func NewService(repo Repository, publisher core.EventPublisher, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	if publisher == nil {
		publisher = core.NoopPublisher
	}
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// EnsureProfile returns the profile of the authenticated identity, creating it on first login.
func (svc *Service) EnsureProfile(ctx context.Context, id Identity) (User, error) {
	id.Clean()
	if id.Subject == "" {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "sub", Error: "this field is required"})
	}

	now := nowFunc().UTC()
	usr, err := svc.repo.GetUser(ctx, id.Subject)
	if err == nil {
		if !usr.IsActive {
			return usr, core.NewForbiddenError("login")
		}
		if id.Name != "" {
			usr.Name = id.Name
		}
		if id.Email != "" {
			usr.Email = id.Email
		}
		usr.LastLogin = now
		usr.UpdatedAt = now
		return svc.repo.UpdateUser(ctx, usr)
	}
	if !core.IsNotFound(err) {
		return User{}, errors.Wrap(err, "getting user")
	}

	usr, err = svc.repo.CreateUser(ctx, User{
		ID:        id.Subject,
		Name:      id.Name,
		Email:     id.Email,
		Role:      RoleStudent,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	})
	if err != nil {
		if errors.Cause(err) == ErrUserExists { // concurrent first login
			return svc.repo.GetUser(ctx, id.Subject)
		}
		return User{}, errors.Wrap(err, "creating user")
	}

	svc.logger.Info("profile created", map[string]interface{}{"user_id": usr.ID})
	svc.publisher.Publish(ctx, core.NewEvent(core.EventProfileCreated, usr.ID, usr.ID, nil))
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// UpdateOrCreate saves a profile with the given role, it is meant for trusted callers (admin CLI).
func (svc *Service) UpdateOrCreate(ctx context.Context, np NewProfile) (User, error) {
	np.Clean()
	if !IsValidRole(np.Role) {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: roleText})
	}

	now := nowFunc().UTC()
	usr, err := svc.repo.GetUser(ctx, np.ID)
	if err != nil {
		if !core.IsNotFound(err) {
			return User{}, errors.Wrap(err, "getting user")
		}
		return svc.repo.CreateUser(ctx, User{
			ID:        np.ID,
			Name:      np.Name,
			Email:     np.Email,
			Role:      np.Role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if np.Name != "" {
		usr.Name = np.Name
	}
	if np.Email != "" {
		usr.Email = np.Email
	}
	usr.Role = np.Role
	usr.IsActive = true
	usr.UpdatedAt = now
	return svc.repo.UpdateUser(ctx, usr)
}

// SetActive soft-(de)activates a profile.
func (svc *Service) SetActive(ctx context.Context, id string, active bool) (User, error) {
	usr, err := svc.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.IsActive = active
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
