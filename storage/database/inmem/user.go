package inmemdb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.write(ctx)()

	if _, ok := repo.db.users[usr.ID]; ok {
		return user.User{}, user.ErrUserExists
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil && !matches(usr, filter) {
			continue
		}
		users = append(users, usr)
	}

	sort.Slice(users, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := userField(users[i], ord.Field), userField(users[j], ord.Field)
			if a == b {
				continue
			}
			if ord.Ascending {
				return a < b
			}
			return a > b
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func matches(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.ID), s) &&
			!strings.Contains(strings.ToLower(usr.Name), s) &&
			!strings.Contains(strings.ToLower(usr.Email), s) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		var ok bool
		for _, role := range filter.Roles {
			if usr.Role == role {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return filter.IsActive == nil || usr.IsActive == *filter.IsActive
}

// userField returns a sortable representation of a user field.
func userField(usr user.User, field string) string {
	switch field {
	case "name":
		return strings.ToLower(usr.Name)
	case "email":
		return usr.Email
	case "role":
		return usr.Role
	case "points":
		return fmt.Sprintf("%012d", usr.Points)
	case "created_at":
		return usr.CreatedAt.Format(sortableTime)
	case "last_login":
		return usr.LastLogin.Format(sortableTime)
	default:
		return ""
	}
}

const sortableTime = "2006-01-02T15:04:05.000000000"

func (repo *userRepository) GetUser(_ context.Context, id string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return usr, nil
	}
	return user.User{}, core.NewNotFoundError("user", id)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.write(ctx)()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, core.NewNotFoundError("user", usr.ID)
	}
	// points are only changed by AddPoints
	usr.Points = orig.Points
	usr.CreatedAt = orig.CreatedAt
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) AddPoints(ctx context.Context, id string, points int) (user.User, error) {
	defer repo.db.write(ctx)()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.User{}, core.NewNotFoundError("user", id)
	}
	usr.Points += points
	repo.db.users[id] = usr
	return usr, nil
}
