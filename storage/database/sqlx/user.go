package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/user"
)

const userColumns = `id, name, email, role, active_course_id, points, is_active, created_at, updated_at, last_login`

// orderable user columns
var userOrdering = map[string]bool{
	"name":       true,
	"email":      true,
	"role":       true,
	"points":     true,
	"created_at": true,
	"last_login": true,
}

type userRow struct {
	ID             string      `db:"id"`
	Name           string      `db:"name"`
	Email          string      `db:"email"`
	Role           string      `db:"role"`
	ActiveCourseID null.String `db:"active_course_id"`
	Points         int         `db:"points"`
	IsActive       bool        `db:"is_active"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
	LastLogin      null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:             usr.ID,
		Name:           usr.Name,
		Email:          usr.Email,
		Role:           usr.Role,
		ActiveCourseID: null.NewString(usr.ActiveCourseID, usr.ActiveCourseID != ""),
		Points:         usr.Points,
		IsActive:       usr.IsActive,
		CreatedAt:      usr.CreatedAt.UTC(),
		UpdatedAt:      usr.UpdatedAt.UTC(),
		LastLogin:      null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Role:           r.Role,
		ActiveCourseID: r.ActiveCourseID.String,
		Points:         r.Points,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
		LastLogin:      r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	r := toUserRow(usr)
	_, err := repo.db.exec(ctx, `
		INSERT INTO "user" (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Email, r.Role, r.ActiveCourseID, r.Points, r.IsActive, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return r.user(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		// users with ID, Name or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where = append(where, "(id ILIKE ? OR name ILIKE ? OR email ILIKE ?)")
			args = append(args, val, val, val)
		}
		if len(filter.Roles) > 0 {
			where = append(where, "role IN (?)")
			args = append(args, filter.Roles)
		}
		if filter.IsActive != nil {
			where = append(where, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}

	q := `SELECT ` + userColumns + ` FROM "user"`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, userOrdering, "created_at DESC")

	var rows []userRow
	if err := repo.db.selectIn(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, id string) (user.User, error) {
	var r userRow
	if err := repo.db.get(ctx, &r, `SELECT `+userColumns+` FROM "user" WHERE id = ?`, id); err != nil {
		return user.User{}, trapNoRowsErr(err, "user", id, "getting user")
	}
	return r.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	r := toUserRow(usr)
	var updated userRow
	err := repo.db.get(ctx, &updated, `
		UPDATE "user"
		SET name = ?, email = ?, role = ?, active_course_id = ?, is_active = ?, updated_at = ?, last_login = ?
		WHERE id = ?
		RETURNING `+userColumns,
		r.Name, r.Email, r.Role, r.ActiveCourseID, r.IsActive, r.UpdatedAt, r.LastLogin, r.ID,
	)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, "user", usr.ID, "updating user")
	}
	return updated.user(), nil
}

func (repo userRepository) AddPoints(ctx context.Context, id string, points int) (user.User, error) {
	var r userRow
	err := repo.db.get(ctx, &r, `
		UPDATE "user" SET points = points + ?, updated_at = ? WHERE id = ?
		RETURNING `+userColumns,
		points, time.Now().UTC(), id,
	)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, "user", id, "adding points")
	}
	return r.user(), nil
}

// orderBy builds an ORDER BY clause out of the allowed fields of ordering.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool, fallback string) string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	if len(orderList) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
