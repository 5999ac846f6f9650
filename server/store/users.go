package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"taskflow/server/models"
	"taskflow/server/query"
)

const userColumns = `u.id, u.email, u.name, u.kind, u.status, u.organization_id, u.created_at`

// NewUser is the input for CreateUser. OrganizationID must be nil exactly for super-admins.
type NewUser struct {
	Email          string
	Name           string
	Password       string
	Kind           models.UserKind
	OrganizationID *int64
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *Store) CreateUser(ctx context.Context, in NewUser) (models.User, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	var u models.User
	err = get(ctx, s.db, &u, `insert into users as u (email, password_hash, name, kind, organization_id)
		values (?, ?, ?, ?, ?) returning `+userColumns,
		strings.TrimSpace(in.Email), hash, in.Name, in.Kind, in.OrganizationID)
	if isUniqueViolation(err) {
		return models.User{}, models.NewValidationError("email", "Email is already taken")
	}
	return u, err
}

// Authenticate checks credentials. Unknown emails and wrong passwords both
// yield ErrNotFound.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	var row struct {
		models.User
		Hash string `db:"password_hash"`
	}
	err := get(ctx, s.db, &row, `select `+userColumns+`, u.password_hash from users u where lower(u.email) = lower(?)`, email)
	if err != nil {
		return models.User{}, err
	}
	if row.Hash == "" || bcrypt.CompareHashAndPassword([]byte(row.Hash), []byte(password)) != nil {
		return models.User{}, models.ErrNotFound
	}
	return row.User, nil
}

// UserProfile returns the user joined with its organization's status.
func (s *Store) UserProfile(ctx context.Context, id int64) (models.Profile, error) {
	var p models.Profile
	err := get(ctx, s.db, &p, `select `+userColumns+`, o.status as organization_status
		from users u left join organizations o on o.id = u.organization_id
		where u.id = ?`, id)
	return p, err
}

func (s *Store) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (string, time.Time, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	expires := time.Now().Add(ttl)
	if _, err := exec(ctx, s.db, `insert into sessions (user_id, token, expires_at) values (?, ?, ?)`, userID, token, expires); err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func (s *Store) UserIDBySession(ctx context.Context, token string) (int64, error) {
	var id int64
	err := get(ctx, s.db, &id, `select user_id from sessions where token = ? and expires_at > now()`, token)
	return id, err
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := exec(ctx, s.db, `delete from sessions where token = ?`, token)
	return err
}

// DeleteUserSessions signs a user out everywhere.
func (s *Store) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := exec(ctx, s.db, `delete from sessions where user_id = ?`, userID)
	return err
}

var usersList = listSpec{
	columns: userColumns,
	from:    "users u",
	sort: map[string]string{
		"name":      "u.name",
		"email":     "u.email",
		"status":    "u.status",
		"createdAt": "u.created_at",
	},
	filters: map[string]string{"status": "u.status"},
	search:  []string{"u.name", "u.email"},
	order:   "u.id",
}

// UserListSchema is the query schema of employee and admin listings.
func UserListSchema() query.Schema { return usersList.Schema() }

func (s *Store) ListEmployees(ctx context.Context, organizationID int64, d query.Descriptor) (models.Page[models.User], error) {
	return list[models.User](ctx, s.db, usersList, d,
		where("u.organization_id = ?", organizationID),
		where("u.kind = ?", models.KindEmployee))
}

func (s *Store) ListOrganizationAdmins(ctx context.Context, organizationID int64, d query.Descriptor) (models.Page[models.User], error) {
	return list[models.User](ctx, s.db, usersList, d,
		where("u.organization_id = ?", organizationID),
		where("u.kind = ?", models.KindOrganizationAdmin))
}

// Employee returns a user of the organization. Callers check the kind.
func (s *Store) Employee(ctx context.Context, organizationID, id int64) (models.User, error) {
	var u models.User
	err := get(ctx, s.db, &u, `select `+userColumns+` from users u where u.id = ? and u.organization_id = ?`, id, organizationID)
	return u, err
}

func (s *Store) UpdateUserName(ctx context.Context, id int64, name string) (models.User, error) {
	var u models.User
	err := get(ctx, s.db, &u, `update users as u set name = ? where u.id = ? returning `+userColumns, strings.TrimSpace(name), id)
	return u, err
}

// SetUserStatus changes a user's status; banning also ends the user's sessions.
func (s *Store) SetUserStatus(ctx context.Context, id int64, status models.UserStatus) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := mustAffect(exec(ctx, tx, `update users set status = ? where id = ?`, status, id)); err != nil {
			return err
		}
		if status == models.UserBanned {
			if _, err := exec(ctx, tx, `delete from sessions where user_id = ?`, id); err != nil {
				return fmt.Errorf("end sessions: %w", err)
			}
		}
		return nil
	})
}
