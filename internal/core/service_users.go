package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/leads/internal/auth"
	db "github.com/JonMunkholm/leads/internal/database"
	"github.com/JonMunkholm/leads/internal/logging"
)

// UserInput creates or updates a user. An empty Password on update keeps
// the current one.
type UserInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

func (in UserInput) normalized() (UserInput, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = RoleUser
	}
	switch {
	case in.Username == "":
		return in, invalid("username", "username is required")
	case in.Email == "":
		return in, invalid("email", "email is required")
	case in.Role != RoleAdmin && in.Role != RoleUser:
		return in, invalid("role", "role must be admin or user")
	}
	return in, nil
}

// ListUsers returns every user ordered by username.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	rows, err := db.New(s.pool).ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]User, len(rows))
	for i, r := range rows {
		users[i] = userFromRow(r)
	}
	return users, nil
}

// GetUser returns a user. Non-admins may only read themselves.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if a, ok := ActorFromContext(ctx); ok && !a.IsAdmin() && a.ID != id {
		return nil, ErrForbidden
	}
	uid, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	row, err := db.New(s.pool).GetUser(ctx, uid)
	if err != nil {
		return nil, notFound("user", err)
	}
	u := userFromRow(row)
	return &u, nil
}

// CreateUser stores a new user with a bcrypt password hash.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	in, err := in.normalized()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, invalid("password", err.Error())
	}

	var out User
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		row, err := db.New(tx).CreateUser(ctx, db.CreateUserParams{
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
		})
		if err != nil {
			return userWriteError(err)
		}
		out = userFromRow(row)
		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionUserCreate,
			Entity:       "user",
			EntityID:     out.ID,
			RowsAffected: 1,
			Detail:       map[string]any{"username": out.Username, "role": out.Role},
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser changes a user's profile and role, and the password when one
// is given. An admin cannot demote themselves.
func (s *Service) UpdateUser(ctx context.Context, id string, in UserInput) (*User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	uid, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	in, err = in.normalized()
	if err != nil {
		return nil, err
	}
	if a, ok := ActorFromContext(ctx); ok && a.ID == id && in.Role != RoleAdmin {
		return nil, invalid("role", "you cannot remove your own admin role")
	}

	var hash string
	if in.Password != "" {
		if hash, err = auth.HashPassword(in.Password); err != nil {
			return nil, invalid("password", err.Error())
		}
	}

	var out User
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		row, err := q.UpdateUser(ctx, db.UpdateUserParams{
			ID:       uid,
			Username: in.Username,
			Email:    in.Email,
			Role:     in.Role,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("user", err)
			}
			return userWriteError(err)
		}
		if hash != "" {
			if err := q.UpdateUserPassword(ctx, db.UpdateUserPasswordParams{ID: uid, PasswordHash: hash}); err != nil {
				return fmt.Errorf("update password: %w", err)
			}
		}
		out = userFromRow(row)
		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionUserUpdate,
			Entity:       "user",
			EntityID:     out.ID,
			RowsAffected: 1,
			Detail:       map[string]any{"role": out.Role, "password_changed": hash != ""},
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a user. Callers cannot delete themselves. The user's
// assignments are removed with it.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if a, ok := ActorFromContext(ctx); ok && a.ID == id {
		return invalid("id", "you cannot delete yourself")
	}
	uid, err := parseID("user", id)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		n, err := db.New(tx).DeleteUser(ctx, uid)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("user %w", ErrNotFound)
		}
		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionUserDelete,
			Entity:       "user",
			EntityID:     id,
			RowsAffected: int(n),
		})
	})
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords return the same ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	row, err := db.New(s.pool).GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.CheckPassword(row.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	u := userFromRow(row)
	return &u, nil
}

// EnsureAdmin creates the first admin account and the Default workspace
// when no admin exists yet. It reports whether an admin was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password, email string) (bool, error) {
	logger := logging.FromContext(ctx)
	q := db.New(s.pool)

	n, err := q.CountAdmins(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	created := false
	if n == 0 {
		if username == "" || password == "" {
			logger.Warn("no admin account exists; set ADMIN_USERNAME and ADMIN_PASSWORD to create one")
		} else {
			u, err := s.CreateUser(ctx, UserInput{
				Username: username,
				Email:    email,
				Password: password,
				Role:     RoleAdmin,
			})
			if err != nil {
				return false, fmt.Errorf("create admin: %w", err)
			}
			logger.Info("admin account created", "username", u.Username)
			created = true
		}
	}

	if _, err := q.GetWorkspaceByName(ctx, DefaultWorkspaceName); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return created, fmt.Errorf("get default workspace: %w", err)
		}
		if _, err := s.CreateWorkspace(ctx, WorkspaceInput{Name: DefaultWorkspaceName}); err != nil {
			return created, fmt.Errorf("create default workspace: %w", err)
		}
		logger.Info("default workspace created", "name", DefaultWorkspaceName)
	}
	return created, nil
}

func userWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return invalid("username", "username or email already exists")
	}
	return fmt.Errorf("save user: %w", err)
}

func userFromRow(r db.User) User {
	return User{
		ID:        PgUUIDToString(r.ID),
		Username:  r.Username,
		Email:     r.Email,
		Role:      r.Role,
		CreatedAt: pgTime(r.CreatedAt),
	}
}
