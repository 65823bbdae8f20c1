// Package seed loads the baseline col-git data into a freshly migrated
// database: an administrator, the permission catalogue and a welcome
// community.
package seed

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/colgit/internal/persistence/gateway"
)

var ErrInvalidAdmin = errors.New("invalid seed administrator")

// Permission is a row of the permission catalogue.
type Permission struct {
	Name        string
	Description string
}

// Permissions is the catalogue granted to the seeded administrator.
var Permissions = []Permission{
	{Name: "manage_users", Description: "Manage user accounts"},
	{Name: "manage_projects", Description: "Manage projects"},
	{Name: "manage_repositories", Description: "Manage repositories"},
	{Name: "view_analytics", Description: "View analytics"},
	{Name: "manage_settings", Description: "Manage system settings"},
	{Name: "manage_roles", Description: "Manage roles"},
	{Name: "manage_billing", Description: "Manage billing"},
	{Name: "support_tickets", Description: "Handle support tickets"},
}

const (
	welcomeCommunityName        = "ColGit Community"
	welcomeCommunityDescription = "The official ColGit community"
)

// Admin describes the administrator account created on an empty database.
type Admin struct {
	Username string
	Email    string
	Password string
	FullName string
}

func (a Admin) validate() error {
	if strings.TrimSpace(a.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidAdmin)
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return fmt.Errorf("%w: email %q: %v", ErrInvalidAdmin, a.Email, err)
	}
	if len(a.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidAdmin)
	}
	return nil
}

// Option customises a Loader.
type Option func(*Loader)

// WithClock overrides the time source used for created_at columns.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides the generator of primary keys.
func WithIDGenerator(next func() string) Option {
	return func(l *Loader) {
		if next != nil {
			l.newID = next
		}
	}
}

// WithLogger sets the loader logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithPasswordParams overrides the argon2id cost parameters.
func WithPasswordParams(params Argon2idParams) Option {
	return func(l *Loader) {
		l.params = params
	}
}

// Loader inserts the baseline data exactly once.
type Loader struct {
	gw     gateway.Gateway
	admin  Admin
	now    func() time.Time
	newID  func() string
	logger zerolog.Logger
	params Argon2idParams
}

// NewLoader validates admin and returns a loader writing through gw.
func NewLoader(gw gateway.Gateway, admin Admin, opts ...Option) (*Loader, error) {
	if gw == nil {
		return nil, errors.New("seed: gateway is required")
	}
	if admin.Username == "" {
		admin.Username = "admin"
	}
	if admin.FullName == "" {
		admin.FullName = "Admin User"
	}
	if err := admin.validate(); err != nil {
		return nil, err
	}

	l := &Loader{
		gw:     gw,
		admin:  admin,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: zerolog.Nop(),
		params: DefaultArgon2idParams,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run seeds the database when the users table is empty. It reports whether
// anything was written. Existing data is never touched.
func (l *Loader) Run(ctx context.Context) (bool, error) {
	hash, err := HashPassword(l.admin.Password, l.params)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	seeded := false
	err = l.gw.WithinTx(ctx, func(tx gateway.Gateway) error {
		var users int64
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&users); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if users > 0 {
			l.logger.Info().Int64("users", users).Msg("seed skipped, database already has data")
			return nil
		}

		now := l.now().UTC()
		adminID := l.newID()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, username, email, password_hash, full_name, role, is_active, is_verified, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			adminID, l.admin.Username, l.admin.Email, hash, l.admin.FullName, "admin", true, true, now, now,
		); err != nil {
			return fmt.Errorf("insert admin user: %w", err)
		}

		for _, p := range Permissions {
			permissionID := l.newID()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO permissions (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				permissionID, p.Name, p.Description, now, now,
			); err != nil {
				return fmt.Errorf("insert permission %s: %w", p.Name, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_permissions (user_id, permission_id, created_at) VALUES (?, ?, ?)`,
				adminID, permissionID, now,
			); err != nil {
				return fmt.Errorf("grant permission %s: %w", p.Name, err)
			}
		}

		communityID := l.newID()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO communities (id, name, description, owner_id, is_public, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			communityID, welcomeCommunityName, welcomeCommunityDescription, adminID, true, now, now,
		); err != nil {
			return fmt.Errorf("insert welcome community: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO community_members (community_id, user_id, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			communityID, adminID, "owner", now, now,
		); err != nil {
			return fmt.Errorf("insert community owner: %w", err)
		}

		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if seeded {
		l.logger.Info().
			Str("admin", l.admin.Username).
			Int("permissions", len(Permissions)).
			Msg("seed data loaded")
	}
	return seeded, nil
}
