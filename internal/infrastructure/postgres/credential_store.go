package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/oksasatya/scopeguard/internal/domain/entity"
	"github.com/oksasatya/scopeguard/internal/domain/repository"
)

const (
	uniqueViolation = "23505"
	invalidTextRepr = "22P02"
)

const (
	insertUserSQL = `
		INSERT INTO users (email, full_name, password_hash, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	findUserByEmailSQL = `
		SELECT id, email, full_name, password_hash, is_active, created_at
		FROM users
		WHERE email = $1`

	setActiveSQL = `
		UPDATE users
		SET is_active = $2
		WHERE id = $1
		RETURNING id, email, full_name, password_hash, is_active, created_at`

	scopesForUserSQL = `
		SELECT s.name
		FROM user_scopes us
		JOIN scopes s ON s.id = us.scope_id
		WHERE us.user_id = $1
		ORDER BY s.name`

	upsertScopeSQL = `
		INSERT INTO scopes (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description`

	scopeIDByNameSQL = `SELECT id FROM scopes WHERE name = $1`

	grantScopeSQL = `
		INSERT INTO user_scopes (user_id, scope_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
)

// CredentialStore is the Postgres implementation of repository.CredentialStore.
// Every operation checks out its own connection and returns it on exit.
type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Insert relies on the UNIQUE(email) constraint; there is no pre-check, so two
// concurrent inserts for one email resolve to exactly one success.
func (s *CredentialStore) Insert(ctx context.Context, u *entity.User, defaultScopes []string) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	return WithTx(ctx, conn, nil, func(ctx context.Context, tx DBTX) error {
		err := tx.QueryRowContext(ctx, insertUserSQL, u.Email, u.FullName, u.PasswordHash, u.IsActive).
			Scan(&u.ID, &u.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicateEmail
			}
			return errors.Wrap(err, "insert user")
		}

		granted := make([]string, 0, len(defaultScopes))
		for _, name := range defaultScopes {
			ok, err := grant(ctx, tx, u.ID, name)
			if err != nil {
				return err
			}
			if ok {
				granted = append(granted, name)
			}
		}
		u.Scopes = entity.NewScopeSet(granted...).Names()
		return nil
	})
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	u := &entity.User{}
	err = conn.QueryRowContext(ctx, findUserByEmailSQL, email).
		Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrap(err, "find user by email")
	}
	return u, nil
}

// SetActive treats a malformed id like an unknown one.
func (s *CredentialStore) SetActive(ctx context.Context, userID string, active bool) (*entity.User, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	u := &entity.User{}
	err = conn.QueryRowContext(ctx, setActiveSQL, userID, active).
		Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) || hasCode(err, invalidTextRepr) {
			return nil, errors.Wrapf(repository.ErrNotFound, "user %q", userID)
		}
		return nil, errors.Wrap(err, "set user active")
	}
	return u, nil
}

func (s *CredentialStore) ScopesForUser(ctx context.Context, userID string) ([]string, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, scopesForUserSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query scopes")
	}
	defer rows.Close()

	scopes := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan scope")
		}
		scopes = append(scopes, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate scopes")
	}
	return scopes, nil
}

func (s *CredentialStore) EnsureScope(ctx context.Context, sc entity.Scope) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, upsertScopeSQL, sc.Name, sc.Description); err != nil {
		return errors.Wrapf(err, "ensure scope %q", sc.Name)
	}
	return nil
}

// GrantScopes is all-or-nothing: an unknown scope name aborts the whole grant
// with repository.ErrNotFound.
func (s *CredentialStore) GrantScopes(ctx context.Context, userID string, names ...string) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	return WithTx(ctx, conn, nil, func(ctx context.Context, tx DBTX) error {
		for _, name := range names {
			ok, err := grant(ctx, tx, userID, name)
			if err != nil {
				return err
			}
			if !ok {
				return errors.Wrapf(repository.ErrNotFound, "scope %q", name)
			}
		}
		return nil
	})
}

// grant links userID to the named scope. It reports false when the scope does
// not exist.
func grant(ctx context.Context, tx DBTX, userID, name string) (bool, error) {
	var scopeID int64
	if err := tx.QueryRowContext(ctx, scopeIDByNameSQL, name).Scan(&scopeID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrapf(err, "lookup scope %q", name)
	}
	if _, err := tx.ExecContext(ctx, grantScopeSQL, userID, scopeID); err != nil {
		return false, errors.Wrapf(err, "grant scope %q", name)
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == code
}

var _ repository.CredentialStore = (*CredentialStore)(nil)
