package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

const pgUniqueViolation = "23505"

var PurgeExpiredEmailTokensSQL = `UPDATE "users"
SET
	"email_token" = NULL,
	"email_token_purpose" = NULL,
	"email_token_expires_at" = NULL
WHERE
	"email_token_expires_at" IS NOT NULL
AND "email_token_expires_at" <= ?;`

// Users is the user record store
type Users interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByEmailTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)
	List(ctx context.Context) ([]*User, error)

	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User, columns ...string) (*User, error)
	// UpdateIfTokenTx updates record only while its stored email token
	// still equals token. It returns ErrRecordNotFound otherwise.
	UpdateIfTokenTx(ctx context.Context, tx bun.IDB, record *User, token string, columns ...string) (*User, error)
	Delete(ctx context.Context, id int64) (*User, error)

	PurgeExpiredEmailTokens(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (a *users) GetByID(ctx context.Context, id int64) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error) {
	return a.getBy(ctx, tx, "id", id)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.getBy(ctx, tx, "email", NormalizeEmail(email))
}

func (a *users) GetByEmailTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrRecordNotFound
	}
	return a.getBy(ctx, tx, "email_token", token)
}

func (a *users) getBy(ctx context.Context, tx bun.IDB, column string, value any) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, mapStoreError(err, column)
	}

	return record, nil
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	records := make([]*User, 0)
	err := a.db.NewSelect().
		Model(&records).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapStoreError(err, "list")
	}
	return records, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)

	_, err := tx.NewInsert().
		Model(record).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, mapStoreError(err, "insert")
	}

	return record, nil
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User, columns ...string) (*User, error) {
	return a.update(ctx, tx, record, nil, columns...)
}

func (a *users) UpdateIfTokenTx(ctx context.Context, tx bun.IDB, record *User, token string, columns ...string) (*User, error) {
	return a.update(ctx, tx, record, &token, columns...)
}

func (a *users) update(ctx context.Context, tx bun.IDB, record *User, token *string, columns ...string) (*User, error) {
	record.Email = NormalizeEmail(record.Email)
	record.UpdatedAt = time.Now().UTC()

	q := tx.NewUpdate().
		Model(record).
		WherePK()

	if len(columns) > 0 {
		cols := append(make([]string, 0, len(columns)+1), columns...)
		q = q.Column(append(cols, "updated_at")...)
	} else {
		q = q.ExcludeColumn("id", "created_at")
	}

	if token != nil {
		q = q.Where("email_token = ?", *token)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, mapStoreError(err, "update")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, fmt.Errorf("update user %d: %w", record.ID, ErrRecordNotFound)
	}

	return record, nil
}

func (a *users) Delete(ctx context.Context, id int64) (*User, error) {
	var record *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		record, err = a.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		_, err = tx.NewDelete().
			Model((*User)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return mapStoreError(err, "delete")
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return record, nil
}

func (a *users) PurgeExpiredEmailTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := a.db.NewRaw(PurgeExpiredEmailTokensSQL, now.UTC()).Exec(ctx)
	if err != nil {
		return 0, mapStoreError(err, "purge")
	}
	return res.RowsAffected()
}

func (a *users) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RoleUser
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
}

func mapStoreError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrRecordNotFound)
	}

	if IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %s", op, ErrDuplicateRecord, err.Error())
	}

	return err
}

// IsUniqueViolation reports unique constraint errors from PostgreSQL or SQLite
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsRecordNotFound reports a store lookup miss
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
