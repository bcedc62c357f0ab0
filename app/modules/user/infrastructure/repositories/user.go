package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Impl implements Repository on bun.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new user repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) getOne(ctx context.Context, db bun.IDB, column string, value any) (*User, error) {
	if db == nil {
		db = r.db
	}
	user := new(User)
	err := db.NewSelect().
		Model(user).
		Where("? = ?", bun.Ident(column), value).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *Impl) GetUserByID(ctx context.Context, db bun.IDB, id int64) (*User, error) {
	user, err := r.getOne(ctx, db, "id", id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("userdb.GetUserByID: %w", err)
	}
	return user, err
}

func (r *Impl) GetUserByOsuID(ctx context.Context, db bun.IDB, osuID int64) (*User, error) {
	user, err := r.getOne(ctx, db, "osu_id", osuID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("userdb.GetUserByOsuID: %w", err)
	}
	return user, err
}

func (r *Impl) GetUserByDiscordID(ctx context.Context, db bun.IDB, discordID string) (*User, error) {
	user, err := r.getOne(ctx, db, "discord_id", discordID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("userdb.GetUserByDiscordID: %w", err)
	}
	return user, err
}

func (r *Impl) CreateUser(ctx context.Context, db bun.IDB, user *User) error {
	if db == nil {
		db = r.db
	}
	res, err := db.NewInsert().
		Model(user).
		On("CONFLICT DO NOTHING").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("userdb.CreateUser: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *Impl) UpdatePoints(ctx context.Context, db bun.IDB, id int64, update PointsUpdate) error {
	if db == nil {
		db = r.db
	}
	q := db.NewUpdate().
		Model((*User)(nil)).
		Set("points = ?", update.Points).
		Set("last_update = ?", update.At.UTC()).
		Where("id = ?", id)
	if update.Username != "" {
		q = q.Set("username = ?", update.Username)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("userdb.UpdatePoints: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *Impl) GetStaleUsers(ctx context.Context, db bun.IDB, before time.Time, limit int) ([]User, error) {
	if db == nil {
		db = r.db
	}
	var users []User
	err := db.NewSelect().
		Model(&users).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("u.last_update IS NULL").WhereOr("u.last_update < ?", before.UTC())
		}).
		// Linked members who never reconciled have nothing to refresh.
		Where("EXISTS (SELECT 1 FROM assignments AS a WHERE a.user_id = u.id)").
		OrderExpr("u.last_update ASC NULLS FIRST").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("userdb.GetStaleUsers: %w", err)
	}
	return users, nil
}
