package guilddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const foreignKeyViolation = "23503"

// Impl implements Repository on bun.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new guild repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) GetServerByDiscordID(ctx context.Context, db bun.IDB, guildID string) (*Server, error) {
	if db == nil {
		db = r.db
	}
	server := new(Server)
	err := db.NewSelect().
		Model(server).
		Where("discord_id = ?", guildID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("guilddb.GetServerByDiscordID: %w", err)
	}
	return server, nil
}

func (r *Impl) GetServerByID(ctx context.Context, db bun.IDB, id int64) (*Server, error) {
	if db == nil {
		db = r.db
	}
	server := new(Server)
	err := db.NewSelect().
		Model(server).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("guilddb.GetServerByID: %w", err)
	}
	return server, nil
}

func (r *Impl) CreateServer(ctx context.Context, db bun.IDB, server *Server) (bool, error) {
	if db == nil {
		db = r.db
	}
	res, err := db.NewInsert().
		Model(server).
		On("CONFLICT (discord_id) DO NOTHING").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("guilddb.CreateServer: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("guilddb.CreateServer: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	existing, err := r.GetServerByDiscordID(ctx, db, server.DiscordID)
	if err != nil {
		return false, fmt.Errorf("guilddb.CreateServer: %w", err)
	}
	*server = *existing
	return false, nil
}

func (r *Impl) UpdateServer(ctx context.Context, db bun.IDB, guildID string, updates *UpdateFields) error {
	if updates.IsEmpty() {
		return nil
	}
	if db == nil {
		db = r.db
	}

	q := db.NewUpdate().
		Model((*Server)(nil)).
		Where("discord_id = ?", guildID).
		Set("updated_at = ?", time.Now().UTC())

	set := func(column string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			q = q.Set("? = NULL", bun.Ident(column))
			return
		}
		q = q.Set("? = ?", bun.Ident(column), *v)
	}
	set("country", updates.Country)
	set("verified_role_id", updates.VerifiedRoleID)
	set("commands_channel_id", updates.CommandsChannelID)
	set("leaderboard_channel_id", updates.LeaderboardChannelID)

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("guilddb.UpdateServer: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *Impl) GetRoles(ctx context.Context, db bun.IDB, serverID int64) ([]Role, error) {
	if db == nil {
		db = r.db
	}
	var roles []Role
	err := db.NewSelect().
		Model(&roles).
		Where("server_id = ?", serverID).
		Order("min_points ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("guilddb.GetRoles: %w", err)
	}
	return roles, nil
}

func (r *Impl) UpsertRole(ctx context.Context, db bun.IDB, role *Role) error {
	if db == nil {
		db = r.db
	}
	_, err := db.NewInsert().
		Model(role).
		On("CONFLICT (server_id, min_points) DO UPDATE").
		Set("discord_id = EXCLUDED.discord_id").
		Set("name = EXCLUDED.name").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("guilddb.UpsertRole: %w", err)
	}
	return nil
}

func (r *Impl) DeleteRole(ctx context.Context, db bun.IDB, serverID int64, discordRoleID string) error {
	if db == nil {
		db = r.db
	}
	res, err := db.NewDelete().
		Model((*Role)(nil)).
		Where("server_id = ?", serverID).
		Where("discord_id = ?", discordRoleID).
		Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == foreignKeyViolation {
			return ErrRoleInUse
		}
		return fmt.Errorf("guilddb.DeleteRole: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
