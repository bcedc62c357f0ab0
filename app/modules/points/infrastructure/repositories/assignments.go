package pointsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// Impl implements Repository on bun.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new assignment repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) AcquireAssignmentLock(ctx context.Context, db bun.IDB, serverID, userID int64) error {
	if db == nil {
		db = r.db
	}
	// hashtext() gives a stable int4 key for the pair.
	key := fmt.Sprintf("assignment:%d:%d", serverID, userID)
	_, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx)
	if err != nil {
		return fmt.Errorf("pointsdb.AcquireAssignmentLock: %w", err)
	}
	return nil
}

func (r *Impl) GetAssignment(ctx context.Context, db bun.IDB, userID, serverID int64) (*Assignment, error) {
	if db == nil {
		db = r.db
	}
	assignment := new(Assignment)
	err := db.NewSelect().
		Model(assignment).
		Where("user_id = ?", userID).
		Where("server_id = ?", serverID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("pointsdb.GetAssignment: %w", err)
	}
	return assignment, nil
}

func (r *Impl) GetAssignmentsByUser(ctx context.Context, db bun.IDB, userID int64) ([]Assignment, error) {
	if db == nil {
		db = r.db
	}
	var assignments []Assignment
	err := db.NewSelect().
		Model(&assignments).
		Where("user_id = ?", userID).
		Order("server_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("pointsdb.GetAssignmentsByUser: %w", err)
	}
	return assignments, nil
}

func (r *Impl) GetHolderDiscordIDs(ctx context.Context, db bun.IDB, roleID int64) ([]string, error) {
	if db == nil {
		db = r.db
	}
	var ids []string
	err := db.NewSelect().
		Model((*Assignment)(nil)).
		ColumnExpr("u.discord_id").
		Join("JOIN users AS u ON u.id = a.user_id").
		Where("a.role_id = ?", roleID).
		OrderExpr("u.discord_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("pointsdb.GetHolderDiscordIDs: %w", err)
	}
	return ids, nil
}

func (r *Impl) InsertAssignment(ctx context.Context, db bun.IDB, assignment *Assignment) error {
	if db == nil {
		db = r.db
	}
	_, err := db.NewInsert().
		Model(assignment).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("pointsdb.InsertAssignment: %w", err)
	}
	return nil
}

func (r *Impl) UpdateAssignment(ctx context.Context, db bun.IDB, assignment *Assignment) error {
	if db == nil {
		db = r.db
	}
	res, err := db.NewUpdate().
		Model(assignment).
		Column("role_id", "points", "last_update").
		Where("user_id = ?", assignment.UserID).
		Where("server_id = ?", assignment.ServerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("pointsdb.UpdateAssignment: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
