package migrations

import (
	"context"
	"fmt"

	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating users table...")
			if _, err := db.NewCreateTable().Model((*userdb.User)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create users: %w", err)
			}
			if _, err := db.NewCreateIndex().
				Model((*userdb.User)(nil)).
				Index("idx_users_last_update").
				Column("last_update").
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create users last_update index: %w", err)
			}
			fmt.Println("users table created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping users table...")
			if _, err := db.NewDropTable().Model((*userdb.User)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return err
			}
			return nil
		},
	)
}
