package migrations

import (
	"context"
	"fmt"

	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating servers and roles tables...")
			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				if _, err := tx.NewCreateTable().Model((*guilddb.Server)(nil)).IfNotExists().Exec(ctx); err != nil {
					return fmt.Errorf("create servers: %w", err)
				}
				if _, err := tx.NewCreateTable().
					Model((*guilddb.Role)(nil)).
					IfNotExists().
					ForeignKey(`("server_id") REFERENCES "servers" ("id") ON DELETE CASCADE`).
					Exec(ctx); err != nil {
					return fmt.Errorf("create roles: %w", err)
				}
				return nil
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping servers and roles tables...")
			if _, err := db.NewDropTable().Model((*guilddb.Role)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewDropTable().Model((*guilddb.Server)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return err
			}
			return nil
		},
	)
}
