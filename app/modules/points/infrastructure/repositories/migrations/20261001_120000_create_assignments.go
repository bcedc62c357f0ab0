package migrations

import (
	"context"
	"fmt"

	pointsdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating assignments table...")
			_, err := db.NewCreateTable().
				Model((*pointsdb.Assignment)(nil)).
				IfNotExists().
				ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
				ForeignKey(`("server_id") REFERENCES "servers" ("id") ON DELETE CASCADE`).
				ForeignKey(`("role_id") REFERENCES "roles" ("id") ON DELETE RESTRICT`).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("create assignments: %w", err)
			}
			fmt.Println("assignments table created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping assignments table...")
			_, err := db.NewDropTable().Model((*pointsdb.Assignment)(nil)).IfExists().Cascade().Exec(ctx)
			return err
		},
	)
}
