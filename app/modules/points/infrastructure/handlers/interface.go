package pointshandlers

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	pointsservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/application"
	pointsdomain "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/domain"
)

// Handlers handles points events.
type Handlers interface {
	HandleReconcileRequested(msg *message.Message) ([]*message.Message, error)
}

// Reconciler is the points service surface the handlers use.
type Reconciler interface {
	ReconcileRanks(ctx context.Context, guildID string, osuID int64, ranks []pointsdomain.RankCount, scheme pointsdomain.Scheme) (pointsservice.ReconcileResult, error)
}

// RoleApplier mirrors an assignment onto Discord.
type RoleApplier interface {
	ApplyAssignment(ctx context.Context, res *pointsservice.AssignmentResult) error
}
