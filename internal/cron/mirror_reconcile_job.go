package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/canteen-backend/internal/mirror"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
)

const defaultReconcileBatchSize = 200

type accountReconciler interface {
	AccountIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	ReconcileAccount(ctx context.Context, accountID uuid.UUID) (mirror.Drift, error)
}

type MirrorReconcileJobParams struct {
	Logger    *logger.Logger
	Mirror    accountReconciler
	BatchSize int
}

type mirrorReconcileJob struct {
	logg      *logger.Logger
	mirror    accountReconciler
	batchSize int
}

// NewMirrorReconcileJob walks every account and corrects its on-chain
// balances. One failing account does not stop the walk; all failures are
// returned together.
func NewMirrorReconcileJob(params MirrorReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Mirror == nil {
		return nil, fmt.Errorf("mirror service required")
	}
	size := params.BatchSize
	if size <= 0 {
		size = defaultReconcileBatchSize
	}
	return &mirrorReconcileJob{logg: params.Logger, mirror: params.Mirror, batchSize: size}, nil
}

func (j *mirrorReconcileJob) Name() string { return "mirror-reconcile" }

func (j *mirrorReconcileJob) Run(ctx context.Context) error {
	var (
		errs      error
		after     uuid.UUID
		checked   int
		corrected int
	)
	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		ids, err := j.mirror.AccountIDsAfter(ctx, after, j.batchSize)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list accounts after %s: %w", after, err))
		}
		for _, id := range ids {
			drift, err := j.mirror.ReconcileAccount(ctx, id)
			checked++
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("account %s: %w", id, err))
				continue
			}
			if drift != (mirror.Drift{}) {
				corrected++
			}
		}
		if len(ids) < j.batchSize {
			break
		}
		after = ids[len(ids)-1]
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"accounts_checked":   checked,
		"accounts_corrected": corrected,
		"failures":           len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "mirror reconciliation pass complete")
	return errs
}
