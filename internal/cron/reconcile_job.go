package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/karatworks/goldbooks-backend/internal/ledger"
	"github.com/karatworks/goldbooks-backend/pkg/config"
	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
	"github.com/karatworks/goldbooks-backend/pkg/logger"
	"github.com/karatworks/goldbooks-backend/pkg/metrics"
)

const defaultReconcileBatchSize = 200

// ledgerAuditRepo reads the data the reconciliation sweep compares.
type ledgerAuditRepo interface {
	ListClientBalances(ctx context.Context, afterID uuid.UUID, limit int) ([]ledger.ClientBalance, error)
	SumEntryDeltas(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
}

// ReconcileJobParams configure the ledger reconciliation job.
type ReconcileJobParams struct {
	Logger     *logger.Logger
	Repository ledgerAuditRepo
	Metrics    *metrics.ReceiptMetrics
	Config     config.ReconcileConfig
}

type reconcileJob struct {
	logg      *logger.Logger
	repo      ledgerAuditRepo
	metrics   *metrics.ReceiptMetrics
	batchSize int
}

// NewReconcileJob builds the job that audits stored client balances
// against the sum of their ledger entries.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	batchSize := params.Config.BatchSize
	if batchSize <= 0 {
		batchSize = defaultReconcileBatchSize
	}
	return &reconcileJob{
		logg:      params.Logger,
		repo:      params.Repository,
		metrics:   params.Metrics,
		batchSize: batchSize,
	}, nil
}

func (j *reconcileJob) Name() string { return "ledger-reconcile" }

// Run walks every client in id order and verifies that the stored balance
// equals the sum of that client's balance entries. Drift is reported for
// every affected client rather than aborting on the first mismatch.
func (j *reconcileJob) Run(ctx context.Context) error {
	var (
		checked  int
		drifted  int
		failures error
		afterID  uuid.UUID
	)

	for {
		batch, err := j.repo.ListClientBalances(ctx, afterID, j.batchSize)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list client balances")
		}
		if len(batch) == 0 {
			break
		}

		for _, row := range batch {
			checked++
			sum, err := j.repo.SumEntryDeltas(ctx, row.ID)
			if err != nil {
				failures = multierr.Append(failures,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("sum entries for client %s", row.ID)))
				continue
			}
			if row.Balance.Equal(sum) {
				continue
			}

			drifted++
			j.metrics.IncLedgerDrift(row.ID.String())
			driftCtx := j.logg.WithFields(ctx, map[string]any{
				"client_id":      row.ID.String(),
				"stored_balance": row.Balance.String(),
				"entry_sum":      sum.String(),
			})
			err = pkgerrors.New(pkgerrors.CodeConsistency,
				fmt.Sprintf("client %s balance %s does not match entry sum %s", row.ID, row.Balance, sum))
			j.logg.Error(driftCtx, "ledger drift detected", err)
			failures = multierr.Append(failures, err)
		}

		afterID = batch[len(batch)-1].ID
		if len(batch) < j.batchSize {
			break
		}
	}

	summaryCtx := j.logg.WithFields(ctx, map[string]any{
		"clients_checked": checked,
		"clients_drifted": drifted,
	})
	j.logg.Info(summaryCtx, "ledger reconciliation sweep complete")
	return failures
}
