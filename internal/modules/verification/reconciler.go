package verification

import (
	"context"

	"docverify/internal/database"
	"docverify/internal/domain"

	"go.uber.org/zap"
)

type ReconcileReport struct {
	Checked  int
	Repaired int
	Failed   int
}

// Reconciler repairs documents whose visibility flag and verification row
// disagree. is_public wins: public documents become approved, hidden ones
// that claim approval go back to pending.
type Reconciler struct {
	docs   DocumentRepository
	states StateStore
	cache  StatusCache
	log    *zap.Logger
}

func NewReconciler(docs DocumentRepository, states StateStore, cache StatusCache, log *zap.Logger) *Reconciler {
	return &Reconciler{docs: docs, states: states, cache: cache, log: log.With(zap.String("service", "reconciler"))}
}

func (r *Reconciler) Run(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	rows, err := r.docs.ListStateMismatches(ctx)
	if err != nil {
		r.log.Error("list mismatches failed", database.ErrorFields(err)...)
		return report, dependencyError("list mismatches", err)
	}
	report.Checked = len(rows)

	for _, row := range rows {
		target := domain.VerificationPending
		if row.IsPublic {
			target = domain.VerificationApproved
		}

		from := "none"
		if row.Status != nil {
			from = *row.Status
		}
		log := r.log.With(
			zap.String("document_id", row.DocumentID),
			zap.String("from", from),
			zap.String("to", string(target)),
		)

		if err := r.states.SetStatus(ctx, row.DocumentID, target); err != nil {
			report.Failed++
			log.Error("repair failed", database.ErrorFields(err)...)
			continue
		}
		report.Repaired++
		log.Info("verification state repaired")

		if r.cache != nil {
			if err := r.cache.Delete(ctx, statusKeyPrefix+row.DocumentID); err != nil {
				log.Warn("status cache invalidation failed", zap.Error(err))
			}
		}
	}
	return report, nil
}
