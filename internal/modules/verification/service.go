package verification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"docverify/internal/database"
	"docverify/internal/domain"
	"docverify/internal/modules/attestation"
	"docverify/internal/pkg/utils"
	"docverify/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	maxReasonRunes  = 2000
	statusKeyPrefix = "status:"
)

type Options struct {
	// ReplaceOriginal repoints the document to the attested artifact.
	ReplaceOriginal bool
	StatusCacheTTL  time.Duration
	SignedURLTTL    time.Duration
}

type Deps struct {
	Documents  DocumentRepository
	States     StateStore
	Profiles   ProfileRepository
	Tx         Transactor
	Store      ObjectStore
	Stamper    Stamper
	Relocator  Relocator
	Dispatcher *Dispatcher
	Cache      StatusCache
}

type Service struct {
	docs       DocumentRepository
	states     StateStore
	profiles   ProfileRepository
	tx         Transactor
	store      ObjectStore
	stamper    Stamper
	relocator  Relocator
	dispatcher *Dispatcher
	cache      StatusCache
	opts       Options
	log        *zap.Logger
	now        func() time.Time
}

func NewService(deps Deps, opts Options, log *zap.Logger) *Service {
	if opts.StatusCacheTTL <= 0 {
		opts.StatusCacheTTL = 5 * time.Minute
	}
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = time.Hour
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = NewDispatcher(nil, nil)
	}
	return &Service{
		docs:       deps.Documents,
		states:     deps.States,
		profiles:   deps.Profiles,
		tx:         deps.Tx,
		store:      deps.Store,
		stamper:    deps.Stamper,
		relocator:  deps.Relocator,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		opts:       opts,
		log:        log.With(zap.String("service", "verification")),
		now:        time.Now,
	}
}

// Verify applies an approve or reject decision to a document.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	if !in.ActorRole.CanVerify() {
		return nil, ErrForbidden
	}

	doc, err := s.loadDocument(ctx, in.DocumentID)
	if err != nil {
		return nil, err
	}

	action, ok := ParseAction(in.Action)
	if !ok {
		return nil, ErrInvalidAction
	}

	switch action {
	case ActionApprove:
		return s.approve(ctx, doc, in)
	default:
		return s.reject(ctx, doc, in)
	}
}

func (s *Service) approve(ctx context.Context, doc *domain.Document, in VerifyInput) (*VerifyResult, error) {
	log := s.log.With(zap.String("document_id", doc.ID), zap.String("actor_id", in.ActorID))

	path, url := doc.StoragePath, doc.FileURL
	details := map[string]any{"stamped": false}

	if doc.IsPDF() && doc.StoragePath != "" && !attestation.IsVerifiedPath(doc.StoragePath) {
		if newPath, newURL, ok := s.attest(ctx, doc, details, log); ok && s.opts.ReplaceOriginal {
			path, url = newPath, newURL
		}
	}
	details["file_url"] = url

	now := s.now().UTC()
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.docs.UpdateState(ctx, doc.ID, repository.DocumentState{
			IsPublic:    true,
			StoragePath: path,
			FileURL:     url,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}
		if err := s.states.RecordApproval(ctx, doc.ID, in.ActorID); err != nil {
			return err
		}
		s.appendLog(ctx, log, &domain.VerificationLog{
			VerificationID: doc.ID,
			Action:         domain.LogActionVerified,
			PerformerID:    in.ActorID,
			PerformerRole:  string(in.ActorRole),
			Details:        toJSON(details),
			Score:          domain.ScoreApproved,
			CreatedAt:      now,
		})
		return nil
	})
	if err != nil {
		log.Error("approve transaction failed", database.ErrorFields(err)...)
		return nil, dependencyError("approve", err)
	}

	s.afterTransition(ctx, log, doc.ID,
		s.dispatcher.NotifyOwner(withLocation(*doc, path, url), ActionApprove, ""),
		s.dispatcher.Audit(in.ActorID, ActionApprove, doc.ID, details),
	)

	stamped, _ := details["stamped"].(bool)
	return &VerifyResult{
		DocumentID: doc.ID,
		Status:     domain.VerificationApproved,
		IsPublic:   true,
		FileURL:    url,
		Stamped:    stamped,
	}, nil
}

// attest stamps and relocates the document. It reports false when any step
// degraded, in which case the original artifact stays in use.
func (s *Service) attest(ctx context.Context, doc *domain.Document, details map[string]any, log *zap.Logger) (string, string, bool) {
	if s.store == nil || s.stamper == nil || s.relocator == nil {
		return "", "", false
	}

	original, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		log.Warn("download for stamping failed", zap.Error(err))
		return "", "", false
	}

	stamped, ok := s.stamper.Stamp(ctx, original)
	if !ok {
		return "", "", false
	}
	details["stamped"] = true
	details["fingerprint"] = attestation.Fingerprint(stamped)

	newPath, newURL, err := s.relocator.Relocate(ctx, stamped, doc.StoragePath, doc.FileName, doc.FileType)
	if err != nil {
		log.Warn("relocation failed, keeping original artifact", zap.Error(err))
		return "", "", false
	}
	details["artifact_path"] = newPath
	return newPath, newURL, true
}

func (s *Service) reject(ctx context.Context, doc *domain.Document, in VerifyInput) (*VerifyResult, error) {
	reason := utils.SanitizeText(in.Reason, maxReasonRunes)
	if reason == "" {
		return nil, ErrValidation
	}
	log := s.log.With(zap.String("document_id", doc.ID), zap.String("actor_id", in.ActorID))

	details := map[string]any{"reason": reason}
	now := s.now().UTC()
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.docs.UpdateState(ctx, doc.ID, repository.DocumentState{
			IsPublic:  false,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		if err := s.states.RecordRejection(ctx, doc.ID, in.ActorID, reason); err != nil {
			return err
		}
		s.appendLog(ctx, log, &domain.VerificationLog{
			VerificationID: doc.ID,
			Action:         domain.LogActionRejected,
			PerformerID:    in.ActorID,
			PerformerRole:  string(in.ActorRole),
			Details:        toJSON(details),
			Score:          domain.ScoreRejected,
			CreatedAt:      now,
		})
		return nil
	})
	if errors.Is(err, repository.ErrEmptyReason) {
		return nil, ErrValidation
	}
	if err != nil {
		log.Error("reject transaction failed", database.ErrorFields(err)...)
		return nil, dependencyError("reject", err)
	}

	s.afterTransition(ctx, log, doc.ID,
		s.dispatcher.NotifyOwner(*doc, ActionReject, reason),
		s.dispatcher.Audit(in.ActorID, ActionReject, doc.ID, details),
	)

	return &VerifyResult{
		DocumentID: doc.ID,
		Status:     domain.VerificationRejected,
		IsPublic:   false,
		FileURL:    doc.FileURL,
	}, nil
}

// appendLog never fails the transition.
func (s *Service) appendLog(ctx context.Context, log *zap.Logger, entry *domain.VerificationLog) {
	if err := s.states.AppendLog(ctx, entry); err != nil {
		log.Warn("verification log entry not written", database.ErrorFields(err)...)
	}
}

// afterTransition runs once the decision is committed. Nothing here can
// change the outcome returned to the caller.
func (s *Service) afterTransition(ctx context.Context, log *zap.Logger, documentID string, effects ...Effect) {
	ctx = context.WithoutCancel(ctx)
	s.invalidateStatus(ctx, log, documentID)

	for _, r := range s.dispatcher.Dispatch(ctx, effects...) {
		if r.Err != nil {
			log.Warn("side effect failed", zap.String("effect", r.Name), zap.Error(r.Err))
		}
	}
}

func (s *Service) invalidateStatus(ctx context.Context, log *zap.Logger, documentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statusKeyPrefix+documentID); err != nil {
		log.Warn("status cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) loadDocument(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.docs.GetByID(ctx, strings.TrimSpace(id))
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.Error("load document failed", append(database.ErrorFields(err), zap.String("document_id", id))...)
		return nil, dependencyError("load document", err)
	}
	return doc, nil
}

func canView(doc *domain.Document, v Viewer) bool {
	return v.Role.CanVerify() || (v.UserID != "" && v.UserID == doc.UserID)
}

func withLocation(doc domain.Document, path, url string) domain.Document {
	doc.StoragePath = path
	doc.FileURL = url
	doc.IsPublic = true
	return doc
}

func toJSON(v map[string]any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
