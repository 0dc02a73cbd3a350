package trust

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/paes/core"
	"github.com/trezcool/paes/core/user"
)

// Config holds the decision thresholds of the engine.
type Config struct {
	// HardFloor is the score under which an action is rejected outright.
	HardFloor float64
	// SoftFlagThreshold is the score under which an action is flagged as suspicious and earns no reward.
	SoftFlagThreshold float64
	FingerprintKey    string
	ModeratorEmails   []mail.Address
}

func DefaultConfig() Config {
	return Config{HardFloor: 0.3, SoftFlagThreshold: 0.5}
}

// ConfigFrom extracts the engine configuration from the app configuration.
func ConfigFrom(conf *core.Config) Config {
	return Config{
		HardFloor:         conf.Trust.HardFloor,
		SoftFlagThreshold: conf.Trust.SoftFlagThreshold,
		FingerprintKey:    conf.Trust.FingerprintKey,
		ModeratorEmails:   conf.ModeratorEmails,
	}
}

func (c Config) check() error {
	if c.HardFloor < 0 || c.SoftFlagThreshold > 1 || c.HardFloor > c.SoftFlagThreshold {
		return errors.Errorf("invalid thresholds: need 0 <= hard floor (%v) <= soft flag (%v) <= 1", c.HardFloor, c.SoftFlagThreshold)
	}
	return nil
}

// Deps are the collaborators of the Service. Logger, Mailer and Publisher are optional.
type Deps struct {
	Repo      Repository
	Validate  *validator.Validate
	Logger    core.Logger
	Mailer    core.EmailService
	Publisher core.EventPublisher
}

// Service is the action validation engine: it scores submitted actions and keeps their audit log.
type Service struct {
	repo      Repository
	validate  *validator.Validate
	logger    core.Logger
	mailer    core.EmailService
	publisher core.EventPublisher
	conf      Config
	fp        fingerprinter

	now   func() time.Time // mockable
	newID func() string
}

func NewService(deps Deps, conf Config) (*Service, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Repo, "Repo"),
		vala.IsNotNil(deps.Validate, "Validate"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "checking dependencies")
	}
	if err = conf.check(); err != nil {
		return nil, err
	}

	svc := &Service{
		repo:      deps.Repo,
		validate:  deps.Validate,
		logger:    deps.Logger,
		mailer:    deps.Mailer,
		publisher: deps.Publisher,
		conf:      conf,
		fp:        newFingerprinter(conf.FingerprintKey),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	if svc.logger == nil {
		svc.logger = core.NopLogger{}
	}
	return svc, nil
}

// Decide classifies a validation score against the configured thresholds.
func (svc *Service) Decide(score float64) Decision {
	switch {
	case score < svc.conf.HardFloor:
		return DecisionHardRejection
	case score < svc.conf.SoftFlagThreshold:
		return DecisionSoftFlag
	default:
		return DecisionPass
	}
}

// history is the snapshot of the store the checkers work on.
type history struct {
	window  ActionCounts      // rate window
	recent  []ValidatedAction // most recent actions, newest first
	session SessionSummary
}

func (svc *Service) loadHistory(ctx context.Context, userID string, sub Submission, now time.Time) (history, error) {
	var h history
	var err error

	if h.window, err = svc.repo.CountActionsSince(ctx, userID, now.Add(-rateWindow)); err != nil {
		return h, errors.Wrap(err, "counting actions in rate window")
	}
	// one read serves both the consistency (20) and the pattern (50) checkers
	if h.recent, err = svc.repo.ListRecentActions(ctx, userID, patternReadSize); err != nil {
		return h, errors.Wrap(err, "listing recent actions")
	}
	if h.session, err = svc.repo.SummarizeSession(ctx, userID, sub.Data.SessionID); err != nil {
		return h, errors.Wrap(err, "summarizing session")
	}
	return h, nil
}

type outcome struct {
	checker string
	CheckResult
}

// evaluate runs every checker, in order, on the same snapshot.
func evaluate(sub Submission, fingerprint string, now time.Time, h history) []outcome {
	recent := h.recent
	if len(recent) > consistencyReadSize {
		recent = recent[:consistencyReadSize]
	}
	return []outcome{
		{CheckerTiming, checkTiming(sub, now)},
		{CheckerRate, checkRate(sub.ActionType, h.window)},
		{CheckerConsistency, checkConsistency(sub, recent)},
		{CheckerSession, checkSession(fingerprint, now, h.session)},
		{CheckerActionSpecific, checkActionSpecific(sub)},
		{CheckerPattern, checkPattern(sub.ActionType, h.recent)},
	}
}

// combine folds the checker outcomes into the validation score, the audit metadata and the flat issue list.
func combine(outcomes []outcome) (float64, map[string][]string, []string) {
	score := 1.0
	metadata := make(map[string][]string, len(outcomes)+1)
	var issues []string
	for _, o := range outcomes {
		score *= o.Score
		metadata[o.checker] = append([]string{}, o.Issues...)
		issues = append(issues, o.Issues...)
	}
	return score, metadata, issues
}

// ValidateAndRecord scores the action p submitted and records it in the audit log.
// It returns a *ValidationFailedError when the score falls under the hard floor;
// otherwise the action is accepted and Result.CanProceed tells whether rewards may be granted.
func (svc *Service) ValidateAndRecord(ctx context.Context, p user.Principal, sub Submission) (Result, error) {
	if !p.IsAuthenticated() {
		return Result{}, ErrPermissionDenied
	}
	if err := checkUserID(p.UserID); err != nil {
		return Result{}, err
	}
	if err := sub.Validate(svc.validate); err != nil {
		return Result{}, err
	}

	now := svc.now().UTC()
	fingerprint := svc.fp.digest(sub.ClientFingerprint)

	h, err := svc.loadHistory(ctx, p.UserID, sub, now)
	if err != nil {
		return Result{}, err
	}

	score, metadata, issues := combine(evaluate(sub, fingerprint, now, h))
	if sub.Data.PreviousScore != nil {
		metadata[metaPreviousScore] = []string{strconv.FormatFloat(*sub.Data.PreviousScore, 'f', -1, 64)}
	}
	decision := svc.Decide(score)

	action := ValidatedAction{
		ID:                  svc.newID(),
		UserID:              p.UserID,
		ActionType:          sub.ActionType,
		ItemID:              sub.Data.ItemID,
		SessionID:           sub.Data.SessionID,
		ClientFingerprint:   fingerprint,
		Score:               sub.Data.Score,
		Accuracy:            sub.Data.Accuracy,
		TimeSpent:           sub.Data.TimeSpent,
		Attempts:            sub.Data.Attempts,
		Difficulty:          sub.Data.Difficulty,
		Subject:             sub.Data.Subject,
		ClientTimestamp:     sub.Data.ClientTimestamp,
		ServerTimestamp:     now,
		ValidationScore:     score,
		FlaggedAsSuspicious: score < svc.conf.SoftFlagThreshold,
		Metadata:            metadata,
	}
	// rejected actions are recorded too: they keep counting in the rate window and stay auditable
	if err = svc.repo.InsertAction(ctx, action); err != nil {
		return Result{}, errors.Wrap(err, "recording validated action")
	}
	svc.report(ctx, p, action, decision, issues)

	if decision == DecisionHardRejection {
		return Result{}, &ValidationFailedError{ActionID: action.ID, Score: score, Issues: issues}
	}
	return Result{
		Validated:       true,
		ValidationScore: score,
		CanProceed:      decision == DecisionPass,
	}, nil
}

// report logs the decision and broadcasts flagged actions. Failures here never fail the action.
func (svc *Service) report(ctx context.Context, p user.Principal, action ValidatedAction, decision Decision, issues []string) {
	extra := map[string]interface{}{
		"action_id":        action.ID,
		"action_type":      action.ActionType,
		"validation_score": action.ValidationScore,
		"issues":           issues,
	}
	var evtType string
	switch decision {
	case DecisionPass:
		svc.logger.Debug("action validated", extra, p)
		return
	case DecisionSoftFlag:
		svc.logger.Warn("suspicious action", extra, p)
		evtType = core.EventActionFlagged
	case DecisionHardRejection:
		svc.logger.Warn("action rejected", extra, p)
		evtType = core.EventActionRejected
	}

	svc.publish(ctx, core.Event{
		Type:     evtType,
		UserID:   action.UserID,
		ActionID: action.ID,
		Score:    action.ValidationScore,
		Decision: string(decision),
		Issues:   issues,
		At:       action.ServerTimestamp,
	})
}

func (svc *Service) publish(ctx context.Context, evt core.Event) {
	if svc.publisher == nil {
		return
	}
	if err := svc.publisher.Publish(ctx, evt); err != nil {
		svc.logger.Error(fmt.Sprintf("publishing %s event: %v", evt.Type, err), err)
	}
}
