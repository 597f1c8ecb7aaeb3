package access

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"eduplatform/internal/domain"
	"eduplatform/internal/metrics"
	"eduplatform/internal/pkg/apperror"
	"eduplatform/internal/pkg/i18n"
	"eduplatform/internal/pkg/logger"
	"eduplatform/internal/repository"
)

const statsCacheKey = "access:stats"

// Notifier delivers a single notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType domain.NotificationType, title, message string, payload map[string]any) error
}

type Service interface {
	RequestAccess(ctx context.Context, requesterID uuid.UUID, input domain.CreateAccessRequestInput, meta *domain.RequestMeta) (*domain.AccessRequest, error)
	ReviewAccess(ctx context.Context, requestID uuid.UUID, reviewer domain.Reviewer, input domain.ReviewAccessRequestInput, meta *domain.RequestMeta) (*domain.ReviewResult, error)
	GrantAccess(ctx context.Context, reviewer domain.Reviewer, input domain.GrantAccessInput, meta *domain.RequestMeta) (*domain.AccessGrant, error)
	HasAccess(ctx context.Context, userID, levelID uuid.UUID) (bool, error)

	GetRequest(ctx context.Context, id uuid.UUID, viewer domain.Reviewer) (*domain.AccessRequest, error)
	ListPending(ctx context.Context, params domain.PaginationParams) (domain.Page[domain.AccessRequest], error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, params domain.PaginationParams) (domain.Page[domain.AccessRequest], error)
	ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.AccessGrant, error)
	ListLevels(ctx context.Context, userID uuid.UUID) ([]domain.LevelWithAccess, error)
	Stats(ctx context.Context) (*domain.AccessStats, error)
}

type Options struct {
	Locale        string
	StatsCacheTTL time.Duration
	Logger        *logger.Logger
	Metrics       *metrics.AccessMetrics
	Redis         *redis.Client
	Now           func() time.Time
}

type service struct {
	store     repository.AccessStore
	levelRepo repository.LevelRepository
	userRepo  repository.UserRepository
	auditRepo repository.AuditLogRepository
	notifier  Notifier

	locale   string
	statsTTL time.Duration
	log      *logger.Logger
	metrics  *metrics.AccessMetrics
	redis    *redis.Client
	now      func() time.Time
}

func NewService(
	store repository.AccessStore,
	levelRepo repository.LevelRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	notifier Notifier,
	opts Options,
) Service {
	if opts.Locale == "" {
		opts.Locale = i18n.DefaultLocale
	}
	if opts.StatsCacheTTL <= 0 {
		opts.StatsCacheTTL = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		store:     store,
		levelRepo: levelRepo,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		notifier:  notifier,
		locale:    opts.Locale,
		statsTTL:  opts.StatsCacheTTL,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		redis:     opts.Redis,
		now:       opts.Now,
	}
}

func (s *service) RequestAccess(ctx context.Context, requesterID uuid.UUID, input domain.CreateAccessRequestInput, meta *domain.RequestMeta) (*domain.AccessRequest, error) {
	level, err := s.getLevel(ctx, input.LevelID)
	if err != nil {
		s.metrics.IncRequest(outcomeOf(err))
		return nil, err
	}

	if level.IsPublic() {
		s.metrics.IncRequest("already_granted")
		return nil, apperror.AlreadyGranted(level.ID.String())
	}

	grant, err := s.store.FindGrant(ctx, requesterID, level.ID)
	if err != nil {
		s.metrics.IncRequest("store_error")
		return nil, apperror.Store(err, "failed to check existing grant")
	}
	if grant != nil {
		s.metrics.IncRequest("already_granted")
		return nil, apperror.AlreadyGranted(level.ID.String())
	}

	pending, err := s.store.FindPendingRequest(ctx, requesterID, level.ID)
	if err != nil {
		s.metrics.IncRequest("store_error")
		return nil, apperror.Store(err, "failed to check pending request")
	}
	if pending != nil {
		s.metrics.IncRequest("duplicate_pending")
		return nil, apperror.DuplicatePending(pending.ID.String())
	}

	message := i18n.Format(s.locale, "ACCESS_REQUEST_DEFAULT_MESSAGE", map[string]string{"level_title": level.Title})
	if input.Message != nil && strings.TrimSpace(*input.Message) != "" {
		message = strings.TrimSpace(*input.Message)
	}

	req, err := s.store.CreateRequest(ctx, requesterID, level.ID, message)
	if err != nil {
		err = s.mapCreateError(ctx, err, requesterID, level)
		s.metrics.IncRequest(outcomeOf(err))
		return nil, err
	}
	req.Level = level
	s.metrics.IncRequest("created")
	s.invalidateStats(ctx)

	s.notifyReviewers(ctx, req, level)

	s.logAudit(ctx, domain.CreateAuditLogInput{
		UserID:     requesterID,
		Action:     domain.AuditRequestLevelAccess,
		EntityType: domain.EntityAccessRequest,
		EntityID:   req.ID,
		NewValue:   map[string]any{"level_id": level.ID, "status": req.Status},
	}, meta)

	return req, nil
}

// mapCreateError resolves a store conflict into the more specific outcome
// that caused it. Another writer may have created the pending request or
// the grant between the pre-checks and the insert.
func (s *service) mapCreateError(ctx context.Context, err error, requesterID uuid.UUID, level *domain.Level) error {
	switch {
	case errors.Is(err, domain.ErrAccessRequestExists):
		if grant, gerr := s.store.FindGrant(ctx, requesterID, level.ID); gerr == nil && grant != nil {
			return apperror.AlreadyGranted(level.ID.String())
		}
		if pending, perr := s.store.FindPendingRequest(ctx, requesterID, level.ID); perr == nil && pending != nil {
			return apperror.DuplicatePending(pending.ID.String())
		}
		return apperror.Wrap(apperror.CodeConflict, err, "access request conflicts with existing state")
	case errors.Is(err, domain.ErrLevelNotFound):
		return apperror.NotFound("level not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return apperror.NotFound("user not found")
	default:
		return apperror.Store(err, "failed to create access request")
	}
}

func (s *service) ReviewAccess(ctx context.Context, requestID uuid.UUID, reviewer domain.Reviewer, input domain.ReviewAccessRequestInput, meta *domain.RequestMeta) (*domain.ReviewResult, error) {
	decision := string(input.Decision)
	if !reviewer.CanReview {
		s.metrics.IncReview(decision, "forbidden")
		return nil, apperror.Forbidden("only teachers and admins can review access requests")
	}
	if !input.Decision.IsDecision() {
		s.metrics.IncReview(decision, "invalid")
		return nil, apperror.Validation("decision must be approved or rejected")
	}

	feedback := normalizeNote(input.Feedback)

	result := &domain.ReviewResult{}
	err := s.store.InTx(ctx, func(tx repository.AccessStore) error {
		req, err := tx.ReviewRequest(ctx, requestID, input.Decision, reviewer.ID, feedback)
		if err != nil {
			return err
		}
		result.Request = req

		if input.Decision == domain.StatusApproved {
			grant, err := tx.UpsertGrant(ctx, req.RequesterID, req.LevelID, reviewer.ID, nil, domain.GrantReasonApprovedRequest)
			if err != nil {
				return err
			}
			result.Grant = grant
		}
		return nil
	})
	if err != nil {
		err = s.mapReviewError(ctx, err, requestID)
		s.metrics.IncReview(decision, outcomeOf(err))
		return nil, err
	}

	s.metrics.IncReview(decision, "ok")
	if result.Grant != nil {
		s.metrics.IncGrant(result.Grant.Reason)
	}
	s.invalidateStats(ctx)

	level := s.lookupLevel(ctx, result.Request.LevelID)
	result.Request.Level = level
	s.notifyDecision(ctx, result.Request, level, feedback)

	action := domain.AuditRejectAccess
	if input.Decision == domain.StatusApproved {
		action = domain.AuditApproveAccess
	}
	newValue := map[string]any{"status": result.Request.Status, "review_note": feedback}
	if result.Grant != nil {
		newValue["grant_id"] = result.Grant.ID
	}
	s.logAudit(ctx, domain.CreateAuditLogInput{
		UserID:     reviewer.ID,
		Action:     action,
		EntityType: domain.EntityAccessRequest,
		EntityID:   requestID,
		OldValue:   map[string]any{"status": domain.StatusPending},
		NewValue:   newValue,
	}, meta)

	return result, nil
}

func (s *service) mapReviewError(ctx context.Context, err error, requestID uuid.UUID) error {
	switch {
	case errors.Is(err, domain.ErrAccessRequestNotFound):
		return apperror.NotFound("access request not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		status := ""
		if current, gerr := s.store.GetRequest(ctx, requestID); gerr == nil {
			status = string(current.Status)
		}
		return apperror.InvalidTransition(requestID.String(), status)
	case errors.Is(err, domain.ErrLevelNotFound):
		return apperror.NotFound("level not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return apperror.NotFound("user not found")
	default:
		return apperror.Store(err, "failed to review access request")
	}
}

func (s *service) GrantAccess(ctx context.Context, reviewer domain.Reviewer, input domain.GrantAccessInput, meta *domain.RequestMeta) (*domain.AccessGrant, error) {
	if !reviewer.CanReview {
		return nil, apperror.Forbidden("only teachers and admins can grant access")
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(s.now()) {
		return nil, apperror.Validation("expires_at must be in the future")
	}

	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, apperror.Store(err, "failed to load user")
	}
	if user == nil {
		return nil, apperror.NotFound("user not found")
	}

	level, err := s.getLevel(ctx, input.LevelID)
	if err != nil {
		return nil, err
	}

	reason := domain.GrantReasonManual
	if input.Reason != nil && strings.TrimSpace(*input.Reason) != "" {
		reason = strings.TrimSpace(*input.Reason)
	}

	grant, err := s.store.UpsertGrant(ctx, user.ID, level.ID, reviewer.ID, input.ExpiresAt, reason)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return nil, apperror.NotFound("user not found")
		case errors.Is(err, domain.ErrLevelNotFound):
			return nil, apperror.NotFound("level not found")
		}
		return nil, apperror.Store(err, "failed to grant access")
	}
	s.metrics.IncGrant(grant.Reason)
	s.invalidateStats(ctx)

	args := map[string]string{"level_title": level.Title}
	s.notify(ctx, user.ID, domain.NotifAccessGranted,
		i18n.Translate(s.locale, "ACCESS_GRANTED_TITLE"),
		i18n.Format(s.locale, "ACCESS_GRANTED_MESSAGE", args),
		map[string]any{
			"grant_id":    grant.ID.String(),
			"level_id":    level.ID.String(),
			"level_title": level.Title,
			"reason":      grant.Reason,
		})

	s.logAudit(ctx, domain.CreateAuditLogInput{
		UserID:     reviewer.ID,
		Action:     domain.AuditGrantLevelAccess,
		EntityType: domain.EntityLevelAccess,
		EntityID:   grant.ID,
		NewValue: map[string]any{
			"user_id":    user.ID,
			"level_id":   level.ID,
			"expires_at": grant.ExpiresAt,
			"reason":     grant.Reason,
		},
	}, meta)

	return grant, nil
}

func (s *service) HasAccess(ctx context.Context, userID, levelID uuid.UUID) (bool, error) {
	level, err := s.getLevel(ctx, levelID)
	if err != nil {
		return false, err
	}
	if level.IsPublic() {
		return true, nil
	}

	grant, err := s.store.FindGrant(ctx, userID, levelID)
	if err != nil {
		return false, apperror.Store(err, "failed to check grant")
	}
	return grant != nil, nil
}

func (s *service) GetRequest(ctx context.Context, id uuid.UUID, viewer domain.Reviewer) (*domain.AccessRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if errors.Is(err, domain.ErrAccessRequestNotFound) {
		return nil, apperror.NotFound("access request not found")
	}
	if err != nil {
		return nil, apperror.Store(err, "failed to load access request")
	}

	if req.RequesterID != viewer.ID && !viewer.CanReview {
		return nil, apperror.Forbidden("you cannot view this access request")
	}

	s.enrich(ctx, req, true)
	return req, nil
}

func (s *service) ListPending(ctx context.Context, params domain.PaginationParams) (domain.Page[domain.AccessRequest], error) {
	status := domain.StatusPending
	return s.list(ctx, domain.AccessRequestFilter{Status: &status}, params, true)
}

func (s *service) ListByRequester(ctx context.Context, requesterID uuid.UUID, params domain.PaginationParams) (domain.Page[domain.AccessRequest], error) {
	return s.list(ctx, domain.AccessRequestFilter{RequesterID: &requesterID}, params, false)
}

func (s *service) list(ctx context.Context, filter domain.AccessRequestFilter, params domain.PaginationParams, withRequester bool) (domain.Page[domain.AccessRequest], error) {
	params.Normalize()

	requests, total, err := s.store.ListRequests(ctx, filter, params)
	if err != nil {
		return domain.Page[domain.AccessRequest]{}, apperror.Store(err, "failed to list access requests")
	}

	levels := make(map[uuid.UUID]*domain.Level)
	for i := range requests {
		levelID := requests[i].LevelID
		if _, ok := levels[levelID]; !ok {
			levels[levelID] = s.lookupLevel(ctx, levelID)
		}
		requests[i].Level = levels[levelID]

		if withRequester {
			if requester, err := s.userRepo.GetByID(ctx, requests[i].RequesterID); err == nil {
				requests[i].Requester = requester
			}
		}
	}

	return domain.NewPage(requests, params, total), nil
}

func (s *service) ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.AccessGrant, error) {
	grants, err := s.store.ListGrants(ctx, userID)
	if err != nil {
		return nil, apperror.Store(err, "failed to list grants")
	}
	return grants, nil
}

func (s *service) ListLevels(ctx context.Context, userID uuid.UUID) ([]domain.LevelWithAccess, error) {
	levels, err := s.levelRepo.List(ctx)
	if err != nil {
		return nil, apperror.Store(err, "failed to list levels")
	}

	grants, err := s.store.ListGrants(ctx, userID)
	if err != nil {
		return nil, apperror.Store(err, "failed to list grants")
	}

	now := s.now()
	live := make(map[uuid.UUID]domain.AccessGrant, len(grants))
	for _, g := range grants {
		if g.IsActive(now) {
			live[g.LevelID] = g
		}
	}

	result := make([]domain.LevelWithAccess, 0, len(levels))
	for _, level := range levels {
		entry := domain.LevelWithAccess{Level: level, AccessType: domain.AccessTypeLocked}
		if level.IsPublic() {
			entry.HasAccess = true
			entry.AccessType = domain.AccessTypePublic
		} else if g, ok := live[level.ID]; ok {
			entry.HasAccess = true
			entry.AccessType = domain.AccessTypeGranted
			entry.ExpiresAt = g.ExpiresAt
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *service) Stats(ctx context.Context) (*domain.AccessStats, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, statsCacheKey).Result(); err == nil {
			var stats domain.AccessStats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	stats, err := s.store.CountStats(ctx)
	if err != nil {
		return nil, apperror.Store(err, "failed to count access stats")
	}

	if s.redis != nil {
		if statsJSON, err := json.Marshal(stats); err == nil {
			_ = s.redis.Set(ctx, statsCacheKey, statsJSON, s.statsTTL).Err()
		}
	}

	return &stats, nil
}

func (s *service) invalidateStats(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, statsCacheKey).Err(); err != nil {
		s.log.Warn(ctx, "failed to invalidate access stats cache", err)
	}
}

func (s *service) getLevel(ctx context.Context, id uuid.UUID) (*domain.Level, error) {
	level, err := s.levelRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Store(err, "failed to load level")
	}
	if level == nil {
		return nil, apperror.NotFound("level not found")
	}
	return level, nil
}

// lookupLevel is the best-effort variant used to decorate responses and
// notifications after the state change has already committed.
func (s *service) lookupLevel(ctx context.Context, id uuid.UUID) *domain.Level {
	level, err := s.levelRepo.GetByID(ctx, id)
	if err != nil {
		s.log.Warn(s.log.WithField(ctx, "level_id", id.String()), "failed to load level", err)
		return nil
	}
	return level
}

func (s *service) enrich(ctx context.Context, req *domain.AccessRequest, withRequester bool) {
	req.Level = s.lookupLevel(ctx, req.LevelID)
	if withRequester {
		if requester, err := s.userRepo.GetByID(ctx, req.RequesterID); err == nil {
			req.Requester = requester
		}
	}
}

func (s *service) notifyReviewers(ctx context.Context, req *domain.AccessRequest, level *domain.Level) {
	studentName := req.RequesterID.String()
	if requester, err := s.userRepo.GetByID(ctx, req.RequesterID); err == nil && requester != nil {
		studentName = requester.FullName
		req.Requester = requester
	}

	reviewers, err := s.userRepo.GetByRoles(ctx, domain.ReviewerRoles)
	if err != nil {
		s.log.Warn(s.log.WithField(ctx, "request_id", req.ID.String()), "failed to load reviewers", err)
		s.metrics.IncNotifyFailure(string(domain.NotifAccessRequested))
		return
	}

	args := map[string]string{"student_name": studentName, "level_title": level.Title}
	title := i18n.Translate(s.locale, "ACCESS_REQUESTED_TITLE")
	message := i18n.Format(s.locale, "ACCESS_REQUESTED_MESSAGE", args)

	for _, reviewer := range reviewers {
		if reviewer.ID == req.RequesterID {
			continue
		}
		s.notify(ctx, reviewer.ID, domain.NotifAccessRequested, title, message, map[string]any{
			"request_id":   req.ID.String(),
			"user_id":      req.RequesterID.String(),
			"level_id":     level.ID.String(),
			"level_title":  level.Title,
			"student_name": studentName,
		})
	}
}

func (s *service) notifyDecision(ctx context.Context, req *domain.AccessRequest, level *domain.Level, feedback *string) {
	levelTitle := ""
	if level != nil {
		levelTitle = level.Title
	}
	args := map[string]string{"level_title": levelTitle}

	notifType := domain.NotifAccessRejected
	titleKey, messageKey := "ACCESS_REJECTED_TITLE", "ACCESS_REJECTED_MESSAGE"
	if req.Status == domain.StatusApproved {
		notifType = domain.NotifAccessApproved
		titleKey, messageKey = "ACCESS_APPROVED_TITLE", "ACCESS_APPROVED_MESSAGE"
	}

	message := i18n.Format(s.locale, messageKey, args)
	payload := map[string]any{
		"request_id":  req.ID.String(),
		"level_id":    req.LevelID.String(),
		"level_title": levelTitle,
		"status":      string(req.Status),
	}
	if feedback != nil {
		message += " " + i18n.Format(s.locale, "ACCESS_FEEDBACK", map[string]string{"feedback": *feedback})
		payload["feedback"] = *feedback
	}

	s.notify(ctx, req.RequesterID, notifType, i18n.Translate(s.locale, titleKey), message, payload)
}

// notify never fails the caller. Delivery problems are logged and counted.
func (s *service) notify(ctx context.Context, userID uuid.UUID, notifType domain.NotificationType, title, message string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, notifType, title, message, payload); err != nil {
		s.metrics.IncNotifyFailure(string(notifType))
		logCtx := s.log.WithFields(ctx, map[string]any{
			"notify_user_id": userID.String(),
			"notify_type":    string(notifType),
		})
		s.log.Warn(logCtx, "failed to deliver notification", err)
	}
}

func (s *service) logAudit(ctx context.Context, input domain.CreateAuditLogInput, meta *domain.RequestMeta) {
	if s.auditRepo == nil {
		return
	}
	meta.Apply(&input)
	if err := repository.CreateAuditLog(ctx, s.auditRepo, input); err != nil {
		s.log.Warn(s.log.WithField(ctx, "audit_action", input.Action), "failed to write audit log", err)
	}
}

func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func outcomeOf(err error) string {
	return strings.ToLower(string(apperror.CodeOf(err)))
}
