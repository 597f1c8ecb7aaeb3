package access_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/domain"
	"eduplatform/internal/mocks"
	"eduplatform/internal/pkg/apperror"
	"eduplatform/internal/repository/memory"
	"eduplatform/internal/service/access"
)

type sentNotification struct {
	userID    uuid.UUID
	notifType domain.NotificationType
	title     string
	message   string
	payload   map[string]any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, notifType domain.NotificationType, title, message string, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{userID, notifType, title, message, payload})
	return nil
}

func (n *recordingNotifier) to(userID uuid.UUID) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.userID == userID {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	store    *memory.AccessStore
	levels   *mocks.LevelRepository
	users    *mocks.UserRepository
	audit    *mocks.AuditLogRepository
	notifier *recordingNotifier
	svc      access.Service

	student domain.User
	teacher domain.User
	admin   domain.User
	level   domain.Level
	public  domain.Level
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.NewAccessStore(),
		levels:   new(mocks.LevelRepository),
		users:    new(mocks.UserRepository),
		audit:    new(mocks.AuditLogRepository),
		notifier: &recordingNotifier{},
		student:  domain.User{ID: uuid.New(), FullName: "Budi Santoso", Email: "budi@example.com", Role: domain.RoleStudent, IsActive: true},
		teacher:  domain.User{ID: uuid.New(), FullName: "Siti Rahma", Email: "siti@example.com", Role: domain.RoleTeacher, IsActive: true},
		admin:    domain.User{ID: uuid.New(), FullName: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin, IsActive: true},
		level:    domain.Level{ID: uuid.New(), Title: "Level 3", Position: 3, AccessPolicy: domain.PolicyRestricted},
		public:   domain.Level{ID: uuid.New(), Title: "Level 1", Position: 1, AccessPolicy: domain.PolicyPublic},
	}

	f.levels.On("GetByID", mock.Anything, f.level.ID).Return(&f.level, nil).Maybe()
	f.levels.On("GetByID", mock.Anything, f.public.ID).Return(&f.public, nil).Maybe()
	f.levels.On("GetByID", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	f.levels.On("List", mock.Anything).Return([]domain.Level{f.public, f.level}, nil).Maybe()

	f.users.On("GetByID", mock.Anything, f.student.ID).Return(&f.student, nil).Maybe()
	f.users.On("GetByID", mock.Anything, f.teacher.ID).Return(&f.teacher, nil).Maybe()
	f.users.On("GetByID", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	f.users.On("GetByRoles", mock.Anything, domain.ReviewerRoles).Return([]domain.User{f.teacher, f.admin}, nil).Maybe()

	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.svc = access.NewService(f.store, f.levels, f.users, f.audit, f.notifier, access.Options{})
	return f
}

func (f *fixture) reviewer() domain.Reviewer {
	return f.teacher.AsReviewer()
}

func strPtr(s string) *string { return &s }

func TestRequestAccess_CreatesPendingAndNotifiesReviewers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, "Request access to Level 3", req.Message)

	for _, reviewer := range []domain.User{f.teacher, f.admin} {
		sent := f.notifier.to(reviewer.ID)
		require.Len(t, sent, 1)
		assert.Equal(t, domain.NotifAccessRequested, sent[0].notifType)
		assert.Equal(t, "Budi Santoso has requested access to Level 3", sent[0].message)
		assert.Equal(t, req.ID.String(), sent[0].payload["request_id"])
		assert.Equal(t, f.student.ID.String(), sent[0].payload["user_id"])
		assert.Equal(t, f.level.ID.String(), sent[0].payload["level_id"])
		assert.Equal(t, "Level 3", sent[0].payload["level_title"])
		assert.Equal(t, "Budi Santoso", sent[0].payload["student_name"])
	}
	assert.Empty(t, f.notifier.to(f.student.ID))

	f.audit.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(log *domain.AuditLog) bool {
		return log.Action == domain.AuditRequestLevelAccess && log.EntityID == req.ID
	}))
}

func TestRequestAccess_SkipsRequesterWhoIsReviewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestAccess(ctx, f.teacher.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	assert.Empty(t, f.notifier.to(f.teacher.ID))
	assert.Len(t, f.notifier.to(f.admin.ID), 1)
}

func TestRequestAccess_ConcurrentCallsYieldOnePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		codes   = map[apperror.Code]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			codes[apperror.CodeOf(err)]++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, codes[apperror.CodeDuplicatePending])

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingRequests)
}

func TestRequestAccess_DuplicatePendingCarriesRequestID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	_, err = f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.Error(t, err)

	appErr := apperror.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperror.CodeDuplicatePending, appErr.Code())
	assert.Equal(t, map[string]any{"request_id": first.ID.String()}, appErr.Details())
}

func TestRequestAccess_GrantShortCircuits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.UpsertGrant(ctx, f.student.ID, f.level.ID, f.teacher.ID, nil, domain.GrantReasonManual)
	require.NoError(t, err)

	_, err = f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.True(t, apperror.IsCode(err, apperror.CodeAlreadyGranted), "got %v", err)
	details := apperror.As(err).Details().(map[string]any)
	assert.Equal(t, true, details["has_access"])

	pending, err := f.store.FindPendingRequest(ctx, f.student.ID, f.level.ID)
	require.NoError(t, err)
	assert.Nil(t, pending)
	assert.Empty(t, f.notifier.to(f.teacher.ID))
}

func TestRequestAccess_ExpiredGrantAllowsNewRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	_, err := f.store.UpsertGrant(ctx, f.student.ID, f.level.ID, f.teacher.ID, &past, domain.GrantReasonManual)
	require.NoError(t, err)

	_, err = f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	assert.NoError(t, err)
}

func TestRequestAccess_PublicLevelAndUnknownLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.public.ID}, nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeAlreadyGranted))

	_, err = f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: uuid.New()}, nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestRequestAccess_LevelLookupFailureIsStoreError(t *testing.T) {
	levels := new(mocks.LevelRepository)
	levelID := uuid.New()
	levels.On("GetByID", mock.Anything, levelID).Return(nil, errors.New("connection refused"))

	svc := access.NewService(memory.NewAccessStore(), levels, new(mocks.UserRepository), nil, nil, access.Options{})

	_, err := svc.RequestAccess(context.Background(), uuid.New(), domain.CreateAccessRequestInput{LevelID: levelID}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeStore, apperror.CodeOf(err))
	assert.True(t, apperror.MetadataFor(apperror.CodeOf(err)).Retryable)
	assert.Contains(t, err.Error(), "connection refused")
}

// U1 requests L3, T1 approves with feedback, then tries to reject.
func TestAccessWorkflow_ApproveThenSecondReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r1, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{
		LevelID: f.level.ID,
		Message: strPtr("need review"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "need review", r1.Message)
	assert.Equal(t, domain.StatusPending, r1.Status)

	meta := &domain.RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test-agent"}
	result, err := f.svc.ReviewAccess(ctx, r1.ID, f.reviewer(), domain.ReviewAccessRequestInput{
		Decision: domain.StatusApproved,
		Feedback: strPtr("welcome!"),
	}, meta)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, result.Request.Status)
	require.NotNil(t, result.Request.ReviewedBy)
	assert.Equal(t, f.teacher.ID, *result.Request.ReviewedBy)

	require.NotNil(t, result.Grant)
	g1 := *result.Grant
	assert.Equal(t, f.student.ID, g1.UserID)
	assert.Equal(t, f.level.ID, g1.LevelID)
	assert.Equal(t, f.teacher.ID, g1.GrantedBy)
	assert.Equal(t, domain.GrantReasonApprovedRequest, g1.Reason)

	sent := f.notifier.to(f.student.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, domain.NotifAccessApproved, sent[0].notifType)
	assert.True(t, strings.Contains(sent[0].message, "welcome!"), sent[0].message)

	f.audit.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(log *domain.AuditLog) bool {
		return log.Action == domain.AuditApproveAccess &&
			log.IPAddress != nil && *log.IPAddress == "10.0.0.1" &&
			log.UserAgent != nil && *log.UserAgent == "test-agent"
	}))

	_, err = f.svc.ReviewAccess(ctx, r1.ID, f.reviewer(), domain.ReviewAccessRequestInput{Decision: domain.StatusRejected}, nil)
	require.Error(t, err)
	appErr := apperror.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code())
	assert.Equal(t, "approved", appErr.Details().(map[string]any)["status"])

	stored, err := f.store.GetRequest(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, stored.Status)

	grants, err := f.svc.ListGrants(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, g1.ID, grants[0].ID)
	assert.Equal(t, g1.GrantedAt, grants[0].GrantedAt)

	assert.Len(t, f.notifier.to(f.student.ID), 1, "failed review sends nothing")
}

func TestReviewAccess_RejectionCreatesNoGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	result, err := f.svc.ReviewAccess(ctx, req.ID, f.reviewer(), domain.ReviewAccessRequestInput{
		Decision: domain.StatusRejected,
		Feedback: strPtr("complete level 2 first"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, result.Request.Status)
	assert.Nil(t, result.Grant)

	has, err := f.svc.HasAccess(ctx, f.student.ID, f.level.ID)
	require.NoError(t, err)
	assert.False(t, has)

	sent := f.notifier.to(f.student.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, domain.NotifAccessRejected, sent[0].notifType)
	assert.Equal(t, "Your request for Level 3 has been rejected. Feedback: complete level 2 first", sent[0].message)

	// A rejected request no longer blocks a new one.
	_, err = f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	assert.NoError(t, err)
}

func TestReviewAccess_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	t.Run("forbidden without capability", func(t *testing.T) {
		_, err := f.svc.ReviewAccess(ctx, req.ID, f.student.AsReviewer(), domain.ReviewAccessRequestInput{Decision: domain.StatusApproved}, nil)
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})

	t.Run("inactive teacher cannot review", func(t *testing.T) {
		inactive := f.teacher
		inactive.IsActive = false
		_, err := f.svc.ReviewAccess(ctx, req.ID, inactive.AsReviewer(), domain.ReviewAccessRequestInput{Decision: domain.StatusApproved}, nil)
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})

	t.Run("pending is not a decision", func(t *testing.T) {
		_, err := f.svc.ReviewAccess(ctx, req.ID, f.reviewer(), domain.ReviewAccessRequestInput{Decision: domain.StatusPending}, nil)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := f.svc.ReviewAccess(ctx, uuid.New(), f.reviewer(), domain.ReviewAccessRequestInput{Decision: domain.StatusApproved}, nil)
		assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
	})

	stored, err := f.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestReviewAccess_ConcurrentReviewsProduceOneDecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < n; i++ {
		decision := domain.StatusApproved
		if i%2 == 1 {
			decision = domain.StatusRejected
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ReviewAccess(ctx, req.ID, f.reviewer(), domain.ReviewAccessRequestInput{Decision: decision}, nil)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition), "got %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.notifier.to(f.student.ID), 1)
}

func TestAccessWorkflow_NotificationFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	notifier := new(mocks.Notifier)
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp down"))
	svc := access.NewService(f.store, f.levels, f.users, f.audit, notifier, access.Options{})

	req, err := svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	pending, err := f.store.FindPendingRequest(ctx, f.student.ID, f.level.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, req.ID, pending.ID)

	result, err := svc.ReviewAccess(ctx, req.ID, f.reviewer(), domain.ReviewAccessRequestInput{Decision: domain.StatusApproved}, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Grant)

	grant, err := f.store.FindGrant(ctx, f.student.ID, f.level.ID)
	require.NoError(t, err)
	require.NotNil(t, grant)

	notifier.AssertNumberOfCalls(t, "Notify", 3)
}

func TestGrantAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("requires capability", func(t *testing.T) {
		_, err := f.svc.GrantAccess(ctx, f.student.AsReviewer(), domain.GrantAccessInput{UserID: f.student.ID, LevelID: f.level.ID}, nil)
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.GrantAccess(ctx, f.reviewer(), domain.GrantAccessInput{UserID: uuid.New(), LevelID: f.level.ID}, nil)
		assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
	})

	t.Run("expiry in the past", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		_, err := f.svc.GrantAccess(ctx, f.reviewer(), domain.GrantAccessInput{UserID: f.student.ID, LevelID: f.level.ID, ExpiresAt: &past}, nil)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("manual grant", func(t *testing.T) {
		grant, err := f.svc.GrantAccess(ctx, f.reviewer(), domain.GrantAccessInput{UserID: f.student.ID, LevelID: f.level.ID}, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.GrantReasonManual, grant.Reason)
		assert.Equal(t, f.teacher.ID, grant.GrantedBy)

		sent := f.notifier.to(f.student.ID)
		require.NotEmpty(t, sent)
		last := sent[len(sent)-1]
		assert.Equal(t, domain.NotifAccessGranted, last.notifType)
		assert.Equal(t, "New Level Unlocked!", last.title)

		has, err := f.svc.HasAccess(ctx, f.student.ID, f.level.ID)
		require.NoError(t, err)
		assert.True(t, has)
	})
}

func TestGetRequest_OwnerOrReviewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	got, err := f.svc.GetRequest(ctx, req.ID, f.student.AsReviewer())
	require.NoError(t, err)
	require.NotNil(t, got.Level)
	assert.Equal(t, "Level 3", got.Level.Title)

	_, err = f.svc.GetRequest(ctx, req.ID, f.reviewer())
	assert.NoError(t, err)

	stranger := domain.Reviewer{ID: uuid.New()}
	_, err = f.svc.GetRequest(ctx, req.ID, stranger)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	_, err = f.svc.GetRequest(ctx, uuid.New(), f.reviewer())
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestListPendingAndByRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx, domain.DefaultPagination())
	require.NoError(t, err)
	require.Len(t, pending.Data, 1)
	assert.Equal(t, int64(1), pending.TotalItems)
	require.NotNil(t, pending.Data[0].Requester)
	assert.Equal(t, "Budi Santoso", pending.Data[0].Requester.FullName)

	_, err = f.svc.ReviewAccess(ctx, req.ID, f.reviewer(), domain.ReviewAccessRequestInput{Decision: domain.StatusRejected}, nil)
	require.NoError(t, err)

	pending, err = f.svc.ListPending(ctx, domain.DefaultPagination())
	require.NoError(t, err)
	assert.Empty(t, pending.Data)

	mine, err := f.svc.ListByRequester(ctx, f.student.ID, domain.PaginationParams{})
	require.NoError(t, err)
	require.Len(t, mine.Data, 1)
	assert.Equal(t, domain.StatusRejected, mine.Data[0].Status)
	assert.Equal(t, 20, mine.PageSize)
}

func TestListLevels_AnnotatesAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	levels, err := f.svc.ListLevels(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, domain.AccessTypePublic, levels[0].AccessType)
	assert.True(t, levels[0].HasAccess)
	assert.Equal(t, domain.AccessTypeLocked, levels[1].AccessType)
	assert.False(t, levels[1].HasAccess)

	expires := time.Now().Add(48 * time.Hour)
	_, err = f.svc.GrantAccess(ctx, f.reviewer(), domain.GrantAccessInput{UserID: f.student.ID, LevelID: f.level.ID, ExpiresAt: &expires}, nil)
	require.NoError(t, err)

	levels, err = f.svc.ListLevels(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessTypeGranted, levels[1].AccessType)
	assert.True(t, levels[1].HasAccess)
	require.NotNil(t, levels[1].ExpiresAt)
	assert.True(t, expires.Equal(*levels[1].ExpiresAt))
}

// A manual grant can land while a request is still pending. The request stays
// reviewable and approving it rewrites the same grant.
func TestReviewAccess_PendingRequestAlongsideGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	manual, err := f.svc.GrantAccess(ctx, f.admin.AsReviewer(), domain.GrantAccessInput{UserID: f.student.ID, LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	pending, err := f.store.FindPendingRequest(ctx, f.student.ID, f.level.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, req.ID, pending.ID)

	result, err := f.svc.ReviewAccess(ctx, req.ID, f.reviewer(), domain.ReviewAccessRequestInput{Decision: domain.StatusApproved}, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Grant)
	assert.Equal(t, domain.GrantReasonApprovedRequest, result.Grant.Reason)
	assert.Equal(t, f.teacher.ID, result.Grant.GrantedBy)

	grants, err := f.svc.ListGrants(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, manual.LevelID, grants[0].LevelID)

	has, err := f.svc.HasAccess(ctx, f.student.ID, f.level.ID)
	require.NoError(t, err)
	assert.True(t, has)
}
