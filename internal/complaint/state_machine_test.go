package complaint_test

import (
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	createdAt = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	agent     = &models.Agent{ID: "agent-1", DisplayName: "Olena"}
)

func newMachine(store *MockStore, now time.Time) *complaint.StateMachine {
	sm := complaint.NewStateMachine(store)
	sm.Now = func() time.Time { return now }
	return sm
}

func pending() *models.Complaint {
	return &models.Complaint{ID: "c-1", Status: models.StatusPending, CreatedAt: createdAt}
}

func TestCanTransition_Graph(t *testing.T) {
	allowed := map[models.Status][]models.Status{
		models.StatusPending:    {models.StatusProcessing, models.StatusSuspended, models.StatusResolved},
		models.StatusProcessing: {models.StatusSuspended, models.StatusResolved},
		models.StatusSuspended:  {models.StatusSuspended, models.StatusResolved},
		models.StatusResolved:   {},
	}

	for _, from := range models.Statuses {
		for _, to := range models.Statuses {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, complaint.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.Empty(t, complaint.AllowedTargets(models.StatusResolved))
}

func TestTransition_BlankReasonNeverCallsStore(t *testing.T) {
	for _, target := range []models.Status{models.StatusSuspended, models.StatusResolved} {
		for _, reason := range []string{"", "   ", "\t\n"} {
			// Arrange
			store := new(MockStore)
			sm := newMachine(store, createdAt.Add(time.Hour))

			// Act
			err := sm.Transition(context.Background(), "c-1", target, reason, agent)

			// Assert
			var vErr *complaint.ValidationError
			require.True(t, errors.As(err, &vErr), "target %s reason %q", target, reason)
			assert.Equal(t, "reason", vErr.Field)
			store.AssertNotCalled(t, "FetchComplaint", mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "UpdateComplaint", mock.Anything, mock.Anything, mock.Anything)
		}
	}
}

func TestTransition_ResolveRequiresAgent(t *testing.T) {
	store := new(MockStore)
	sm := newMachine(store, createdAt)

	err := sm.Transition(context.Background(), "c-1", models.StatusResolved, "done", nil)

	var vErr *complaint.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "agent", vErr.Field)
	store.AssertNotCalled(t, "FetchComplaint", mock.Anything, mock.Anything)
}

func TestTransition_UnknownTarget(t *testing.T) {
	store := new(MockStore)
	sm := newMachine(store, createdAt)

	err := sm.Transition(context.Background(), "c-1", models.Status("Archived"), "", agent)

	var vErr *complaint.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestTransition_FromResolvedAlwaysFails(t *testing.T) {
	for _, target := range models.Statuses {
		// Arrange
		store := new(MockStore)
		resolvedAt := createdAt.Add(time.Hour)
		resolved := &models.Complaint{ID: "c-1", Status: models.StatusResolved, CreatedAt: createdAt, ResolvedAt: &resolvedAt}
		store.On("FetchComplaint", mock.Anything, "c-1").Return(resolved, nil)
		sm := newMachine(store, createdAt.Add(2*time.Hour))

		// Act
		err := sm.Transition(context.Background(), "c-1", target, "reason", agent)

		// Assert
		var illegal *complaint.IllegalTransitionError
		require.True(t, errors.As(err, &illegal), "target %s", target)
		assert.Equal(t, models.StatusResolved, illegal.From)
		store.AssertNotCalled(t, "UpdateComplaint", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestTransition_ProcessingOnlyFromPending(t *testing.T) {
	store := new(MockStore)
	store.On("FetchComplaint", mock.Anything, "c-1").
		Return(&models.Complaint{ID: "c-1", Status: models.StatusSuspended, CreatedAt: createdAt}, nil)
	sm := newMachine(store, createdAt)

	err := sm.Transition(context.Background(), "c-1", models.StatusProcessing, "", agent)

	var illegal *complaint.IllegalTransitionError
	assert.True(t, errors.As(err, &illegal))
	store.AssertNotCalled(t, "UpdateComplaint", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_PendingToProcessing(t *testing.T) {
	// Arrange
	store := new(MockStore)
	store.On("FetchComplaint", mock.Anything, "c-1").Return(pending(), nil)
	store.On("UpdateComplaint", mock.Anything, "c-1", mock.MatchedBy(func(p models.ComplaintPatch) bool {
		return *p.Status == models.StatusProcessing && p.ResolvedAt == nil && p.ClosureReason == nil
	})).Return(nil, nil)
	sm := newMachine(store, createdAt)

	// Act
	err := sm.Transition(context.Background(), "c-1", models.StatusProcessing, "", nil)

	// Assert
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestTransition_SuspendOverwritesReason(t *testing.T) {
	// Arrange
	store := new(MockStore)
	suspended := &models.Complaint{ID: "c-1", Status: models.StatusSuspended, SuspensionReason: "waiting for docs", CreatedAt: createdAt}
	store.On("FetchComplaint", mock.Anything, "c-1").Return(suspended, nil)
	var written models.ComplaintPatch
	store.On("UpdateComplaint", mock.Anything, "c-1", mock.Anything).
		Run(func(args mock.Arguments) { written = args.Get(2).(models.ComplaintPatch) }).
		Return(nil, nil)
	sm := newMachine(store, createdAt)

	// Act
	err := sm.Transition(context.Background(), "c-1", models.StatusSuspended, "  customer abroad  ", agent)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, *written.Status)
	assert.Equal(t, "customer abroad", *written.SuspensionReason)
}

func TestTransition_ResolveSetsResolutionFields(t *testing.T) {
	// Arrange
	now := createdAt.Add(27*time.Hour + 5*time.Minute)
	store := new(MockStore)
	store.On("FetchComplaint", mock.Anything, "c-1").
		Return(&models.Complaint{ID: "c-1", Status: models.StatusSuspended, SuspensionReason: "x", CreatedAt: createdAt}, nil)
	var written models.ComplaintPatch
	store.On("UpdateComplaint", mock.Anything, "c-1", mock.Anything).
		Run(func(args mock.Arguments) { written = args.Get(2).(models.ComplaintPatch) }).
		Return(nil, nil)
	sm := newMachine(store, now)

	// Act
	err := sm.Transition(context.Background(), "c-1", models.StatusResolved, "refund issued", agent)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, *written.Status)
	assert.Equal(t, "refund issued", *written.ClosureReason)
	assert.Equal(t, "agent-1", *written.ResolvedBy)
	require.NotNil(t, written.ResolvedAt)
	assert.True(t, written.ResolvedAt.Equal(now))
	assert.Equal(t, "", *written.SuspensionReason, "suspension reason is cleared on leaving Suspended")
}

func TestTransition_ResolvedAtNeverBeforeCreatedAt(t *testing.T) {
	// Arrange: the local clock lags behind the store.
	store := new(MockStore)
	store.On("FetchComplaint", mock.Anything, "c-1").Return(pending(), nil)
	var written models.ComplaintPatch
	store.On("UpdateComplaint", mock.Anything, "c-1", mock.Anything).
		Run(func(args mock.Arguments) { written = args.Get(2).(models.ComplaintPatch) }).
		Return(nil, nil)
	sm := newMachine(store, createdAt.Add(-time.Minute))

	// Act
	err := sm.Transition(context.Background(), "c-1", models.StatusResolved, "done", agent)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, written.ResolvedAt)
	assert.False(t, written.ResolvedAt.Before(createdAt))
}

func TestTransition_NotFoundAndStoreErrors(t *testing.T) {
	store := new(MockStore)
	store.On("FetchComplaint", mock.Anything, "missing").Return(nil, nil)
	store.On("FetchComplaint", mock.Anything, "c-1").Return(pending(), nil)
	writeErr := &storage.RemoteWriteError{Op: "update", ID: "c-1", Err: errors.New("connection reset")}
	store.On("UpdateComplaint", mock.Anything, "c-1", mock.Anything).Return(nil, writeErr)
	sm := newMachine(store, createdAt)

	err := sm.Transition(context.Background(), "missing", models.StatusProcessing, "", agent)
	assert.True(t, errors.Is(err, complaint.ErrComplaintNotFound))

	err = sm.Transition(context.Background(), "c-1", models.StatusProcessing, "", agent)
	var remote *storage.RemoteWriteError
	assert.True(t, errors.As(err, &remote))
}

func TestTransition_WritesOnlyFromReadStatus(t *testing.T) {
	store := new(MockStore)
	store.On("FetchComplaint", mock.Anything, "c-1").Return(pending(), nil)
	var written models.ComplaintPatch
	store.On("UpdateComplaint", mock.Anything, "c-1", mock.Anything).
		Run(func(args mock.Arguments) { written = args.Get(2).(models.ComplaintPatch) }).
		Return(nil, nil)
	sm := newMachine(store, createdAt)

	require.NoError(t, sm.Transition(context.Background(), "c-1", models.StatusProcessing, "", agent))

	require.NotNil(t, written.ExpectStatus)
	assert.Equal(t, models.StatusPending, *written.ExpectStatus)
}

func TestTransition_LostRaceAgainstResolve(t *testing.T) {
	// Arrange: the complaint is resolved between the read and the write.
	store := new(MockStore)
	resolved := pending()
	resolved.Status = models.StatusResolved
	store.On("FetchComplaint", mock.Anything, "c-1").Return(pending(), nil).Once()
	store.On("FetchComplaint", mock.Anything, "c-1").Return(resolved, nil).Once()
	conflict := &storage.RemoteWriteError{Op: "update", ID: "c-1", Err: models.ErrStatusConflict}
	store.On("UpdateComplaint", mock.Anything, "c-1", mock.Anything).Return(nil, conflict)
	sm := newMachine(store, createdAt)

	// Act
	err := sm.Transition(context.Background(), "c-1", models.StatusSuspended, "waiting", agent)

	// Assert
	var illegal *complaint.IllegalTransitionError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, models.StatusResolved, illegal.From)
	store.AssertExpectations(t)
}

func TestTransition_LostRaceStillLegal(t *testing.T) {
	store := new(MockStore)
	processing := pending()
	processing.Status = models.StatusProcessing
	store.On("FetchComplaint", mock.Anything, "c-1").Return(pending(), nil).Once()
	store.On("FetchComplaint", mock.Anything, "c-1").Return(processing, nil).Once()
	conflict := &storage.RemoteWriteError{Op: "update", ID: "c-1", Err: models.ErrStatusConflict}
	store.On("UpdateComplaint", mock.Anything, "c-1", mock.Anything).Return(nil, conflict)
	sm := newMachine(store, createdAt)

	err := sm.Transition(context.Background(), "c-1", models.StatusSuspended, "waiting", agent)

	assert.True(t, errors.Is(err, models.ErrStatusConflict), "a legal retry is left to the caller")
}

func TestTransition_CommittedButNotReRead(t *testing.T) {
	store := new(MockStore)
	store.On("FetchComplaint", mock.Anything, "c-1").Return(pending(), nil)
	readErr := &storage.RemoteReadError{ID: "c-1", Err: errors.New("timeout")}
	store.On("UpdateComplaint", mock.Anything, "c-1", mock.Anything).Return(nil, readErr)
	sm := newMachine(store, createdAt)

	err := sm.Transition(context.Background(), "c-1", models.StatusProcessing, "", agent)

	assert.NoError(t, err)
}
