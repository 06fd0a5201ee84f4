package storage_test

import (
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *storage.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	// Одне з'єднання, щоб уся пам'ять бази була спільною.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, storage.Migrate(db, config.FeedRedis))

	s := storage.NewStorageService(db, nil, config.FeedRedis)
	ctx := context.Background()
	require.NoError(t, s.SaveAgent(ctx, &models.Agent{ID: "agent-1", DisplayName: "Olena"}))
	require.NoError(t, s.SaveAgent(ctx, &models.Agent{ID: "agent-2", DisplayName: "Taras"}))
	require.NoError(t, s.SaveComplaintType(ctx, &models.ComplaintType{ID: "billing", Name: "Billing"}))
	return s
}

func insert(t *testing.T, s *storage.Service, name string, createdAt time.Time) *models.Complaint {
	t.Helper()
	c, err := s.InsertComplaint(context.Background(), &models.Complaint{
		CustomerName:   name,
		CustomerNumber: "+380 44 000 00 00",
		TypeID:         "billing",
		AgentID:        "agent-1",
		FormData:       models.FormData{"invoice": "INV-1"},
		CreatedAt:      createdAt,
	})
	require.NoError(t, err)
	return c
}

func TestInsertComplaint_Defaults(t *testing.T) {
	// Arrange
	s := newTestService(t)

	// Act
	c := insert(t, s, "Ivan", time.Now())

	// Assert
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, 0, c.ReminderCount)
	assert.NotNil(t, c.ReminderLogs)
}

func TestFetchComplaint_JoinsAndMissing(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := insert(t, s, "Ivan", time.Now())

	fetched, err := s.FetchComplaint(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.NotNil(t, fetched.Type)
	require.NotNil(t, fetched.Agent)
	assert.Equal(t, "Billing", fetched.Type.Name)
	assert.Equal(t, "Olena", fetched.Agent.DisplayName)
	assert.Nil(t, fetched.Resolver)
	assert.Equal(t, "INV-1", fetched.FormData["invoice"])

	missing, err := s.FetchComplaint(ctx, "does-not-exist")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFetchAllComplaints_NewestFirst(t *testing.T) {
	s := newTestService(t)
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	oldest := insert(t, s, "first", base)
	newest := insert(t, s, "third", base.Add(2*time.Hour))
	middle := insert(t, s, "second", base.Add(time.Hour))

	all, err := s.FetchAllComplaints(context.Background())

	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{newest.ID, middle.ID, oldest.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestUpdateComplaint_AppliesPatch(t *testing.T) {
	// Arrange
	s := newTestService(t)
	ctx := context.Background()
	c := insert(t, s, "Ivan", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))

	status := models.StatusResolved
	reason := "refunded"
	resolver := "agent-2"
	at := time.Date(2024, 1, 2, 13, 5, 0, 0, time.UTC)
	count := 1
	logs := models.ReminderLogs{{AgentName: "Olena", Timestamp: at}}

	// Act
	updated, err := s.UpdateComplaint(ctx, c.ID, models.ComplaintPatch{
		Status:        &status,
		ClosureReason: &reason,
		ResolvedBy:    &resolver,
		ResolvedAt:    &at,
		ReminderCount: &count,
		ReminderLogs:  logs,
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, models.StatusResolved, updated.Status)
	assert.Equal(t, "refunded", updated.ClosureReason)
	require.NotNil(t, updated.Resolver)
	assert.Equal(t, "Taras", updated.Resolver.DisplayName)
	require.NotNil(t, updated.ResolvedAt)
	assert.True(t, at.Equal(*updated.ResolvedAt))
	assert.Equal(t, 1, updated.ReminderCount)
	assert.Len(t, updated.ReminderLogs, 1)
	assert.Equal(t, "Ivan", updated.CustomerName, "untouched columns survive")
}

func TestUpdateComplaint_Errors(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	status := models.StatusProcessing

	_, err := s.UpdateComplaint(ctx, "missing", models.ComplaintPatch{Status: &status})
	var writeErr *storage.RemoteWriteError
	require.True(t, errors.As(err, &writeErr))
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	c := insert(t, s, "Ivan", time.Now())
	_, err = s.UpdateComplaint(ctx, c.ID, models.ComplaintPatch{})
	assert.True(t, errors.As(err, &writeErr), "empty patches are rejected")
}

func TestDeleteComplaint(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := insert(t, s, "Ivan", time.Now())

	require.NoError(t, s.DeleteComplaint(ctx, c.ID))

	gone, err := s.FetchComplaint(ctx, c.ID)
	assert.NoError(t, err)
	assert.Nil(t, gone)
	assert.True(t, errors.Is(s.DeleteComplaint(ctx, c.ID), storage.ErrNotFound))
}

func TestComplaintTypes_RoundTripFields(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	field, err := models.NewFieldDefinition(models.FieldSpec{ID: "ch", Label: "Channel", Kind: models.KindDropdown, Options: "phone,email", Visible: true})
	require.NoError(t, err)
	fields, err := models.NewFieldList(field)
	require.NoError(t, err)
	require.NoError(t, s.SaveComplaintType(ctx, &models.ComplaintType{ID: "delivery", Name: "Delivery", Fields: fields}))

	got, err := s.FetchComplaintType(ctx, "delivery")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"ch"}, got.Fields.IDs())

	all, err := s.FetchComplaintTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Billing", "Delivery"}, []string{all[0].Name, all[1].Name})

	none, err := s.FetchComplaintType(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

type nopHandler struct{}

func (nopHandler) HandleChange(models.ChangeEvent) {}
func (nopHandler) HandleDrop(error)                {}

func TestSubscribe_WithoutTransport(t *testing.T) {
	redisMode := storage.NewStorageService(nil, nil, config.FeedRedis)
	_, err := redisMode.Subscribe(context.Background(), "", nopHandler{})
	var subErr *storage.SubscriptionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, config.ComplaintChangesChannel, subErr.Channel)

	pgMode := storage.NewStorageService(nil, nil, config.FeedPostgres)
	_, err = pgMode.Subscribe(context.Background(), "", nopHandler{})
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, config.ComplaintChangesPGChannel, subErr.Channel)

	assert.NoError(t, redisMode.Unsubscribe(nil))
}

func TestUpdateComplaint_ExpectStatus(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := insert(t, s, "Ivan", time.Now())
	expect := models.StatusProcessing
	target := models.StatusSuspended
	reason := "waiting"

	_, err := s.UpdateComplaint(ctx, c.ID, models.ComplaintPatch{ExpectStatus: &expect, Status: &target, SuspensionReason: &reason})
	assert.True(t, errors.Is(err, models.ErrStatusConflict))

	got, err := s.FetchComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status, "a failed condition writes nothing")
	assert.Empty(t, got.SuspensionReason)

	_, err = s.UpdateComplaint(ctx, "missing", models.ComplaintPatch{ExpectStatus: &expect, Status: &target})
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	expect = models.StatusPending
	updated, err := s.UpdateComplaint(ctx, c.ID, models.ComplaintPatch{ExpectStatus: &expect, Status: &target, SuspensionReason: &reason})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, updated.Status)
}

// resolvingStore resolves the complaint through a second state machine right
// before the first write goes out.
type resolvingStore struct {
	*storage.Service
	t    *testing.T
	once bool
}

func (r *resolvingStore) UpdateComplaint(ctx context.Context, id string, patch models.ComplaintPatch) (*models.Complaint, error) {
	if !r.once {
		r.once = true
		other := complaint.NewStateMachine(r.Service)
		require.NoError(r.t, other.Transition(ctx, id, models.StatusResolved, "fixed", &models.Agent{ID: "agent-2", DisplayName: "Taras"}))
	}
	return r.Service.UpdateComplaint(ctx, id, patch)
}

func TestTransition_ConcurrentResolveStaysTerminal(t *testing.T) {
	// Arrange
	s := newTestService(t)
	ctx := context.Background()
	c := insert(t, s, "Ivan", time.Now().Add(-time.Hour))
	sm := complaint.NewStateMachine(&resolvingStore{Service: s, t: t})

	// Act
	err := sm.Transition(ctx, c.ID, models.StatusSuspended, "waiting", &models.Agent{ID: "agent-1", DisplayName: "Olena"})

	// Assert
	var illegal *complaint.IllegalTransitionError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, models.StatusResolved, illegal.From)

	got, err := s.FetchComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, "fixed", got.ClosureReason)
	assert.Empty(t, got.SuspensionReason)
	assert.NotNil(t, got.ResolvedAt)
}

func TestUpdateComplaint_ReReadFailure(t *testing.T) {
	// Arrange
	s := newTestService(t)
	ctx := context.Background()
	c := insert(t, s, "Ivan", time.Now())
	require.NoError(t, s.DB.Callback().Query().Before("gorm:query").Register("test:fail_reads", func(db *gorm.DB) {
		_ = db.AddError(errors.New("replica unavailable"))
	}))
	status := models.StatusProcessing

	// Act
	updated, err := s.UpdateComplaint(ctx, c.ID, models.ComplaintPatch{Status: &status})

	// Assert
	assert.Nil(t, updated)
	var readErr *storage.RemoteReadError
	require.True(t, errors.As(err, &readErr), "the write is committed but reported as not re-read")
	var writeErr *storage.RemoteWriteError
	assert.False(t, errors.As(err, &writeErr))

	require.NoError(t, s.DB.Callback().Query().Remove("test:fail_reads"))
	got, err := s.FetchComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
}
