package complaint_test

import (
	"complaintdesk/backend/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of complaint.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FetchComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStore) UpdateComplaint(ctx context.Context, id string, patch models.ComplaintPatch) (*models.Complaint, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStore) InsertComplaint(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStore) FetchComplaintType(ctx context.Context, id string) (*models.ComplaintType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComplaintType), args.Error(1)
}
