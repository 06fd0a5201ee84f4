package storage

import (
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the client of the authoritative complaint store.
type Store interface {
	InsertComplaint(ctx context.Context, c *models.Complaint) (*models.Complaint, error)
	UpdateComplaint(ctx context.Context, id string, patch models.ComplaintPatch) (*models.Complaint, error)
	// FetchComplaint returns (nil, nil) when the complaint does not exist.
	FetchComplaint(ctx context.Context, id string) (*models.Complaint, error)
	// FetchAllComplaints returns every complaint, newest first.
	FetchAllComplaints(ctx context.Context) ([]models.Complaint, error)
	FetchComplaintTypes(ctx context.Context) ([]models.ComplaintType, error)
	FetchComplaintType(ctx context.Context, id string) (*models.ComplaintType, error)

	Subscribe(ctx context.Context, channel string, h ChangeHandler) (Subscription, error)
	Unsubscribe(sub Subscription) error
}

// ChangeHandler receives change channel callbacks.
// HandleChange may be invoked from the subscription goroutine and must not block for long.
type ChangeHandler interface {
	HandleChange(ev models.ChangeEvent)
	HandleDrop(err error)
}

// Subscription is a live change channel handle.
type Subscription interface {
	Channel() string
	Close() error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Feed  config.FeedMode
	// ListenerDSN is the connection string used by the PostgreSQL change listener.
	ListenerDSN string
	// HealthCheckInterval is the ping period of Redis subscriptions; zero means
	// DefaultHealthCheckInterval.
	HealthCheckInterval time.Duration
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, feed config.FeedMode) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Feed:  feed,
	}
}

func (s *Service) joined(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Preload("Type").
		Preload("Agent").
		Preload("Resolver")
}

// InsertComplaint створює нову скаргу. Статус за замовчуванням - Pending.
func (s *Service) InsertComplaint(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	if c.Status == "" {
		c.Status = models.StatusPending
	}
	if c.FormData == nil {
		c.FormData = models.FormData{}
	}
	if c.ReminderLogs == nil {
		c.ReminderLogs = models.ReminderLogs{}
	}

	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		log.Printf("ERROR: Failed to insert complaint for customer %s: %v", c.CustomerNumber, err)
		return nil, &RemoteWriteError{Op: "insert", ID: c.ID, Err: err}
	}

	s.publish(ctx, models.ChangeEvent{Kind: models.EventInsert, ID: c.ID})
	return c, nil
}

// UpdateComplaint applies patch in a single UPDATE statement and returns the stored record.
// A RemoteReadError means the write is committed but the record could not be re-read.
func (s *Service) UpdateComplaint(ctx context.Context, id string, patch models.ComplaintPatch) (*models.Complaint, error) {
	if patch.IsEmpty() {
		return nil, &RemoteWriteError{Op: "update", ID: id, Err: errors.New("empty patch")}
	}

	q := s.DB.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("id = ?", id)
	if patch.ExpectStatus != nil {
		q = q.Where("status = ?", string(*patch.ExpectStatus))
	}
	res := q.Updates(patch.Columns())
	if res.Error != nil {
		log.Printf("ERROR: Failed to update complaint %s: %v", id, res.Error)
		return nil, &RemoteWriteError{Op: "update", ID: id, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, &RemoteWriteError{Op: "update", ID: id, Err: s.missReason(ctx, id, patch)}
	}

	s.publish(ctx, models.ChangeEvent{Kind: models.EventUpdate, ID: id})

	updated, err := s.FetchComplaint(ctx, id)
	if err != nil {
		log.Printf("WARNING: Complaint %s updated but could not be re-read: %v", id, err)
		return nil, err
	}
	if updated == nil {
		// Видалено між записом і читанням.
		return nil, &RemoteReadError{ID: id, Err: ErrNotFound}
	}
	return updated, nil
}

// missReason tells a missing complaint apart from a failed status condition.
func (s *Service) missReason(ctx context.Context, id string, patch models.ComplaintPatch) error {
	if patch.ExpectStatus == nil {
		return ErrNotFound
	}
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Complaint{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return models.ErrStatusConflict
}

// DeleteComplaint removes a complaint. Used by operator tooling only.
func (s *Service) DeleteComplaint(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Complaint{})
	if res.Error != nil {
		return &RemoteWriteError{Op: "delete", ID: id, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &RemoteWriteError{Op: "delete", ID: id, Err: ErrNotFound}
	}
	s.publish(ctx, models.ChangeEvent{Kind: models.EventDelete, ID: id})
	return nil
}

// FetchComplaint повертає скаргу разом з типом, агентом та тим, хто її закрив.
func (s *Service) FetchComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.joined(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Скаргу не знайдено
	}
	if err != nil {
		return nil, &RemoteReadError{ID: id, Err: err}
	}
	return &c, nil
}

func (s *Service) FetchAllComplaints(ctx context.Context) ([]models.Complaint, error) {
	var complaints []models.Complaint
	if err := s.joined(ctx).Order("created_at desc").Find(&complaints).Error; err != nil {
		log.Printf("ERROR: Failed to fetch complaints: %v", err)
		return nil, &RemoteReadError{Err: err}
	}
	return complaints, nil
}

func (s *Service) FetchComplaintTypes(ctx context.Context) ([]models.ComplaintType, error) {
	var types []models.ComplaintType
	if err := s.DB.WithContext(ctx).Order("name asc").Find(&types).Error; err != nil {
		return nil, &RemoteReadError{Err: err}
	}
	return types, nil
}

func (s *Service) FetchComplaintType(ctx context.Context, id string) (*models.ComplaintType, error) {
	var t models.ComplaintType
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &RemoteReadError{Err: err}
	}
	return &t, nil
}

// SaveComplaintType створює або оновлює тип скарги.
func (s *Service) SaveComplaintType(ctx context.Context, t *models.ComplaintType) error {
	return s.DB.WithContext(ctx).Save(t).Error
}

// SaveAgent створює або оновлює агента.
func (s *Service) SaveAgent(ctx context.Context, a *models.Agent) error {
	return s.DB.WithContext(ctx).Save(a).Error
}

// Subscribe opens the change channel for the configured feed mode.
// An empty channel selects the default channel of the mode.
func (s *Service) Subscribe(ctx context.Context, channel string, h ChangeHandler) (Subscription, error) {
	switch s.Feed {
	case config.FeedPostgres:
		if channel == "" {
			channel = config.ComplaintChangesPGChannel
		}
		sub, err := subscribePostgres(s.ListenerDSN, channel, h)
		if err != nil {
			return nil, err
		}
		return sub, nil
	default:
		if channel == "" {
			channel = config.ComplaintChangesChannel
		}
		if s.Redis == nil {
			return nil, &SubscriptionError{Channel: channel, Err: errors.New("redis client not configured")}
		}
		sub, err := subscribeRedis(ctx, s.Redis, channel, s.HealthCheckInterval, h)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
}

func (s *Service) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Close()
}

// publish announces a committed write on the Redis channel. In postgres mode the
// table trigger announces it instead.
func (s *Service) publish(ctx context.Context, ev models.ChangeEvent) {
	if s.Feed != config.FeedRedis || s.Redis == nil {
		return
	}
	if err := s.Redis.Publish(ctx, config.ComplaintChangesChannel, ev.Encode()).Err(); err != nil {
		log.Printf("ERROR: Failed to publish %s event for complaint %s: %v", ev.Kind, ev.ID, err)
	}
}
