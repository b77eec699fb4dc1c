package decision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eleven-am/vlm-docking/internal/control"
	"github.com/eleven-am/vlm-docking/internal/shared"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	observeTimeout   = 2 * time.Second
)

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("component", "decision-store")}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Record{})
}

func (s *Store) Create(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = shared.NewID("dec_")
	}
	if r.DecidedAt.IsZero() {
		r.DecidedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*Record, error) {
	var r Record
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &r, err
}

// List returns the newest records first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := s.db.WithContext(ctx).Model(&Record{})
	if f.CameraID != "" {
		q = q.Where("camera_id = ?", f.CameraID)
	}
	if f.Outcome != "" {
		q = q.Where("outcome = ?", f.Outcome)
	}

	var records []*Record
	err := q.Order("decided_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

func (s *Store) CountByOutcome(ctx context.Context, cameraID string) (map[string]int64, error) {
	type row struct {
		Outcome string
		Count   int64
	}

	q := s.db.WithContext(ctx).Model(&Record{}).Select("outcome, COUNT(*) AS count")
	if cameraID != "" {
		q = q.Where("camera_id = ?", cameraID)
	}

	var rows []row
	if err := q.Group("outcome").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Outcome] = r.Count
	}
	return counts, nil
}

func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("decided_at < ?", before).Delete(&Record{})
	return result.RowsAffected, result.Error
}

// ObserveDecision persists d in the background so the control goroutine never
// waits on the database.
func (s *Store) ObserveDecision(d control.Decision) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), observeTimeout)
		defer cancel()
		if err := s.Create(ctx, FromDecision(d)); err != nil {
			s.logger.Warn("failed to record decision", "camera_id", d.CameraID, "error", err)
		}
	}()
}
