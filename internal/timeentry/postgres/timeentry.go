package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	entryDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/timeentry"
	"github.com/frahmantamala/timetrack/internal/timeentry"
)

type TimeEntryRepository struct {
	db *gorm.DB
}

func NewTimeEntryRepository(db *gorm.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

func (r *TimeEntryRepository) Create(ctx context.Context, e *timeentry.TimeEntry) error {
	row := timeentry.ToDataModel(e)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create time entry: %w", err)
	}
	e.ID = row.ID
	e.CreatedOn = row.CreatedOn
	e.UpdatedOn = row.UpdatedOn
	return nil
}

// Update overwrites the entry columns and upserts its custom values. Custom values
// absent from e are left in place.
func (r *TimeEntryRepository) Update(ctx context.Context, e *timeentry.TimeEntry) error {
	row := timeentry.ToDataModel(e)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entryDatamodel.TimeEntry{}).
			Where("id = ?", e.ID).
			Select("project_id", "user_id", "issue_id", "activity_id", "spent_on", "hours", "comments", "updated_on").
			Updates(row)
		if res.Error != nil {
			return fmt.Errorf("update time entry %d: %w", e.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return timeentry.ErrNotFound
		}

		if len(row.CustomValues) == 0 {
			return nil
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "time_entry_id"}, {Name: "custom_field_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&row.CustomValues).Error
		if err != nil {
			return fmt.Errorf("save custom values of time entry %d: %w", e.ID, err)
		}
		return nil
	})
}

func (r *TimeEntryRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("time_entry_id = ?", id).Delete(&entryDatamodel.CustomValue{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entryDatamodel.TimeEntry{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return timeentry.ErrNotFound
		}
		return nil
	})
}

func (r *TimeEntryRepository) GetByID(ctx context.Context, id int64) (*timeentry.TimeEntry, error) {
	var row entryDatamodel.TimeEntry
	err := r.db.WithContext(ctx).Preload("CustomValues").Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, timeentry.ErrNotFound
		}
		return nil, err
	}
	return timeentry.FromDataModel(&row), nil
}

func (r *TimeEntryRepository) List(ctx context.Context, q timeentry.Query) ([]*timeentry.TimeEntry, int64, error) {
	base := r.filter(r.db.WithContext(ctx).Model(&entryDatamodel.TimeEntry{}), q)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count time entries: %w", err)
	}

	var rows []*entryDatamodel.TimeEntry
	err := base.Session(&gorm.Session{}).
		Preload("CustomValues").
		Order("spent_on DESC, id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list time entries: %w", err)
	}

	out := make([]*timeentry.TimeEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, timeentry.FromDataModel(row))
	}
	return out, total, nil
}

func (r *TimeEntryRepository) filter(db *gorm.DB, q timeentry.Query) *gorm.DB {
	if q.ProjectID != nil {
		db = db.Where("time_entries.project_id = ?", *q.ProjectID)
	}
	if q.UserID != nil {
		db = db.Where("time_entries.user_id = ?", *q.UserID)
	}
	if q.VisibleToUserID != nil {
		db = db.Where("time_entries.user_id = ?", *q.VisibleToUserID)
	}
	if q.From != nil {
		db = db.Where("time_entries.spent_on >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("time_entries.spent_on <= ?", *q.To)
	}
	if q.Approved != nil && q.ApprovedFieldID > 0 {
		approved := r.db.Model(&entryDatamodel.CustomValue{}).
			Select("1").
			Where("time_entry_custom_values.time_entry_id = time_entries.id").
			Where("time_entry_custom_values.custom_field_id = ?", q.ApprovedFieldID).
			Where("LOWER(TRIM(time_entry_custom_values.value)) IN ?", timeentry.TruthyValues)
		if *q.Approved {
			db = db.Where("EXISTS (?)", approved)
		} else {
			db = db.Where("NOT EXISTS (?)", approved)
		}
	}
	return db
}
