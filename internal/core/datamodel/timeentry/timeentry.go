package timeentry

import "time"

type TimeEntry struct {
	ID           int64         `gorm:"primaryKey"`
	ProjectID    int64         `gorm:"column:project_id;not null;index"`
	UserID       int64         `gorm:"column:user_id;not null;index"`
	AuthorID     int64         `gorm:"column:author_id;not null"`
	IssueID      *int64        `gorm:"column:issue_id"`
	ActivityID   *int64        `gorm:"column:activity_id"`
	SpentOn      *time.Time    `gorm:"column:spent_on;type:date;index"`
	Hours        float64       `gorm:"column:hours;not null"`
	Comments     string        `gorm:"column:comments;not null;default:''"`
	CustomValues []CustomValue `gorm:"foreignKey:TimeEntryID"`
	CreatedOn    time.Time     `gorm:"column:created_on;autoCreateTime"`
	UpdatedOn    time.Time     `gorm:"column:updated_on;autoUpdateTime"`
}

func (TimeEntry) TableName() string {
	return "time_entries"
}

type CustomValue struct {
	ID            int64  `gorm:"primaryKey"`
	TimeEntryID   int64  `gorm:"column:time_entry_id;not null;uniqueIndex:idx_time_entry_custom_values_entry_field"`
	CustomFieldID int64  `gorm:"column:custom_field_id;not null;uniqueIndex:idx_time_entry_custom_values_entry_field"`
	Value         string `gorm:"column:value;not null;default:''"`
}

func (CustomValue) TableName() string {
	return "time_entry_custom_values"
}
