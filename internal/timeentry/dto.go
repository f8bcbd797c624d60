package timeentry

import (
	"time"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/core/common/validation"
)

type CreateTimeEntryDTO struct {
	ProjectID         int64            `json:"project_id" validate:"required,gt=0"`
	UserID            *int64           `json:"user_id,omitempty" validate:"omitempty,gt=0"`
	IssueID           *int64           `json:"issue_id,omitempty" validate:"omitempty,gt=0"`
	ActivityID        *int64           `json:"activity_id,omitempty" validate:"omitempty,gt=0"`
	SpentOn           string           `json:"spent_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Hours             float64          `json:"hours" validate:"required,gt=0,lte=1000"`
	Comments          string           `json:"comments,omitempty" validate:"max=1024"`
	CustomFieldValues map[int64]string `json:"custom_field_values,omitempty" validate:"omitempty,dive,keys,gt=0,endkeys,max=255"`
}

// ToEntry builds the entry the actor is about to create. The owner defaults to the
// actor; the author is always the actor.
func (dto CreateTimeEntryDTO) ToEntry(actorID int64, now time.Time) (*TimeEntry, *internal.AppError) {
	spentOn, appErr := validation.ParseDate("spent_on", dto.SpentOn)
	if appErr != nil {
		return nil, appErr
	}

	owner := actorID
	if dto.UserID != nil {
		owner = *dto.UserID
	}

	e := &TimeEntry{
		ProjectID:    dto.ProjectID,
		UserID:       owner,
		AuthorID:     actorID,
		IssueID:      dto.IssueID,
		ActivityID:   dto.ActivityID,
		SpentOn:      spentOn,
		Hours:        dto.Hours,
		Comments:     dto.Comments,
		CustomValues: make(map[int64]string, len(dto.CustomFieldValues)),
		CreatedOn:    now,
		UpdatedOn:    now,
	}
	for id, v := range dto.CustomFieldValues {
		e.CustomValues[id] = v
	}
	return e, nil
}

// UpdateTimeEntryDTO is a partial update; nil fields are left unchanged.
type UpdateTimeEntryDTO struct {
	ProjectID         *int64           `json:"project_id,omitempty" validate:"omitempty,gt=0"`
	UserID            *int64           `json:"user_id,omitempty" validate:"omitempty,gt=0"`
	IssueID           *int64           `json:"issue_id,omitempty" validate:"omitempty,gt=0"`
	ActivityID        *int64           `json:"activity_id,omitempty" validate:"omitempty,gt=0"`
	SpentOn           *string          `json:"spent_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Hours             *float64         `json:"hours,omitempty" validate:"omitempty,gt=0,lte=1000"`
	Comments          *string          `json:"comments,omitempty" validate:"omitempty,max=1024"`
	CustomFieldValues map[int64]string `json:"custom_field_values,omitempty" validate:"omitempty,dive,keys,gt=0,endkeys,max=255"`
}

// Apply returns the state the entry would have after the update.
func (dto UpdateTimeEntryDTO) Apply(stored *TimeEntry) (*TimeEntry, *internal.AppError) {
	e := stored.Clone()
	if dto.ProjectID != nil {
		e.ProjectID = *dto.ProjectID
	}
	if dto.UserID != nil {
		e.UserID = *dto.UserID
	}
	if dto.IssueID != nil {
		v := *dto.IssueID
		e.IssueID = &v
	}
	if dto.ActivityID != nil {
		v := *dto.ActivityID
		e.ActivityID = &v
	}
	if dto.SpentOn != nil {
		spentOn, appErr := validation.ParseDate("spent_on", *dto.SpentOn)
		if appErr != nil {
			return nil, appErr
		}
		e.SpentOn = spentOn
	}
	if dto.Hours != nil {
		e.Hours = *dto.Hours
	}
	if dto.Comments != nil {
		e.Comments = *dto.Comments
	}
	for id, v := range dto.CustomFieldValues {
		e.CustomValues[id] = v
	}
	return e, nil
}

// Changes derives the modified attributes from the request payload against the
// stored entry.
func (dto UpdateTimeEntryDTO) Changes(stored *TimeEntry) (Changes, *internal.AppError) {
	proposed, appErr := dto.Apply(stored)
	if appErr != nil {
		return Changes{}, appErr
	}
	return Diff(stored, proposed), nil
}

// ListTimeEntriesDTO holds the list filters taken from the query string.
type ListTimeEntriesDTO struct {
	ProjectID *int64 `form:"project_id" json:"project_id,omitempty" validate:"omitempty,gt=0"`
	UserID    *int64 `form:"user_id" json:"user_id,omitempty" validate:"omitempty,gt=0"`
	From      string `form:"from" json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Approved  *bool  `form:"approved" json:"approved,omitempty"`
	Limit     int    `form:"limit" json:"limit,omitempty" validate:"omitempty,gt=0,lte=500"`
	Offset    int    `form:"offset" json:"offset,omitempty" validate:"omitempty,gte=0"`
}

type TimeEntriesResponse struct {
	TimeEntries []*TimeEntry `json:"time_entries"`
	Total       int64        `json:"total"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
}
