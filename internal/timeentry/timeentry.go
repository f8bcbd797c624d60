package timeentry

import (
	"errors"
	"sort"
	"strings"
	"time"

	entryDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/timeentry"
)

var ErrNotFound = errors.New("time entry not found")

// TruthyValues are the normalized custom field values that count as "approved".
var TruthyValues = []string{"1", "true", "t", "yes", "y", "да"}

type TimeEntry struct {
	ID           int64            `json:"id"`
	ProjectID    int64            `json:"project_id"`
	UserID       int64            `json:"user_id"`
	AuthorID     int64            `json:"author_id"`
	IssueID      *int64           `json:"issue_id,omitempty"`
	ActivityID   *int64           `json:"activity_id,omitempty"`
	SpentOn      *time.Time       `json:"spent_on,omitempty"`
	Hours        float64          `json:"hours"`
	Comments     string           `json:"comments"`
	CustomValues map[int64]string `json:"custom_field_values"`
	CreatedOn    time.Time        `json:"created_on"`
	UpdatedOn    time.Time        `json:"updated_on"`
}

// EffectiveDate is the date the entry is booked on: spent_on, or the creation date
// when spent_on is unset.
func (e *TimeEntry) EffectiveDate() time.Time {
	if e.SpentOn != nil {
		return *e.SpentOn
	}
	return e.CreatedOn
}

func (e *TimeEntry) CustomValue(fieldID int64) string {
	if e == nil || e.CustomValues == nil {
		return ""
	}
	return e.CustomValues[fieldID]
}

func (e *TimeEntry) IsOwnedBy(userID int64) bool {
	return e.UserID == userID
}

func (e *TimeEntry) Clone() *TimeEntry {
	c := *e
	if e.IssueID != nil {
		v := *e.IssueID
		c.IssueID = &v
	}
	if e.ActivityID != nil {
		v := *e.ActivityID
		c.ActivityID = &v
	}
	if e.SpentOn != nil {
		v := *e.SpentOn
		c.SpentOn = &v
	}
	c.CustomValues = make(map[int64]string, len(e.CustomValues))
	for k, v := range e.CustomValues {
		c.CustomValues[k] = v
	}
	return &c
}

// IsTruthy reports whether a stored custom value means "yes".
func IsTruthy(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, t := range TruthyValues {
		if v == t {
			return true
		}
	}
	return false
}

func ToDataModel(e *TimeEntry) *entryDatamodel.TimeEntry {
	row := &entryDatamodel.TimeEntry{
		ID:         e.ID,
		ProjectID:  e.ProjectID,
		UserID:     e.UserID,
		AuthorID:   e.AuthorID,
		IssueID:    e.IssueID,
		ActivityID: e.ActivityID,
		SpentOn:    e.SpentOn,
		Hours:      e.Hours,
		Comments:   e.Comments,
		CreatedOn:  e.CreatedOn,
		UpdatedOn:  e.UpdatedOn,
	}

	fieldIDs := make([]int64, 0, len(e.CustomValues))
	for id := range e.CustomValues {
		fieldIDs = append(fieldIDs, id)
	}
	sort.Slice(fieldIDs, func(i, j int) bool { return fieldIDs[i] < fieldIDs[j] })
	for _, id := range fieldIDs {
		row.CustomValues = append(row.CustomValues, entryDatamodel.CustomValue{
			TimeEntryID:   e.ID,
			CustomFieldID: id,
			Value:         e.CustomValues[id],
		})
	}
	return row
}

func FromDataModel(row *entryDatamodel.TimeEntry) *TimeEntry {
	e := &TimeEntry{
		ID:           row.ID,
		ProjectID:    row.ProjectID,
		UserID:       row.UserID,
		AuthorID:     row.AuthorID,
		IssueID:      row.IssueID,
		ActivityID:   row.ActivityID,
		SpentOn:      row.SpentOn,
		Hours:        row.Hours,
		Comments:     row.Comments,
		CustomValues: make(map[int64]string, len(row.CustomValues)),
		CreatedOn:    row.CreatedOn,
		UpdatedOn:    row.UpdatedOn,
	}
	for _, cv := range row.CustomValues {
		e.CustomValues[cv.CustomFieldID] = cv.Value
	}
	return e
}
