package timeentry

import "sort"

const (
	FieldProjectID  = "project_id"
	FieldUserID     = "user_id"
	FieldIssueID    = "issue_id"
	FieldActivityID = "activity_id"
	FieldSpentOn    = "spent_on"
	FieldHours      = "hours"
	FieldComments   = "comments"
)

type ValueChange struct {
	From string
	To   string
}

// Changes is the set of attributes a write would modify.
type Changes struct {
	Fields       []string
	CustomValues map[int64]ValueChange
}

func (c Changes) IsEmpty() bool {
	return len(c.Fields) == 0 && len(c.CustomValues) == 0
}

func (c Changes) HasField(name string) bool {
	for _, f := range c.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Diff compares two states of an entry. A nil before is treated as a blank entry,
// which makes every set attribute of after a change.
func Diff(before, after *TimeEntry) Changes {
	if before == nil {
		before = &TimeEntry{}
	}
	if after == nil {
		after = &TimeEntry{}
	}

	ch := Changes{CustomValues: map[int64]ValueChange{}}
	if before.ProjectID != after.ProjectID {
		ch.Fields = append(ch.Fields, FieldProjectID)
	}
	if before.UserID != after.UserID {
		ch.Fields = append(ch.Fields, FieldUserID)
	}
	if !equalIDs(before.IssueID, after.IssueID) {
		ch.Fields = append(ch.Fields, FieldIssueID)
	}
	if !equalIDs(before.ActivityID, after.ActivityID) {
		ch.Fields = append(ch.Fields, FieldActivityID)
	}
	if !sameDay(before, after) {
		ch.Fields = append(ch.Fields, FieldSpentOn)
	}
	if before.Hours != after.Hours {
		ch.Fields = append(ch.Fields, FieldHours)
	}
	if before.Comments != after.Comments {
		ch.Fields = append(ch.Fields, FieldComments)
	}

	ids := map[int64]struct{}{}
	for id := range before.CustomValues {
		ids[id] = struct{}{}
	}
	for id := range after.CustomValues {
		ids[id] = struct{}{}
	}
	for id := range ids {
		from, to := before.CustomValue(id), after.CustomValue(id)
		if from != to {
			ch.CustomValues[id] = ValueChange{From: from, To: to}
		}
	}

	sort.Strings(ch.Fields)
	return ch
}

func equalIDs(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameDay(a, b *TimeEntry) bool {
	if a.SpentOn == nil || b.SpentOn == nil {
		return a.SpentOn == nil && b.SpentOn == nil
	}
	ay, am, ad := a.SpentOn.Date()
	by, bm, bd := b.SpentOn.Date()
	return ay == by && am == bm && ad == bd
}
