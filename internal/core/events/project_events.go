package events

const EventTypeProjectCreated = "project.created"

// ProjectCreatedEvent is published after a project row has been committed.
type ProjectCreatedEvent struct {
	BaseEvent
	ProjectID int64  `json:"project_id"`
	ParentID  *int64 `json:"parent_id,omitempty"`
}

func NewProjectCreatedEvent(projectID int64, parentID *int64) *ProjectCreatedEvent {
	data := map[string]interface{}{"project_id": projectID}
	if parentID != nil {
		data["parent_id"] = *parentID
	}
	return &ProjectCreatedEvent{
		BaseEvent: NewBaseEvent(EventTypeProjectCreated, data),
		ProjectID: projectID,
		ParentID:  parentID,
	}
}
