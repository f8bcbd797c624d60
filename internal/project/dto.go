package project

type CreateProjectDTO struct {
	Identifier string `json:"identifier" validate:"required,max=100"`
	Name       string `json:"name" validate:"required,max=255"`
	ParentID   *int64 `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
}

type ProjectsResponse struct {
	Projects []*Project `json:"projects"`
}
