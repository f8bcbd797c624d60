package membership

type UpsertMembershipDTO struct {
	UserID  int64   `json:"user_id" validate:"required,gt=0"`
	RoleIDs []int64 `json:"role_ids" validate:"required,min=1,dive,gt=0"`
}

type AddRoleDTO struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

type MembersResponse struct {
	Memberships []*Member `json:"memberships"`
}
