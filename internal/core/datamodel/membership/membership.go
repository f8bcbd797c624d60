package membership

import "time"

type Role struct {
	ID   int64  `gorm:"primaryKey;autoIncrement:false"`
	Name string `gorm:"column:name;uniqueIndex;not null"`
}

func (Role) TableName() string {
	return "roles"
}

type Member struct {
	ID        int64        `gorm:"primaryKey"`
	ProjectID int64        `gorm:"column:project_id;not null;uniqueIndex:idx_members_project_user"`
	UserID    int64        `gorm:"column:user_id;not null;uniqueIndex:idx_members_project_user"`
	Roles     []MemberRole `gorm:"foreignKey:MemberID"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
}

func (Member) TableName() string {
	return "members"
}

type MemberRole struct {
	ID       int64 `gorm:"primaryKey"`
	MemberID int64 `gorm:"column:member_id;not null;uniqueIndex:idx_member_roles_member_role"`
	RoleID   int64 `gorm:"column:role_id;not null;uniqueIndex:idx_member_roles_member_role"`
}

func (MemberRole) TableName() string {
	return "member_roles"
}
