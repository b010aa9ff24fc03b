package domain

import (
	"github.com/fundwit/go-commons/types"
)

const (
	ProjectStatusPending    = "pending"
	ProjectStatusInProgress = "in-progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusOnHold     = "on-hold"
)

type Project struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Identifier string `json:"identifier" gorm:"unique_index:uni_project_identifier"`
	Name       string `json:"name"`

	ManagerID types.ID `json:"managerId"`
	Status    string   `json:"status"`

	StartDate types.Timestamp `json:"startDate" sql:"type:DATETIME(6)"`
	EndDate   types.Timestamp `json:"endDate" sql:"type:DATETIME(6)"`

	CreatorID  types.ID        `json:"creatorId"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type ProjectMember struct {
	ProjectID types.ID `json:"projectId" gorm:"unique_index:uni_project_member"`
	MemberID  types.ID `json:"memberId" gorm:"unique_index:uni_project_member"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type ProjectCreating struct {
	Name      string   `json:"name" binding:"required,lte=60"`
	ManagerID types.ID `json:"managerId" binding:"required"`

	StartDate types.Timestamp `json:"startDate"`
	EndDate   types.Timestamp `json:"endDate"`
}

type ProjectUpdating struct {
	Name   string `json:"name" binding:"omitempty,lte=60"`
	Status string `json:"status" binding:"omitempty,oneof=pending in-progress completed on-hold"`

	StartDate types.Timestamp `json:"startDate"`
	EndDate   types.Timestamp `json:"endDate"`
}

type ProjectDetail struct {
	Project

	ManagerName string     `json:"managerName" gorm:"-"`
	Members     []types.ID `json:"members" gorm:"-"`
}
