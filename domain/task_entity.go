package domain

import (
	"github.com/fundwit/go-commons/types"
)

const (
	TaskStatusNotStarted = "not-started"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
	TaskStatusOnHold     = "on-hold"

	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

type Task struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Identifier string   `json:"identifier" gorm:"unique_index:uni_task_identifier"`
	ProjectID  types.ID `json:"projectId"`
	Name       string   `json:"name"`

	Priority string `json:"priority"`
	Status   string `json:"status"`

	StartDate types.Timestamp `json:"startDate" sql:"type:DATETIME(6)"`
	DueDate   types.Timestamp `json:"dueDate" sql:"type:DATETIME(6)"`

	// convenience cache of the latest status-update message
	LastMessage string `json:"lastMessage"`

	CreatorID  types.ID        `json:"creatorId"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type TaskAssignee struct {
	TaskID     types.ID `json:"taskId" gorm:"unique_index:uni_task_assignee"`
	AssigneeID types.ID `json:"assigneeId" gorm:"unique_index:uni_task_assignee"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

// TaskStatusUpdate is the append-only status history of a task
type TaskStatusUpdate struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	TaskID types.ID `json:"taskId"`

	ActorID   types.ID `json:"actorId"`
	ActorName string   `json:"actorName"`
	Status    string   `json:"status"`
	Message   string   `json:"message"`

	Timestamp types.Timestamp `json:"timestamp" sql:"type:DATETIME(6) NOT NULL"`
}

type TaskCreating struct {
	ProjectID types.ID `json:"projectId" binding:"required"`
	Name      string   `json:"name" binding:"required,lte=120"`

	Priority  string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	Assignees []types.ID `json:"assignees" binding:"required,min=1"`

	StartDate types.Timestamp `json:"startDate"`
	DueDate   types.Timestamp `json:"dueDate"`
}

type TaskUpdating struct {
	Name     string `json:"name" binding:"omitempty,lte=120"`
	Priority string `json:"priority" binding:"omitempty,oneof=low medium high"`
}

type TaskStatusUpdating struct {
	Status  string `json:"status" binding:"required,oneof=not-started in-progress completed on-hold"`
	Message string `json:"message" binding:"lte=500"`
}

type TaskDetail struct {
	Task

	Assignees     []types.ID         `json:"assignees" gorm:"-"`
	StatusUpdates []TaskStatusUpdate `json:"statusUpdates,omitempty" gorm:"-"`
}
