package leave

import (
	"github.com/fundwit/go-commons/types"
)

const (
	LeaveStatusPending  = "pending"
	LeaveStatusApproved = "approved"
	LeaveStatusRejected = "rejected"

	LeaveTypeSick   = "sick"
	LeaveTypeCasual = "casual"
	LeaveTypeAnnual = "annual"
	LeaveTypeUnpaid = "unpaid"
)

type Leave struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	RequesterID types.ID `json:"requesterId"`
	Type        string   `json:"type"`
	Reason      string   `json:"reason"`

	StartDate types.Timestamp `json:"startDate" sql:"type:DATETIME(6) NOT NULL"`
	EndDate   types.Timestamp `json:"endDate" sql:"type:DATETIME(6) NOT NULL"`

	Status       string   `json:"status"`
	ApproverID   types.ID `json:"approverId"`
	RejectReason string   `json:"rejectReason"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type LeaveCreation struct {
	Type   string `json:"type" binding:"required,oneof=sick casual annual unpaid"`
	Reason string `json:"reason" binding:"lte=500"`

	StartDate types.Timestamp `json:"startDate"`
	EndDate   types.Timestamp `json:"endDate"`
}

type LeaveUpdating struct {
	Type   string `json:"type" binding:"omitempty,oneof=sick casual annual unpaid"`
	Reason string `json:"reason" binding:"lte=500"`

	StartDate types.Timestamp `json:"startDate"`
	EndDate   types.Timestamp `json:"endDate"`
}

type LeaveStatusTransition struct {
	Status       string `json:"status" binding:"required"`
	RejectReason string `json:"rejectReason" binding:"lte=500"`
}

type LeaveDetail struct {
	Leave

	RequesterName string `json:"requesterName" gorm:"-"`
	ApproverName  string `json:"approverName,omitempty" gorm:"-"`
}
