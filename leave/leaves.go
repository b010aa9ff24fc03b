package leave

import (
	"errors"
	"staffhub/account"
	"staffhub/authority"
	"staffhub/bizerror"
	"staffhub/idgen"
	"staffhub/persistence"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	leaveIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateLeaveFunc    = CreateLeave
	QueryLeavesFunc    = QueryLeaves
	QueryAllLeavesFunc = QueryAllLeaves
	UpdateLeaveFunc    = UpdateLeave
	DeleteLeaveFunc    = DeleteLeave
	TransitLeaveFunc   = TransitLeave
)

func init() {
	account.UserDeleteCascadeFuncs = append(account.UserDeleteCascadeFuncs, func(userId types.ID, tx *gorm.DB) error {
		return tx.Where(&Leave{RequesterID: userId}).Delete(&Leave{}).Error
	})
}

func CreateLeave(c *LeaveCreation, s *session.Session) (*Leave, error) {
	if c.StartDate.Time().IsZero() || c.EndDate.Time().IsZero() {
		return nil, &bizerror.ErrBadParam{Cause: errors.New("startDate and endDate are required")}
	}
	if err := validateLeaveDates(c.StartDate, c.EndDate); err != nil {
		return nil, err
	}

	record := Leave{
		ID:          idgen.NextID(leaveIdWorker),
		RequesterID: s.Identity.ID,
		Type:        c.Type,
		Reason:      c.Reason,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		Status:      LeaveStatusPending,
		CreateTime:  types.CurrentTimestamp(),
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// QueryLeaves lists the session user's own requests
func QueryLeaves(s *session.Session) ([]LeaveDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var records []Leave
	if err := db.Where(&Leave{RequesterID: s.Identity.ID}).Order("create_time DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return expandLeaveDetails(records)
}

func QueryAllLeaves(s *session.Session) ([]LeaveDetail, error) {
	if !s.Perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr) {
		return nil, bizerror.ErrForbidden
	}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var records []Leave
	if err := db.Order("create_time DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return expandLeaveDetails(records)
}

func UpdateLeave(id types.ID, u *LeaveUpdating, s *session.Session) (*Leave, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record, err := findOwnedLeave(id, s, db)
	if err != nil {
		return nil, err
	}
	if record.Status != LeaveStatusPending {
		return nil, bizerror.ErrInvalidState
	}

	changes := map[string]interface{}{}
	if u.Type != "" {
		changes["type"] = u.Type
	}
	if u.Reason != "" {
		changes["reason"] = u.Reason
	}
	startDate, endDate := record.StartDate, record.EndDate
	if !u.StartDate.Time().IsZero() {
		startDate = u.StartDate
		changes["start_date"] = u.StartDate
	}
	if !u.EndDate.Time().IsZero() {
		endDate = u.EndDate
		changes["end_date"] = u.EndDate
	}
	if err := validateLeaveDates(startDate, endDate); err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		if err := db.Model(&Leave{}).Where(&Leave{ID: id}).Updates(changes).Error; err != nil {
			return nil, err
		}
	}

	updated := Leave{}
	if err := db.Where(&Leave{ID: id}).First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

func DeleteLeave(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record, err := findOwnedLeave(id, s, db)
	if err != nil {
		return err
	}
	if record.Status != LeaveStatusPending {
		return bizerror.ErrInvalidState
	}
	return db.Where(&Leave{ID: id}).Delete(&Leave{}).Error
}

// TransitLeave moves a pending request to its terminal status,
// the detail returned carries the denormalized requester identity.
func TransitLeave(id types.ID, t *LeaveStatusTransition, s *session.Session) (*LeaveDetail, error) {
	if !s.Perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr) {
		return nil, bizerror.ErrForbidden
	}
	if t.Status != LeaveStatusApproved && t.Status != LeaveStatusRejected {
		return nil, bizerror.ErrInvalidStatus
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record := Leave{}
	if err := db.Where(&Leave{ID: id}).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	if record.Status != LeaveStatusPending {
		return nil, bizerror.ErrInvalidState
	}

	changes := map[string]interface{}{"status": t.Status, "approver_id": s.Identity.ID}
	if t.Status == LeaveStatusRejected {
		changes["reject_reason"] = t.RejectReason
	}
	if err := db.Model(&Leave{}).Where(&Leave{ID: id, Status: LeaveStatusPending}).Updates(changes).Error; err != nil {
		return nil, err
	}

	updated := Leave{}
	if err := db.Where(&Leave{ID: id}).First(&updated).Error; err != nil {
		return nil, err
	}
	details, err := expandLeaveDetails([]Leave{updated})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func findOwnedLeave(id types.ID, s *session.Session, db *gorm.DB) (*Leave, error) {
	record := Leave{}
	if err := db.Where(&Leave{ID: id}).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	if record.RequesterID != s.Identity.ID {
		return nil, bizerror.ErrForbidden
	}
	return &record, nil
}

func expandLeaveDetails(records []Leave) ([]LeaveDetail, error) {
	ids := make([]types.ID, 0, len(records)*2)
	for _, r := range records {
		ids = append(ids, r.RequesterID)
		if r.ApproverID != 0 {
			ids = append(ids, r.ApproverID)
		}
	}
	names, err := account.QueryAccountNames(ids)
	if err != nil {
		return nil, err
	}

	details := make([]LeaveDetail, 0, len(records))
	for _, r := range records {
		details = append(details, LeaveDetail{
			Leave:         r,
			RequesterName: names[r.RequesterID],
			ApproverName:  names[r.ApproverID],
		})
	}
	return details, nil
}

func validateLeaveDates(start, end types.Timestamp) error {
	if start.Time().IsZero() || end.Time().IsZero() {
		return nil
	}
	if end.Time().Before(start.Time()) {
		return &bizerror.ErrInvalidDateRange{Boundary: bizerror.DateBoundaryDueBeforeStart}
	}
	return nil
}
