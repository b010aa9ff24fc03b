package profile

import (
	"staffhub/account"
	"staffhub/persistence"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

type Profile struct {
	UserID types.ID `json:"userId" gorm:"primary_key"`

	Address          string          `json:"address"`
	Phone            string          `json:"phone"`
	Birthday         types.Timestamp `json:"birthday" sql:"type:DATETIME(6)"`
	Gender           string          `json:"gender"`
	EmergencyContact string          `json:"emergencyContact"`

	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

type ProfileUpdating struct {
	Address          string          `json:"address" binding:"lte=200"`
	Phone            string          `json:"phone" binding:"lte=30"`
	Birthday         types.Timestamp `json:"birthday"`
	Gender           string          `json:"gender" binding:"omitempty,oneof=male female other"`
	EmergencyContact string          `json:"emergencyContact" binding:"lte=200"`
}

var (
	DetailProfileFunc = DetailProfile
	UpdateProfileFunc = UpdateProfile
)

func init() {
	account.UserDeleteCascadeFuncs = append(account.UserDeleteCascadeFuncs, func(userId types.ID, tx *gorm.DB) error {
		return tx.Where(&Profile{UserID: userId}).Delete(&Profile{}).Error
	})
}

func DetailProfile(s *session.Session) (*Profile, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record := Profile{}
	if err := db.Where(&Profile{UserID: s.Identity.ID}).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return &Profile{UserID: s.Identity.ID}, nil
		}
		return nil, err
	}
	return &record, nil
}

// UpdateProfile upserts the session user's profile and marks the
// account profile-completed.
func UpdateProfile(u *ProfileUpdating, s *session.Session) (*Profile, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	record := Profile{
		UserID:           s.Identity.ID,
		Address:          u.Address,
		Phone:            u.Phone,
		Birthday:         u.Birthday,
		Gender:           u.Gender,
		EmergencyContact: u.EmergencyContact,
		UpdateTime:       types.CurrentTimestamp(),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&Profile{}).Where(&Profile{UserID: s.Identity.ID}).Updates(map[string]interface{}{
			"address":           record.Address,
			"phone":             record.Phone,
			"birthday":          record.Birthday,
			"gender":            record.Gender,
			"emergency_contact": record.EmergencyContact,
			"update_time":       record.UpdateTime,
		})
		if query.Error != nil {
			return query.Error
		}
		if query.RowsAffected == 0 {
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return tx.Model(&account.User{}).Where(&account.User{ID: s.Identity.ID}).
			Update("profile_completed", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}
