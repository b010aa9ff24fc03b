package account

import (
	"staffhub/authority"
	"staffhub/bizerror"
	"staffhub/persistence"
	"staffhub/session"

	"github.com/jinzhu/gorm"
)

var (
	UpdateBasicAuthSecretFunc = UpdateBasicAuthSecret
	ResetSecretFunc           = ResetSecret
)

func UpdateBasicAuthSecret(u *BasicAuthUpdating, sec *session.Session) error {
	return persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		user := User{}
		if err := tx.Where(&User{ID: sec.Identity.ID}).First(&user).Error; err != nil {
			return err
		}
		if !CompareSecret(user.Secret, u.OriginalSecret) {
			return bizerror.ErrInvalidPassword
		}
		secret, err := HashSecret(u.NewSecret)
		if err != nil {
			return err
		}
		return tx.Model(&User{}).Where("id = ?", user.ID).Update("secret", secret).Error
	})
}

// ResetSecret completes the forced reset after an OTP verification, the session must be
// reset-scoped. Normal perms are restored by the next login.
func ResetSecret(u *SecretResetting, sec *session.Session) error {
	if !sec.Perms.HasRole(authority.PermResetSecret) {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		user := User{}
		if err := tx.Where(&User{ID: sec.Identity.ID}).First(&user).Error; err != nil {
			return err
		}
		secret, err := HashSecret(u.NewSecret)
		if err != nil {
			return err
		}
		return tx.Model(&User{}).Where("id = ?", user.ID).
			Updates(map[string]interface{}{"secret": secret, "password_reset_required": false}).Error
	})
}
