package account

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"staffhub/bizerror"
	"staffhub/client/mail"
	"staffhub/persistence"
	"staffhub/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const ResetCodeExpiration = 10 * time.Minute

var (
	RequestResetCodeFunc = RequestResetCode
	VerifyResetCodeFunc  = VerifyResetCode

	// keeps a misbehaving client from hammering the mailer
	resetCodeLimiter = rate.NewLimiter(rate.Every(5*time.Second), 3)
)

type ResetCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetCodeVerification struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestResetCode stores a 6-digit code with a 10 minute expiry on the user record and mails it.
// Mail failures are logged only, the stored code stays valid.
func RequestResetCode(r *ResetCodeRequest) error {
	if !resetCodeLimiter.Allow() {
		return bizerror.ErrConflict
	}

	code, err := generateResetCode()
	if err != nil {
		return err
	}

	var user User
	txErr := persistence.ActiveDataSourceManager.GormDB(context.Background()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", r.Email).First(&user).Error; err != nil {
			return err
		}
		return tx.Model(&User{}).Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"reset_code":           code,
				"reset_code_sign_time": types.CurrentTimestamp(),
			}).Error
	})
	if txErr != nil {
		return txErr
	}

	if err := mail.SendFunc(user.Email, "staffhub password reset code",
		"Your password reset code is "+code+". It expires in 10 minutes."); err != nil {
		logrus.Warnf("failed to deliver reset code mail to %s: %v", user.Email, err)
	}
	return nil
}

// VerifyResetCode checks the code, clears the OTP fields, flags the account for forced reset
// and issues a session scoped to the reset-secret perm only.
func VerifyResetCode(v *ResetCodeVerification) (*session.Session, error) {
	var user User
	txErr := persistence.ActiveDataSourceManager.GormDB(context.Background()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", v.Email).First(&user).Error; err != nil {
			return err
		}
		if user.ResetCode == "" || user.ResetCode != v.Code {
			return bizerror.ErrInvalidResetCode
		}
		if time.Since(user.ResetCodeSignTime.Time()) > ResetCodeExpiration {
			return bizerror.ErrInvalidResetCode
		}
		return tx.Model(&User{}).Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"reset_code":              "",
				"password_reset_required": true,
			}).Error
	})
	if txErr != nil {
		return nil, txErr
	}

	user.PasswordResetRequired = true
	token := uuid.New().String()
	s := session.Session{Token: token, Identity: IdentityOf(&user),
		Perms: LoadPermFunc(&user), SigningTime: time.Now()}
	session.TokenCache.Set(token, &s, cache.DefaultExpiration)
	return &s, nil
}
