package account

import (
	"net/http"
	"staffhub/bizerror"
	"staffhub/session"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathResetCodes             = "/v1/reset-codes"
	PathResetCodeVerifications = "/v1/reset-code-verifications"
)

// no auth middleware, the caller has lost the password
func RegisterResetCodesRestAPI(r *gin.Engine) {
	r.POST(PathResetCodes, handleRequestResetCode)
	r.POST(PathResetCodeVerifications, handleVerifyResetCode)
}

func handleRequestResetCode(c *gin.Context) {
	req := ResetCodeRequest{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := RequestResetCodeFunc(&req); err != nil {
		panic(err)
	}
	c.Status(http.StatusOK)
}

func handleVerifyResetCode(c *gin.Context) {
	req := ResetCodeVerification{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	s, err := VerifyResetCodeFunc(&req)
	if err != nil {
		panic(err)
	}
	secure := gin.Mode() == gin.ReleaseMode
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(session.KeySecToken, s.Token, int(session.TokenExpiration/time.Second), "/", "", secure, true)
	c.JSON(http.StatusOK, s)
}
