package sessions

import (
	"errors"
	"net/http"
	"staffhub/account"
	"staffhub/bizerror"
	"staffhub/persistence"
	"staffhub/session"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func RegisterSessionsRestAPI(r *gin.Engine) {
	g := r.Group("/v1/sessions")
	g.POST("", handleLogin)
	g.DELETE("", handleLogout)
}

func handleLogout(c *gin.Context) {
	token, _ := c.Cookie(session.KeySecToken) // ErrNoCookie
	if token != "" {
		session.TokenCache.Delete(token)
	}
	c.SetCookie(session.KeySecToken, "", -1, "/", "", false, true)
	c.AbortWithStatus(http.StatusNoContent)
}

func handleLogin(c *gin.Context) {
	login := LoginRequest{}
	if err := c.ShouldBindBodyWith(&login, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	user := account.User{}
	db := persistence.ActiveDataSourceManager.GormDB(c.Request.Context())
	if err := db.Where("email = ?", login.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			panic(bizerror.ErrNotFound)
		}
		panic(err)
	}
	if !account.CompareSecret(user.Secret, login.Password) {
		panic(bizerror.ErrInvalidCredentials)
	}

	token := uuid.New().String()
	securityContext := session.Session{Token: token, Identity: account.IdentityOf(&user),
		Perms: account.LoadPermFunc(&user), SigningTime: time.Now()}
	session.TokenCache.Set(token, &securityContext, cache.DefaultExpiration)

	secure := gin.Mode() == gin.ReleaseMode
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(session.KeySecToken, token, int(session.TokenExpiration/time.Second), "/", "", secure, true)
	c.JSON(http.StatusOK, &securityContext)
}
