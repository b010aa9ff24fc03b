package profile

import (
	"errors"
	"net/http"
	"staffhub/bizerror"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathProfile = "/v1/profile"
)

func RegisterProfileRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathProfile, middleWares...)
	g.GET("", handleDetailProfile)
	g.PUT("", handleUpdateProfile)
	g.POST("photo", handleCreatePhoto)
	g.GET("photo/:id", handleDetailPhoto)
}

func handleDetailProfile(c *gin.Context) {
	record, err := DetailProfileFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleUpdateProfile(c *gin.Context) {
	updating := ProfileUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateProfileFunc(&updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleCreatePhoto(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	src, err := file.Open()
	if err != nil {
		panic(err)
	}
	defer src.Close()

	if err := CreatePhotoFunc(src, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{})
}

func handleDetailPhoto(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	bytes, err := DetailPhotoFunc(parsedId, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.Data(http.StatusOK, "image/png", bytes)
}
