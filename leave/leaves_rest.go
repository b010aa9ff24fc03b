package leave

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
	PathLeaves = "/v1/leaves"
)

func RegisterLeavesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathLeaves, middleWares...)
	g.POST("", handleCreateLeave)
	g.GET("", handleQueryLeaves)
	g.GET("all", handleQueryAllLeaves)
	g.PUT(":id", handleUpdateLeave)
	g.DELETE(":id", handleDeleteLeave)
	g.PUT(":id/status", handleTransitLeave)
}

func handleCreateLeave(c *gin.Context) {
	creation := LeaveCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateLeaveFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryLeaves(c *gin.Context) {
	records, err := QueryLeavesFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleQueryAllLeaves(c *gin.Context) {
	records, err := QueryAllLeavesFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleUpdateLeave(c *gin.Context) {
	updating := LeaveUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateLeaveFunc(parsePathId(c), &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDeleteLeave(c *gin.Context) {
	if err := DeleteLeaveFunc(parsePathId(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleTransitLeave(c *gin.Context) {
	transition := LeaveStatusTransition{}
	if err := c.ShouldBindBodyWith(&transition, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := TransitLeaveFunc(parsePathId(c), &transition, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func parsePathId(c *gin.Context) types.ID {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return parsedId
}
