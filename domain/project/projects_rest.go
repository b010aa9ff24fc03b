package project

import (
	"errors"
	"net/http"
	"staffhub/bizerror"
	"staffhub/domain"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathProjects = "/v1/projects"
)

func RegisterProjectsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathProjects, middleWares...)
	g.POST("", handleCreateProject)
	g.GET("", handleQueryProjects)
	g.GET(":id", handleDetailProject)
	g.PUT(":id", handleUpdateProject)
	g.DELETE(":id", handleDeleteProject)
	g.POST(":id/members", handleAddMember)
	g.DELETE(":id/members/:memberId", handleRemoveMember)
}

func handleCreateProject(c *gin.Context) {
	creation := domain.ProjectCreating{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateProjectFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryProjects(c *gin.Context) {
	records, err := QueryProjectsFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailProject(c *gin.Context) {
	record, err := DetailProjectFunc(parsePathId(c, "id"), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleUpdateProject(c *gin.Context) {
	updating := domain.ProjectUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateProjectFunc(parsePathId(c, "id"), &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDeleteProject(c *gin.Context) {
	if err := DeleteProjectFunc(parsePathId(c, "id"), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

type memberAddition struct {
	MemberID types.ID `json:"memberId" binding:"required"`
}

func handleAddMember(c *gin.Context) {
	addition := memberAddition{}
	if err := c.ShouldBindBodyWith(&addition, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := AddMemberFunc(parsePathId(c, "id"), addition.MemberID, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleRemoveMember(c *gin.Context) {
	if err := RemoveMemberFunc(parsePathId(c, "id"), parsePathId(c, "memberId"),
		session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func parsePathId(c *gin.Context, name string) types.ID {
	parsedId, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid " + name + " '" + c.Param(name) + "'")})
	}
	return parsedId
}
