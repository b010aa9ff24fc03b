package task

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
	PathTasks = "/v1/tasks"
)

func RegisterTasksRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTasks, middleWares...)
	g.POST("", handleCreateTask)
	g.GET("", handleQueryTasks)
	g.GET(":id", handleDetailTask)
	g.PUT(":id", handleUpdateTask)
	g.PUT(":id/status", handleUpdateTaskStatus)
	g.DELETE(":id", handleDeleteTask)
	g.DELETE(":id/assignees/self", handleLeaveTask)
	g.GET(":id/status-updates", handleQueryStatusUpdates)
}

func handleCreateTask(c *gin.Context) {
	creation := domain.TaskCreating{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateTaskFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryTasks(c *gin.Context) {
	projectId, err := types.ParseID(c.Query("projectId"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid projectId '" + c.Query("projectId") + "'")})
	}
	records, err := QueryTasksFunc(projectId, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailTask(c *gin.Context) {
	record, err := DetailTaskFunc(parsePathId(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleUpdateTask(c *gin.Context) {
	updating := domain.TaskUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateTaskFunc(parsePathId(c), &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleUpdateTaskStatus(c *gin.Context) {
	updating := domain.TaskStatusUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateTaskStatusFunc(parsePathId(c), &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDeleteTask(c *gin.Context) {
	if err := DeleteTaskFunc(parsePathId(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleLeaveTask(c *gin.Context) {
	if err := LeaveTaskFunc(parsePathId(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleQueryStatusUpdates(c *gin.Context) {
	records, err := QueryStatusUpdatesFunc(parsePathId(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func parsePathId(c *gin.Context) types.ID {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return parsedId
}
