package chat

import (
	"errors"
	"io"
	"net/http"
	"staffhub/bizerror"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathMessages        = "/v1/messages"
	PathChatAttachments = "/v1/chat/attachments"
	PathChatHistories   = "/v1/chat/histories"
	PathIndexRequests   = "/v1/index-requests"
)

func RegisterMessagesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathMessages, middleWares...)
	g.POST("", handleCreateMessage)
	g.GET("", handleQueryMessages)
	g.DELETE(":id", handleDeleteMessage)
	g.GET("unread-count", handleCountUnread)
	g.POST("read", handleMarkRead)
	g.GET("stats", handleQueryStats)
	g.GET("search", handleSearchMessages)

	a := r.Group(PathChatAttachments, middleWares...)
	a.POST("", handleCreateAttachment)
	a.GET(":key", handleDetailAttachment)

	h := r.Group(PathChatHistories, middleWares...)
	h.DELETE(":projectId", handleClearHistory)

	i := r.Group(PathIndexRequests, middleWares...)
	i.POST("", handleIndexRequest)
}

func handleCreateMessage(c *gin.Context) {
	creation := MessageCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateMessageFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryMessages(c *gin.Context) {
	records, err := QueryMessagesFunc(parseProjectId(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDeleteMessage(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	if err := DeleteMessageFunc(parsedId, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleCountUnread(c *gin.Context) {
	count, err := CountUnreadFunc(parseProjectId(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func handleMarkRead(c *gin.Context) {
	reading := MessageReading{}
	if err := c.ShouldBindBodyWith(&reading, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := MarkReadFunc(&reading, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleQueryStats(c *gin.Context) {
	stats, err := QueryStatsFunc(parseProjectId(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, stats)
}

func handleSearchMessages(c *gin.Context) {
	records, err := SearchMessagesFunc(parseProjectId(c), c.Query("q"), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleCreateAttachment(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	src, err := file.Open()
	if err != nil {
		panic(err)
	}
	defer src.Close()

	descriptor, err := CreateAttachmentFunc(file, src, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, descriptor)
}

func handleDetailAttachment(c *gin.Context) {
	r, err := DetailAttachmentFunc(c.Param("key"), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	defer r.Close()

	c.Status(http.StatusOK)
	c.Header("Content-Type", "application/octet-stream")
	if _, err := io.Copy(c.Writer, r); err != nil {
		panic(err)
	}
}

func handleClearHistory(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("projectId"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid projectId '" + c.Param("projectId") + "'")})
	}
	if err := ClearHistoryFunc(parsedId, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleIndexRequest(c *gin.Context) {
	success, err := ScheduleNewSyncRunFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"result": success})
}

func parseProjectId(c *gin.Context) types.ID {
	parsedId, err := types.ParseID(c.Query("projectId"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid projectId '" + c.Query("projectId") + "'")})
	}
	return parsedId
}
