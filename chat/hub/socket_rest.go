package hub

import (
	"encoding/json"
	"net/http"
	"staffhub/chat"
	"staffhub/domain/project"
	"staffhub/profile"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	EventJoinProject    = "join_project"
	EventLeaveProject   = "leave_project"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventMessageHistory = "message_history"
	EventTyping         = "typing"
	EventStopTyping     = "stop_typing"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventMarkRead       = "mark_read"
	EventMessageRead    = "message_read"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventActiveUsers    = "active_users"
	EventTaskUpdated    = "taskUpdated"
	EventTaskDeleted    = "taskDeleted"
	EventError          = "error"
)

var (
	PathChatSocket = "/v1/chat/socket"

	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
)

func RegisterChatSocketAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathChatSocket, middleWares...)
	g.GET("", handleChatSocket)
}

func handleChatSocket(c *gin.Context) {
	s := session.ExtractSessionFromGinContext(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		panic(err)
	}

	client := &Client{
		ID:        uuid.New().String(),
		Identity:  s.Identity,
		UserName:  s.Identity.DisplayName(),
		UserPhoto: profile.PathProfile + "/photo/" + s.Identity.ID.String(),
		Session:   s,
		conn:      conn,
	}

	go serveClient(client)
}

func serveClient(c *Client) {
	defer func() {
		disconnect(c)
		c.conn.Close()
	}()

	for {
		frame := Frame{}
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Warnf("read frame from connection %s: %v", c.ID, err)
			}
			return
		}
		dispatch(c, &frame)
	}
}

func dispatch(c *Client, frame *Frame) {
	defer func() {
		if ret := recover(); ret != nil {
			logrus.Errorf("handle %s frame from connection %s: %v", frame.Event, c.ID, ret)
			c.Emit(EventError, gin.H{"message": "internal error"})
		}
	}()

	switch frame.Event {
	case EventJoinProject:
		handleJoinProject(c, frame.Data)
	case EventLeaveProject:
		handleLeaveProject(c, frame.Data)
	case EventSendMessage:
		handleSendMessage(c, frame.Data)
	case EventTyping:
		relayTyping(c, frame.Data, EventUserTyping)
	case EventStopTyping:
		relayTyping(c, frame.Data, EventUserStopTyping)
	case EventMarkRead:
		handleMarkRead(c, frame.Data)
	default:
		c.Emit(EventError, gin.H{"message": "unknown event '" + frame.Event + "'"})
	}
}

type roomRequest struct {
	ProjectID types.ID `json:"projectId"`

	UserName  string `json:"userName"`
	UserPhoto string `json:"userPhoto"`
}

func handleJoinProject(c *Client, data json.RawMessage) {
	req := roomRequest{}
	if err := json.Unmarshal(data, &req); err != nil || req.ProjectID == 0 {
		c.Emit(EventError, gin.H{"message": "invalid join_project payload"})
		return
	}
	if _, err := project.CheckAccessibleFunc(req.ProjectID, c.Session); err != nil {
		c.Emit(EventError, gin.H{"message": "project is not accessible"})
		return
	}

	if req.UserName != "" {
		c.UserName = req.UserName
	}
	if req.UserPhoto != "" {
		c.UserPhoto = req.UserPhoto
	}

	history, err := chat.QueryMessagesFunc(req.ProjectID, c.Session)
	if err != nil {
		c.Emit(EventError, gin.H{"message": "failed to load message history"})
		return
	}

	Rooms.Join(req.ProjectID, c)
	c.Emit(EventMessageHistory, gin.H{"projectId": req.ProjectID, "messages": history})
	Rooms.BroadcastExcept(req.ProjectID, c, EventUserJoined, RosterEntry{
		ConnectionID: c.ID, UserID: c.Identity.ID, UserName: c.UserName, UserPhoto: c.UserPhoto,
	})
	Rooms.Broadcast(req.ProjectID, EventActiveUsers, gin.H{
		"projectId": req.ProjectID, "users": Rooms.Roster(req.ProjectID),
	})
}

func handleLeaveProject(c *Client, data json.RawMessage) {
	req := roomRequest{}
	if err := json.Unmarshal(data, &req); err != nil || req.ProjectID == 0 {
		c.Emit(EventError, gin.H{"message": "invalid leave_project payload"})
		return
	}

	Rooms.Leave(req.ProjectID, c)
	announceLeft(c, req.ProjectID)
}

func disconnect(c *Client) {
	for _, projectId := range Rooms.LeaveAll(c) {
		announceLeft(c, projectId)
	}
}

func announceLeft(c *Client, projectId types.ID) {
	Rooms.Broadcast(projectId, EventUserLeft, RosterEntry{
		ConnectionID: c.ID, UserID: c.Identity.ID, UserName: c.UserName, UserPhoto: c.UserPhoto,
	})
	Rooms.Broadcast(projectId, EventActiveUsers, gin.H{
		"projectId": projectId, "users": Rooms.Roster(projectId),
	})
}

func handleSendMessage(c *Client, data json.RawMessage) {
	creation := chat.MessageCreation{}
	if err := json.Unmarshal(data, &creation); err != nil || creation.ProjectID == 0 {
		c.Emit(EventError, gin.H{"message": "invalid send_message payload"})
		return
	}

	record, err := chat.CreateMessageFunc(&creation, c.Session)
	if err != nil {
		// persistence failure reaches the sender only
		logrus.Warnf("persist message from connection %s: %v", c.ID, err)
		c.Emit(EventError, gin.H{"message": "failed to send message"})
		return
	}
	Rooms.Broadcast(creation.ProjectID, EventReceiveMessage, record)
}

func relayTyping(c *Client, data json.RawMessage, event string) {
	req := roomRequest{}
	if err := json.Unmarshal(data, &req); err != nil || req.ProjectID == 0 {
		return
	}
	Rooms.BroadcastExcept(req.ProjectID, c, event, gin.H{
		"projectId": req.ProjectID, "userId": c.Identity.ID, "userName": c.UserName,
	})
}

func handleMarkRead(c *Client, data json.RawMessage) {
	reading := chat.MessageReading{}
	if err := json.Unmarshal(data, &reading); err != nil {
		c.Emit(EventError, gin.H{"message": "invalid mark_read payload"})
		return
	}
	if err := chat.MarkReadFunc(&reading, c.Session); err != nil {
		c.Emit(EventError, gin.H{"message": "failed to mark read"})
		return
	}
	if reading.ProjectID != 0 {
		Rooms.Broadcast(reading.ProjectID, EventMessageRead, gin.H{
			"projectId": reading.ProjectID, "userId": c.Identity.ID, "messageIds": reading.MessageIDs,
		})
	}
}
