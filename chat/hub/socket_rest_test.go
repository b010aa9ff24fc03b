package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"staffhub/authority"
	"staffhub/bizerror"
	"staffhub/chat"
	"staffhub/domain"
	"staffhub/domain/project"
	"staffhub/session"
	"staffhub/testinfra"
	"strings"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	. "github.com/onsi/gomega"
)

func socketTestServer(t *testing.T) (*httptest.Server, func()) {
	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	RegisterChatSocketAPI(router, session.SimpleAuthFilter())
	server := httptest.NewServer(router)

	queryMessagesBak := chat.QueryMessagesFunc
	createMessageBak := chat.CreateMessageFunc
	checkAccessibleBak := project.CheckAccessibleFunc
	chat.QueryMessagesFunc = func(projectId types.ID, s *session.Session) ([]chat.Message, error) {
		if projectId == 100 {
			return []chat.Message{{ID: 999, ProjectID: projectId, SenderName: "system", Text: "earlier"}}, nil
		}
		return []chat.Message{}, nil
	}
	chat.CreateMessageFunc = func(c *chat.MessageCreation, s *session.Session) (*chat.Message, error) {
		return &chat.Message{ID: 7000, ProjectID: c.ProjectID, SenderID: s.Identity.ID,
			SenderName: s.Identity.DisplayName(), Text: c.Text}, nil
	}
	project.CheckAccessibleFunc = func(projectId types.ID, s *session.Session) (*domain.Project, error) {
		if projectId == 999 {
			return nil, bizerror.ErrForbidden
		}
		return &domain.Project{ID: projectId}, nil
	}

	return server, func() {
		chat.QueryMessagesFunc = queryMessagesBak
		chat.CreateMessageFunc = createMessageBak
		project.CheckAccessibleFunc = checkAccessibleBak
		session.TokenCache.Flush()
		server.Close()
	}
}

func dialSocket(t *testing.T, server *httptest.Server, userId types.ID) *websocket.Conn {
	token := uuid.New().String()
	s := testinfra.BuildSession(userId, authority.RoleEmployee)
	s.Token = token
	session.TokenCache.SetDefault(token, s)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + PathChatSocket
	header := http.Header{}
	header.Add("Cookie", session.KeySecToken+"="+token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	ExpectWithOffset(1, err).To(BeNil())
	return conn
}

func emitFrame(conn *websocket.Conn, event string, data interface{}) {
	payload, err := json.Marshal(data)
	ExpectWithOffset(1, err).To(BeNil())
	ExpectWithOffset(1, conn.WriteJSON(Frame{Event: event, Data: payload})).To(BeNil())
}

func expectFrame(conn *websocket.Conn, event string) string {
	Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(BeNil())
	frame := Frame{}
	ExpectWithOffset(1, conn.ReadJSON(&frame)).To(BeNil())
	ExpectWithOffset(1, frame.Event).To(Equal(event))
	return string(frame.Data)
}

func TestChatSocket(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should deliver history, presence and messages within the room only", func(t *testing.T) {
		server, restore := socketTestServer(t)
		defer restore()

		ann := dialSocket(t, server, 10)
		defer ann.Close()
		emitFrame(ann, EventJoinProject, gin.H{"projectId": "100"})
		data := expectFrame(ann, EventMessageHistory)
		Expect(data).To(ContainSubstring(`"earlier"`))
		data = expectFrame(ann, EventActiveUsers)
		Expect(data).To(ContainSubstring(`"user10"`))

		bob := dialSocket(t, server, 20)
		defer bob.Close()
		emitFrame(bob, EventJoinProject, gin.H{"projectId": "100"})
		expectFrame(bob, EventMessageHistory)
		data = expectFrame(bob, EventActiveUsers)
		Expect(data).To(ContainSubstring(`"user10"`))
		Expect(data).To(ContainSubstring(`"user20"`))

		// the joining client itself never sees its own user_joined
		data = expectFrame(ann, EventUserJoined)
		Expect(data).To(ContainSubstring(`"user20"`))
		expectFrame(ann, EventActiveUsers)

		carol := dialSocket(t, server, 30)
		defer carol.Close()
		emitFrame(carol, EventJoinProject, gin.H{"projectId": "200"})
		expectFrame(carol, EventMessageHistory)
		expectFrame(carol, EventActiveUsers)

		emitFrame(ann, EventSendMessage, gin.H{"projectId": "100", "text": "hello"})
		data = expectFrame(ann, EventReceiveMessage)
		Expect(data).To(ContainSubstring(`"hello"`))
		Expect(data).To(ContainSubstring(`"7000"`))
		data = expectFrame(bob, EventReceiveMessage)
		Expect(data).To(ContainSubstring(`"user10"`))

		emitFrame(ann, EventTyping, gin.H{"projectId": "100"})
		data = expectFrame(bob, EventUserTyping)
		Expect(data).To(ContainSubstring(`"user10"`))

		// carol joined another room and must receive nothing of the above
		Expect(carol.SetReadDeadline(time.Now().Add(200 * time.Millisecond))).To(BeNil())
		Expect(carol.ReadJSON(&Frame{})).ToNot(BeNil())
	})

	t.Run("should refuse joining an inaccessible project", func(t *testing.T) {
		server, restore := socketTestServer(t)
		defer restore()

		conn := dialSocket(t, server, 10)
		defer conn.Close()
		emitFrame(conn, EventJoinProject, gin.H{"projectId": "999"})
		data := expectFrame(conn, EventError)
		Expect(data).To(ContainSubstring("not accessible"))
	})
}
