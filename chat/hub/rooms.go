package hub

import (
	"encoding/json"
	"staffhub/session"
	"sync"

	"github.com/fundwit/go-commons/types"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Frame is the wire format of every socket event, both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	ID       string
	Identity session.Identity

	UserName  string
	UserPhoto string

	Session *session.Session

	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Emit writes one frame to the peer, write failures are logged and
// swallowed so a dead connection never fails a broadcast.
func (c *Client) Emit(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		logrus.Warnf("marshal %s frame for connection %s: %v", event, c.ID, err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(Frame{Event: event, Data: payload}); err != nil {
		logrus.Warnf("emit %s to connection %s: %v", event, c.ID, err)
	}
}

type RosterEntry struct {
	ConnectionID string   `json:"connectionId"`
	UserID       types.ID `json:"userId"`
	UserName     string   `json:"userName"`
	UserPhoto    string   `json:"userPhoto"`
}

// RoomManager tracks which connections currently view which project.
// The roster is presence display only, team membership stays in the
// project store, and the roster is rebuilt from scratch on restart.
type RoomManager struct {
	mutex sync.RWMutex

	rooms  map[types.ID]map[string]*Client
	joined map[string]map[types.ID]bool
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:  map[types.ID]map[string]*Client{},
		joined: map[string]map[types.ID]bool{},
	}
}

func (m *RoomManager) Join(projectId types.ID, c *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room := m.rooms[projectId]
	if room == nil {
		room = map[string]*Client{}
		m.rooms[projectId] = room
	}
	room[c.ID] = c

	joined := m.joined[c.ID]
	if joined == nil {
		joined = map[types.ID]bool{}
		m.joined[c.ID] = joined
	}
	joined[projectId] = true
}

func (m *RoomManager) Leave(projectId types.ID, c *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.leaveLocked(projectId, c)
}

func (m *RoomManager) leaveLocked(projectId types.ID, c *Client) {
	if room := m.rooms[projectId]; room != nil {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(m.rooms, projectId)
		}
	}
	if joined := m.joined[c.ID]; joined != nil {
		delete(joined, projectId)
		if len(joined) == 0 {
			delete(m.joined, c.ID)
		}
	}
}

// LeaveAll removes a connection from every room it was in and returns
// the rooms it left.
func (m *RoomManager) LeaveAll(c *Client) []types.ID {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var left []types.ID
	for projectId := range m.joined[c.ID] {
		left = append(left, projectId)
	}
	for _, projectId := range left {
		m.leaveLocked(projectId, c)
	}
	return left
}

func (m *RoomManager) Roster(projectId types.ID) []RosterEntry {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entries := []RosterEntry{}
	for _, c := range m.rooms[projectId] {
		entries = append(entries, RosterEntry{
			ConnectionID: c.ID,
			UserID:       c.Identity.ID,
			UserName:     c.UserName,
			UserPhoto:    c.UserPhoto,
		})
	}
	return entries
}

func (m *RoomManager) members(projectId types.ID) []*Client {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	clients := make([]*Client, 0, len(m.rooms[projectId]))
	for _, c := range m.rooms[projectId] {
		clients = append(clients, c)
	}
	return clients
}

func (m *RoomManager) allClients() []*Client {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	seen := map[string]bool{}
	clients := []*Client{}
	for _, room := range m.rooms {
		for _, c := range room {
			if !seen[c.ID] {
				seen[c.ID] = true
				clients = append(clients, c)
			}
		}
	}
	return clients
}

func (m *RoomManager) Broadcast(projectId types.ID, event string, data interface{}) {
	for _, c := range m.members(projectId) {
		c.Emit(event, data)
	}
}

func (m *RoomManager) BroadcastExcept(projectId types.ID, except *Client, event string, data interface{}) {
	for _, c := range m.members(projectId) {
		if c.ID == except.ID {
			continue
		}
		c.Emit(event, data)
	}
}

// BroadcastGlobal reaches every connection regardless of room.
func (m *RoomManager) BroadcastGlobal(event string, data interface{}) {
	for _, c := range m.allClients() {
		c.Emit(event, data)
	}
}

var Rooms = NewRoomManager()
