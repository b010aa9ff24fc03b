package chat

import (
	"github.com/fundwit/go-commons/types"
)

type Message struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ProjectID types.ID `json:"projectId"`

	SenderID     types.ID `json:"senderId"`
	SenderName   string   `json:"senderName"`
	SenderAvatar string   `json:"senderAvatar"`

	Text string `json:"text" sql:"type:TEXT"`

	AttachmentName string `json:"attachmentName"`
	AttachmentSize int64  `json:"attachmentSize"`
	AttachmentMime string `json:"attachmentMime"`
	AttachmentURL  string `json:"attachmentUrl"`

	Read bool `json:"read"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

// HiddenWatermark truncates one user's history view of a project,
// messages at or before the timestamp are hidden for that user only.
type HiddenWatermark struct {
	UserID    types.ID `json:"userId" gorm:"unique_index:uni_hidden_watermark"`
	ProjectID types.ID `json:"projectId" gorm:"unique_index:uni_hidden_watermark"`

	Timestamp types.Timestamp `json:"timestamp" sql:"type:DATETIME(6) NOT NULL"`
}

type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
	URL  string `json:"url"`
}

type MessageCreation struct {
	ProjectID types.ID `json:"projectId" binding:"required"`
	Text      string   `json:"text" binding:"lte=2000"`

	Attachment *Attachment `json:"attachment"`
}

type MessageReading struct {
	ProjectID  types.ID   `json:"projectId"`
	MessageIDs []types.ID `json:"messageIds"`
}

type MessageStats struct {
	ProjectID types.ID `json:"projectId"`

	Total  int `json:"total"`
	Unread int `json:"unread"`

	LastMessageTime types.Timestamp `json:"lastMessageTime"`
}
