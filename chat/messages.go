package chat

import (
	"staffhub/bizerror"
	"staffhub/domain/project"
	"staffhub/event"
	"staffhub/idgen"
	"staffhub/persistence"
	"staffhub/profile"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const HistoryLimit = 100

var (
	messageIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateMessageFunc = CreateMessage
	QueryMessagesFunc = QueryMessages
	DeleteMessageFunc = DeleteMessage
	CountUnreadFunc   = CountUnread
	MarkReadFunc      = MarkRead
	QueryStatsFunc    = QueryStats
	ClearHistoryFunc  = ClearHistory
)

func CreateMessage(c *MessageCreation, s *session.Session) (*Message, error) {
	if _, err := project.CheckAccessibleFunc(c.ProjectID, s); err != nil {
		return nil, err
	}
	if c.Text == "" && c.Attachment == nil {
		return nil, &bizerror.ErrBadParam{}
	}

	record := Message{
		ID:           idgen.NextID(messageIdWorker),
		ProjectID:    c.ProjectID,
		SenderID:     s.Identity.ID,
		SenderName:   s.Identity.DisplayName(),
		SenderAvatar: profile.PathProfile + "/photo/" + s.Identity.ID.String(),
		Text:         c.Text,
		Read:         false,
		CreateTime:   types.CurrentTimestamp(),
	}
	if c.Attachment != nil {
		record.AttachmentName = c.Attachment.Name
		record.AttachmentSize = c.Attachment.Size
		record.AttachmentMime = c.Attachment.Mime
		record.AttachmentURL = c.Attachment.URL
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var ev *event.EventRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		var err error
		ev, err = event.CreateEvent(event.SourceTypeMessage, record.ID, record.Text, event.EventCategoryCreated,
			nil, &s.Identity, record.CreateTime, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return &record, nil
}

// QueryMessages returns the most recent messages of a project in
// ascending time order, truncated by the session user's watermark.
func QueryMessages(projectId types.ID, s *session.Session) ([]Message, error) {
	if _, err := project.CheckAccessibleFunc(projectId, s); err != nil {
		return nil, err
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	q := db.Where(&Message{ProjectID: projectId})
	watermark, err := findWatermark(s.Identity.ID, projectId, db)
	if err != nil {
		return nil, err
	}
	if watermark != nil {
		q = q.Where("create_time > ?", watermark.Timestamp)
	}

	var records []Message
	if err := q.Order("create_time DESC").Limit(HistoryLimit).Find(&records).Error; err != nil {
		return nil, err
	}
	// reverse into ascending order
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func DeleteMessage(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record := Message{}
	if err := db.Where(&Message{ID: id}).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return bizerror.ErrNotFound
		}
		return err
	}
	if record.SenderID != s.Identity.ID && !s.Perms.HasGlobalViewRole() {
		return bizerror.ErrForbidden
	}

	var ev *event.EventRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Message{ID: id}).Delete(&Message{}).Error; err != nil {
			return err
		}
		var err error
		ev, err = event.CreateEvent(event.SourceTypeMessage, id, record.Text, event.EventCategoryDeleted,
			nil, &s.Identity, types.CurrentTimestamp(), tx)
		return err
	})
	if err != nil {
		return err
	}
	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return nil
}

// CountUnread counts messages of others which are still unread,
// bounded by the session user's watermark.
func CountUnread(projectId types.ID, s *session.Session) (int, error) {
	if _, err := project.CheckAccessibleFunc(projectId, s); err != nil {
		return 0, err
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return countUnread(projectId, s.Identity.ID, db)
}

func countUnread(projectId, userId types.ID, db *gorm.DB) (int, error) {
	q := db.Model(&Message{}).Where(&Message{ProjectID: projectId}).
		Where("sender_id != ?", userId).Where("`read` = ?", false)

	watermark, err := findWatermark(userId, projectId, db)
	if err != nil {
		return 0, err
	}
	if watermark != nil {
		q = q.Where("create_time > ?", watermark.Timestamp)
	}

	var count int
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead flips the read flag on an explicit id list, or on every
// message of the project not authored by the session user. Either way
// the update never touches the user's own messages or a project the
// user cannot access.
func MarkRead(r *MessageReading, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if len(r.MessageIDs) > 0 {
		var projectIds []types.ID
		if err := db.Model(&Message{}).Where("id IN (?)", r.MessageIDs).
			Pluck("DISTINCT project_id", &projectIds).Error; err != nil {
			return err
		}
		for _, projectId := range projectIds {
			if _, err := project.CheckAccessibleFunc(projectId, s); err != nil {
				return err
			}
		}
		return db.Model(&Message{}).Where("id IN (?)", r.MessageIDs).
			Where("sender_id != ?", s.Identity.ID).Update("read", true).Error
	}
	if r.ProjectID == 0 {
		return &bizerror.ErrBadParam{}
	}
	if _, err := project.CheckAccessibleFunc(r.ProjectID, s); err != nil {
		return err
	}
	return db.Model(&Message{}).Where(&Message{ProjectID: r.ProjectID}).
		Where("sender_id != ?", s.Identity.ID).Update("read", true).Error
}

func QueryStats(projectId types.ID, s *session.Session) (*MessageStats, error) {
	if _, err := project.CheckAccessibleFunc(projectId, s); err != nil {
		return nil, err
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	stats := MessageStats{ProjectID: projectId}
	if err := db.Model(&Message{}).Where(&Message{ProjectID: projectId}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	unread, err := countUnread(projectId, s.Identity.ID, db)
	if err != nil {
		return nil, err
	}
	stats.Unread = unread

	last := Message{}
	if err := db.Where(&Message{ProjectID: projectId}).Order("create_time DESC").First(&last).Error; err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			return nil, err
		}
	} else {
		stats.LastMessageTime = last.CreateTime
	}
	return &stats, nil
}

// ClearHistory hides the project's current history from the session
// user by moving their watermark, other users are unaffected.
func ClearHistory(projectId types.ID, s *session.Session) error {
	if _, err := project.CheckAccessibleFunc(projectId, s); err != nil {
		return err
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	now := types.CurrentTimestamp()
	query := db.Model(&HiddenWatermark{}).
		Where(&HiddenWatermark{UserID: s.Identity.ID, ProjectID: projectId}).
		Update("timestamp", now)
	if query.Error != nil {
		return query.Error
	}
	if query.RowsAffected == 0 {
		return db.Create(&HiddenWatermark{UserID: s.Identity.ID, ProjectID: projectId, Timestamp: now}).Error
	}
	return nil
}

func findWatermark(userId, projectId types.ID, db *gorm.DB) (*HiddenWatermark, error) {
	record := HiddenWatermark{}
	if err := db.Where(&HiddenWatermark{UserID: userId, ProjectID: projectId}).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
