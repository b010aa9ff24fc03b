package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"staffhub/authority"
	"staffhub/bizerror"
	"staffhub/client/es"
	"staffhub/domain/project"
	"staffhub/event"
	"staffhub/persistence"
	"staffhub/session"
	"sync"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	MessageIndexName             = "messages"
	MessageIndexEventHandlerName = "messageIndexer"

	indexRobot = &session.Session{
		Identity: session.Identity{ID: 10, Name: "index-robot"},
		Perms:    authority.Permissions{authority.RoleAdmin},
		Context:  context.Background(),
	}

	lock    sync.Mutex
	running bool

	// keeps a full resync from flooding the search cluster
	resyncLimiter = rate.NewLimiter(rate.Limit(50), 50)

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
	SearchMessagesFunc     = SearchMessages
)

type MessageDocument struct {
	Message
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

func IndexMessages(messages []Message) error {
	errs := BatchActionError{}
	for _, m := range messages {
		if err := es.IndexFunc(MessageIndexName, m.ID, MessageDocument{Message: m}, indexRobot); err != nil {
			errs[m.ID] = err
			logrus.Warnf("index message %d %v\n", m.ID, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func ScheduleNewSyncRun(s *session.Session) (bool, error) {
	if !s.Perms.HasRole(authority.RoleAdmin) {
		return false, bizerror.ErrForbidden
	}

	lock.Lock()
	if running {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	waitRunning := sync.WaitGroup{}
	waitRunning.Add(1)
	go func() {
		waitRunning.Done()
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		IndicesFullSyncFunc()
	}()
	waitRunning.Wait()
	return true, nil
}

var (
	SyncBatchSize = 500
)

func IndicesFullSync() (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
	}()

	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	page := 1
	for {
		var messages []Message
		if err := db.Order("id ASC").Offset((page - 1) * SyncBatchSize).Limit(SyncBatchSize).
			Find(&messages).Error; err != nil {
			logrus.Warnf("indices fully sync: error on retrieve messages(page = %d, pageSize = %d): %v",
				page, SyncBatchSize, err)
			page++
			continue
		}

		if len(messages) == 0 {
			logrus.Infof("indices fully sync: there are no more messages to index")
			return nil // loop exit
		}

		for _, m := range messages {
			if err := resyncLimiter.Wait(context.Background()); err != nil {
				return err
			}
			if err := IndexMessages([]Message{m}); err != nil {
				logrus.Warnf("indices fully sync: error on index message %d: %v", m.ID, err)
			}
		}
		page++
	}
}

func MessageIndexEventHandle(e *event.EventRecord) *event.EventHandleResult {
	if e.SourceType != event.SourceTypeMessage {
		return nil
	}

	if e.EventCategory == event.EventCategoryDeleted {
		err := es.DeleteDocumentByIdFunc(MessageIndexName, e.Event.SourceId, indexRobot)
		if err != nil {
			return &event.EventHandleResult{
				Message:           fmt.Sprintf("delete message index %d, %v", e.Event.SourceId, err),
				HandlerIdentifier: MessageIndexEventHandlerName,
			}
		}
		return &event.EventHandleResult{Success: true, HandlerIdentifier: MessageIndexEventHandlerName}
	}

	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	record := Message{}
	if err := db.Where(&Message{ID: e.Event.SourceId}).First(&record).Error; err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("detail message when index message %d, %v", e.Event.SourceId, err),
			HandlerIdentifier: MessageIndexEventHandlerName,
		}
	}
	if err := IndexMessages([]Message{record}); err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("index message %d, %v", e.Event.SourceId, err),
			HandlerIdentifier: MessageIndexEventHandlerName,
		}
	}
	return &event.EventHandleResult{Success: true, HandlerIdentifier: MessageIndexEventHandlerName}
}

func SearchMessages(projectId types.ID, keyword string, s *session.Session) ([]Message, error) {
	if _, err := project.CheckAccessibleFunc(projectId, s); err != nil {
		return nil, err
	}

	query := es.H{
		"query": es.H{
			"bool": es.H{
				"must": []es.H{
					{"match": es.H{"text": keyword}},
				},
				"filter": []es.H{
					{"term": es.H{"projectId": projectId.String()}},
				},
			},
		},
		"size": HistoryLimit,
	}

	result, err := es.SearchFunc(MessageIndexName, query, s)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		doc := MessageDocument{}
		if err := json.Unmarshal([]byte(hit.Source), &doc); err != nil {
			logrus.Warnf("unmarshal message document %s: %v", hit.Id, err)
			continue
		}
		messages = append(messages, doc.Message)
	}
	return messages, nil
}
