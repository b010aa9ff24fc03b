package hub

import (
	"context"
	"fmt"
	"staffhub/domain"
	"staffhub/event"
	"staffhub/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

var TaskEventHandlerName = "taskBroadcaster"

// TaskEventHandle relays task changes into the chat rooms, a one-way
// notification, the hub never re-derives task state.
func TaskEventHandle(e *event.EventRecord) *event.EventHandleResult {
	if e.SourceType != event.SourceTypeTask {
		return nil
	}

	if e.EventCategory == event.EventCategoryDeleted {
		projectId := projectIdFromProperties(e, false)
		payload := gin.H{"id": e.SourceId, "projectId": projectId, "name": e.SourceDesc}
		if projectId != 0 {
			Rooms.Broadcast(projectId, EventTaskDeleted, payload)
		}
		Rooms.BroadcastGlobal(EventTaskDeleted, payload)
		return &event.EventHandleResult{Success: true, HandlerIdentifier: TaskEventHandlerName}
	}

	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	record := domain.Task{}
	if err := db.Where(&domain.Task{ID: e.SourceId}).First(&record).Error; err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("detail task when broadcast task %d, %v", e.SourceId, err),
			HandlerIdentifier: TaskEventHandlerName,
		}
	}
	Rooms.Broadcast(record.ProjectID, EventTaskUpdated, record)
	Rooms.BroadcastGlobal(EventTaskUpdated, record)
	return &event.EventHandleResult{Success: true, HandlerIdentifier: TaskEventHandlerName}
}

func projectIdFromProperties(e *event.EventRecord, newValue bool) types.ID {
	for _, p := range e.UpdatedProperties {
		if p.PropertyName != "ProjectID" {
			continue
		}
		raw := p.OldValue
		if newValue {
			raw = p.NewValue
		}
		id, err := types.ParseID(raw)
		if err != nil {
			return 0
		}
		return id
	}
	return 0
}
