package task

import (
	"errors"
	"staffhub/account"
	"staffhub/authority"
	"staffhub/bizerror"
	"staffhub/codes"
	"staffhub/domain"
	"staffhub/domain/project"
	"staffhub/event"
	"staffhub/idgen"
	"staffhub/persistence"
	"staffhub/session"
	"strconv"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	taskIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateTaskFunc         = CreateTask
	QueryTasksFunc         = QueryTasks
	DetailTaskFunc         = DetailTask
	UpdateTaskFunc         = UpdateTask
	UpdateTaskStatusFunc   = UpdateTaskStatus
	DeleteTaskFunc         = DeleteTask
	LeaveTaskFunc          = LeaveTask
	QueryStatusUpdatesFunc = QueryStatusUpdates
)

func init() {
	project.ProjectDeleteCascadeFuncs = append(project.ProjectDeleteCascadeFuncs, cleanTasksOfProject)
	account.UserDeleteCascadeFuncs = append(account.UserDeleteCascadeFuncs, func(userId types.ID, tx *gorm.DB) error {
		return tx.Where(&domain.TaskAssignee{AssigneeID: userId}).Delete(&domain.TaskAssignee{}).Error
	})
}

func cleanTasksOfProject(projectId types.ID, tx *gorm.DB) error {
	var tasks []domain.Task
	if err := tx.Where(&domain.Task{ProjectID: projectId}).Find(&tasks).Error; err != nil {
		return err
	}
	for _, t := range tasks {
		if err := tx.Where(&domain.TaskAssignee{TaskID: t.ID}).Delete(&domain.TaskAssignee{}).Error; err != nil {
			return err
		}
		if err := tx.Where(&domain.TaskStatusUpdate{TaskID: t.ID}).Delete(&domain.TaskStatusUpdate{}).Error; err != nil {
			return err
		}
	}
	return tx.Where(&domain.Task{ProjectID: projectId}).Delete(&domain.Task{}).Error
}

func CreateTask(c *domain.TaskCreating, s *session.Session) (*domain.TaskDetail, error) {
	proj, err := project.CheckAccessibleFunc(c.ProjectID, s)
	if err != nil {
		return nil, err
	}
	if !s.Perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr) && proj.ManagerID != s.Identity.ID {
		return nil, bizerror.ErrForbidden
	}
	if err := validateTaskDates(c.StartDate, c.DueDate, proj); err != nil {
		return nil, err
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	memberIds, err := project.QueryMemberIDsFunc(c.ProjectID, s)
	if err != nil {
		return nil, err
	}
	members := map[types.ID]bool{}
	for _, id := range memberIds {
		members[id] = true
	}
	for _, assignee := range c.Assignees {
		if !members[assignee] {
			return nil, bizerror.ErrConflict
		}
	}

	now := types.CurrentTimestamp()
	priority := c.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	record := domain.Task{
		ID:         idgen.NextID(taskIdWorker),
		ProjectID:  c.ProjectID,
		Name:       c.Name,
		Priority:   priority,
		Status:     domain.TaskStatusNotStarted,
		StartDate:  c.StartDate,
		DueDate:    c.DueDate,
		CreatorID:  s.Identity.ID,
		CreateTime: now,
	}

	var ev *event.EventRecord
	err = db.Transaction(func(tx *gorm.DB) error {
		identifier, err := codes.NextCode(tx, "task", "TSK")
		if err != nil {
			return err
		}
		record.Identifier = identifier
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for _, assignee := range c.Assignees {
			if err := tx.Create(&domain.TaskAssignee{TaskID: record.ID, AssigneeID: assignee, CreateTime: now}).Error; err != nil {
				return err
			}
		}
		ev, err = event.CreateEvent(event.SourceTypeTask, record.ID, record.Name, event.EventCategoryCreated,
			[]event.UpdatedProperty{{PropertyName: "ProjectID", NewValue: record.ProjectID.String()}},
			&s.Identity, now, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return &domain.TaskDetail{Task: record, Assignees: c.Assignees}, nil
}

func QueryTasks(projectId types.ID, s *session.Session) ([]domain.TaskDetail, error) {
	if _, err := project.CheckAccessibleFunc(projectId, s); err != nil {
		return nil, err
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var records []domain.Task
	if err := db.Where(&domain.Task{ProjectID: projectId}).Order("create_time DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	details := make([]domain.TaskDetail, 0, len(records))
	for _, r := range records {
		assignees, err := queryAssigneeIds(r.ID, db)
		if err != nil {
			return nil, err
		}
		details = append(details, domain.TaskDetail{Task: r, Assignees: assignees})
	}
	return details, nil
}

func DetailTask(id types.ID, s *session.Session) (*domain.TaskDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record, err := findTask(id, db)
	if err != nil {
		return nil, err
	}
	if _, err := project.CheckAccessibleFunc(record.ProjectID, s); err != nil {
		return nil, err
	}

	assignees, err := queryAssigneeIds(id, db)
	if err != nil {
		return nil, err
	}
	updates, err := QueryStatusUpdatesFunc(id, s)
	if err != nil {
		return nil, err
	}
	return &domain.TaskDetail{Task: *record, Assignees: assignees, StatusUpdates: updates}, nil
}

func UpdateTask(id types.ID, u *domain.TaskUpdating, s *session.Session) (*domain.Task, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record, err := findTask(id, db)
	if err != nil {
		return nil, err
	}
	if err := checkTaskManageable(record, s, db); err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if u.Name != "" {
		changes["name"] = u.Name
	}
	if u.Priority != "" {
		changes["priority"] = u.Priority
	}
	if len(changes) > 0 {
		if err := db.Model(&domain.Task{}).Where(&domain.Task{ID: id}).Updates(changes).Error; err != nil {
			return nil, err
		}
	}
	return findTask(id, db)
}

// UpdateTaskStatus appends a status log entry and raises a task event,
// assignees may update their own tasks.
func UpdateTaskStatus(id types.ID, u *domain.TaskStatusUpdating, s *session.Session) (*domain.Task, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record, err := findTask(id, db)
	if err != nil {
		return nil, err
	}
	if err := checkTaskOperable(record, s, db); err != nil {
		return nil, err
	}

	now := types.CurrentTimestamp()
	var ev *event.EventRecord
	err = db.Transaction(func(tx *gorm.DB) error {
		entry := domain.TaskStatusUpdate{
			ID:        idgen.NextID(taskIdWorker),
			TaskID:    id,
			ActorID:   s.Identity.ID,
			ActorName: s.Identity.DisplayName(),
			Status:    u.Status,
			Message:   u.Message,
			Timestamp: now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		query := tx.Model(&domain.Task{}).Where(&domain.Task{ID: id}).
			Updates(map[string]interface{}{"status": u.Status, "last_message": u.Message})
		if query.Error != nil {
			return query.Error
		}
		if query.RowsAffected != 1 {
			return errors.New("expected affected row is 1, but actual is " + strconv.FormatInt(query.RowsAffected, 10))
		}

		var err error
		ev, err = event.CreateEvent(event.SourceTypeTask, id, record.Name, event.EventCategoryPropertyUpdated,
			[]event.UpdatedProperty{
				{PropertyName: "Status", OldValue: record.Status, NewValue: u.Status},
				{PropertyName: "LastMessage", OldValue: record.LastMessage, NewValue: u.Message},
			},
			&s.Identity, now, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return findTask(id, db)
}

func DeleteTask(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record, err := findTask(id, db)
	if err != nil {
		return err
	}

	assignees, err := queryAssigneeIds(id, db)
	if err != nil {
		return err
	}
	if err := checkTaskManageable(record, s, db); err != nil {
		// an assignee may delete a task they hold alone
		if err != bizerror.ErrForbidden || !containsId(assignees, s.Identity.ID) {
			return err
		}
		if len(assignees) > 1 {
			return bizerror.ErrConflict
		}
	}

	now := types.CurrentTimestamp()
	var ev *event.EventRecord
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.TaskAssignee{TaskID: id}).Delete(&domain.TaskAssignee{}).Error; err != nil {
			return err
		}
		if err := tx.Where(&domain.TaskStatusUpdate{TaskID: id}).Delete(&domain.TaskStatusUpdate{}).Error; err != nil {
			return err
		}
		if err := tx.Where(&domain.Task{ID: id}).Delete(&domain.Task{}).Error; err != nil {
			return err
		}
		// the task row is gone when handlers run, keep the project routing info on the event
		var err error
		ev, err = event.CreateEvent(event.SourceTypeTask, id, record.Name, event.EventCategoryDeleted,
			[]event.UpdatedProperty{{PropertyName: "ProjectID", OldValue: record.ProjectID.String()}},
			&s.Identity, now, tx)
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

// LeaveTask removes the session user from the assignee list, the last
// assignee can not leave.
func LeaveTask(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if _, err := findTask(id, db); err != nil {
		return err
	}

	assignees, err := queryAssigneeIds(id, db)
	if err != nil {
		return err
	}
	if !containsId(assignees, s.Identity.ID) {
		return bizerror.ErrNotFound
	}
	if len(assignees) == 1 {
		return bizerror.ErrConflict
	}
	return db.Where(&domain.TaskAssignee{TaskID: id, AssigneeID: s.Identity.ID}).Delete(&domain.TaskAssignee{}).Error
}

func QueryStatusUpdates(taskId types.ID, s *session.Session) ([]domain.TaskStatusUpdate, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var records []domain.TaskStatusUpdate
	if err := db.Where(&domain.TaskStatusUpdate{TaskID: taskId}).Order("timestamp ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func findTask(id types.ID, db *gorm.DB) (*domain.Task, error) {
	record := domain.Task{}
	if err := db.Where(&domain.Task{ID: id}).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func queryAssigneeIds(taskId types.ID, db *gorm.DB) ([]types.ID, error) {
	var records []domain.TaskAssignee
	if err := db.Where(&domain.TaskAssignee{TaskID: taskId}).Find(&records).Error; err != nil {
		return nil, err
	}
	ids := make([]types.ID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.AssigneeID)
	}
	return ids, nil
}

func checkTaskManageable(t *domain.Task, s *session.Session, db *gorm.DB) error {
	if s.Perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr) {
		return nil
	}
	proj := domain.Project{}
	if err := db.Where(&domain.Project{ID: t.ProjectID}).First(&proj).Error; err != nil {
		return err
	}
	if proj.ManagerID != s.Identity.ID {
		return bizerror.ErrForbidden
	}
	return nil
}

func checkTaskOperable(t *domain.Task, s *session.Session, db *gorm.DB) error {
	if err := checkTaskManageable(t, s, db); err == nil {
		return nil
	} else if err != bizerror.ErrForbidden {
		return err
	}
	assignees, err := queryAssigneeIds(t.ID, db)
	if err != nil {
		return err
	}
	if !containsId(assignees, s.Identity.ID) {
		return bizerror.ErrForbidden
	}
	return nil
}

func containsId(ids []types.ID, id types.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func validateTaskDates(start, due types.Timestamp, proj *domain.Project) error {
	if !start.Time().IsZero() && !proj.StartDate.Time().IsZero() && start.Time().Before(proj.StartDate.Time()) {
		return &bizerror.ErrInvalidDateRange{Boundary: bizerror.DateBoundaryStartBeforeProject}
	}
	if !due.Time().IsZero() && !proj.EndDate.Time().IsZero() && due.Time().After(proj.EndDate.Time()) {
		return &bizerror.ErrInvalidDateRange{Boundary: bizerror.DateBoundaryDueAfterProject}
	}
	if !start.Time().IsZero() && !due.Time().IsZero() && due.Time().Before(start.Time()) {
		return &bizerror.ErrInvalidDateRange{Boundary: bizerror.DateBoundaryDueBeforeStart}
	}
	return nil
}
