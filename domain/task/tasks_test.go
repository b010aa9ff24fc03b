package task_test

import (
	"context"
	"staffhub/account"
	"staffhub/authority"
	"staffhub/bizerror"
	"staffhub/codes"
	"staffhub/domain"
	"staffhub/domain/project"
	"staffhub/domain/task"
	"staffhub/event"
	"staffhub/persistence"
	"staffhub/testinfra"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) *domain.Project {
	db := testinfra.StartMysqlTestDatabase("staffhub")
	assert.Nil(t, db.DS.GormDB(context.Background()).AutoMigrate(
		&domain.Project{}, &domain.ProjectMember{}, &domain.Task{}, &domain.TaskAssignee{},
		&domain.TaskStatusUpdate{}, &account.User{}, &codes.Counter{}, &event.EventRecord{}).Error)
	persistence.ActiveDataSourceManager = db.DS
	*testDatabase = db

	seedUser(t, 20, "bob", authority.RolePm)
	seedUser(t, 30, "dave", authority.RoleEmployee)
	seedUser(t, 31, "erin", authority.RoleEmployee)

	admin := testinfra.BuildSession(10, authority.RoleAdmin)
	proj, err := project.CreateProject(&domain.ProjectCreating{Name: "alpha", ManagerID: 20,
		StartDate: dateAfter(0), EndDate: dateAfter(30)}, admin)
	assert.Nil(t, err)
	assert.Nil(t, project.AddMember(proj.ID, 30, admin))
	assert.Nil(t, project.AddMember(proj.ID, 31, admin))
	return proj
}
func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func seedUser(t *testing.T, id types.ID, name, role string) {
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	assert.Nil(t, db.Create(&account.User{ID: id, Email: name + "@test.com", Name: name,
		Role: role, CreateTime: types.CurrentTimestamp()}).Error)
}

func dateAfter(days int) types.Timestamp {
	return types.Timestamp(time.Now().AddDate(0, 0, days))
}

func catchEvents() (*[]event.EventRecord, func()) {
	caught := []event.EventRecord{}
	invokeHandlersBak := event.InvokeHandlersFunc
	event.InvokeHandlersFunc = func(record *event.EventRecord) []event.EventHandleResult {
		caught = append(caught, *record)
		return nil
	}
	return &caught, func() { event.InvokeHandlersFunc = invokeHandlersBak }
}

func TestCreateTask(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should be reserved for managers and global roles", func(t *testing.T) {
		defer teardown(t, testDatabase)
		proj := setup(t, &testDatabase)

		_, err := task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1", Assignees: []types.ID{30}},
			testinfra.BuildSession(30, authority.RoleEmployee))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should keep task dates inside the project range", func(t *testing.T) {
		defer teardown(t, testDatabase)
		proj := setup(t, &testDatabase)
		sec := testinfra.BuildSession(20, authority.RolePm)

		_, err := task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1", Assignees: []types.ID{30},
			StartDate: dateAfter(-1), DueDate: dateAfter(5)}, sec)
		Expect(err).To(Equal(&bizerror.ErrInvalidDateRange{Boundary: bizerror.DateBoundaryStartBeforeProject}))

		_, err = task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1", Assignees: []types.ID{30},
			StartDate: dateAfter(1), DueDate: dateAfter(40)}, sec)
		Expect(err).To(Equal(&bizerror.ErrInvalidDateRange{Boundary: bizerror.DateBoundaryDueAfterProject}))

		_, err = task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1", Assignees: []types.ID{30},
			StartDate: dateAfter(5), DueDate: dateAfter(2)}, sec)
		Expect(err).To(Equal(&bizerror.ErrInvalidDateRange{Boundary: bizerror.DateBoundaryDueBeforeStart}))
	})

	t.Run("should only assign project members", func(t *testing.T) {
		defer teardown(t, testDatabase)
		proj := setup(t, &testDatabase)
		seedUser(t, 50, "outsider", authority.RoleEmployee)

		_, err := task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1", Assignees: []types.ID{50}},
			testinfra.BuildSession(20, authority.RolePm))
		Expect(err).To(Equal(bizerror.ErrConflict))
	})

	t.Run("should mint identifiers, persist assignees and raise an event", func(t *testing.T) {
		defer teardown(t, testDatabase)
		proj := setup(t, &testDatabase)
		caught, restore := catchEvents()
		defer restore()
		sec := testinfra.BuildSession(20, authority.RolePm)

		detail, err := task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1",
			Assignees: []types.ID{30, 31}, StartDate: dateAfter(1), DueDate: dateAfter(5)}, sec)
		Expect(err).To(BeNil())
		Expect(detail.Identifier).To(Equal("TSK001"))
		Expect(detail.Status).To(Equal(domain.TaskStatusNotStarted))
		Expect(detail.Priority).To(Equal(domain.TaskPriorityMedium))
		Expect(detail.Assignees).To(Equal([]types.ID{types.ID(30), types.ID(31)}))

		Expect(len(*caught)).To(Equal(1))
		ev := (*caught)[0]
		Expect(ev.SourceType).To(Equal(event.SourceTypeTask))
		Expect(ev.EventCategory).To(Equal(event.EventCategory(event.EventCategoryCreated)))
		Expect(ev.UpdatedProperties).To(Equal(event.UpdatedProperties{
			{PropertyName: "ProjectID", NewValue: proj.ID.String()}}))
	})
}

func TestUpdateTaskStatus(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should append a status log entry and raise an event", func(t *testing.T) {
		defer teardown(t, testDatabase)
		proj := setup(t, &testDatabase)
		manager := testinfra.BuildSession(20, authority.RolePm)

		detail, err := task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1",
			Assignees: []types.ID{30}}, manager)
		Expect(err).To(BeNil())

		caught, restore := catchEvents()
		defer restore()

		// assignees may update their own tasks
		updated, err := task.UpdateTaskStatus(detail.ID,
			&domain.TaskStatusUpdating{Status: domain.TaskStatusInProgress, Message: "started"},
			testinfra.BuildSession(30, authority.RoleEmployee))
		Expect(err).To(BeNil())
		Expect(updated.Status).To(Equal(domain.TaskStatusInProgress))
		Expect(updated.LastMessage).To(Equal("started"))

		updates, err := task.QueryStatusUpdates(detail.ID, manager)
		Expect(err).To(BeNil())
		Expect(len(updates)).To(Equal(1))
		Expect(updates[0].Status).To(Equal(domain.TaskStatusInProgress))
		Expect(updates[0].ActorID).To(Equal(types.ID(30)))
		Expect(updates[0].Message).To(Equal("started"))

		Expect(len(*caught)).To(Equal(1))
		ev := (*caught)[0]
		Expect(ev.EventCategory).To(Equal(event.EventCategory(event.EventCategoryPropertyUpdated)))
		Expect(ev.UpdatedProperties).To(Equal(event.UpdatedProperties{
			{PropertyName: "Status", OldValue: domain.TaskStatusNotStarted, NewValue: domain.TaskStatusInProgress},
			{PropertyName: "LastMessage", OldValue: "", NewValue: "started"}}))
	})

	t.Run("should forbid non assignee members", func(t *testing.T) {
		defer teardown(t, testDatabase)
		proj := setup(t, &testDatabase)

		detail, err := task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1",
			Assignees: []types.ID{30}}, testinfra.BuildSession(20, authority.RolePm))
		Expect(err).To(BeNil())

		_, err = task.UpdateTaskStatus(detail.ID, &domain.TaskStatusUpdating{Status: domain.TaskStatusInProgress},
			testinfra.BuildSession(31, authority.RoleEmployee))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})
}

func TestDeleteTask(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should let a sole assignee delete their own task", func(t *testing.T) {
		defer teardown(t, testDatabase)
		proj := setup(t, &testDatabase)
		manager := testinfra.BuildSession(20, authority.RolePm)

		detail, err := task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1",
			Assignees: []types.ID{30}}, manager)
		Expect(err).To(BeNil())

		caught, restore := catchEvents()
		defer restore()

		Expect(task.DeleteTask(detail.ID, testinfra.BuildSession(30, authority.RoleEmployee))).To(BeNil())
		_, err = task.DetailTask(detail.ID, manager)
		Expect(err).To(Equal(bizerror.ErrNotFound))

		// the deletion event still routes to the project
		Expect(len(*caught)).To(Equal(1))
		ev := (*caught)[0]
		Expect(ev.EventCategory).To(Equal(event.EventCategory(event.EventCategoryDeleted)))
		Expect(ev.UpdatedProperties).To(Equal(event.UpdatedProperties{
			{PropertyName: "ProjectID", OldValue: proj.ID.String()}}))
	})

	t.Run("should refuse a shared task from a plain assignee", func(t *testing.T) {
		defer teardown(t, testDatabase)
		proj := setup(t, &testDatabase)
		manager := testinfra.BuildSession(20, authority.RolePm)

		detail, err := task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1",
			Assignees: []types.ID{30, 31}}, manager)
		Expect(err).To(BeNil())

		Expect(task.DeleteTask(detail.ID, testinfra.BuildSession(30, authority.RoleEmployee))).
			To(Equal(bizerror.ErrConflict))
		Expect(task.DeleteTask(detail.ID, manager)).To(BeNil())
	})
}

func TestLeaveTask(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should keep at least one assignee", func(t *testing.T) {
		defer teardown(t, testDatabase)
		proj := setup(t, &testDatabase)
		manager := testinfra.BuildSession(20, authority.RolePm)

		detail, err := task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1",
			Assignees: []types.ID{30, 31}}, manager)
		Expect(err).To(BeNil())

		Expect(task.LeaveTask(detail.ID, testinfra.BuildSession(50, authority.RoleEmployee))).
			To(Equal(bizerror.ErrNotFound))

		Expect(task.LeaveTask(detail.ID, testinfra.BuildSession(31, authority.RoleEmployee))).To(BeNil())
		remaining, err := task.DetailTask(detail.ID, manager)
		Expect(err).To(BeNil())
		Expect(remaining.Assignees).To(Equal([]types.ID{types.ID(30)}))

		Expect(task.LeaveTask(detail.ID, testinfra.BuildSession(30, authority.RoleEmployee))).
			To(Equal(bizerror.ErrConflict))
	})
}

func TestProjectDeleteCascade(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should remove tasks with their assignees and status logs", func(t *testing.T) {
		defer teardown(t, testDatabase)
		proj := setup(t, &testDatabase)
		admin := testinfra.BuildSession(10, authority.RoleAdmin)

		detail, err := task.CreateTask(&domain.TaskCreating{ProjectID: proj.ID, Name: "t1",
			Assignees: []types.ID{30}}, admin)
		Expect(err).To(BeNil())
		_, err = task.UpdateTaskStatus(detail.ID,
			&domain.TaskStatusUpdating{Status: domain.TaskStatusInProgress}, admin)
		Expect(err).To(BeNil())

		Expect(project.DeleteProject(proj.ID, admin)).To(BeNil())

		db := persistence.ActiveDataSourceManager.GormDB(context.Background())
		count := -1
		Expect(db.Model(&domain.Task{}).Where("project_id = ?", proj.ID).Count(&count).Error).To(BeNil())
		Expect(count).To(Equal(0))
		Expect(db.Model(&domain.TaskAssignee{}).Count(&count).Error).To(BeNil())
		Expect(count).To(Equal(0))
		Expect(db.Model(&domain.TaskStatusUpdate{}).Count(&count).Error).To(BeNil())
		Expect(count).To(Equal(0))
	})
}
