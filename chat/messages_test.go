package chat_test

import (
	"context"
	"staffhub/authority"
	"staffhub/bizerror"
	"staffhub/chat"
	"staffhub/domain"
	"staffhub/domain/project"
	"staffhub/event"
	"staffhub/persistence"
	"staffhub/profile"
	"staffhub/session"
	"staffhub/testinfra"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) func() {
	db := testinfra.StartMysqlTestDatabase("staffhub")
	assert.Nil(t, db.DS.GormDB(context.Background()).AutoMigrate(
		&chat.Message{}, &chat.HiddenWatermark{}, &event.EventRecord{}).Error)
	persistence.ActiveDataSourceManager = db.DS
	*testDatabase = db

	checkAccessibleBak := project.CheckAccessibleFunc
	project.CheckAccessibleFunc = func(projectId types.ID, s *session.Session) (*domain.Project, error) {
		return &domain.Project{ID: projectId}, nil
	}
	return func() { project.CheckAccessibleFunc = checkAccessibleBak }
}
func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func sendMessage(t *testing.T, projectId types.ID, senderId types.ID, text string) *chat.Message {
	record, err := chat.CreateMessage(&chat.MessageCreation{ProjectID: projectId, Text: text},
		testinfra.BuildSession(senderId, authority.RoleEmployee))
	assert.Nil(t, err)
	return record
}

func TestCreateMessage(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should reject an empty message", func(t *testing.T) {
		defer teardown(t, testDatabase)
		restore := setup(t, &testDatabase)
		defer restore()

		_, err := chat.CreateMessage(&chat.MessageCreation{ProjectID: 100},
			testinfra.BuildSession(10, authority.RoleEmployee))
		Expect(err).To(Equal(&bizerror.ErrBadParam{}))
	})

	t.Run("should carry the sender identity and the attachment descriptor", func(t *testing.T) {
		defer teardown(t, testDatabase)
		restore := setup(t, &testDatabase)
		defer restore()

		record, err := chat.CreateMessage(&chat.MessageCreation{ProjectID: 100,
			Attachment: &chat.Attachment{Name: "report.pdf", Size: 2048, Mime: "application/pdf",
				URL: chat.PathChatAttachments + "/abc"}},
			testinfra.BuildSession(10, authority.RoleEmployee))
		Expect(err).To(BeNil())
		Expect(record.SenderID).To(Equal(types.ID(10)))
		Expect(record.SenderName).To(Equal("user10"))
		Expect(record.SenderAvatar).To(Equal(profile.PathProfile + "/photo/10"))
		Expect(record.Read).To(BeFalse())
		Expect(record.AttachmentName).To(Equal("report.pdf"))
		Expect(record.AttachmentSize).To(Equal(int64(2048)))
	})
}

func TestQueryMessages(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should return history in ascending order per project", func(t *testing.T) {
		defer teardown(t, testDatabase)
		restore := setup(t, &testDatabase)
		defer restore()

		m1 := sendMessage(t, 100, 10, "first")
		time.Sleep(2 * time.Millisecond)
		m2 := sendMessage(t, 100, 20, "second")
		sendMessage(t, 200, 10, "elsewhere")

		records, err := chat.QueryMessages(types.ID(100), testinfra.BuildSession(10, authority.RoleEmployee))
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(2))
		Expect(records[0].ID).To(Equal(m1.ID))
		Expect(records[1].ID).To(Equal(m2.ID))
	})
}

func TestUnreadTracking(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should only count unread messages of others", func(t *testing.T) {
		defer teardown(t, testDatabase)
		restore := setup(t, &testDatabase)
		defer restore()

		sendMessage(t, 100, 10, "mine")
		sendMessage(t, 100, 20, "from bob")
		sendMessage(t, 100, 20, "from bob again")

		count, err := chat.CountUnread(types.ID(100), testinfra.BuildSession(10, authority.RoleEmployee))
		Expect(err).To(BeNil())
		Expect(count).To(Equal(2))

		count, err = chat.CountUnread(types.ID(100), testinfra.BuildSession(20, authority.RoleEmployee))
		Expect(err).To(BeNil())
		Expect(count).To(Equal(1))
	})

	t.Run("should drop to zero after marking the project read", func(t *testing.T) {
		defer teardown(t, testDatabase)
		restore := setup(t, &testDatabase)
		defer restore()

		sendMessage(t, 100, 20, "from bob")
		sendMessage(t, 100, 20, "from bob again")
		sec := testinfra.BuildSession(10, authority.RoleEmployee)

		Expect(chat.MarkRead(&chat.MessageReading{ProjectID: 100}, sec)).To(BeNil())

		count, err := chat.CountUnread(types.ID(100), sec)
		Expect(err).To(BeNil())
		Expect(count).To(Equal(0))
	})

	t.Run("should mark an explicit id list", func(t *testing.T) {
		defer teardown(t, testDatabase)
		restore := setup(t, &testDatabase)
		defer restore()

		m1 := sendMessage(t, 100, 20, "from bob")
		sendMessage(t, 100, 20, "from bob again")
		sec := testinfra.BuildSession(10, authority.RoleEmployee)

		Expect(chat.MarkRead(&chat.MessageReading{MessageIDs: []types.ID{m1.ID}}, sec)).To(BeNil())

		count, err := chat.CountUnread(types.ID(100), sec)
		Expect(err).To(BeNil())
		Expect(count).To(Equal(1))
	})

	t.Run("should not mark own messages or an inaccessible project by id", func(t *testing.T) {
		defer teardown(t, testDatabase)
		restore := setup(t, &testDatabase)
		defer restore()

		mine := sendMessage(t, 100, 10, "mine")
		theirs := sendMessage(t, 100, 20, "from bob")
		sec := testinfra.BuildSession(10, authority.RoleEmployee)

		Expect(chat.MarkRead(&chat.MessageReading{MessageIDs: []types.ID{mine.ID, theirs.ID}}, sec)).To(BeNil())

		record := chat.Message{}
		db := testDatabase.DS.GormDB(context.Background())
		Expect(db.Where(&chat.Message{ID: mine.ID}).First(&record).Error).To(BeNil())
		Expect(record.Read).To(BeFalse())
		Expect(db.Where(&chat.Message{ID: theirs.ID}).First(&record).Error).To(BeNil())
		Expect(record.Read).To(BeTrue())

		checkAccessibleBak := project.CheckAccessibleFunc
		project.CheckAccessibleFunc = func(projectId types.ID, s *session.Session) (*domain.Project, error) {
			return nil, bizerror.ErrForbidden
		}
		defer func() { project.CheckAccessibleFunc = checkAccessibleBak }()
		Expect(chat.MarkRead(&chat.MessageReading{MessageIDs: []types.ID{theirs.ID}}, sec)).
			To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should require a project when no ids are given", func(t *testing.T) {
		defer teardown(t, testDatabase)
		restore := setup(t, &testDatabase)
		defer restore()

		Expect(chat.MarkRead(&chat.MessageReading{}, testinfra.BuildSession(10, authority.RoleEmployee))).
			To(Equal(&bizerror.ErrBadParam{}))
	})
}

func TestClearHistory(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should hide history per user without touching others", func(t *testing.T) {
		defer teardown(t, testDatabase)
		restore := setup(t, &testDatabase)
		defer restore()

		sendMessage(t, 100, 20, "before")
		ann := testinfra.BuildSession(10, authority.RoleEmployee)
		bob := testinfra.BuildSession(20, authority.RoleEmployee)

		Expect(chat.ClearHistory(types.ID(100), ann)).To(BeNil())
		time.Sleep(10 * time.Millisecond)
		after := sendMessage(t, 100, 20, "after")

		records, err := chat.QueryMessages(types.ID(100), ann)
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(1))
		Expect(records[0].ID).To(Equal(after.ID))

		records, err = chat.QueryMessages(types.ID(100), bob)
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(2))

		count, err := chat.CountUnread(types.ID(100), ann)
		Expect(err).To(BeNil())
		Expect(count).To(Equal(1))
	})
}

func TestDeleteMessage(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should only allow the sender or a global view role", func(t *testing.T) {
		defer teardown(t, testDatabase)
		restore := setup(t, &testDatabase)
		defer restore()

		record := sendMessage(t, 100, 10, "oops")

		Expect(chat.DeleteMessage(record.ID, testinfra.BuildSession(20, authority.RoleEmployee))).
			To(Equal(bizerror.ErrForbidden))
		Expect(chat.DeleteMessage(record.ID, testinfra.BuildSession(10, authority.RoleEmployee))).To(BeNil())
		Expect(chat.DeleteMessage(record.ID, testinfra.BuildSession(10, authority.RoleEmployee))).
			To(Equal(bizerror.ErrNotFound))

		other := sendMessage(t, 100, 10, "swept")
		Expect(chat.DeleteMessage(other.ID, testinfra.BuildSession(30, authority.RoleHr))).To(BeNil())
	})
}
