package project

import (
	"staffhub/account"
	"staffhub/authority"
	"staffhub/bizerror"
	"staffhub/codes"
	"staffhub/domain"
	"staffhub/idgen"
	"staffhub/persistence"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	projectIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateProjectFunc   = CreateProject
	QueryProjectsFunc   = QueryProjects
	DetailProjectFunc   = DetailProject
	UpdateProjectFunc   = UpdateProject
	DeleteProjectFunc   = DeleteProject
	AddMemberFunc       = AddMember
	RemoveMemberFunc    = RemoveMember
	QueryMemberIDsFunc  = QueryMemberIDs
	CheckAccessibleFunc = CheckAccessible

	// invoked inside the deleting transaction, project tasks cleanup registers here
	ProjectDeleteCascadeFuncs []func(projectId types.ID, tx *gorm.DB) error
)

func init() {
	account.UserDeleteCascadeFuncs = append(account.UserDeleteCascadeFuncs, func(userId types.ID, tx *gorm.DB) error {
		var count int
		if err := tx.Model(&domain.Project{}).Where(&domain.Project{ManagerID: userId}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return bizerror.ErrConflict
		}
		return tx.Where(&domain.ProjectMember{MemberID: userId}).Delete(&domain.ProjectMember{}).Error
	})
}

func CreateProject(c *domain.ProjectCreating, s *session.Session) (*domain.Project, error) {
	if !s.Perms.HasAnyRole(authorityRolesForProjectCreation...) {
		return nil, bizerror.ErrForbidden
	}
	if err := validateProjectDates(c.StartDate, c.EndDate); err != nil {
		return nil, err
	}

	var manager account.User
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where(&account.User{ID: c.ManagerID}).First(&manager).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}

	now := types.CurrentTimestamp()
	record := domain.Project{
		ID:         idgen.NextID(projectIdWorker),
		Name:       c.Name,
		ManagerID:  c.ManagerID,
		Status:     domain.ProjectStatusPending,
		StartDate:  c.StartDate,
		EndDate:    c.EndDate,
		CreatorID:  s.Identity.ID,
		CreateTime: now,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		identifier, err := codes.NextCode(tx, "project", "PRJ")
		if err != nil {
			return err
		}
		record.Identifier = identifier
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		// the manager is always a member of the project
		return tx.Create(&domain.ProjectMember{ProjectID: record.ID, MemberID: c.ManagerID, CreateTime: now}).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

var authorityRolesForProjectCreation = []string{authority.RoleAdmin, authority.RoleHr, authority.RolePm}

func QueryProjects(s *session.Session) ([]domain.ProjectDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	var records []domain.Project
	q := db.Model(&domain.Project{})
	if !s.Perms.HasGlobalViewRole() {
		if s.Perms.HasRole(authority.RolePm) {
			q = q.Where("manager_id = ? OR id IN (SELECT project_id FROM project_members WHERE member_id = ?)",
				s.Identity.ID, s.Identity.ID)
		} else {
			q = q.Where("id IN (SELECT project_id FROM project_members WHERE member_id = ?)", s.Identity.ID)
		}
	}
	if err := q.Order("create_time DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	managerIds := make([]types.ID, 0, len(records))
	for _, r := range records {
		managerIds = append(managerIds, r.ManagerID)
	}
	names, err := account.QueryAccountNames(managerIds)
	if err != nil {
		return nil, err
	}

	details := make([]domain.ProjectDetail, 0, len(records))
	for _, r := range records {
		details = append(details, domain.ProjectDetail{Project: r, ManagerName: names[r.ManagerID]})
	}
	return details, nil
}

func DetailProject(id types.ID, s *session.Session) (*domain.ProjectDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record, err := findVisibleProject(id, s, db)
	if err != nil {
		return nil, err
	}

	members, err := QueryMemberIDsFunc(id, s)
	if err != nil {
		return nil, err
	}
	names, err := account.QueryAccountNames([]types.ID{record.ManagerID})
	if err != nil {
		return nil, err
	}
	return &domain.ProjectDetail{Project: *record, ManagerName: names[record.ManagerID], Members: members}, nil
}

func UpdateProject(id types.ID, u *domain.ProjectUpdating, s *session.Session) (*domain.Project, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record, err := findManageableProject(id, s, db)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if u.Name != "" {
		changes["name"] = u.Name
	}
	if u.Status != "" {
		changes["status"] = u.Status
	}
	startDate, endDate := record.StartDate, record.EndDate
	if !u.StartDate.Time().IsZero() {
		startDate = u.StartDate
		changes["start_date"] = u.StartDate
	}
	if !u.EndDate.Time().IsZero() {
		endDate = u.EndDate
		changes["end_date"] = u.EndDate
	}
	if err := validateProjectDates(startDate, endDate); err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		if err := db.Model(&domain.Project{}).Where(&domain.Project{ID: id}).Updates(changes).Error; err != nil {
			return nil, err
		}
	}

	updated := domain.Project{}
	if err := db.Where(&domain.Project{ID: id}).First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

func DeleteProject(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if _, err := findManageableProject(id, s, db); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, cascade := range ProjectDeleteCascadeFuncs {
			if err := cascade(id, tx); err != nil {
				return err
			}
		}
		if err := tx.Where(&domain.ProjectMember{ProjectID: id}).Delete(&domain.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Where(&domain.Project{ID: id}).Delete(&domain.Project{}).Error
	})
}

func AddMember(projectId, memberId types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if _, err := findManageableProject(projectId, s, db); err != nil {
		return err
	}

	var member account.User
	if err := db.Where(&account.User{ID: memberId}).First(&member).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return bizerror.ErrNotFound
		}
		return err
	}

	var count int
	if err := db.Model(&domain.ProjectMember{}).
		Where(&domain.ProjectMember{ProjectID: projectId, MemberID: memberId}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return bizerror.ErrConflict
	}

	record := domain.ProjectMember{ProjectID: projectId, MemberID: memberId, CreateTime: types.CurrentTimestamp()}
	return db.Create(&record).Error
}

func RemoveMember(projectId, memberId types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record, err := findManageableProject(projectId, s, db)
	if err != nil {
		return err
	}
	if memberId == record.ManagerID {
		return bizerror.ErrConflict
	}

	query := db.Where(&domain.ProjectMember{ProjectID: projectId, MemberID: memberId}).Delete(&domain.ProjectMember{})
	if query.Error != nil {
		return query.Error
	}
	if query.RowsAffected == 0 {
		return bizerror.ErrNotFound
	}
	return nil
}

func QueryMemberIDs(projectId types.ID, s *session.Session) ([]types.ID, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var records []domain.ProjectMember
	if err := db.Where(&domain.ProjectMember{ProjectID: projectId}).Find(&records).Error; err != nil {
		return nil, err
	}
	ids := make([]types.ID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.MemberID)
	}
	return ids, nil
}

// CheckAccessible asserts the session may see the given project, it is
// shared with the task and chat packages.
func CheckAccessible(projectId types.ID, s *session.Session) (*domain.Project, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return findVisibleProject(projectId, s, db)
}

func findVisibleProject(id types.ID, s *session.Session, db *gorm.DB) (*domain.Project, error) {
	record := domain.Project{}
	if err := db.Where(&domain.Project{ID: id}).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	if s.Perms.HasGlobalViewRole() || record.ManagerID == s.Identity.ID {
		return &record, nil
	}

	var count int
	if err := db.Model(&domain.ProjectMember{}).
		Where(&domain.ProjectMember{ProjectID: id, MemberID: s.Identity.ID}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, bizerror.ErrForbidden
	}
	return &record, nil
}

func findManageableProject(id types.ID, s *session.Session, db *gorm.DB) (*domain.Project, error) {
	record := domain.Project{}
	if err := db.Where(&domain.Project{ID: id}).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	if !s.Perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr) && record.ManagerID != s.Identity.ID {
		return nil, bizerror.ErrForbidden
	}
	return &record, nil
}

func validateProjectDates(start, end types.Timestamp) error {
	if start.Time().IsZero() || end.Time().IsZero() {
		return nil
	}
	if end.Time().Before(start.Time()) {
		return &bizerror.ErrInvalidDateRange{Boundary: bizerror.DateBoundaryDueBeforeStart}
	}
	return nil
}
