package department

import (
	"context"
	"errors"
	"staffhub/authority"
	"staffhub/bizerror"
	"staffhub/idgen"
	"staffhub/persistence"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	departmentIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateDepartmentFunc = CreateDepartment
	QueryDepartmentsFunc = QueryDepartments
	DeleteDepartmentFunc = DeleteDepartment

	// DepartmentDeleteCheckFuncs veto deletion while other records still reference the department
	DepartmentDeleteCheckFuncs []func(d Department, tx *gorm.DB) error
)

type Department struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Name string `json:"name" gorm:"unique_index:uni_department_name"`

	CreatorID  types.ID        `json:"creatorId"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type DepartmentCreation struct {
	Name string `json:"name" binding:"required,lte=60"`
}

func CreateDepartment(d DepartmentCreation, sec *session.Session) (*Department, error) {
	if !sec.Perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr) {
		return nil, bizerror.ErrForbidden
	}

	record := Department{ID: idgen.NextID(departmentIdWorker), Name: d.Name,
		CreatorID: sec.Identity.ID, CreateTime: types.CurrentTimestamp()}

	err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		existed := Department{}
		err := tx.Where("name = ?", d.Name).First(&existed).Error
		if err == nil {
			return bizerror.ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func QueryDepartments(sec *session.Session) ([]Department, error) {
	departments := []Department{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	if err := db.Order("name ASC").Find(&departments).Error; err != nil {
		return nil, err
	}
	return departments, nil
}

func DeleteDepartment(id types.ID, sec *session.Session) error {
	if !sec.Perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr) {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		d := Department{}
		if err := tx.Where(&Department{ID: id}).First(&d).Error; err != nil {
			return err
		}
		for _, f := range DepartmentDeleteCheckFuncs {
			if err := f(d, tx); err != nil {
				return err
			}
		}
		return tx.Delete(Department{}, "id = ?", id).Error
	})
}

func QueryDepartmentNames(ids []types.ID) (map[types.ID]string, error) {
	if len(ids) == 0 {
		return map[types.ID]string{}, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	var records []Department
	if err := db.Model(&Department{}).Where("id IN (?)", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	result := map[types.ID]string{}
	for _, r := range records {
		result[r.ID] = r.Name
	}
	return result, nil
}
