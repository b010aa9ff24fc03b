package account

import (
	"context"
	"errors"
	"staffhub/authority"
	"staffhub/bizerror"
	"staffhub/codes"
	"staffhub/department"
	"staffhub/idgen"
	"staffhub/persistence"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
	"golang.org/x/crypto/bcrypt"
)

var (
	userIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateEmployeeFunc  = CreateEmployee
	QueryEmployeesFunc  = QueryEmployees
	DeleteEmployeeFunc  = DeleteEmployee
	UpdateSalaryFunc    = UpdateSalary
	QueryMonthlyPayFunc = QueryMonthlyPay
	LoadPermFunc        = LoadPerm

	// UserDeleteCascadeFuncs are invoked inside the employee deletion transaction,
	// other packages register cleanup of their user-owned records here
	UserDeleteCascadeFuncs []func(userId types.ID, tx *gorm.DB) error
)

func init() {
	department.DepartmentDeleteCheckFuncs = append(department.DepartmentDeleteCheckFuncs,
		func(d department.Department, tx *gorm.DB) error {
			count := 0
			if err := tx.Model(&User{}).Where("department_id = ?", d.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return bizerror.ErrConflict
			}
			return nil
		})
}

func HashSecret(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CompareSecret(hashed, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}

// LoadPerm computes the permission set of an account. A user in forced password reset only
// carries the reset perm until the new secret is set.
func LoadPerm(u *User) authority.Permissions {
	if u.PasswordResetRequired {
		return authority.Permissions{authority.PermResetSecret}
	}
	return authority.Permissions{u.Role}
}

func IdentityOf(u *User) session.Identity {
	return session.Identity{ID: u.ID, Identifier: u.Identifier, Name: u.Name,
		Nickname: u.Nickname, Role: u.Role}
}

func CreateEmployee(c *EmployeeCreation, sec *session.Session) (*User, error) {
	if !sec.Perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr) {
		return nil, bizerror.ErrForbidden
	}

	secret, err := HashSecret(c.Password)
	if err != nil {
		return nil, err
	}

	user := User{ID: idgen.NextID(userIdWorker), Email: c.Email, Secret: secret,
		Name: c.Name, Nickname: c.Nickname, Role: c.Role, DepartmentID: c.DepartmentID,
		SalaryBasic: c.SalaryBasic, SalaryAllowance: c.SalaryAllowance,
		CreateTime: types.CurrentTimestamp()}

	txErr := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		existed := User{}
		err := tx.Where("email = ?", c.Email).First(&existed).Error
		if err == nil {
			return bizerror.ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Where(&department.Department{ID: c.DepartmentID}).
			First(&department.Department{}).Error; err != nil {
			return err
		}

		identifier, err := codes.NextCode(tx, "employee:"+c.Role, roleCodePrefixes[c.Role])
		if err != nil {
			return err
		}
		user.Identifier = identifier

		return tx.Create(&user).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return &user, nil
}

func QueryEmployees(sec *session.Session) ([]UserDetail, error) {
	if !sec.Perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr) {
		return nil, bizerror.ErrForbidden
	}

	var users []User
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	if err := db.Order("identifier ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	departmentIds := make([]types.ID, 0, len(users))
	for _, u := range users {
		departmentIds = append(departmentIds, u.DepartmentID)
	}
	departmentNames, err := department.QueryDepartmentNames(departmentIds)
	if err != nil {
		return nil, err
	}

	details := make([]UserDetail, 0, len(users))
	for _, u := range users {
		details = append(details, UserDetail{User: u, DepartmentName: departmentNames[u.DepartmentID]})
	}
	return details, nil
}

func DeleteEmployee(id types.ID, sec *session.Session) error {
	if !sec.Perms.HasRole(authority.RoleAdmin) {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		user := User{}
		if err := tx.Where(&User{ID: id}).First(&user).Error; err != nil {
			return err
		}
		for _, f := range UserDeleteCascadeFuncs {
			if err := f(id, tx); err != nil {
				return err
			}
		}
		return tx.Delete(User{}, "id = ?", id).Error
	})
}

func UpdateSalary(id types.ID, u *SalaryUpdating, sec *session.Session) (*User, error) {
	if !sec.Perms.HasRole(authority.RoleAdmin) {
		return nil, bizerror.ErrForbidden
	}

	var updated User
	txErr := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&User{ID: id}).First(&User{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&User{}).Where("id = ?", id).
			Updates(map[string]interface{}{"salary_basic": u.SalaryBasic, "salary_allowance": u.SalaryAllowance}).Error; err != nil {
			return err
		}
		return tx.Where(&User{ID: id}).First(&updated).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return &updated, nil
}

func QueryMonthlyPay(sec *session.Session) ([]MonthlyPayEntry, error) {
	if !sec.Perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr) {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	rows, err := db.Model(&User{}).
		Select("department_id, count(*) as employee_count, sum(salary_basic + salary_allowance) as total_pay").
		Group("department_id").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []MonthlyPayEntry{}
	departmentIds := []types.ID{}
	for rows.Next() {
		entry := MonthlyPayEntry{}
		if err := rows.Scan(&entry.DepartmentID, &entry.EmployeeCount, &entry.TotalPay); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		departmentIds = append(departmentIds, entry.DepartmentID)
	}

	departmentNames, err := department.QueryDepartmentNames(departmentIds)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].DepartmentName = departmentNames[entries[i].DepartmentID]
	}
	return entries, nil
}

func QueryAccountNames(ids []types.ID) (map[types.ID]string, error) {
	if len(ids) == 0 {
		return map[types.ID]string{}, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	var records []User
	if err := db.Model(&User{}).Where("id IN (?)", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	result := map[types.ID]string{}
	for _, r := range records {
		result[r.ID] = r.DisplayName()
	}
	return result, nil
}
