package account

import (
	"staffhub/authority"

	"github.com/fundwit/go-commons/types"
)

type User struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Identifier string `json:"identifier" gorm:"unique_index:uni_user_identifier"`
	Email      string `json:"email" gorm:"unique_index:uni_user_email"`
	Secret     string `json:"-"`

	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`

	DepartmentID types.ID `json:"departmentId"`

	SalaryBasic     float64 `json:"salaryBasic"`
	SalaryAllowance float64 `json:"salaryAllowance"`

	ProfileCompleted      bool `json:"profileCompleted"`
	PasswordResetRequired bool `json:"passwordResetRequired"`

	ResetCode         string          `json:"-"`
	ResetCodeSignTime types.Timestamp `json:"-" sql:"type:DATETIME(6)"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

type UserDetail struct {
	User

	DepartmentName string `json:"departmentName" gorm:"-"`
}

type EmployeeCreation struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,gte=6"`

	Name     string `json:"name" binding:"required,lte=60"`
	Nickname string `json:"nickname" binding:"lte=60"`
	Role     string `json:"role" binding:"required,oneof=admin hr pm employee"`

	DepartmentID types.ID `json:"departmentId" binding:"required"`

	SalaryBasic     float64 `json:"salaryBasic"`
	SalaryAllowance float64 `json:"salaryAllowance"`
}

type SalaryUpdating struct {
	SalaryBasic     float64 `json:"salaryBasic" binding:"gte=0"`
	SalaryAllowance float64 `json:"salaryAllowance" binding:"gte=0"`
}

type BasicAuthUpdating struct {
	OriginalSecret string `json:"originalSecret" binding:"required"`
	NewSecret      string `json:"newSecret" binding:"required,gte=6"`
}

type SecretResetting struct {
	NewSecret string `json:"newSecret" binding:"required,gte=6"`
}

type MonthlyPayEntry struct {
	DepartmentID   types.ID `json:"departmentId"`
	DepartmentName string   `json:"departmentName"`
	EmployeeCount  int      `json:"employeeCount"`
	TotalPay       float64  `json:"totalPay"`
}

// identifier prefix per role, e.g. the first hr account is HRM001
var roleCodePrefixes = map[string]string{
	authority.RoleAdmin:    "ADM",
	authority.RoleHr:       "HRM",
	authority.RolePm:       "PMG",
	authority.RoleEmployee: "EMP",
}
