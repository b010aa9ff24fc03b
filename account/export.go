package account

import (
	"fmt"
	"net/http"
	"staffhub/session"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

var exportColumns = []string{"Identifier", "Name", "Email", "Role", "Department", "Basic Salary", "Allowance", "Monthly Pay"}

// handleExportEmployees streams the employee directory as a spreadsheet
func handleExportEmployees(c *gin.Context) {
	records, err := QueryEmployeesFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Employees"
	index, err := f.NewSheet(sheet)
	if err != nil {
		panic(err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, name := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			panic(err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			panic(err)
		}
	}

	for row, r := range records {
		values := []interface{}{r.Identifier, r.Name, r.Email, r.Role, r.DepartmentName,
			r.SalaryBasic, r.SalaryAllowance, r.SalaryBasic + r.SalaryAllowance}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				panic(err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				panic(err)
			}
		}
	}

	c.Header("Content-Disposition", `attachment; filename="employees.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		panic(fmt.Errorf("write spreadsheet: %w", err))
	}
	c.Status(http.StatusOK)
}
