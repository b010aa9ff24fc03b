package department

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"staffhub/bizerror"
	"staffhub/session"
	"staffhub/testinfra"
	"testing"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func TestHandleCreateDepartment(t *testing.T) {
	RegisterTestingT(t)

	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	RegisterDepartmentsRestAPI(router)

	t.Run("should reject invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, PathDepartments, bytes.NewReader([]byte(`{}`)))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(ContainSubstring("common.bad_param"))
	})

	t.Run("should create department successfully", func(t *testing.T) {
		CreateDepartmentFunc = func(d DepartmentCreation, sec *session.Session) (*Department, error) {
			return &Department{ID: 100, Name: d.Name}, nil
		}
		defer func() { CreateDepartmentFunc = CreateDepartment }()

		req := httptest.NewRequest(http.MethodPost, PathDepartments, bytes.NewReader([]byte(`{"name": "R&D"}`)))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`{"id":"100", "name":"R&D", "creatorId":"0", "createTime":null}`))
	})

	t.Run("should map conflict error", func(t *testing.T) {
		CreateDepartmentFunc = func(d DepartmentCreation, sec *session.Session) (*Department, error) {
			return nil, bizerror.ErrConflict
		}
		defer func() { CreateDepartmentFunc = CreateDepartment }()

		req := httptest.NewRequest(http.MethodPost, PathDepartments, bytes.NewReader([]byte(`{"name": "R&D"}`)))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusConflict))
		Expect(body).To(MatchJSON(`{"code":"common.conflict", "message":"conflict", "data":null}`))
	})
}

func TestHandleQueryDepartments(t *testing.T) {
	RegisterTestingT(t)

	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	RegisterDepartmentsRestAPI(router)

	t.Run("should return department list", func(t *testing.T) {
		QueryDepartmentsFunc = func(sec *session.Session) ([]Department, error) {
			return []Department{{ID: 1, Name: "HR"}, {ID: 2, Name: "R&D"}}, nil
		}
		defer func() { QueryDepartmentsFunc = QueryDepartments }()

		req := httptest.NewRequest(http.MethodGet, PathDepartments, nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`[{"id":"1","name":"HR","creatorId":"0","createTime":null},
			{"id":"2","name":"R&D","creatorId":"0","createTime":null}]`))
	})

	t.Run("should map unexpected errors", func(t *testing.T) {
		QueryDepartmentsFunc = func(sec *session.Session) ([]Department, error) {
			return nil, errors.New("some error")
		}
		defer func() { QueryDepartmentsFunc = QueryDepartments }()

		req := httptest.NewRequest(http.MethodGet, PathDepartments, nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusInternalServerError))
		Expect(body).To(MatchJSON(`{"code":"common.internal_server_error", "message":"some error", "data":null}`))
	})
}

func TestHandleDeleteDepartment(t *testing.T) {
	RegisterTestingT(t)

	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	RegisterDepartmentsRestAPI(router)

	t.Run("should reject invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, PathDepartments+"/abc", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(MatchJSON(`{"code":"common.bad_param", "message":"invalid id 'abc'", "data":null}`))
	})

	t.Run("should delete department successfully", func(t *testing.T) {
		var deletedId types.ID
		DeleteDepartmentFunc = func(id types.ID, sec *session.Session) error {
			deletedId = id
			return nil
		}
		defer func() { DeleteDepartmentFunc = DeleteDepartment }()

		req := httptest.NewRequest(http.MethodDelete, PathDepartments+"/123", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusNoContent))
		Expect(body).To(BeEmpty())
		Expect(deletedId).To(Equal(types.ID(123)))
	})
}
