package testinfra

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"staffhub/authority"
	"staffhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// BuildSession builds an authenticated session for tests
func BuildSession(uid types.ID, roles ...string) *session.Session {
	return &session.Session{
		Identity: session.Identity{ID: uid, Name: "user" + uid.String()},
		Perms:    authority.Permissions(roles),
		Context:  context.Background(),
	}
}

func ExecuteRequest(req *http.Request, engine *gin.Engine) (int, string, error) {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}
