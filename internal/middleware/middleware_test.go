package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
	"github.com/noah-isme/smd-syllabus-api/pkg/logger"
)

type validatorStub map[string]*models.JWTClaims

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	handlers = append(handlers, func(c *gin.Context) {
		identity, _ := IdentityFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": identity.UserID, "actor": c.GetString(logger.ActorKey)})
	})
	router.GET("/users/:userId", handlers...)
	return router
}

func perform(router *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	validator := validatorStub{"good": {UserID: "lect-1", Role: models.RoleLecturer}}
	router := newRouter(JWT(validator))

	assert.Equal(t, http.StatusUnauthorized, perform(router, "/users/x", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(router, "/users/x", "Basic good").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(router, "/users/x", "Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(router, "/users/x", "Bearer bad").Code)

	w := perform(router, "/users/x", "bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"lect-1","actor":"lect-1"}`, w.Body.String())
}

func TestRBAC(t *testing.T) {
	validator := validatorStub{
		"lect": {UserID: "lect-1", Role: models.RoleLecturer},
		"hod":  {UserID: "hod-1", Role: models.RoleHOD},
		"stu":  {UserID: "stu-1", Role: models.RoleStudent},
	}
	router := newRouter(JWT(validator), RBAC(string(models.RoleHOD), SelfParam))

	assert.Equal(t, http.StatusOK, perform(router, "/users/anyone", "Bearer hod").Code)
	assert.Equal(t, http.StatusOK, perform(router, "/users/lect-1", "Bearer lect").Code)
	assert.Equal(t, http.StatusForbidden, perform(router, "/users/lect-9", "Bearer lect").Code)

	denyStudents := newRouter(JWT(validator), DenyRoles(models.RoleStudent))
	assert.Equal(t, http.StatusForbidden, perform(denyStudents, "/users/x", "Bearer stu").Code)
	assert.Equal(t, http.StatusOK, perform(denyStudents, "/users/x", "Bearer lect").Code)

	noIdentity := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, perform(noIdentity, "/users/x", "").Code)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	assert.Nil(t, ExtractMeta(c))

	WithResponseMeta()(c)
	SetMeta(c, "actions", []string{"submit"})
	meta := ExtractMeta(c)
	assert.Equal(t, []string{"submit"}, meta["actions"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "started_at")
}
