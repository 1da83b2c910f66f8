package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smd-syllabus-api/internal/middleware"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
)

func identityFromContext(c *gin.Context) (models.Identity, error) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return models.Identity{}, appErrors.ErrUnauthorized
	}
	return identity, nil
}
