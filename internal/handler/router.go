package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smd-syllabus-api/internal/middleware"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

// Routes bundles the handlers mounted under the API prefix.
type Routes struct {
	Syllabi        *SyllabusHandler
	Collaborations *CollaborationHandler
	AITasks        *AITaskHandler
	Auth           middleware.TokenValidator
}

// Register mounts every authenticated API route on group.
func (r Routes) Register(group *gin.RouterGroup) {
	api := group.Group("")
	api.Use(middleware.JWT(r.Auth), middleware.WithResponseMeta())

	syllabi := api.Group("/syllabi")
	syllabi.POST("", middleware.RequireRoles(models.RoleLecturer), r.Syllabi.Create)
	syllabi.GET("", r.Syllabi.List)
	syllabi.GET("/:id", r.Syllabi.Get)
	syllabi.PUT("/:id/content", middleware.RequireRoles(models.RoleLecturer), r.Syllabi.UpdateContent)
	syllabi.POST("/:id/transitions", middleware.DenyRoles(models.RoleStudent), r.Syllabi.Transition)
	syllabi.GET("/:id/history", middleware.DenyRoles(models.RoleStudent), r.Syllabi.History)
	syllabi.GET("/:id/revisions", middleware.DenyRoles(models.RoleStudent), r.Syllabi.Revisions)
	syllabi.GET("/:id/revisions/active", middleware.DenyRoles(models.RoleStudent), r.Syllabi.ActiveRevision)

	manage := middleware.RequireRoles(models.RoleHOD, models.RoleLecturer)
	syllabi.POST("/:id/collaborators", manage, r.Collaborations.Assign)
	syllabi.GET("/:id/collaborators", middleware.DenyRoles(models.RoleStudent), r.Collaborations.ListCollaborators)
	syllabi.DELETE("/:id/collaborators/:userId", manage, r.Collaborations.RemoveCollaborator)
	syllabi.POST("/:id/comments", middleware.DenyRoles(models.RoleStudent), r.Collaborations.AddComment)
	syllabi.GET("/:id/comments", middleware.DenyRoles(models.RoleStudent), r.Collaborations.ListComments)

	api.GET("/collaborations/me", r.Collaborations.MyAssignments)
	api.DELETE("/comments/:id", r.Collaborations.DeleteComment)

	ai := api.Group("/ai/tasks")
	ai.POST("", r.AITasks.Start)
	ai.GET("/:id/status", r.AITasks.Status)
}
