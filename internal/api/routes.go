package api

import (
	"coachdesk/coaching-app/internal/domain"
	"coachdesk/coaching-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	coachService service.CoachService,
	planService service.PlanService,
	proposalService service.ProposalService,
	publishService service.PublishService,
	materializer service.MaterializerService,
) {
	authHandler := NewAuthHandler(authService)
	coachHandler := NewCoachHandler(coachService, planService, proposalService, publishService, materializer)
	athleteHandler := NewAthleteHandler(publishService, materializer)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Coach Routes ---
		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			// Roster
			coachGroup.POST("/athletes", coachHandler.AddAthleteByEmail)
			coachGroup.GET("/athletes", coachHandler.GetManagedAthletes)

			// Draft plans
			coachGroup.POST("/athletes/:athleteId/plans", coachHandler.CreatePlan)
			coachGroup.GET("/athletes/:athleteId/plans", coachHandler.GetPlansForAthlete)
			coachGroup.GET("/plans/:planId", coachHandler.GetPlan)
			coachGroup.GET("/plans/:planId/sessions", coachHandler.GetSessions)

			// Direct session edits
			coachGroup.PATCH("/sessions/:sessionId", coachHandler.UpdateSession)
			coachGroup.DELETE("/sessions/:sessionId", coachHandler.DeleteSession)

			// Locks
			coachGroup.PUT("/sessions/:sessionId/lock", coachHandler.SetSessionLock)
			coachGroup.PUT("/plans/:planId/weeks/:week/lock", coachHandler.SetWeekLock)

			// Proposal lifecycle
			coachGroup.POST("/plans/:planId/proposals", coachHandler.CreateProposal)
			coachGroup.GET("/plans/:planId/proposals", coachHandler.GetProposals)
			coachGroup.POST("/plans/:planId/proposals/batch-approve", coachHandler.BatchApproveProposals)
			coachGroup.GET("/proposals/:proposalId/preview", coachHandler.PreviewProposal)
			coachGroup.POST("/proposals/:proposalId/approve", coachHandler.ApproveProposal)
			coachGroup.POST("/proposals/:proposalId/reject", coachHandler.RejectProposal)
			coachGroup.POST("/proposals/:proposalId/undo", coachHandler.UndoProposal)
			coachGroup.GET("/plans/:planId/audit", coachHandler.GetAuditLog)

			// Publish and calendar
			coachGroup.POST("/plans/:planId/publish", coachHandler.Publish)
			coachGroup.POST("/plans/:planId/materialize", coachHandler.Materialize)
			coachGroup.GET("/plans/:planId/archive-url", coachHandler.GetArchiveDownloadURL)
		}

		// --- Athlete Routes ---
		athleteGroup := protected.Group("/athlete")
		athleteGroup.Use(RoleMiddleware(domain.RoleAthlete))
		{
			athleteGroup.GET("/plans/:planId", athleteHandler.GetPublishedPlan)
			athleteGroup.GET("/plans/:planId/changes", athleteHandler.GetChanges)
			athleteGroup.POST("/plans/:planId/ack", athleteHandler.AckChanges)
			athleteGroup.GET("/calendar", athleteHandler.GetCalendar)
		}
	}
}
