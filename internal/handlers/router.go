package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalhub/survey-builder-service/internal/services"
	"github.com/evalhub/survey-builder-service/internal/utils"
)

// HandlerManager wires every HTTP handler with its service and registers routes.
type HandlerManager struct {
	templateHandler       *TemplateHandler
	questionHandler       *QuestionHandler
	administrationHandler *AdministrationHandler
	publicHandler         *PublicHandler
	resultsHandler        *ResultsHandler
	logger                utils.Logger
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		templateHandler:       NewTemplateHandler(serviceManager.Template(), logger),
		questionHandler:       NewQuestionHandler(serviceManager.Question(), logger),
		administrationHandler: NewAdministrationHandler(serviceManager.Administration(), logger),
		publicHandler:         NewPublicHandler(serviceManager.PublicTest(), logger),
		resultsHandler:        NewResultsHandler(serviceManager.Results(), logger),
		logger:                logger,
	}
}

// SetupRoutes registers all API routes on the router.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")

	templates := v1.Group("/templates")
	{
		templates.POST("", hm.templateHandler.CreateTemplate)
		templates.GET("", hm.templateHandler.ListTemplates)
		templates.GET("/:id", hm.templateHandler.GetTemplate)
		templates.PUT("/:id", hm.templateHandler.UpdateTemplate)
		templates.DELETE("/:id", hm.templateHandler.DeleteTemplate)

		templates.POST("/:id/versions", hm.templateHandler.CreateVersion)
		templates.GET("/:id/versions", hm.templateHandler.ListVersions)
	}

	versions := v1.Group("/versions")
	{
		versions.PUT("/:version_id", hm.templateHandler.UpdateVersion)
		versions.DELETE("/:version_id", hm.templateHandler.DeleteVersion)
		versions.POST("/:version_id/publish", hm.templateHandler.PublishVersion)

		versions.POST("/:version_id/questions", hm.questionHandler.CreateQuestion)
		versions.GET("/:version_id/questions", hm.questionHandler.ListQuestions)
		versions.PUT("/:version_id/questions/reorder", hm.questionHandler.ReorderQuestions)
	}

	questions := v1.Group("/questions")
	{
		questions.GET("/:id", hm.questionHandler.GetQuestion)
		questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
		questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)

		questions.POST("/:id/options", hm.questionHandler.CreateOption)
		questions.GET("/:id/options", hm.questionHandler.ListOptions)
		questions.PUT("/:id/options/reorder", hm.questionHandler.ReorderOptions)
	}

	options := v1.Group("/options")
	{
		options.PUT("/:option_id", hm.questionHandler.UpdateOption)
		options.DELETE("/:option_id", hm.questionHandler.DeleteOption)
	}

	periods := v1.Group("/periods")
	{
		periods.POST("", hm.administrationHandler.CreatePeriod)
		periods.GET("", hm.administrationHandler.ListPeriods)
		periods.PUT("/:id", hm.administrationHandler.UpdatePeriod)
		periods.DELETE("/:id", hm.administrationHandler.DeletePeriod)
	}

	tests := v1.Group("/tests")
	{
		tests.POST("", hm.administrationHandler.CreateTest)
		tests.GET("", hm.administrationHandler.ListTests)
		tests.GET("/:id", hm.administrationHandler.GetTest)
		tests.PUT("/:id", hm.administrationHandler.UpdateTest)
		tests.DELETE("/:id", hm.administrationHandler.DeleteTest)
	}

	// Student-facing endpoints, no authentication. The access code is
	// the only credential.
	public := v1.Group("/public/tests")
	{
		public.GET("/:code", hm.publicHandler.LookupTest)
		public.POST("/:code/start", hm.publicHandler.StartTest)
		public.POST("/:code/submit", hm.publicHandler.SubmitTest)
	}

	results := v1.Group("/results")
	{
		results.GET("", hm.resultsHandler.ListResults)
		results.GET("/filters", hm.resultsHandler.GetFilterOptions)
		results.GET("/export", hm.resultsHandler.ExportResults)
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "survey-builder-service",
	})
}
