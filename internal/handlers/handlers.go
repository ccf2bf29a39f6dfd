package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinicdesk/internal/app"
	"clinicdesk/internal/apperr"
	"clinicdesk/internal/config"
	"clinicdesk/internal/guard"
	"clinicdesk/internal/middleware"
	"clinicdesk/internal/models"
	"clinicdesk/internal/repository"
	"clinicdesk/internal/service"
	"clinicdesk/internal/session"
	"clinicdesk/internal/tokenstore"
)

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	store        tokenstore.Store
	auth         *service.AuthService
	sessions     *session.Manager
	guard        *guard.Guard
	patients     *repository.PatientRepository
	testTypes    *repository.TestTypeRepository
	medicalTests *repository.MedicalTestRepository
	diagnoses    *repository.DiagnosisRepository
}

func NewHandlerSet(a *app.App) HandlerSet {
	return HandlerSet{
		log:          a.Log,
		cfg:          a.Config,
		store:        a.Store,
		auth:         a.Auth,
		sessions:     a.Sessions,
		guard:        a.Guard,
		patients:     a.Patients,
		testTypes:    a.TestTypes,
		medicalTests: a.MedicalTests,
		diagnoses:    a.Diagnoses,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.Use(middleware.Session(h.sessions))

	router.GET("/healthz", h.Health)

	router.GET("/login", h.LoginScreen)
	router.POST("/login", h.Login)
	router.POST("/register", h.SignUp)
	router.POST("/logout", h.Logout)
	router.GET("/me", h.Me)

	admin := router.Group("")
	admin.Use(middleware.Guard(h.guard, models.UserRoleAdmin))
	{
		admin.GET("/patients", h.ListPatients)
		admin.POST("/patients", h.CreatePatient)
		admin.GET("/patients/search/:phone", h.SearchPatients)
		admin.GET("/patientDetail/:id", h.PatientDetail)

		admin.GET("/test-types", h.ListTestTypes)
		admin.POST("/test-types", h.CreateTestType)
		admin.PUT("/test-types/:id", h.UpdateTestType)
		admin.DELETE("/test-types/:id", h.DeleteTestType)

		admin.GET("/medical-tests", h.ListMedicalTests)
		admin.POST("/medical-tests", h.CreateMedicalTest)
		admin.GET("/medical-tests/:id", h.GetMedicalTest)
		admin.PATCH("/medical-tests/:id", h.UpdateMedicalTest)
		admin.DELETE("/medical-tests/:id", h.DeleteMedicalTest)
		admin.GET("/medical-tests/:id/download", h.DownloadResult)

		admin.GET("/diagnoses", h.ListDiagnoses)
		admin.POST("/diagnoses", h.CreateDiagnosis)
		admin.PUT("/diagnoses/:id", h.UpdateDiagnosis)
	}

	patient := router.Group("/info/:id")
	patient.Use(middleware.PatientGuard(h.guard, "id"))
	{
		patient.GET("", h.PatientInfo)
		patient.GET("/results/:testId", h.DownloadOwnResult)
	}
}

// renderError answers with the normalized {message} shape.
func (h HandlerSet) renderError(c *gin.Context, err error) {
	e := apperr.Normalize(err)
	if e.Kind == apperr.KindTransport {
		h.log.Error().Err(e.Unwrap()).Str("path", c.Request.URL.Path).Msg("backend call failed")
	}
	c.JSON(apperr.HTTPStatus(e), gin.H{"message": e.Error()})
}

func (h HandlerSet) badRequest(c *gin.Context, message string) {
	h.renderError(c, apperr.Validation(message))
}
