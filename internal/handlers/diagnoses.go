package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clinicdesk/internal/repository"
)

type createDiagnosisRequest struct {
	PatientID     string `json:"patientId" binding:"required"`
	DiagnosisName string `json:"diagnosisName" binding:"required"`
	Description   string `json:"description"`
	DiagnosisDate string `json:"diagnosisDate"`
}

type updateDiagnosisRequest struct {
	Description string `json:"description"`
}

func (h HandlerSet) ListDiagnoses(c *gin.Context) {
	items, err := h.diagnoses.List(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) CreateDiagnosis(c *gin.Context) {
	var req createDiagnosisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Patient and diagnosis name are required")
		return
	}

	var date time.Time
	if req.DiagnosisDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.DiagnosisDate)
		if err != nil {
			h.badRequest(c, "Diagnosis date must be an RFC 3339 timestamp")
			return
		}
		date = parsed
	}

	created, err := h.diagnoses.Create(c.Request.Context(), repository.NewDiagnosis{
		PatientID:     req.PatientID,
		DiagnosisName: req.DiagnosisName,
		Description:   req.Description,
		DiagnosisDate: date,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h HandlerSet) UpdateDiagnosis(c *gin.Context) {
	var req updateDiagnosisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid diagnosis update")
		return
	}
	updated, err := h.diagnoses.UpdateDescription(c.Request.Context(), c.Param("id"), req.Description)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
