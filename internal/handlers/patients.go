package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicdesk/internal/models"
)

type createPatientRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	BirthDate   string `json:"birthDate"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Email       string `json:"email"`
}

type patientRecord struct {
	Patient      models.Patient       `json:"patient"`
	MedicalTests []models.MedicalTest `json:"medicalTests"`
	Diagnoses    []models.Diagnosis   `json:"diagnoses"`
}

func (h HandlerSet) ListPatients(c *gin.Context) {
	patients, err := h.patients.List(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": patients})
}

func (h HandlerSet) CreatePatient(c *gin.Context) {
	var req createPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "First name, last name and phone number are required")
		return
	}

	created, err := h.patients.Create(c.Request.Context(), models.Patient{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		BirthDate:   req.BirthDate,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h HandlerSet) SearchPatients(c *gin.Context) {
	patients, err := h.patients.SearchByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": patients})
}

// PatientDetail is the staff view of one patient's record.
func (h HandlerSet) PatientDetail(c *gin.Context) {
	h.renderRecord(c, c.Param("id"))
}

// PatientInfo is the patient's own view; the route guard has already matched the id.
func (h HandlerSet) PatientInfo(c *gin.Context) {
	h.renderRecord(c, c.Param("id"))
}

func (h HandlerSet) renderRecord(c *gin.Context, id string) {
	ctx := c.Request.Context()

	patient, err := h.patients.Get(ctx, id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	tests, err := h.medicalTests.ListByPatient(ctx, id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	diagnoses, err := h.diagnoses.ListByPatient(ctx, id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, patientRecord{Patient: patient, MedicalTests: tests, Diagnoses: diagnoses})
}
