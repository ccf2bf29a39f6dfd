package handlers

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clinicdesk/internal/apperr"
	"clinicdesk/internal/models"
	"clinicdesk/internal/repository"
)

const maxUploadBytes = 10 << 20

type createMedicalTestRequest struct {
	PatientID  string `json:"userId" binding:"required"`
	TestTypeID string `json:"testTypeId" binding:"required"`
	TestDate   string `json:"testDate" binding:"required"`
}

func (h HandlerSet) ListMedicalTests(c *gin.Context) {
	items, err := h.medicalTests.List(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) GetMedicalTest(c *gin.Context) {
	test, err := h.medicalTests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

func (h HandlerSet) CreateMedicalTest(c *gin.Context) {
	var req createMedicalTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Patient, test type and date are required")
		return
	}
	created, err := h.medicalTests.Create(c.Request.Context(), repository.NewMedicalTest{
		PatientID:  req.PatientID,
		TestTypeID: req.TestTypeID,
		TestDate:   req.TestDate,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateMedicalTest accepts JSON, or multipart/form-data with an optional "file" part.
func (h HandlerSet) UpdateMedicalTest(c *gin.Context) {
	var (
		update models.MedicalTestUpdate
		file   *models.ResultFile
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+(1<<20))
		if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
			h.badRequest(c, "Upload is too large or malformed")
			return
		}
		update = updateFromForm(c.Request.MultipartForm)

		if fh, err := c.FormFile("file"); err == nil {
			data, err := readUpload(fh)
			if err != nil {
				h.badRequest(c, "Could not read the uploaded file")
				return
			}
			file = &models.ResultFile{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}
		}
	} else if err := c.ShouldBindJSON(&update); err != nil {
		h.badRequest(c, "Invalid medical test update")
		return
	}

	if update.Status != nil && *update.Status != models.MedicalTestPending && *update.Status != models.MedicalTestCompleted {
		h.badRequest(c, "Status must be pending or completed")
		return
	}

	updated, err := h.medicalTests.Update(c.Request.Context(), c.Param("id"), update, file)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h HandlerSet) DeleteMedicalTest(c *gin.Context) {
	if err := h.medicalTests.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) DownloadResult(c *gin.Context) {
	h.sendResult(c, c.Param("id"))
}

// DownloadOwnResult serves a patient's result only if the test belongs to them.
func (h HandlerSet) DownloadOwnResult(c *gin.Context) {
	test, err := h.medicalTests.Get(c.Request.Context(), c.Param("testId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if test.UserID.ID != c.Param("id") {
		h.renderError(c, apperr.Auth("This result belongs to another patient"))
		return
	}
	h.sendResult(c, test.ID)
}

func (h HandlerSet) sendResult(c *gin.Context, testID string) {
	file, err := h.medicalTests.Download(c.Request.Context(), testID)
	if err != nil && len(file.Data) == 0 {
		h.renderError(c, err)
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Str("test_id", testID).Msg("result not archived")
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	c.Data(http.StatusOK, contentType, file.Data)
}

func updateFromForm(form *multipart.Form) models.MedicalTestUpdate {
	var u models.MedicalTestUpdate
	value := func(key string) *string {
		if vs, ok := form.Value[key]; ok && len(vs) > 0 {
			v := vs[0]
			return &v
		}
		return nil
	}

	u.TestTypeID = value("testTypeId")
	u.TestDate = value("testDate")
	u.Result = value("result")
	u.Recommendations = value("recommendations")
	if s := value("status"); s != nil {
		status := models.MedicalTestStatus(*s)
		u.Status = &status
	}
	return u
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
}
