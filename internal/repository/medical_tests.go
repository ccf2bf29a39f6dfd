package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"clinicdesk/internal/api"
	"clinicdesk/internal/apperr"
	"clinicdesk/internal/media/sniffer"
	"clinicdesk/internal/media/svg"
	"clinicdesk/internal/models"
	"clinicdesk/internal/storage"
)

const (
	defaultDownloadName = "download"
	maxResultFileSize   = 10 << 20
)

var ErrUnsupportedResult = apperr.Validation("Result file must be a PDF or an image")

type MedicalTestRepository struct {
	client  Doer
	archive storage.Archive
	now     func() time.Time
}

// NewMedicalTestRepository wires the repository; archive may be nil, in which case
// downloads are not kept.
func NewMedicalTestRepository(client Doer, archive storage.Archive) *MedicalTestRepository {
	return &MedicalTestRepository{client: client, archive: archive, now: time.Now}
}

func testPath(id string) string {
	return "medical-tests/" + url.PathEscape(id)
}

func (r *MedicalTestRepository) List(ctx context.Context) ([]models.MedicalTest, error) {
	var out []models.MedicalTest
	if err := r.client.Do(ctx, authed(http.MethodGet, "medical-tests/", nil), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MedicalTestRepository) Get(ctx context.Context, id string) (models.MedicalTest, error) {
	var out models.MedicalTest
	if err := r.client.Do(ctx, authed(http.MethodGet, testPath(id), nil), &out); err != nil {
		return models.MedicalTest{}, err
	}
	return out, nil
}

func (r *MedicalTestRepository) ListByPatient(ctx context.Context, patientID string) ([]models.MedicalTest, error) {
	var out []models.MedicalTest
	if err := r.client.Do(ctx, authed(http.MethodGet, "medical-tests/patient/"+url.PathEscape(patientID), nil), &out); err != nil {
		return nil, err
	}
	return out, nil
}

type NewMedicalTest struct {
	PatientID  string
	TestTypeID string
	TestDate   string
}

func (r *MedicalTestRepository) Create(ctx context.Context, in NewMedicalTest) (models.MedicalTest, error) {
	body := models.MedicalTest{
		UserID:     models.RefTo(in.PatientID),
		TestTypeID: models.RefTo(in.TestTypeID),
		TestDate:   in.TestDate,
		Status:     models.MedicalTestPending,
	}

	var created models.MedicalTest
	if err := r.client.Do(ctx, authed(http.MethodPost, "medical-tests/", body), &created); err != nil {
		return models.MedicalTest{}, err
	}
	return created, nil
}

// Update patches a test. With a file the update goes out as multipart/form-data; the file
// is sniffed first and SVGs are stripped of scripts.
func (r *MedicalTestRepository) Update(ctx context.Context, id string, update models.MedicalTestUpdate, file *models.ResultFile) (models.MedicalTest, error) {
	req := authed(http.MethodPatch, testPath(id), update)
	if file != nil {
		prepared, err := PrepareResult(*file)
		if err != nil {
			return models.MedicalTest{}, err
		}
		req.Body = nil
		req.Multipart = &api.MultipartBody{
			Fields:   updateFields(update),
			FileName: prepared.Name,
			FileType: prepared.ContentType,
			File:     prepared.Data,
		}
	}

	var updated models.MedicalTest
	if err := r.client.Do(ctx, req, &updated); err != nil {
		return models.MedicalTest{}, err
	}
	return updated, nil
}

func (r *MedicalTestRepository) Delete(ctx context.Context, id string) error {
	return r.client.Do(ctx, authed(http.MethodDelete, testPath(id), nil), nil)
}

// Download fetches the result file and, when an archive is configured, keeps a copy.
func (r *MedicalTestRepository) Download(ctx context.Context, id string) (models.ResultFile, error) {
	resp, err := r.client.Fetch(ctx, authed(http.MethodGet, testPath(id)+"/download", nil))
	if err != nil {
		return models.ResultFile{}, err
	}

	file := models.ResultFile{
		Name:        api.DispositionFilename(resp.Header, defaultDownloadName),
		ContentType: sniffer.ContentType(resp.Header),
		Data:        resp.Body,
	}
	if file.ContentType == "" {
		if detected, err := sniffer.Detect(file.Data); err == nil {
			file.ContentType = detected.MIME
		}
	}

	if r.archive != nil {
		key, err := storage.Key(id, file.Name, r.now())
		if err != nil {
			return file, apperr.Transport(apperr.DefaultMessage, err)
		}
		if err := r.archive.Put(ctx, key, file); err != nil {
			return file, apperr.Transport(apperr.DefaultMessage, fmt.Errorf("archive result: %w", err))
		}
	}
	return file, nil
}

// PrepareResult validates an upload by content and normalizes its name and type.
func PrepareResult(file models.ResultFile) (models.ResultFile, error) {
	if len(file.Data) == 0 {
		return models.ResultFile{}, apperr.Validation("Result file is empty")
	}
	if len(file.Data) > maxResultFileSize {
		return models.ResultFile{}, apperr.Validation("Result file is larger than 10 MB")
	}

	detected, err := sniffer.Detect(file.Data)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnsupported) {
			return models.ResultFile{}, ErrUnsupportedResult
		}
		return models.ResultFile{}, apperr.Transport(apperr.DefaultMessage, err)
	}

	data := file.Data
	if detected.Kind == sniffer.KindSVG {
		if data, err = svg.Sanitize(data); err != nil {
			return models.ResultFile{}, ErrUnsupportedResult
		}
	}

	name := path.Base(strings.ReplaceAll(file.Name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "result"
	}
	if ext := path.Ext(name); !strings.EqualFold(ext, detected.Extension()) && !(detected.Kind == sniffer.KindJPEG && strings.EqualFold(ext, ".jpeg")) {
		name = strings.TrimSuffix(name, ext) + detected.Extension()
	}

	return models.ResultFile{Name: name, ContentType: detected.MIME, Data: data}, nil
}

func updateFields(u models.MedicalTestUpdate) map[string]string {
	fields := make(map[string]string)
	if u.TestTypeID != nil {
		fields["testTypeId"] = *u.TestTypeID
	}
	if u.TestDate != nil {
		fields["testDate"] = *u.TestDate
	}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.Result != nil {
		fields["result"] = *u.Result
	}
	if u.Recommendations != nil {
		fields["recommendations"] = *u.Recommendations
	}
	return fields
}
