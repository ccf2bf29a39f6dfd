package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Ref is a foreign key the backend returns either as a bare id or as the populated document.
type Ref struct {
	ID        string
	Name      string
	FirstName string
	LastName  string
}

func RefTo(id string) Ref {
	return Ref{ID: id}
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}

	var doc struct {
		ID        string `json:"_id"`
		Name      string `json:"name"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*r = Ref{ID: doc.ID, Name: doc.Name, FirstName: doc.FirstName, LastName: doc.LastName}
	return nil
}

// MarshalJSON always writes the bare id, which is what the write endpoints expect.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

type Patient struct {
	ID          string   `json:"_id,omitempty"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	BirthDate   string   `json:"birthDate,omitempty"`
	PhoneNumber string   `json:"phoneNumber"`
	Email       string   `json:"email,omitempty"`
	Role        UserRole `json:"role,omitempty"`
}

type TestType struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
}

type MedicalTestStatus string

const (
	MedicalTestPending   MedicalTestStatus = "pending"
	MedicalTestCompleted MedicalTestStatus = "completed"
)

type MedicalTest struct {
	ID              string            `json:"_id,omitempty"`
	UserID          Ref               `json:"userId"`
	TestTypeID      Ref               `json:"testTypeId"`
	TestDate        string            `json:"testDate"`
	Status          MedicalTestStatus `json:"status,omitempty"`
	Result          string            `json:"result,omitempty"`
	Recommendations string            `json:"recommendations,omitempty"`
	FilePath        string            `json:"filePath,omitempty"`
}

// MedicalTestUpdate carries the fields of a PATCH; nil pointers are left out.
type MedicalTestUpdate struct {
	TestTypeID      *string            `json:"testTypeId,omitempty"`
	TestDate        *string            `json:"testDate,omitempty"`
	Status          *MedicalTestStatus `json:"status,omitempty"`
	Result          *string            `json:"result,omitempty"`
	Recommendations *string            `json:"recommendations,omitempty"`
}

type Diagnosis struct {
	ID            string    `json:"_id,omitempty"`
	PatientID     Ref       `json:"patientId"`
	DiagnosisName string    `json:"diagnosisName"`
	Description   string    `json:"description"`
	DiagnosisDate time.Time `json:"diagnosisDate"`
}

// ResultFile is a medical-test result attachment moving to or from the backend.
type ResultFile struct {
	Name        string
	ContentType string
	Data        []byte
}
