package models

import (
	"encoding/json"
	"time"
)

type UserRole string

const (
	UserRoleNone  UserRole = ""
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// Credential is sent to the auth API and never persisted.
type Credential struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type RegisterInput struct {
	LastName    string `json:"lastName"`
	FirstName   string `json:"firstName"`
	BirthDate   string `json:"birthDate"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// Profile is the backend's canonical view of the signed-in user.
type Profile struct {
	ID          string   `json:"id"`
	Role        UserRole `json:"role"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	PhoneNumber string   `json:"phoneNumber"`
	Email       string   `json:"email"`
	BirthDate   string   `json:"birthDate,omitempty"`
}

// UnmarshalJSON accepts both "id" and the document-store "_id".
func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Profile(aux.plain)
	if p.ID == "" {
		p.ID = aux.MongoID
	}
	return nil
}

// Session is derived from the token and the profile; it lives in memory only.
type Session struct {
	ID                   string    `json:"id"`
	Role                 UserRole  `json:"role"`
	PhoneNumberOrSubject string    `json:"phoneNumber"`
	ExpiresAt            time.Time `json:"expiresAt"`
}

func (s Session) IsPatient() bool {
	return s.Role == UserRoleUser
}
