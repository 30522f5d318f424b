package model

import "time"

// Patient mirrors one row of the `patients` table. The required columns
// (Name, Identifier, Gender, Birthdate, NationalID) are validated at the
// handler layer before any insert or update.
type Patient struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	Identifier       string    `json:"identifier"`
	Gender           string    `json:"gender"`
	Birthdate        string    `json:"birthdate"`
	NationalID       string    `json:"national_id"`
	Phone            string    `json:"phone,omitempty"`
	Mobile           string    `json:"mobile,omitempty"`
	Address          string    `json:"address,omitempty"`
	Email            string    `json:"email,omitempty"`
	EmergencyContact string    `json:"emergency_contact,omitempty"`
	Relationship     string    `json:"relationship,omitempty"`
	EmergencyPhone   string    `json:"emergency_phone,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// PatientHistory is an immutable snapshot of a patient row, written in the
// same transaction as the update or delete that produced it.
//
// Operation is either "UPDATE" or "DELETE".
type PatientHistory struct {
	HistoryID        uint64    `json:"history_id"`
	PatientID        uint64    `json:"patient_id"`
	Name             string    `json:"name"`
	Identifier       string    `json:"identifier"`
	Gender           string    `json:"gender"`
	Birthdate        string    `json:"birthdate"`
	NationalID       string    `json:"national_id"`
	Phone            string    `json:"phone,omitempty"`
	Mobile           string    `json:"mobile,omitempty"`
	Address          string    `json:"address,omitempty"`
	Email            string    `json:"email,omitempty"`
	EmergencyContact string    `json:"emergency_contact,omitempty"`
	Relationship     string    `json:"relationship,omitempty"`
	EmergencyPhone   string    `json:"emergency_phone,omitempty"`
	EditDate         time.Time `json:"edit_date"`
	Operation        string    `json:"operation"`
}
