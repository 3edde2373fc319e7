package domain

import "time"

// Allowed document types for the doc_type column. Membership is checked
// case-insensitively; the stored value keeps the partner's casing.
var AllowedDocTypes = []string{"Lab", "Radiology", "Clinical", "Administrative", "Other"}

// CanonicalRecord is the normalized target-schema representation of one
// accepted input row. It is constructed only after every validation rule
// passed and is never mutated afterwards. (SourceFile, SourceRowIndex) is the
// natural key used for idempotent persistence.
type CanonicalRecord struct {
	ExternalId        string     `db:"external_id"        json:"external_id"`
	PatientIdentifier string     `db:"patient_identifier" json:"patient_identifier"`
	DocumentType      string     `db:"document_type"      json:"document_type"`
	DocumentDate      *time.Time `db:"document_date"      json:"document_date"`
	Description       string     `db:"description"        json:"description"`
	SourceSystem      string     `db:"source_system"      json:"source_system"`
	SourceFile        string     `db:"source_file"        json:"source_file"`
	SourceRowIndex    int        `db:"source_row_index"   json:"source_row_index"`
}
