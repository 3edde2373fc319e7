package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/galenhq/partner_ingest/internal/domain"
)

const (
	maxFieldLength       = 500
	maxDescriptionLength = 1000
)

// docDateLayouts are tried in order; parsing is locale-invariant by
// construction.
var docDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// validateRow converts one raw row into a canonical record or the full list
// of violations. Rules are evaluated independently; the first error does not
// short-circuit the rest. Pure function, no I/O. SourceFile is attached by
// the caller.
func validateRow(raw domain.RawRow, rowIndex int) (*domain.CanonicalRecord, []string) {
	var errs []string

	id := strings.TrimSpace(raw.Id)
	switch {
	case id == "":
		errs = append(errs, "Id is required")
	case len(id) > maxFieldLength:
		errs = append(errs, fmt.Sprintf("Id exceeds max length (%d)", maxFieldLength))
	}

	patientID := strings.TrimSpace(raw.PatientId)
	switch {
	case patientID == "":
		errs = append(errs, "PatientId is required")
	case len(patientID) > maxFieldLength:
		errs = append(errs, fmt.Sprintf("PatientId exceeds max length (%d)", maxFieldLength))
	}

	docType := strings.TrimSpace(raw.DocType)
	if docType != "" && !allowedDocType(docType) {
		errs = append(errs, "DocType must be one of: "+strings.Join(domain.AllowedDocTypes, ", "))
	}
	if docType == "" {
		docType = "Other"
	}

	var docDate *time.Time
	if dateText := strings.TrimSpace(raw.DocDate); dateText != "" {
		parsed, ok := parseDocDate(dateText)
		if !ok {
			errs = append(errs, "DocDate must be a valid date")
		} else {
			docDate = &parsed
		}
	}

	description := strings.TrimSpace(raw.Description)
	if len(description) > maxDescriptionLength {
		errs = append(errs, fmt.Sprintf("Description exceeds max length (%d)", maxDescriptionLength))
	}

	sourceSystem := strings.TrimSpace(raw.SourceSystem)
	if len(sourceSystem) > maxFieldLength {
		errs = append(errs, fmt.Sprintf("SourceSystem exceeds max length (%d)", maxFieldLength))
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &domain.CanonicalRecord{
		ExternalId:        id,
		PatientIdentifier: patientID,
		DocumentType:      docType,
		DocumentDate:      docDate,
		Description:       description,
		SourceSystem:      sourceSystem,
		SourceRowIndex:    rowIndex,
	}, nil
}

func allowedDocType(docType string) bool {
	for _, allowed := range domain.AllowedDocTypes {
		if strings.EqualFold(docType, allowed) {
			return true
		}
	}
	return false
}

func parseDocDate(text string) (time.Time, bool) {
	for _, layout := range docDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
