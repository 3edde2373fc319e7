package domain

// RawRow is one partner CSV row exactly as decoded, before any validation.
// Columns are matched by header name, order-independent.
type RawRow struct {
	Id           string `csv:"id"`
	PatientId    string `csv:"patient_id"`
	DocType      string `csv:"doc_type"`
	DocDate      string `csv:"doc_date"`
	Description  string `csv:"description"`
	SourceSystem string `csv:"source_system"`
}
