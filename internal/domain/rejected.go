package domain

// RejectedRow is a row that failed structural decoding or validation,
// reported through the errors companion document instead of being persisted.
type RejectedRow struct {
	RowIndex int      `json:"rowIndex"`
	RawLine  string   `json:"rawLine"`
	Errors   []string `json:"errors"`
}

// RowOutcome is the per-row result of the streaming processor. Exactly one of
// Record or Rejected is non-nil.
type RowOutcome struct {
	Record   *CanonicalRecord
	Rejected *RejectedRow
}
