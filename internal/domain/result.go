package domain

// Outcome classifies how one file-processing attempt ended.
type Outcome string

const (
	// OutcomeProcessed means the file ran to completion (it may still have
	// rejected rows).
	OutcomeProcessed Outcome = "processed"
	// OutcomeAlreadyProcessed means the idempotency marker was present and no
	// work was done.
	OutcomeAlreadyProcessed Outcome = "already_processed"
	// OutcomeSkipped means another worker holds the lease for the file.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means processing aborted and the file was quarantined.
	OutcomeFailed Outcome = "failed"
)

// ProcessingResult is the per-file aggregate of one run.
type ProcessingResult struct {
	FileName      string
	Outcome       Outcome
	TotalRowsRead int
	RowsAccepted  int
	RowsRejected  int
	RejectedRows  []*RejectedRow
}

// Succeeded reports whether the run counts as a success: no rejections, or at
// least one accepted row. A file whose rows were all rejected completes
// without error but is reported as failed.
func (r *ProcessingResult) Succeeded() bool {
	return r.RowsRejected == 0 || r.RowsAccepted > 0
}
