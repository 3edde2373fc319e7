package domain

// Status is the ledger state of an inbound file.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether the file needs no further processing attempts.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}
