package models

// OutcomeKind is the result of resolving a submission
type OutcomeKind string

const (
	OutcomeCreated  OutcomeKind = "CREATED"
	OutcomeUpdated  OutcomeKind = "UPDATED"
	OutcomeConflict OutcomeKind = "CONFLICT"
	OutcomeRejected OutcomeKind = "REJECTED"
)

// Rejection reasons
const (
	ReasonInvalidIdentity = "INVALID_IDENTITY"
)

// Outcome describes what a submission did. Conflict carries the existing
// record's query id and name; Rejected carries a reason.
type Outcome struct {
	Kind         OutcomeKind
	QueryID      string
	ExistingName string
	Reason       string
}

// StudentStats are the dashboard counters
type StudentStats struct {
	Total   int64 `json:"total" example:"120"`
	Today   int64 `json:"today" example:"3"`
	Deleted int64 `json:"deleted" example:"4"`
}
