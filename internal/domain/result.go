package domain

// Candidate is a generated address and its position in the pattern priority list.
type Candidate struct {
	Address string `json:"address"`
	Rank    int    `json:"rank"`
}

// Reason explains why a resolution produced no address.
type Reason string

// Resolution failure reasons.
const (
	ReasonNone          Reason = ""
	ReasonInvalidInput  Reason = "invalid_input"
	ReasonInvalidDomain Reason = "invalid_domain"
	ReasonUnconfigured  Reason = "unconfigured"
	ReasonTokenFailed   Reason = "token_failed"
	ReasonNoCandidates  Reason = "no_candidates"
	ReasonNoDeliverable Reason = "no_deliverable"
	ReasonCanceled      Reason = "canceled"
)

// Result is the outcome of a single resolution. When Found is false only
// Reason is meaningful.
type Result struct {
	Address   string
	Status    string
	Found     bool
	Reason    Reason
	Candidate Candidate
}

// Found returns a successful result for the given candidate.
func Found(c Candidate, status string) Result {
	return Result{
		Address:   c.Address,
		Status:    status,
		Found:     true,
		Candidate: c,
	}
}

// NotFound returns an absent result.
func NotFound(reason Reason) Result {
	return Result{Reason: reason}
}
