package services

// Reason names the step at which an auth decision was made.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissingHeader
	ReasonMalformedHeader
	ReasonInvalidToken
	ReasonUserNotFound
	ReasonNotAdmin
	ReasonStoreError
	ReasonTokenMismatch
	ReasonNotPersisted
	ReasonIssueFailed
	ReasonBadCredentials
	ReasonValidation
)

var reasonNames = [...]string{
	ReasonNone:            "ok",
	ReasonMissingHeader:   "missing_header",
	ReasonMalformedHeader: "malformed_header",
	ReasonInvalidToken:    "invalid_token",
	ReasonUserNotFound:    "user_not_found",
	ReasonNotAdmin:        "not_admin",
	ReasonStoreError:      "store_error",
	ReasonTokenMismatch:   "token_mismatch",
	ReasonNotPersisted:    "not_persisted",
	ReasonIssueFailed:     "issue_failed",
	ReasonBadCredentials:  "bad_credentials",
	ReasonValidation:      "validation",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return "unknown"
	}
	return reasonNames[r]
}

// Decision is the outcome of an auth check. Public operations only expose
// Accepted; Reason feeds logs and metrics.
type Decision struct {
	Accepted bool
	Reason   Reason
}

func accept() Decision { return Decision{Accepted: true} }

func reject(r Reason) Decision { return Decision{Reason: r} }
