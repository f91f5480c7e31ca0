package domain

// TransferMode selects which backend endpoint family a transfer uses
type TransferMode string

const (
	TransferModeSameInstitution  TransferMode = "SAME_INSTITUTION"
	TransferModeInterInstitution TransferMode = "INTER_INSTITUTION"
)

// Valid reports whether the mode is one of the known modes
func (m TransferMode) Valid() bool {
	return m == TransferModeSameInstitution || m == TransferModeInterInstitution
}

// RequiresRoutingCode reports whether the mode needs a counterparty routing code
func (m TransferMode) RequiresRoutingCode() bool {
	return m == TransferModeInterInstitution
}

// VerificationPhase is the tag of the Verification union
type VerificationPhase string

const (
	VerificationUnverified VerificationPhase = "UNVERIFIED"
	VerificationVerifying  VerificationPhase = "VERIFYING"
	VerificationVerified   VerificationPhase = "VERIFIED"
	VerificationFailed     VerificationPhase = "FAILED"
)

// Verification is the tagged union {Unverified, Verifying, Verified(name), Failed(reason)}.
// DisplayName is only set when Verified; Reason only when Failed.
type Verification struct {
	Phase       VerificationPhase
	DisplayName string
	Reason      string
}

// Unverified returns the zero verification state
func Unverified() Verification {
	return Verification{Phase: VerificationUnverified}
}

// Verifying returns the in-flight verification state
func Verifying() Verification {
	return Verification{Phase: VerificationVerifying}
}

// Verified returns a successful verification for displayName
func Verified(displayName string) Verification {
	return Verification{Phase: VerificationVerified, DisplayName: displayName}
}

// VerificationFailedWith returns a failed verification carrying reason
func VerificationFailedWith(reason string) Verification {
	return Verification{Phase: VerificationFailed, Reason: reason}
}

// IsVerified reports whether the recipient has been resolved
func (v Verification) IsVerified() bool {
	return v.Phase == VerificationVerified
}

// SubmissionPhase is the tag of the Submission union
type SubmissionPhase string

const (
	SubmissionIdle       SubmissionPhase = "IDLE"
	SubmissionSubmitting SubmissionPhase = "SUBMITTING"
	SubmissionSucceeded  SubmissionPhase = "SUCCEEDED"
	SubmissionFailed     SubmissionPhase = "FAILED"
)

// Submission is the tagged union {Idle, Submitting, Succeeded(record), Failed(reason)}
type Submission struct {
	Phase  SubmissionPhase
	Record *TransactionRecord
	Reason string
}
