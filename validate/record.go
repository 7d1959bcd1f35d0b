package validate

// SubmissionRecord identifies one student submission awaiting validation.
// Records are immutable; the submission id is the identity.
type SubmissionRecord struct {
	SubmissionID int
	Name         string
	Email        string
}
