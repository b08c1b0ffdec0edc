package usersync

// OutcomeStatus classifies what an event handler did with an event.
type OutcomeStatus string

const (
	// OutcomeApplied means the event produced a store mutation.
	OutcomeApplied OutcomeStatus = "applied"

	// OutcomeSkipped means the event was understood but could not be acted
	// on (no matching user, missing correlation data). Non-fatal: the
	// webhook delivery still succeeds so the provider does not retry.
	OutcomeSkipped OutcomeStatus = "skipped"

	// OutcomeIgnored means the event type is not one this system handles.
	OutcomeIgnored OutcomeStatus = "ignored"
)

// Outcome is the explicit result of handling a single webhook event.
// Skips carry a reason so tests can assert on the skipped path without
// scraping logs.
type Outcome struct {
	Status OutcomeStatus
	Reason string
	User   *UserRecord
}

// Applied builds an applied outcome carrying the affected record.
func Applied(user *UserRecord) Outcome {
	return Outcome{Status: OutcomeApplied, User: user}
}

// Skipped builds a skipped outcome with the given reason.
func Skipped(reason string) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: reason}
}

// Ignored builds an ignored outcome.
func Ignored() Outcome {
	return Outcome{Status: OutcomeIgnored}
}
