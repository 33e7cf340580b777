package domain

// Span attribute keys recorded for every task.
const (
	AttrFingerprint = "stow.fingerprint"
	AttrOutcome     = "stow.outcome"
	AttrSource      = "stow.source"
	AttrRunID       = "stow.run_id"
	AttrReason      = "stow.reason"
)
