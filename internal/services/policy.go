package services

// linkKind names the three reconciled resource kinds.
type linkKind string

const (
	kindVideo    linkKind = "video"
	kindRegistry linkKind = "registry"
	kindCalendar linkKind = "calendar"
)

// syncOp names the reconciler operation being performed.
type syncOp string

const (
	opAdd    syncOp = "add"
	opUpdate syncOp = "update"
	opDelete syncOp = "delete"
)

// failurePolicy says what a backend failure does to the overall operation.
type failurePolicy int

const (
	// policyFatal propagates the error and aborts the meeting's operation.
	policyFatal failurePolicy = iota
	// policyWarn logs the error and continues with the link unchanged.
	policyWarn
)

// failurePolicies encodes the per-backend behavior as data instead of
// scattered handlers. Calendar sync is cosmetic and never fatal. Registry
// failures are fatal on add (a requested breakout that cannot be created
// must be visible) but swallowed on update and delete. Video failures are
// always fatal: later steps consume the video handle.
var failurePolicies = map[linkKind]map[syncOp]failurePolicy{
	kindVideo: {
		opAdd:    policyFatal,
		opUpdate: policyFatal,
		opDelete: policyWarn,
	},
	kindRegistry: {
		opAdd:    policyFatal,
		opUpdate: policyWarn,
		opDelete: policyWarn,
	},
	kindCalendar: {
		opAdd:    policyWarn,
		opUpdate: policyWarn,
		opDelete: policyWarn,
	},
}

func policyFor(kind linkKind, op syncOp) failurePolicy {
	if byOp, ok := failurePolicies[kind]; ok {
		if p, ok := byOp[op]; ok {
			return p
		}
	}
	return policyFatal
}
