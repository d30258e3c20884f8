package harvest

// Action is what a processing pass should do with one acta.
type Action int

// Per-pass actions, in increasing order of work.
const (
	// ActionSkip leaves the acta untouched: it is fully downloaded and
	// uploaded, or the reprocess policy has given up on it.
	ActionSkip Action = iota
	// ActionPublish re-runs only the object-storage upload.
	ActionPublish
	// ActionReprocess re-runs the full pipeline from pending.
	ActionReprocess
)

// ReprocessPolicy decides how much work an acta gets on each pass. A bounded
// MaxAttempts keeps permanently forbidden or malformed items from retrying
// forever; zero means unlimited catch-up retries.
type ReprocessPolicy struct {
	MaxAttempts int
}

// Decide returns the action for one acta given its status, upload flag, and
// accumulated attempt count.
func (p ReprocessPolicy) Decide(a Acta) Action {
	if a.Done() {
		return ActionSkip
	}
	if p.GaveUp(a) {
		return ActionSkip
	}
	if a.Status == StatusDownloaded && !a.Uploaded {
		return ActionPublish
	}
	return ActionReprocess
}

// GaveUp reports whether the policy has exhausted attempts for this acta.
func (p ReprocessPolicy) GaveUp(a Acta) bool {
	return p.MaxAttempts > 0 && a.Attempts >= p.MaxAttempts && !a.Done()
}
