package store

import "strings"

// Status represents the processing lifecycle of an episode. Each stage has a
// success state and a failure state; failure states remain eligible for their
// own stage so a rerun retries the episode.
type Status string

const (
	StatusDiscovered         Status = "discovered"
	StatusDownloaded         Status = "downloaded"
	StatusDownloadingFailed  Status = "downloading_failed"
	StatusTranscribed        Status = "transcribed"
	StatusTranscribingFailed Status = "transcribing_failed"
	StatusDigested           Status = "digested"
	StatusDigestingFailed    Status = "digesting_failed"
)

var allStatuses = []Status{
	StatusDiscovered,
	StatusDownloaded,
	StatusDownloadingFailed,
	StatusTranscribed,
	StatusTranscribingFailed,
	StatusDigested,
	StatusDigestingFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// transitions is the authoritative edge set. A failure state may retry its own
// stage or fail again; digested is terminal.
var transitions = map[Status][]Status{
	StatusDiscovered:         {StatusDownloaded, StatusDownloadingFailed},
	StatusDownloadingFailed:  {StatusDownloaded, StatusDownloadingFailed},
	StatusDownloaded:         {StatusTranscribed, StatusTranscribingFailed},
	StatusTranscribingFailed: {StatusTranscribed, StatusTranscribingFailed},
	StatusTranscribed:        {StatusDigested, StatusDigestingFailed},
	StatusDigestingFailed:    {StatusDigested, StatusDigestingFailed},
	StatusDigested:           nil,
}

var failureStatuses = map[Status]struct{}{
	StatusDownloadingFailed:  {},
	StatusTranscribingFailed: {},
	StatusDigestingFailed:    {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether the edge from → to exists in the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsFailure reports whether a status records a stage failure.
func IsFailure(status Status) bool {
	_, ok := failureStatuses[status]
	return ok
}

// IsTerminal reports whether a status has no outgoing edges.
func IsTerminal(status Status) bool {
	return len(transitions[status]) == 0
}

// predecessors returns every status with a legal edge into next.
func predecessors(next Status) []Status {
	var from []Status
	for _, status := range allStatuses {
		if CanTransition(status, next) {
			from = append(from, status)
		}
	}
	return from
}
