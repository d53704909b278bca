// Package pipeline runs processing stages over stored episodes.
package pipeline

import (
	"strings"

	"podmill/internal/store"
)

// Stage identifies one processing step of the episode lifecycle.
type Stage string

const (
	StageDownload   Stage = "download"
	StageTranscribe Stage = "transcribe"
	StageDigest     Stage = "digest"
)

var allStages = []Stage{StageDownload, StageTranscribe, StageDigest}

// stageSpec binds a stage to its lifecycle statuses. The ready set is the
// stage's predecessor status plus its own failure status, so reruns pick
// failed episodes back up.
type stageSpec struct {
	ready  []store.Status
	done   store.Status
	failed store.Status
}

var stageSpecs = map[Stage]stageSpec{
	StageDownload: {
		ready:  []store.Status{store.StatusDiscovered, store.StatusDownloadingFailed},
		done:   store.StatusDownloaded,
		failed: store.StatusDownloadingFailed,
	},
	StageTranscribe: {
		ready:  []store.Status{store.StatusDownloaded, store.StatusTranscribingFailed},
		done:   store.StatusTranscribed,
		failed: store.StatusTranscribingFailed,
	},
	StageDigest: {
		ready:  []store.Status{store.StatusTranscribed, store.StatusDigestingFailed},
		done:   store.StatusDigested,
		failed: store.StatusDigestingFailed,
	},
}

// AllStages returns the stages in lifecycle order.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	stage := Stage(strings.ToLower(strings.TrimSpace(value)))
	_, ok := stageSpecs[stage]
	return stage, ok
}

// ReadyStatuses returns the statuses eligible for this stage.
func (s Stage) ReadyStatuses() []store.Status {
	spec := stageSpecs[s]
	cp := make([]store.Status, len(spec.ready))
	copy(cp, spec.ready)
	return cp
}

// DoneStatus returns the status written on stage success.
func (s Stage) DoneStatus() store.Status {
	return stageSpecs[s].done
}

// FailedStatus returns the status written on stage failure.
func (s Stage) FailedStatus() store.Status {
	return stageSpecs[s].failed
}

func (s Stage) String() string {
	return string(s)
}
