package aggregator

import "time"

// Status is the outcome of one source during an aggregation
type Status string

const (
	StatusOK          Status = "ok"
	StatusFetchFailed Status = "fetch failed"
	StatusParseFailed Status = "parse failed"
)

// Report describes what happened to one source
type Report struct {
	URL      string        `json:"url"`
	Status   Status        `json:"status"`
	Items    int           `json:"items"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the source contributed to the timeline
func (r Report) OK() bool {
	return r.Status == StatusOK
}

func countFailed(reports []Report) int {
	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
	}
	return failed
}
