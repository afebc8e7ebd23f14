package batch

import (
	"github.com/adamwoolhether/pakfetch/download"
	"github.com/adamwoolhether/pakfetch/progress"
)

// Status is a live view of the current or last batch.
type Status struct {
	RunID      string           `json:"run_id,omitempty"`
	Total      int              `json:"total"`
	Started    int              `json:"started"`
	Satisfied  int              `json:"satisfied"`
	SlotsInUse int              `json:"slots_in_use"`
	SlotsLimit int              `json:"slots_limit"`
	Tasks      []TaskStatus     `json:"tasks"`
	Progress   []progress.State `json:"progress,omitempty"`
}

type TaskStatus struct {
	Path     string `json:"path"`
	State    string `json:"state"`
	Attempts int    `json:"attempts"`
}

// Status is safe to call while Run is in progress.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{
		Total:      r.total,
		Started:    len(r.tasks),
		SlotsInUse: r.slots.InUse(),
		SlotsLimit: r.slots.Limit(),
		Tasks:      make([]TaskStatus, len(r.tasks)),
	}
	if r.total > 0 {
		st.RunID = r.runID.String()
	}

	for i, t := range r.tasks {
		state := t.State()
		if state == download.StateSatisfied {
			st.Satisfied++
		}
		st.Tasks[i] = TaskStatus{Path: t.Path(), State: state.String(), Attempts: t.Attempts()}
	}

	if r.agg != nil {
		st.Progress = r.agg.Snapshot()
	}

	return st
}
