package tasks

// Mode is the resolution mode of a run. Transitions only move forward.
type Mode int

const (
	// ModeNormal allows catalog search and destination writes.
	ModeNormal Mode = iota
	// ModeSearchDisabled resolves from the cache, the web and manual entry only.
	ModeSearchDisabled
	// ModePlanning makes no destination writes; identifiers are queued for export.
	ModePlanning
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeSearchDisabled:
		return "search_disabled"
	case ModePlanning:
		return "planning"
	default:
		return ""
	}
}

// RunState holds the mutable flags of a single run. It is never persisted.
type RunState struct {
	SearchDisabled     bool
	PromptedAfterQuota bool
	ManualModeChosen   bool
	WebAutoModeChosen  bool
	PlanningModeOnly   bool
	PendingExports     []string
	InsertedThisRun    map[string]struct{}
}

func NewRunState() *RunState {
	return &RunState{InsertedThisRun: make(map[string]struct{})}
}

func (s *RunState) Mode() Mode {
	switch {
	case s.PlanningModeOnly:
		return ModePlanning
	case s.SearchDisabled:
		return ModeSearchDisabled
	default:
		return ModeNormal
	}
}

// DisableSearch records a quota exhaustion.
func (s *RunState) DisableSearch() { s.SearchDisabled = true }

// EnablePlanning switches to planning mode. Web auto resolution stays on unless manual mode was chosen.
func (s *RunState) EnablePlanning() {
	s.SearchDisabled = true
	s.PlanningModeOnly = true
	if !s.ManualModeChosen {
		s.WebAutoModeChosen = true
	}
}

// Seen reports whether id was already inserted or queued during this run.
func (s *RunState) Seen(id string) bool {
	_, ok := s.InsertedThisRun[id]
	return ok
}

// MarkInserted records id and reports whether it was new.
func (s *RunState) MarkInserted(id string) bool {
	if s.InsertedThisRun == nil {
		s.InsertedThisRun = make(map[string]struct{})
	}
	if s.Seen(id) {
		return false
	}
	s.InsertedThisRun[id] = struct{}{}
	return true
}

// Queue appends id to the pending exports unless it was already handled.
func (s *RunState) Queue(id string) bool {
	if !s.MarkInserted(id) {
		return false
	}
	s.PendingExports = append(s.PendingExports, id)
	return true
}
