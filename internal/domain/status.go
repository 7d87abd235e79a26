package domain

// AllCaseStatuses returns the status enumeration in display order.
func AllCaseStatuses() []CaseStatus {
	return []CaseStatus{
		CaseStatusNew,
		CaseStatusInProgress,
		CaseStatusPendingClient,
		CaseStatusEscalated,
		CaseStatusResolved,
		CaseStatusClosed,
	}
}

var transitions = map[CaseStatus][]CaseStatus{
	CaseStatusNew:           {CaseStatusInProgress},
	CaseStatusInProgress:    {CaseStatusPendingClient, CaseStatusEscalated, CaseStatusResolved},
	CaseStatusPendingClient: {CaseStatusInProgress},
	CaseStatusEscalated:     {CaseStatusInProgress, CaseStatusPendingClient},
	CaseStatusResolved:      {CaseStatusClosed, CaseStatusInProgress},
	CaseStatusClosed:        {},
}

// Valid reports whether s is part of the status enumeration.
func (s CaseStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// NextStatuses returns the statuses reachable from s.
func (s CaseStatus) NextStatuses() []CaseStatus {
	return append([]CaseStatus(nil), transitions[s]...)
}

// CanTransitionTo returns true if the status can move to target.
func (s CaseStatus) CanTransitionTo(target CaseStatus) bool {
	for _, candidate := range transitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no transition leaves s.
func (s CaseStatus) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// IsOpen is false for resolved and closed cases.
func (s CaseStatus) IsOpen() bool {
	return s != CaseStatusResolved && s != CaseStatusClosed
}

// Rank is the position of s in the enumeration, or len when unknown.
func (s CaseStatus) Rank() int {
	for i, candidate := range AllCaseStatuses() {
		if candidate == s {
			return i
		}
	}
	return len(transitions)
}

// StatusStrings converts statuses to plain strings.
func StatusStrings(statuses []CaseStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
