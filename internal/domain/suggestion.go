package domain

// TriageSuggestion is advice from the external triage service. It is never
// applied automatically.
type TriageSuggestion struct {
	DepartmentGuess string         `json:"department_guess"`
	PriorityHint    TicketPriority `json:"priority_hint"`
	NextAction      string         `json:"next_action,omitempty"`
	Rationale       string         `json:"rationale"`
}
