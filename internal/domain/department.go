package domain

// Department represents a high-level organizational unit that owns tickets.
type Department struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	// SLAHours maps priority to the overdue threshold; missing entries fall
	// back to DefaultSLAHours.
	SLAHours map[TicketPriority]int
	Audit
}
