package domain

// DefaultSLAHours are used when neither the department nor the caller
// supplies a threshold.
var DefaultSLAHours = map[TicketPriority]int{
	TicketPriorityLow:    72,
	TicketPriorityNormal: 48,
	TicketPriorityHigh:   24,
	TicketPriorityUrgent: 8,
}

// SLAThreshold resolves the overdue threshold for a priority in a department.
// A department entry wins over fallback; a nil fallback means DefaultSLAHours.
func SLAThreshold(dept *Department, priority TicketPriority, fallback map[TicketPriority]int) int {
	if dept != nil {
		if hours, ok := dept.SLAHours[priority]; ok && hours > 0 {
			return hours
		}
	}
	if fallback == nil {
		fallback = DefaultSLAHours
	}
	if hours, ok := fallback[priority]; ok && hours > 0 {
		return hours
	}
	return DefaultSLAHours[priority]
}
