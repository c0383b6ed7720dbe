package performance

// Daypart labels derived from hour of day.
const (
	DaypartLateFringe   = "Late Fringe"
	DaypartOvernight    = "Overnight"
	DaypartEarlyMorning = "Early Morning"
	DaypartDaytime      = "Daytime"
	DaypartPrime        = "Prime"
	DaypartUnknown      = "Unknown"
)

// HourToDaypart buckets an hour (0-23) into its broadcast daypart.
func HourToDaypart(hour int) string {
	switch {
	case hour == 0 || hour == 1:
		return DaypartLateFringe
	case hour >= 2 && hour <= 5:
		return DaypartOvernight
	case hour >= 6 && hour <= 8:
		return DaypartEarlyMorning
	case hour >= 9 && hour <= 17:
		return DaypartDaytime
	case hour >= 18 && hour <= 23:
		return DaypartPrime
	default:
		return DaypartUnknown
	}
}
