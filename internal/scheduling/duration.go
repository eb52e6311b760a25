package scheduling

// DefaultDurationMinutes is the session length offered before the user
// picks one.
const DefaultDurationMinutes = 60

// NormalizeDuration snaps minutes to the nearest multiple of granularity,
// rounding halves up, and never returns less than one granule.
func NormalizeDuration(minutes, granularity int) int {
	if granularity <= 0 {
		granularity = int(DefaultGranularity.Minutes())
	}
	if minutes <= 0 {
		return granularity
	}
	n := (minutes + granularity/2) / granularity * granularity
	if n < granularity {
		return granularity
	}
	return n
}
