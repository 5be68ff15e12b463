package memory

// Policy decides when a mistake pattern counts as recurring.
type Policy string

const (
	// PolicyLastSeen treats a pattern as recurring when its lifetime count
	// reaches the threshold and it was last seen inside the window.
	PolicyLastSeen Policy = "last_seen"

	// PolicySlidingWindow treats a pattern as recurring when the number of
	// observations inside the window reaches the threshold.
	PolicySlidingWindow Policy = "sliding_window"
)

// Policies lists every supported policy.
var Policies = []Policy{PolicyLastSeen, PolicySlidingWindow}

// Valid reports whether p is a supported policy.
func (p Policy) Valid() bool {
	for _, known := range Policies {
		if p == known {
			return true
		}
	}
	return false
}
