package stage

// Health reports whether a stage's external dependencies are usable.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy builds a passing Health record for the named stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy builds a failing Health record carrying a diagnostic detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
