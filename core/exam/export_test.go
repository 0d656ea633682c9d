package exam

import "time"

// SetNow replaces the clock of the package until reset is called.
func SetNow(now func() time.Time) (reset func()) {
	orig := nowFunc
	nowFunc = now
	return func() { nowFunc = orig }
}
