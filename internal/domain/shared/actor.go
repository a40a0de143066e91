package shared

import "strings"

// SystemActor is recorded for changes made without an authenticated caller,
// such as scheduled jobs and anonymous API requests.
const SystemActor = "System"

// NormalizeActor trims the actor name and falls back to SystemActor.
func NormalizeActor(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return SystemActor
	}
	return actor
}
