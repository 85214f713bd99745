/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import "time"

// Result describes a finished migration run.
type Result struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Message    string    `json:"message"`
	Upgrade    bool      `json:"upgrade"`
	// Source is the migrations root the files were read from.
	Source      string `json:"source"`
	FromVersion string `json:"fromVersion"`
	ToVersion   string `json:"toVersion"`
	// Checksum is the aggregate checksum of the version group that is persisted with ToVersion.
	// After a downgrade it is the aggregate of the highest group at or below ToVersion, the one a
	// same-version run verifies, rather than of the last executed group.
	Checksum string  `json:"checksum,omitempty"`
	Entries  []Entry `json:"entries"`
}

// Executed returns the number of executed migration files.
func (r *Result) Executed() int {
	return len(r.Entries)
}

// Direction returns "upgrade" or "downgrade".
func (r *Result) Direction() string {
	return directionName(r.Upgrade)
}

func directionName(upgrade bool) string {
	if upgrade {
		return "upgrade"
	}
	return "downgrade"
}
