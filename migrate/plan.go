/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"slices"
	"strings"

	"github.com/acronis/go-migratekit/version"
)

// Group is a set of migration files that share one version.
type Group struct {
	Version version.Version `json:"version"`
	Entries []Entry         `json:"entries"`
}

// Checksum returns the aggregate checksum of the group (see AggregateChecksum).
func (g Group) Checksum() string {
	return AggregateChecksum(g.Entries)
}

// Plan is an ordered list of version groups to execute.
// Groups are in ascending order of versions for upgrade and in descending order for downgrade.
type Plan struct {
	Upgrade bool    `json:"upgrade"`
	Groups  []Group `json:"groups"`
}

// Empty reports whether the plan has nothing to execute.
func (p *Plan) Empty() bool {
	return len(p.Groups) == 0
}

// Entries returns all entries of the plan in execution order.
func (p *Plan) Entries() []Entry {
	var entries []Entry
	for _, g := range p.Groups {
		entries = append(entries, g.Entries...)
	}
	return entries
}

// Versions returns versions of the plan groups in execution order.
func (p *Plan) Versions() []version.Version {
	versions := make([]version.Version, 0, len(p.Groups))
	for _, g := range p.Groups {
		versions = append(versions, g.Version)
	}
	return versions
}

// Last returns the group executed last.
func (p *Plan) Last() (Group, bool) {
	if len(p.Groups) == 0 {
		return Group{}, false
	}
	return p.Groups[len(p.Groups)-1], true
}

// BuildPlan scans the migrations root and selects files to execute when moving from current to target.
//
// A nil current means that no version is applied yet, it precedes every version.
// For upgrade the plan contains versions v with current < v <= target,
// for downgrade with target <= v < current. The current version itself is never included.
// version.Origin as target precedes every version, so a downgrade to it covers the whole history.
func BuildPlan(opts Options, current *version.Version, target version.Version, upgradable bool) (*Plan, error) {
	plan := &Plan{Upgrade: upgradable}
	if upgradable && current != nil && target.Compare(*current) <= 0 {
		return plan, nil
	}
	if !upgradable && (current == nil || target.Compare(*current) >= 0) {
		return plan, nil
	}

	var entries []Entry
	for entry, err := range Scan(opts) {
		if err != nil {
			return nil, err
		}
		if inPlanRange(entry.Version, current, target, upgradable) {
			entries = append(entries, entry)
		}
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := a.Version.Compare(b.Version); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	for _, entry := range entries {
		if n := len(plan.Groups); n > 0 && plan.Groups[n-1].Version.Equal(entry.Version) {
			plan.Groups[n-1].Entries = append(plan.Groups[n-1].Entries, entry)
			continue
		}
		plan.Groups = append(plan.Groups, Group{Version: entry.Version, Entries: []Entry{entry}})
	}
	if !upgradable {
		slices.Reverse(plan.Groups)
	}
	return plan, nil
}

func inPlanRange(v version.Version, current *version.Version, target version.Version, upgradable bool) bool {
	if upgradable {
		return (current == nil || current.LessThan(v)) && v.Compare(target) <= 0
	}
	return target.Compare(v) <= 0 && v.LessThan(*current)
}
