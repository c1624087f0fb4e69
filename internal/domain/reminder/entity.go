package reminder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Domain identifies one family of recurring entities.
type Domain string

const (
	DomainAnniversary Domain = "anniversary"
	DomainPlan        Domain = "plan"
	DomainTask        Domain = "task"
)

// Domains lists every domain the engine knows how to scan.
var Domains = []Domain{DomainAnniversary, DomainPlan, DomainTask}

var ErrUnknownDomain = fmt.Errorf("unknown reminder domain")

// ParseDomain validates a domain name coming from config, CLI or HTTP.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Domains {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
}

// RepeatPolicy is the recurrence rule applied to an entity's anchor date.
type RepeatPolicy string

const (
	RepeatYearly  RepeatPolicy = "YEARLY"
	RepeatMonthly RepeatPolicy = "MONTHLY"
	RepeatOnce    RepeatPolicy = "ONCE"
	RepeatNone    RepeatPolicy = "NONE"
	// RepeatDue is the task form of ONCE: the due date stays the occurrence after it passes.
	RepeatDue RepeatPolicy = "DUE"
)

// ParseRepeatPolicy maps stored values onto a policy. Unknown values disable recurrence.
func ParseRepeatPolicy(s string) RepeatPolicy {
	switch p := RepeatPolicy(strings.ToUpper(strings.TrimSpace(s))); p {
	case RepeatYearly, RepeatMonthly, RepeatOnce, RepeatDue:
		return p
	default:
		return RepeatNone
	}
}

// Entity is the subset of a business entity the engine needs.
type Entity struct {
	ID              string
	Domain          Domain
	Title           string
	AnchorDate      time.Time
	Policy          RepeatPolicy
	ReminderEnabled bool
	Thresholds      []int
	ChannelAddress  string
	Active          bool
	Completed       bool
	// Extra carries domain-specific placeholder values (destination, assignee name, ...).
	Extra map[string]string
}

// Eligible reports whether the entity should be scanned at all.
func (e *Entity) Eligible() bool {
	return e.ReminderEnabled && e.Active && !e.Completed && strings.TrimSpace(e.ChannelAddress) != ""
}

// ParseThresholds turns a stored list such as "7,3,1,0" into distinct non-negative
// day counts ordered from furthest to nearest. Bad entries are dropped.
func ParseThresholds(raw string) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0, 4)
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == ' ' }) {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// FormatThresholds is the inverse of ParseThresholds, ascending for stable storage.
func FormatThresholds(ts []int) string {
	sorted := append([]int(nil), ts...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, t := range sorted {
		parts[i] = strconv.Itoa(t)
	}
	return strings.Join(parts, ",")
}
