package factions

import (
	"fmt"
	"strings"
)

// LineBreak terminates every flag line
const LineBreak = "<br>"

// Record is one faction membership read from a profile card
type Record struct {
	Faction   string `json:"faction"`
	SubjectID string `json:"subjectId"`
}

// Decision explains how a set of records was judged
type Decision struct {
	HasCrime       bool
	HasState       bool
	UniqueCrime    []string
	RepeatedState  []string
	StateCount     int
	Violation      bool
	PressExemption bool
}

// Flagged reports whether the records must be written up
func (d Decision) Flagged() bool {
	return d.Violation && !d.PressExemption
}

// Decide applies the membership rules to records. It has no side effects.
func Decide(c *Catalog, records []Record) Decision {
	var d Decision
	crimeSeen := make(map[string]bool)
	stateSeen := make(map[string]bool)
	var onlyState string

	for _, r := range records {
		switch c.Kind(r.Faction) {
		case KindCrime:
			d.HasCrime = true
			if !crimeSeen[r.Faction] {
				crimeSeen[r.Faction] = true
				d.UniqueCrime = append(d.UniqueCrime, r.Faction)
			}
		case KindState:
			d.HasState = true
			d.StateCount++
			onlyState = r.Faction
			if stateSeen[r.Faction] {
				d.RepeatedState = append(d.RepeatedState, r.Faction)
			}
			stateSeen[r.Faction] = true
		}
	}

	d.Violation = (d.HasCrime && d.HasState) ||
		len(d.UniqueCrime) > 1 ||
		len(d.RepeatedState) > 0

	// press membership next to exactly one crime faction is allowed
	d.PressExemption = d.Violation &&
		d.HasCrime &&
		d.StateCount == 1 &&
		onlyState == PressFaction &&
		len(d.UniqueCrime) <= 1

	return d
}

// FormatLine renders one flag line including its terminator
func FormatLine(subjectID, own string, others []string, nickname string) string {
	return fmt.Sprintf("offwarn %s Твинк: %s | %s // by %s%s",
		subjectID, own, strings.Join(others, " | "), nickname, LineBreak)
}

// Lines renders one line per record citing every other record's faction
func Lines(records []Record, nickname string) []string {
	lines := make([]string, 0, len(records))
	for i, r := range records {
		others := make([]string, 0, len(records)-1)
		for j, other := range records {
			if j != i {
				others = append(others, other.Faction)
			}
		}
		lines = append(lines, FormatLine(r.SubjectID, r.Faction, others, nickname))
	}
	return lines
}

// SplitLines breaks accumulated report text back into terminated lines
func SplitLines(stored string) []string {
	var lines []string
	for _, part := range strings.Split(stored, LineBreak) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lines = append(lines, part+LineBreak)
	}
	return lines
}

// Engine evaluates profiles against a catalog and accumulates unique flag
// lines for the lifetime of a scan. It is not safe for concurrent use.
type Engine struct {
	catalog  *Catalog
	nickname string
	seen     map[string]struct{}
	lines    []string
}

// NewEngine creates a rule engine signing lines with nickname
func NewEngine(catalog *Catalog, nickname string) *Engine {
	return &Engine{
		catalog:  catalog,
		nickname: nickname,
		seen:     make(map[string]struct{}),
	}
}

// SetNickname changes the signature used for new lines
func (e *Engine) SetNickname(nickname string) {
	e.nickname = nickname
}

// Nickname returns the current signature
func (e *Engine) Nickname() string {
	return e.nickname
}

// Seed loads previously persisted report text so already reported lines
// are not added again.
func (e *Engine) Seed(stored string) {
	for _, line := range SplitLines(stored) {
		e.add(line)
	}
}

// Evaluate judges one profile and returns only the lines that were new
func (e *Engine) Evaluate(records []Record) []string {
	if !Decide(e.catalog, records).Flagged() {
		return nil
	}

	var added []string
	for _, line := range Lines(records, e.nickname) {
		if e.add(line) {
			added = append(added, line)
		}
	}
	return added
}

// Lines returns the accumulated report in insertion order
func (e *Engine) Lines() []string {
	out := make([]string, len(e.lines))
	copy(out, e.lines)
	return out
}

// Count returns the number of unique lines accumulated
func (e *Engine) Count() int {
	return len(e.lines)
}

func (e *Engine) add(line string) bool {
	if _, dup := e.seen[line]; dup {
		return false
	}
	e.seen[line] = struct{}{}
	e.lines = append(e.lines, line)
	return true
}
