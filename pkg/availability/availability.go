package availability

import (
	"strconv"
	"strings"
	"time"
)

// StaleWindow is how long a "not found" watermark stays fresh
const StaleWindow = time.Hour

// DateSet is a deduplicated list of date labels kept in first-seen order
type DateSet struct {
	labels []string
	seen   map[string]struct{}
}

// NewDateSet builds a set from the given labels, dropping duplicates and blanks
func NewDateSet(labels ...string) *DateSet {
	s := &DateSet{seen: make(map[string]struct{}, len(labels))}
	s.Add(labels...)
	return s
}

// Add appends labels that are not yet in the set
func (s *DateSet) Add(labels ...string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{}, len(labels))
	}
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if _, ok := s.seen[l]; ok {
			continue
		}
		s.seen[l] = struct{}{}
		s.labels = append(s.labels, l)
	}
}

// Contains reports whether label is in the set
func (s *DateSet) Contains(label string) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[label]
	return ok
}

// Len returns the number of labels
func (s *DateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Labels returns a copy of the labels in first-seen order
func (s *DateSet) Labels() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Join joins the labels with sep
func (s *DateSet) Join(sep string) string {
	if s == nil {
		return ""
	}
	return strings.Join(s.labels, sep)
}

// Merge concatenates the lists and dedupes them, keeping first-seen order
func Merge(lists ...[]string) *DateSet {
	s := NewDateSet()
	for _, l := range lists {
		s.Add(l...)
	}
	return s
}

// RunState is the prior-run context handed in by the caller
type RunState struct {
	PreviousDates []string
	// LastFound and LastNotFound are Unix seconds
	LastFound    int64
	LastNotFound int64
}

// NewRunState parses the raw external values. Missing or unparsable
// timestamps default to now.
func NewRunState(previousDates, lastFound, lastNotFound string, now time.Time) RunState {
	return RunState{
		PreviousDates: ParseDateList(previousDates),
		LastFound:     ParseTimestamp(lastFound, now),
		LastNotFound:  ParseTimestamp(lastNotFound, now),
	}
}

// ParseDateList splits a newline-joined list and drops blank entries
func ParseDateList(raw string) []string {
	var out []string
	for _, l := range strings.Split(raw, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ParseTimestamp reads Unix seconds, falling back to now. Zero counts as unset.
func ParseTimestamp(raw string, now time.Time) int64 {
	ts, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || ts == 0 {
		return now.Unix()
	}
	return ts
}

// Decision is the outcome of one reconciliation
type Decision struct {
	Text    string
	Changed bool
	// Dates holds the deduplicated scraped labels
	Dates *DateSet
}

// Empty reports whether nothing was scraped
func (d Decision) Empty() bool {
	return d.Dates.Len() == 0
}

// Lines splits Text back into labels
func (d Decision) Lines() []string {
	return ParseDateList(d.Text)
}

// Reconcile compares freshly scraped labels against the prior run and
// decides what to emit.
func Reconcile(scraped []string, state RunState, now time.Time) Decision {
	dates := NewDateSet(scraped...)
	if dates.Len() == 0 {
		return Decision{Dates: dates}
	}

	changed := hasNew(dates, state.PreviousDates)
	notFoundStale := state.LastNotFound < now.Add(-StaleWindow).Unix()
	if !changed && !notFoundStale {
		return Decision{Dates: dates}
	}

	text := dates.Join("\n")
	if sameDay(time.Unix(state.LastFound, 0).In(now.Location()), now) {
		text = Merge(state.PreviousDates, dates.Labels()).Join("\n")
	}
	return Decision{Text: text, Changed: true, Dates: dates}
}

// Advance returns the state the caller should persist after d
func (s RunState) Advance(d Decision, now time.Time) RunState {
	next := RunState{
		PreviousDates: append([]string(nil), s.PreviousDates...),
		LastFound:     s.LastFound,
		LastNotFound:  s.LastNotFound,
	}
	switch {
	case d.Empty():
		next.LastNotFound = now.Unix()
	case d.Changed:
		next.PreviousDates = d.Lines()
		next.LastFound = now.Unix()
	}
	return next
}

func hasNew(dates *DateSet, previous []string) bool {
	if len(previous) == 0 {
		return true
	}
	prev := NewDateSet(previous...)
	for _, d := range dates.labels {
		if !prev.Contains(d) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
