package availability

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var warsaw = time.FixedZone("CET", 3600)

func at(day, hour int) time.Time {
	return time.Date(2024, time.June, day, hour, 0, 0, 0, warsaw)
}

func TestDateSetDedup(t *testing.T) {
	s := NewDateSet("Mon 17 Jun", "Tue 18 Jun", "Mon 17 Jun", "", "  ", "Tue 18 Jun")
	require.Equal(t, []string{"Mon 17 Jun", "Tue 18 Jun"}, s.Labels())

	again := NewDateSet(s.Labels()...)
	assert.Equal(t, s.Labels(), again.Labels())
	assert.True(t, s.Contains("Mon 17 Jun"))
	assert.False(t, s.Contains("Wed 19 Jun"))
}

func TestMergeKeepsFirstSeenOrder(t *testing.T) {
	m := Merge([]string{"b", "a"}, []string{"c", "a", "b", "d"})
	assert.Equal(t, "b\na\nc\nd", m.Join("\n"))
}

func TestParseDateList(t *testing.T) {
	assert.Empty(t, ParseDateList(""))
	assert.Empty(t, ParseDateList("\n\n"))
	assert.Equal(t, []string{"Mon 17 Jun", "Tue 18 Jun"}, ParseDateList("Mon 17 Jun\n\nTue 18 Jun\n"))
	assert.Equal(t, []string{"Mon 17 Jun"}, ParseDateList("Mon 17 Jun\r\n"))
}

func TestParseTimestamp(t *testing.T) {
	now := at(17, 12)
	cases := map[string]int64{
		"":           now.Unix(),
		"abc":        now.Unix(),
		"0":          now.Unix(),
		"1718611200": 1718611200,
		" 42 ":       42,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseTimestamp(raw, now), "raw=%q", raw)
	}
}

func TestReconcile(t *testing.T) {
	now := at(18, 15)

	tests := []struct {
		name        string
		scraped     []string
		state       RunState
		wantText    string
		wantChanged bool
	}{
		{
			name:    "empty input",
			scraped: nil,
			state: RunState{
				PreviousDates: []string{"Mon 17 Jun"},
				LastFound:     now.Unix(),
				LastNotFound:  now.Add(-5 * time.Hour).Unix(),
			},
		},
		{
			name:        "no prior state",
			scraped:     []string{"Mon 17 Jun"},
			state:       NewRunState("", "", "", now),
			wantText:    "Mon 17 Jun",
			wantChanged: true,
		},
		{
			name:    "unchanged and fresh",
			scraped: []string{"Mon 17 Jun"},
			state: RunState{
				PreviousDates: []string{"Mon 17 Jun"},
				LastFound:     now.Unix(),
				LastNotFound:  now.Unix(),
			},
		},
		{
			name:    "subset of previous is unchanged",
			scraped: []string{"Tue 18 Jun", "Tue 18 Jun"},
			state: RunState{
				PreviousDates: []string{"Mon 17 Jun", "Tue 18 Jun"},
				LastFound:     now.Unix(),
				LastNotFound:  now.Add(-StaleWindow).Unix(),
			},
		},
		{
			name:    "same day merge",
			scraped: []string{"Tue 18 Jun"},
			state: RunState{
				PreviousDates: []string{"Mon 17 Jun"},
				LastFound:     at(18, 0).Unix(),
				LastNotFound:  now.Unix(),
			},
			wantText:    "Mon 17 Jun\nTue 18 Jun",
			wantChanged: true,
		},
		{
			name:    "day rollover resets history",
			scraped: []string{"Tue 18 Jun"},
			state: RunState{
				PreviousDates: []string{"Mon 17 Jun"},
				LastFound:     at(17, 23).Unix(),
				LastNotFound:  now.Unix(),
			},
			wantText:    "Tue 18 Jun",
			wantChanged: true,
		},
		{
			name:    "stale not-found re-emits",
			scraped: []string{"Mon 17 Jun"},
			state: RunState{
				PreviousDates: []string{"Mon 17 Jun"},
				LastFound:     now.Unix(),
				LastNotFound:  now.Unix() - 3601,
			},
			wantText:    "Mon 17 Jun",
			wantChanged: true,
		},
		{
			name:    "duplicates across merge",
			scraped: []string{"Wed 19 Jun", "Mon 17 Jun", "Wed 19 Jun"},
			state: RunState{
				PreviousDates: []string{"Mon 17 Jun", "Tue 18 Jun"},
				LastFound:     at(18, 9).Unix(),
				LastNotFound:  now.Unix(),
			},
			wantText:    "Mon 17 Jun\nTue 18 Jun\nWed 19 Jun",
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Reconcile(tt.scraped, tt.state, now)
			assert.Equal(t, tt.wantText, d.Text)
			assert.Equal(t, tt.wantChanged, d.Changed)
		})
	}
}

func TestReconcileNeverEmitsBlankOrDuplicate(t *testing.T) {
	now := at(18, 15)
	state := NewRunState("", "", "", now)
	inputs := [][]string{
		{"a", "a", "b"},
		{"", "a"},
		{"b", "a", "b", "a"},
	}
	for _, in := range inputs {
		d := Reconcile(in, state, now)
		lines := strings.Split(d.Text, "\n")
		seen := map[string]bool{}
		for _, l := range lines {
			require.NotEmpty(t, l)
			require.False(t, seen[l], "duplicate %q in %q", l, d.Text)
			seen[l] = true
		}
	}
}

func TestAdvance(t *testing.T) {
	now := at(18, 15)
	prev := RunState{PreviousDates: []string{"Mon 17 Jun"}, LastFound: 100, LastNotFound: 200}

	t.Run("empty refreshes not-found", func(t *testing.T) {
		next := prev.Advance(Reconcile(nil, prev, now), now)
		assert.Equal(t, now.Unix(), next.LastNotFound)
		assert.Equal(t, int64(100), next.LastFound)
		assert.Equal(t, prev.PreviousDates, next.PreviousDates)
	})

	t.Run("changed records emitted list", func(t *testing.T) {
		next := prev.Advance(Reconcile([]string{"Tue 18 Jun"}, prev, now), now)
		assert.Equal(t, []string{"Tue 18 Jun"}, next.PreviousDates)
		assert.Equal(t, now.Unix(), next.LastFound)
		assert.Equal(t, int64(200), next.LastNotFound)
	})

	t.Run("unchanged leaves state", func(t *testing.T) {
		fresh := RunState{PreviousDates: []string{"Mon 17 Jun"}, LastFound: now.Unix(), LastNotFound: now.Unix()}
		next := fresh.Advance(Reconcile([]string{"Mon 17 Jun"}, fresh, now), now)
		assert.Equal(t, fresh, next)
	})
}
