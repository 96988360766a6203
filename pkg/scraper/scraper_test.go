package scraper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gridHTML = `
<div class="slot-selector">
  <table class="slot-grid__table">
    <tr>
      <td><button class="available-slot--button">
        Mon 17 Jun, 08:00 - 09:00
      </button></td>
      <td><button class="available-slot--button">Mon 17 Jun, 09:00 - 10:00</button></td>
      <td><button class="unavailable-slot--button">Tue 18 Jun, 08:00 - 09:00</button></td>
      <td><button class="available-slot--button">Wed 19 Jun</button></td>
      <td><button class="available-slot--button">  , 10:00</button></td>
    </tr>
  </table>
</div>`

func TestParseDates(t *testing.T) {
	dates, err := ParseDates(gridHTML, ".slot-grid__table .available-slot--button")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mon 17 Jun", "Mon 17 Jun", "Wed 19 Jun"}, dates)
}

func TestParseDatesNoButtons(t *testing.T) {
	dates, err := ParseDates(`<div class="slot-selector"></div>`, ".available-slot--button")
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestCollect(t *testing.T) {
	results := []TabResult{
		{Index: 1, Outcome: TabOK, Dates: []string{"a", "b"}},
		{Index: 2, Outcome: TabSkipped, Errs: []error{errors.New("click")}},
		{Index: 3, Outcome: TabPartial, Dates: []string{"b", "c"}},
	}
	assert.Equal(t, []string{"a", "b", "b", "c"}, Collect(results))
	assert.Empty(t, Collect(nil))
}

func TestTabResultErr(t *testing.T) {
	assert.NoError(t, TabResult{}.Err())

	waitErr := errors.New("spinner")
	r := TabResult{Errs: []error{waitErr, errors.New("active")}}
	assert.ErrorIs(t, r.Err(), waitErr)
	assert.Equal(t, "partial", TabPartial.String())
}
