// Package clock implements the Game Clock (spec component 2): an in-game
// minute counter that derives time-of-day, day, season and weather.
package clock

import "math/rand"

// TimeOfDay bands, selected by fixed hour thresholds (spec §4.2).
type TimeOfDay string

const (
	Night     TimeOfDay = "night"
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// Season cycles every 90 in-game days.
type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

var seasonOrder = []Season{Spring, Summer, Autumn, Winter}

// Weather is the current weather condition.
type Weather string

const (
	Clear   Weather = "clear"
	Cloudy  Weather = "cloudy"
	Rain    Weather = "rain"
	Storm   Weather = "storm"
	Fog     Weather = "fog"
	Snow    Weather = "snow"
)

const minutesPerDay = 24 * 60
const daysPerSeason = 90

// weatherTransitionProbability is the low fixed probability, consumed from
// the weather sub-stream each advance, that weather rolls to a new state.
const weatherTransitionProbability = 0.05

// weatherTable is a table-driven state machine: each weather maps to the
// candidate states it may transition into.
var weatherTable = map[Weather][]Weather{
	Clear:  {Cloudy, Clear},
	Cloudy: {Rain, Clear, Fog},
	Rain:   {Storm, Cloudy},
	Storm:  {Rain, Cloudy},
	Fog:    {Clear, Cloudy},
	Snow:   {Cloudy, Snow},
}

// Clock holds the integer minute counter and derived calendar state.
type Clock struct {
	Minutes int
	Day     int
	Season  Season
	Year    int
	Weather Weather

	timeOfDay TimeOfDay
}

// New creates a Clock starting at 06:00 (minute 360) of day 1, spring,
// year 1, clear.
func New() *Clock {
	c := &Clock{Minutes: 6 * 60, Day: 1, Season: Spring, Year: 1, Weather: Clear}
	c.timeOfDay = bandFor(c.Minutes % minutesPerDay)
	return c
}

// TimeOfDay returns the current band.
func (c *Clock) TimeOfDay() TimeOfDay { return c.timeOfDay }

// TimeString renders the clock as "HH:MM".
func (c *Clock) TimeString() string {
	m := c.Minutes % minutesPerDay
	h := m / 60
	mm := m % 60
	return pad2(h) + ":" + pad2(mm)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + itoa(n)
	}
	return itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [4]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

func bandFor(minuteOfDay int) TimeOfDay {
	hour := minuteOfDay / 60
	switch {
	case hour < 6:
		return Night
	case hour < 12:
		return Morning
	case hour < 18:
		return Afternoon
	case hour < 22:
		return Evening
	default:
		return Night
	}
}

// AdvanceResult reports what changed during Advance, so the caller (Game
// Service) can decide whether to emit a time_changed event.
type AdvanceResult struct {
	DeltaMinutes    int
	BandChanged     bool
	DayRolled       bool
	SeasonRolled    bool
	WeatherChanged  bool
	PreviousBand    TimeOfDay
	PreviousWeather Weather
}

// Advance adds delta minutes, recomputes the time-of-day band, rolls
// day/season/year, and may roll weather via the weather sub-stream
// (spec §4.2). delta must be >= 0.
func (c *Clock) Advance(delta int, weatherStream *rand.Rand) AdvanceResult {
	if delta < 0 {
		delta = 0
	}
	prevBand := bandFor(c.Minutes % minutesPerDay)
	res := AdvanceResult{DeltaMinutes: delta, PreviousBand: prevBand, PreviousWeather: c.Weather}

	prevTotalDays := c.Minutes / minutesPerDay
	c.Minutes += delta
	newTotalDays := c.Minutes / minutesPerDay

	if newTotalDays > prevTotalDays {
		daysAdded := newTotalDays - prevTotalDays
		c.Day += daysAdded
		res.DayRolled = true
		c.rollSeasonYear(&res)
	}

	newBand := bandFor(c.Minutes % minutesPerDay)
	res.BandChanged = newBand != prevBand
	c.timeOfDay = newBand

	if weatherStream != nil && weatherStream.Float64() < weatherTransitionProbability {
		candidates := weatherTable[c.Weather]
		if len(candidates) > 0 {
			next := candidates[weatherStream.Intn(len(candidates))]
			if next != c.Weather {
				c.Weather = next
				res.WeatherChanged = true
			}
		}
	}

	return res
}

func (c *Clock) rollSeasonYear(res *AdvanceResult) {
	for c.Day > daysPerSeason {
		c.Day -= daysPerSeason
		idx := 0
		for i, s := range seasonOrder {
			if s == c.Season {
				idx = i
				break
			}
		}
		idx = (idx + 1) % len(seasonOrder)
		if idx == 0 {
			c.Year++
		}
		c.Season = seasonOrder[idx]
		res.SeasonRolled = true
	}
}
