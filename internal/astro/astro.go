// Package astro computes upcoming sunrise and sunset times for the
// configured site coordinates.
//
// The compiler never writes absolute sun times into an automation document;
// sun triggers stay symbolic ("sunset", offset "-00:30:00") so Home
// Assistant re-evaluates them daily. Previews exist purely to annotate API
// responses, letting the operator sanity-check what "sunset" means today
// before saving.
//
// Results are cached per calendar day. All methods are safe for concurrent
// use from multiple goroutines.
package astro

import (
	"fmt"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// Preview reports the next occurrence of each sun event relative to the
// time of the request.
type Preview struct {
	NextSunrise time.Time `json:"next_sunrise"`
	NextSunset  time.Time `json:"next_sunset"`
}

// dayTimes is one cached day of sun event instants.
type dayTimes struct {
	sunrise time.Time
	sunset  time.Time
}

// Calculator computes sun event times for fixed coordinates.
type Calculator struct {
	observer astral.Observer

	mu    sync.RWMutex
	cache map[string]dayTimes

	// now is swapped in tests.
	now func() time.Time
}

// NewCalculator creates a calculator for the given site coordinates.
func NewCalculator(latitude, longitude float64) *Calculator {
	return &Calculator{
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
		cache:    make(map[string]dayTimes),
		now:      time.Now,
	}
}

// Next returns the next sunrise and next sunset after the current moment.
// Events that already happened today roll over to tomorrow's occurrence.
//
// Returns an error when the sun never crosses the horizon at the site
// (polar day or night), in which case callers should omit the preview.
func (c *Calculator) Next() (Preview, error) {
	now := c.now()

	today, err := c.day(now)
	if err != nil {
		return Preview{}, err
	}

	preview := Preview{
		NextSunrise: today.sunrise,
		NextSunset:  today.sunset,
	}

	if !preview.NextSunrise.After(now) || !preview.NextSunset.After(now) {
		tomorrow, err := c.day(now.AddDate(0, 0, 1))
		if err != nil {
			return Preview{}, err
		}
		if !preview.NextSunrise.After(now) {
			preview.NextSunrise = tomorrow.sunrise
		}
		if !preview.NextSunset.After(now) {
			preview.NextSunset = tomorrow.sunset
		}
	}

	// Present instants in the caller's zone so the API shows local times.
	preview.NextSunrise = preview.NextSunrise.In(now.Location())
	preview.NextSunset = preview.NextSunset.In(now.Location())
	return preview, nil
}

// day returns the sun event instants for the given date, computing and
// caching them on first use.
func (c *Calculator) day(date time.Time) (dayTimes, error) {
	key := date.Format("2006-01-02")

	c.mu.RLock()
	times, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return times, nil
	}

	sunrise, err := astral.Sunrise(c.observer, date)
	if err != nil {
		return dayTimes{}, fmt.Errorf("astro: computing sunrise: %w", err)
	}
	sunset, err := astral.Sunset(c.observer, date)
	if err != nil {
		return dayTimes{}, fmt.Errorf("astro: computing sunset: %w", err)
	}

	times = dayTimes{sunrise: sunrise, sunset: sunset}

	c.mu.Lock()
	c.cache[key] = times
	c.mu.Unlock()
	return times, nil
}
