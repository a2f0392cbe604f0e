// Package clock keeps the header date and time display current.
package clock

import (
	"context"
	"time"

	"golang.org/x/net/html"

	"github.com/starford/lintel/internal/dom"
)

// Defaults for the clock markup contract.
const (
	DefaultDateID = "bloglo-date"
	DefaultTimeID = "bloglo-time"

	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Reading is one formatted clock value.
type Reading struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Updater writes the date and time into two elements identified by id.
type Updater struct {
	DateID   string
	TimeID   string
	Location *time.Location // nil means time.Local
}

// NewUpdater returns an Updater using the default element ids.
func NewUpdater() Updater {
	return Updater{DateID: DefaultDateID, TimeID: DefaultTimeID}
}

// Read formats now in the updater's location.
func (u Updater) Read(now time.Time) Reading {
	loc := u.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	return Reading{
		Date: now.Format(DateLayout),
		Time: now.Format(TimeLayout),
	}
}

// Render writes now into the tree under root. It reports false and leaves
// the tree untouched when either element is missing. The caller must hold
// the document; use Update otherwise.
func (u Updater) Render(root *html.Node, now time.Time) bool {
	dateEl := dom.ElementByID(root, u.DateID)
	timeEl := dom.ElementByID(root, u.TimeID)
	if dateEl == nil || timeEl == nil {
		return false
	}
	r := u.Read(now)
	dom.SetText(dateEl, r.Date)
	dom.SetText(timeEl, r.Time)
	return true
}

// Update is Render under the document lock.
func (u Updater) Update(doc *dom.Document, now time.Time) bool {
	ok := false
	doc.Do(func(root *html.Node) {
		ok = u.Render(root, now)
	})
	return ok
}

// Start updates doc now and then every interval until ctx is done or the
// returned Ticker is stopped.
func (u Updater) Start(ctx context.Context, doc *dom.Document, interval time.Duration) *Ticker {
	return Every(ctx, interval, func(now time.Time) {
		u.Update(doc, now)
	})
}
