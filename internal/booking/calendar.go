package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/darzi-doorstep/darzi-backend/pkg/config"
)

const (
	slotStep   = 30 * time.Minute
	dateLayout = "2006-01-02"
	slotLayout = "15:04"
)

// Slot is one bookable half-hour pickup window.
type Slot struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Schedule is the public description of what pickup dates and slots are accepted.
type Schedule struct {
	Slots        []Slot `json:"slots"`
	Timezone     string `json:"timezone"`
	EarliestDate string `json:"earliest_date"`
	LatestDate   string `json:"latest_date"`
	HorizonDays  int    `json:"horizon_days"`
}

// Calendar owns the slot list and the booking horizon.
type Calendar struct {
	slots       []Slot
	loc         *time.Location
	horizonDays int
	now         func() time.Time
}

// NewCalendar builds half-hour slots from SlotStart up to, not including, SlotEnd.
func NewCalendar(cfg config.BookingConfig) (*Calendar, error) {
	start, err := time.Parse(slotLayout, cfg.SlotStart)
	if err != nil {
		return nil, fmt.Errorf("parse slot start: %w", err)
	}
	end, err := time.Parse(slotLayout, cfg.SlotEnd)
	if err != nil {
		return nil, fmt.Errorf("parse slot end: %w", err)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("slot end %s must be after slot start %s", cfg.SlotEnd, cfg.SlotStart)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load booking timezone: %w", err)
	}
	if cfg.HorizonDays < 0 {
		return nil, fmt.Errorf("booking horizon must not be negative")
	}

	var slots []Slot
	for t := start; t.Before(end); t = t.Add(slotStep) {
		slots = append(slots, Slot{Value: t.Format(slotLayout), Label: t.Format("3:04 PM")})
	}
	return &Calendar{
		slots:       slots,
		loc:         loc,
		horizonDays: cfg.HorizonDays,
		now:         time.Now,
	}, nil
}

// Schedule describes the accepted window relative to today in the booking timezone.
func (c *Calendar) Schedule() Schedule {
	today := c.today()
	return Schedule{
		Slots:        append([]Slot(nil), c.slots...),
		Timezone:     c.loc.String(),
		EarliestDate: today.Format(dateLayout),
		LatestDate:   today.AddDate(0, 0, c.horizonDays).Format(dateLayout),
		HorizonDays:  c.horizonDays,
	}
}

// HasSlot reports whether value is one of the fixed slots.
func (c *Calendar) HasSlot(value string) bool {
	value = strings.TrimSpace(value)
	for _, slot := range c.slots {
		if slot.Value == value {
			return true
		}
	}
	return false
}

// ParseDate accepts YYYY-MM-DD dates from today through the horizon.
func (c *Calendar) ParseDate(raw string) (time.Time, string) {
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), c.loc)
	if err != nil {
		return time.Time{}, "must be a date in YYYY-MM-DD format"
	}
	today := c.today()
	if date.Before(today) {
		return time.Time{}, "must be today or later"
	}
	if date.After(today.AddDate(0, 0, c.horizonDays)) {
		return time.Time{}, fmt.Sprintf("must be within %d days", c.horizonDays)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC), ""
}

func (c *Calendar) today() time.Time {
	now := c.now().In(c.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
}
