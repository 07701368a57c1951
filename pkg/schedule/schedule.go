package schedule

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/jobcore/pkg/event"
)

var (
	// ErrInvalidSchedule is returned when a schedule entry fails validation.
	ErrInvalidSchedule = errors.New("schedule: invalid schedule")

	// ErrDuplicateSchedule is returned when two entries share a name.
	ErrDuplicateSchedule = errors.New("schedule: duplicate schedule name")
)

// parser accepts standard five-field expressions and descriptors like @hourly.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Schedule is one recurring job.
type Schedule struct {
	Payload  map[string]any `yaml:"payload"`
	Name     string         `yaml:"name"`
	Event    string         `yaml:"event"`
	Cron     string         `yaml:"cron"`
	Timezone string         `yaml:"timezone"`
}

// Spec returns the cron expression with its timezone prefix, as understood by
// robfig/cron. An empty timezone means UTC.
func (s Schedule) Spec() string {
	tz := s.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return "CRON_TZ=" + tz + " " + s.Cron
}

// Parse compiles the schedule into a cron.Schedule.
func (s Schedule) Parse() (cron.Schedule, error) {
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return nil, fmt.Errorf("%w: %s: timezone %q: %w", ErrInvalidSchedule, s.Name, s.Timezone, err)
		}
	}
	sched, err := parser.Parse(s.Spec())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: cron %q: %w", ErrInvalidSchedule, s.Name, s.Cron, err)
	}
	return sched, nil
}

// Validate checks the entry in isolation.
func (s Schedule) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSchedule)
	}
	if !event.ValidName(s.Event) {
		return fmt.Errorf("%w: %s: event %q", ErrInvalidSchedule, s.Name, s.Event)
	}
	if strings.HasPrefix(strings.TrimSpace(s.Cron), "CRON_TZ=") || strings.HasPrefix(strings.TrimSpace(s.Cron), "TZ=") {
		return fmt.Errorf("%w: %s: use the timezone field instead of a cron prefix", ErrInvalidSchedule, s.Name)
	}
	if _, err := s.Parse(); err != nil {
		return err
	}
	if _, err := event.ValidateTenantID(s.Event, s.Payload); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSchedule, s.Name, err)
	}
	return nil
}

// Catalog is the set of recurring jobs keyed by name.
type Catalog struct {
	Schedules []Schedule `yaml:"schedules"`
}

// Validate checks every entry and name uniqueness. When events is non-nil,
// every scheduled event must exist in it.
func (c *Catalog) Validate(events *event.Catalog) error {
	seen := make(map[string]struct{}, len(c.Schedules))
	var errs []error
	for _, s := range c.Schedules {
		if _, dup := seen[s.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateSchedule, s.Name))
			continue
		}
		seen[s.Name] = struct{}{}

		if err := s.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := events.Check(s.Event); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalidSchedule, s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Get returns the schedule with the given name.
func (c *Catalog) Get(name string) (Schedule, bool) {
	i := slices.IndexFunc(c.Schedules, func(s Schedule) bool { return s.Name == name })
	if i < 0 {
		return Schedule{}, false
	}
	return c.Schedules[i], true
}

// Load decodes a YAML catalog from r. It does not validate.
func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return &Catalog{}, nil
		}
		return nil, fmt.Errorf("schedule: decode: %w", err)
	}
	return &c, nil
}

// LoadFile reads and validates a YAML catalog from path.
func LoadFile(path string, events *event.Catalog) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schedule: open: %w", err)
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(events); err != nil {
		return nil, err
	}
	return c, nil
}
