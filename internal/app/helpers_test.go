package app_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/dataset"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/geo"
	"geoquiz-service/internal/infra/memory"
)

func embeddedDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Embedded(zerolog.Nop())
	if err != nil {
		t.Fatalf("load embedded dataset: %v", err)
	}
	return ds
}

func newDataset(t *testing.T, countries ...domain.Country) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(countries)
	if err != nil {
		t.Fatalf("new dataset: %v", err)
	}
	return ds
}

func outline() *domain.Shape {
	return &domain.Shape{Width: 10, Height: 10, ViewBox: "0 0 10 10", Paths: []string{"M0 0 L10 0 L10 10 Z"}}
}

func france() domain.Country {
	return domain.Country{
		ISO3:        "FRA",
		Name:        domain.CountryName{Common: "France", Official: "French Republic"},
		Capital:     "Paris",
		Region:      "Europe",
		LatLng:      geo.NewLatLng(46, 2),
		Area:        551695,
		FlagSVG:     "https://flagcdn.com/fr.svg",
		CoatSVG:     "https://example.org/coat/fr.svg",
		Shape:       outline(),
		Independent: true,
		Translations: map[string]domain.Translation{
			"fra": {Common: "France", Official: "République française"},
			"deu": {Common: "Frankreich"},
		},
	}
}

func germany() domain.Country {
	return domain.Country{
		ISO3:        "DEU",
		Name:        domain.CountryName{Common: "Germany", Official: "Federal Republic of Germany"},
		Region:      "Europe",
		LatLng:      geo.NewLatLng(51, 9),
		FlagSVG:     "https://flagcdn.com/de.svg",
		Independent: true,
		Translations: map[string]domain.Translation{
			"fra": {Common: "Allemagne"},
			"deu": {Common: "Deutschland"},
		},
	}
}

// newService wires a GameService over ds with deterministic randomness and a fake clock.
func newService(ds *dataset.Dataset, seed uint64, clock app.Clock, session app.SessionOptions) *app.GameService {
	session.Clock = clock
	return app.NewGameService(ds, app.ServiceOptions{
		Random:  app.NewSeededRandom(seed),
		Session: session,
		Logger:  zerolog.Nop(),
	})
}

// fakeClock fires callbacks only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Duration
	f     func()
	done  bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) app.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves time forward and runs every callback that came due, in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && t.at <= c.now {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// Pending counts callbacks that are neither fired nor stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// recordingStore counts writes on top of the in-memory store.
type recordingStore struct {
	*memory.SnapshotStore
	mu     sync.Mutex
	saves  int
	clears int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{SnapshotStore: memory.NewSnapshotStore()}
}

func (s *recordingStore) Save(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.SnapshotStore.Save(ctx, snap)
}

func (s *recordingStore) Clear(ctx context.Context, locale string) error {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
	return s.SnapshotStore.Clear(ctx, locale)
}

func (s *recordingStore) counts() (saves, clears int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves, s.clears
}
