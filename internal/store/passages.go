package store

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// MaxRecent is the number of recent views kept.
	MaxRecent = 10
	// DefaultDebounce is the window ScheduleSave coalesces writes in.
	DefaultDebounce = time.Second
)

// RecentView records when a passage was last opened.
type RecentView struct {
	ID string `json:"id"`
	// Timestamp is in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// PassageData is the persisted per-user passage state.
type PassageData struct {
	Bookmarks      []string     `json:"bookmarks"`
	RecentlyViewed []RecentView `json:"recentlyViewed"`
}

// IsBookmarked reports whether id is bookmarked.
func (d PassageData) IsBookmarked(id string) bool {
	for _, b := range d.Bookmarks {
		if b == id {
			return true
		}
	}
	return false
}

func (d PassageData) clone() PassageData {
	return PassageData{
		Bookmarks:      append(make([]string, 0, len(d.Bookmarks)), d.Bookmarks...),
		RecentlyViewed: append(make([]RecentView, 0, len(d.RecentlyViewed)), d.RecentlyViewed...),
	}
}

func emptyPassageData() PassageData {
	return PassageData{Bookmarks: []string{}, RecentlyViewed: []RecentView{}}
}

// Passages loads and saves PassageData. Failures are logged and never
// returned: reads fall back to an empty snapshot and writes are dropped.
type Passages struct {
	kv       KV
	debounce time.Duration
	now      func() time.Time
	log      *logrus.Entry

	mu      sync.Mutex
	timer   *time.Timer
	pending *PassageData
	gen     uint64
}

// PassagesOption configures Passages.
type PassagesOption func(*Passages)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) PassagesOption {
	return func(p *Passages) { p.debounce = d }
}

// WithClock overrides the clock used for recent view timestamps.
func WithClock(now func() time.Time) PassagesOption {
	return func(p *Passages) { p.now = now }
}

// WithPassagesLogger sets the logger.
func WithPassagesLogger(log *logrus.Entry) PassagesOption {
	return func(p *Passages) { p.log = log }
}

// NewPassages returns a helper over kv. A nil kv means persistence is
// unavailable.
func NewPassages(kv KV, opts ...PassagesOption) *Passages {
	p := &Passages{
		kv:       kv,
		debounce: DefaultDebounce,
		now:      time.Now,
		log:      logrus.WithField("component", "store"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load returns the persisted snapshot, or an empty one if it is missing,
// corrupt or unreadable.
func (p *Passages) Load() PassageData {
	if p.kv == nil {
		return emptyPassageData()
	}

	raw, err := p.kv.Get(KeyPassageData)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.log.WithError(err).Warn("Failed to read passage data")
		}
		return emptyPassageData()
	}

	var data PassageData
	if err := json.Unmarshal(raw, &data); err != nil {
		p.log.WithError(err).Warn("Corrupt passage data, starting fresh")
		return emptyPassageData()
	}
	if data.Bookmarks == nil {
		data.Bookmarks = []string{}
	}
	if data.RecentlyViewed == nil {
		data.RecentlyViewed = []RecentView{}
	}
	return data
}

// ScheduleSave writes data after the debounce window. Calls inside the
// window replace the pending snapshot; only the last one is written.
func (p *Passages) ScheduleSave(data PassageData) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := data.clone()
	p.pending = &snapshot
	if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(p.debounce, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.gen || p.pending == nil {
			return
		}
		pending := *p.pending
		p.pending = nil
		p.timer = nil
		p.write(pending)
	})
}

// SaveNow drops any pending debounced write and writes data immediately.
func (p *Passages) SaveNow(data PassageData) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()
	p.write(data)
}

// Flush writes the pending debounced snapshot now, if there is one.
func (p *Passages) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		return
	}
	pending := *p.pending
	p.cancelLocked()
	p.write(pending)
}

// ToggleBookmark adds id if absent or removes it if present, saves
// immediately and returns the new snapshot. data is not modified.
func (p *Passages) ToggleBookmark(id string, data PassageData) PassageData {
	next := data.clone()
	if next.IsBookmarked(id) {
		kept := next.Bookmarks[:0]
		for _, b := range next.Bookmarks {
			if b != id {
				kept = append(kept, b)
			}
		}
		next.Bookmarks = kept
	} else {
		next.Bookmarks = append(next.Bookmarks, id)
	}

	p.SaveNow(next)
	return next
}

// AddRecentView moves id to the front of the recent list with the
// current time, keeps at most MaxRecent entries and schedules a save.
func (p *Passages) AddRecentView(id string, data PassageData) PassageData {
	next := data.clone()

	recent := make([]RecentView, 0, MaxRecent)
	recent = append(recent, RecentView{ID: id, Timestamp: p.now().UnixMilli()})
	for _, r := range next.RecentlyViewed {
		if r.ID == id {
			continue
		}
		if len(recent) == MaxRecent {
			break
		}
		recent = append(recent, r)
	}
	next.RecentlyViewed = recent

	p.ScheduleSave(next)
	return next
}

func (p *Passages) cancelLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.pending = nil
	p.gen++
}

func (p *Passages) write(data PassageData) {
	if p.kv == nil {
		p.log.Debug("Persistence unavailable, dropping passage data write")
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		p.log.WithError(err).Warn("Failed to encode passage data")
		return
	}
	if err := p.kv.Set(KeyPassageData, raw); err != nil {
		p.log.WithError(err).Warn("Failed to save passage data")
		return
	}

	p.log.WithFields(logrus.Fields{
		"bookmarks": len(data.Bookmarks),
		"recent":    len(data.RecentlyViewed),
	}).Debug("Saved passage data")
}
