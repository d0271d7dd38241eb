package layout

import (
	"log/slog"
	"sync"
	"time"
)

// Notice 是展示给用户的短暂提示。
type Notice struct {
	Summary string `json:"summary"`
	Detail  string `json:"detail"`
	Line    string `json:"line,omitempty"` // key of the line the notice is about
}

// Notifier receives user-facing feedback from the engine.
type Notifier interface {
	// Flash briefly highlights a line.
	Flash(key string)
	// Notice shows a transient, dismissible message.
	Notice(n Notice)
}

// NopNotifier drops everything.
type NopNotifier struct{}

func (NopNotifier) Flash(string)  {}
func (NopNotifier) Notice(Notice) {}

const (
	DefaultNoticeHold = 5 * time.Second
	DefaultFlashHold  = 600 * time.Millisecond
)

// NoticeBoard keeps the current notice and the flashing lines, dismissing both
// with fire-and-forget timers. When a flash expires on a line that no longer
// exists, the notice about that line is dismissed early.
type NoticeBoard struct {
	mu       sync.Mutex
	hold     time.Duration
	flash    time.Duration
	live     func(key string) bool
	log      *slog.Logger
	current  *Notice
	seq      uint64
	timer    *time.Timer
	flashing map[string]*time.Timer
	closed   bool
}

// NewNoticeBoard returns a board. live may be nil, in which case every key counts as live.
func NewNoticeBoard(hold, flash time.Duration, live func(key string) bool, log *slog.Logger) *NoticeBoard {
	if hold <= 0 {
		hold = DefaultNoticeHold
	}
	if flash <= 0 {
		flash = DefaultFlashHold
	}
	if live == nil {
		live = func(string) bool { return true }
	}
	if log == nil {
		log = slog.Default()
	}
	return &NoticeBoard{
		hold:     hold,
		flash:    flash,
		live:     live,
		log:      log,
		flashing: map[string]*time.Timer{},
	}
}

// Notice replaces the current notice and (re)starts its dismiss timer.
func (b *NoticeBoard) Notice(n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.current = &n
	b.seq++
	b.startLocked()
	b.log.Debug("notice shown", "summary", n.Summary, "line", n.Line)
}

// Current returns the visible notice, if any.
func (b *NoticeBoard) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Notice{}, false
	}
	return *b.current, true
}

// Hold cancels the pending dismiss, e.g. while the pointer is over the notice.
func (b *NoticeBoard) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// Release restarts the dismiss timer after Hold.
func (b *NoticeBoard) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil && !b.closed {
		b.startLocked()
	}
}

// Dismiss hides the notice immediately.
func (b *NoticeBoard) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dismissLocked()
}

func (b *NoticeBoard) startLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	seq := b.seq
	b.timer = time.AfterFunc(b.hold, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// a newer notice owns the timer now
		if b.seq != seq {
			return
		}
		b.dismissLocked()
	})
}

func (b *NoticeBoard) dismissLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.current = nil
}

// Flash marks the line as flashing until the flash timer fires.
func (b *NoticeBoard) Flash(key string) {
	if key == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if t, ok := b.flashing[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(b.flash, func() {
		alive := b.live(key)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.flashing[key] != t {
			return
		}
		delete(b.flashing, key)
		// a notice about a removed line goes with it
		if !alive && b.current != nil && b.current.Line == key {
			b.log.Debug("flash target gone, dismissing notice", "line", key)
			b.dismissLocked()
		}
	})
	b.flashing[key] = t
}

// Flashing reports whether the line is currently highlighted.
func (b *NoticeBoard) Flashing(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.flashing[key]
	return ok
}

// Close stops all timers; later calls are ignored.
func (b *NoticeBoard) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.dismissLocked()
	for k, t := range b.flashing {
		t.Stop()
		delete(b.flashing, k)
	}
}
