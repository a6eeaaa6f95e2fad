package system

import "time"

// TaskFunc runs a scheduled task. at is the time the task was due, which may
// trail the clock reading when Advance catches up on several periods.
type TaskFunc func(at time.Time)

type task struct {
	name     string
	interval time.Duration // 0 = one-shot
	due      time.Time
	seq      uint64
	fn       TaskFunc
}

// Tasks is an explicit table of periodic and delayed tasks driven by a clock
// the owner supplies. Nothing fires on its own: Advance runs whatever is due,
// which keeps tests deterministic with a simulated clock.
//
// Not safe for concurrent use; the game loop is the only caller.
type Tasks struct {
	tasks map[string]*task
	seq   uint64
}

func NewTasks() *Tasks {
	return &Tasks{tasks: make(map[string]*task)}
}

// Every registers (or replaces) a periodic task whose first run is one
// interval after now.
func (t *Tasks) Every(name string, now time.Time, interval time.Duration, fn TaskFunc) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	t.put(&task{name: name, interval: interval, due: now.Add(interval), fn: fn})
}

// After registers (or replaces) a one-shot task due at now+delay.
func (t *Tasks) After(name string, now time.Time, delay time.Duration, fn TaskFunc) {
	t.put(&task{name: name, due: now.Add(delay), fn: fn})
}

func (t *Tasks) put(tk *task) {
	t.seq++
	tk.seq = t.seq
	t.tasks[tk.name] = tk
}

func (t *Tasks) Cancel(name string) {
	delete(t.tasks, name)
}

// CancelAll drops every task. Tasks cancelled from inside a running task do
// not fire again in the same Advance.
func (t *Tasks) CancelAll() {
	clear(t.tasks)
}

func (t *Tasks) Has(name string) bool {
	_, ok := t.tasks[name]
	return ok
}

func (t *Tasks) Len() int { return len(t.tasks) }

// NextDue reports when the named task fires next.
func (t *Tasks) NextDue(name string) (time.Time, bool) {
	tk, ok := t.tasks[name]
	if !ok {
		return time.Time{}, false
	}
	return tk.due, true
}

// Advance runs every task due at or before now, earliest first (ties in
// registration order), and returns how many ran.
func (t *Tasks) Advance(now time.Time) int {
	ran := 0
	for {
		tk := t.nextDue(now)
		if tk == nil {
			return ran
		}
		at := tk.due
		if tk.interval > 0 {
			tk.due = tk.due.Add(tk.interval)
		} else {
			delete(t.tasks, tk.name)
		}
		tk.fn(at)
		ran++
	}
}

func (t *Tasks) nextDue(now time.Time) *task {
	var best *task
	for _, tk := range t.tasks {
		if tk.due.After(now) {
			continue
		}
		if best == nil || tk.due.Before(best.due) || (tk.due.Equal(best.due) && tk.seq < best.seq) {
			best = tk
		}
	}
	return best
}
