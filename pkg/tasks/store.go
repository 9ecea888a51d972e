package tasks

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrLockTimeout indicates the store couldn't be acquired in time.
var ErrLockTimeout = errors.New("task store busy")

// Store is the authoritative task collection and selection.
// The state is only reachable while holding the store lock:
// the packet worker waits for it, UI paths use a short timeout.
// Use NewStore to create a Store.
type Store struct {
	sem   *semaphore.Weighted
	state State
}

// State is the locked view of a Store. It must not be retained
// after the lock is released.
type State struct {
	slots    []Task
	count    int
	selected int
	version  uint64
}

// NewStore creates a Store with capacity task slots (MaxTasks if <= 0).
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = MaxTasks
	}
	return &Store{
		sem:   semaphore.NewWeighted(1),
		state: State{slots: make([]Task, capacity), selected: 1},
	}
}

// Lock waits for the store and returns the state.
func (s *Store) Lock() *State {
	// never fails without a deadline.
	s.sem.Acquire(context.Background(), 1)
	return &s.state
}

// TryLockFor waits at most d for the store.
func (s *Store) TryLockFor(d time.Duration) (*State, bool) {
	if s.sem.TryAcquire(1) {
		return &s.state, true
	}
	if d <= 0 {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, false
	}
	return &s.state, true
}

// Unlock releases the store. It panics if the store isn't locked.
func (s *Store) Unlock() {
	s.sem.Release(1)
}

// Update runs fn with the store locked, waiting as long as needed.
func (s *Store) Update(fn func(*State)) {
	state := s.Lock()
	defer s.Unlock()
	fn(state)
}

// View runs fn with the store locked, or fails with ErrLockTimeout
// if the store can't be acquired within d.
func (s *Store) View(d time.Duration, fn func(*State)) error {
	state, ok := s.TryLockFor(d)
	if !ok {
		return ErrLockTimeout
	}
	defer s.Unlock()
	fn(state)
	return nil
}

// Capacity returns the number of task slots.
func (s *State) Capacity() int {
	return len(s.slots)
}

// Count returns the number of tasks.
func (s *State) Count() int {
	return s.count
}

// Version changes whenever the tasks or the selection change.
func (s *State) Version() uint64 {
	return s.version
}

// Tasks returns a copy of the tasks in display order.
func (s *State) Tasks() []Task {
	return append([]Task(nil), s.slots[:s.count]...)
}

// Task returns the task at a 1-based index.
func (s *State) Task(index int) (Task, bool) {
	if index < 1 || index > s.count {
		return Task{}, false
	}
	t := s.slots[index-1]
	return t, t.Valid
}

// SelectedIndex returns the 1-based selected index.
func (s *State) SelectedIndex() int {
	return s.selected
}

// Selected returns the selected task, false if there's none.
func (s *State) Selected() (Task, bool) {
	return s.Task(s.selected)
}

// ReplaceAll clears the collection and rebuilds it from tasks.
// Invalid tasks are skipped and tasks beyond capacity are ignored.
// The selection is clamped to the new count. It returns the new count.
func (s *State) ReplaceAll(tasks []Task) int {
	for i := range s.slots {
		s.slots[i] = Task{}
	}
	s.count = 0
	for _, t := range tasks {
		if s.count >= len(s.slots) {
			break
		}
		if !t.Valid || t.ListNumber < 1 || t.TaskNumber < 1 {
			continue
		}
		s.slots[s.count] = t
		s.count++
	}
	if s.count == 0 {
		s.selected = 1
	} else if s.selected > s.count {
		s.selected = s.count
	}
	s.version++
	return s.count
}

// MoveSelection moves the selection by delta within [1, Count].
// It reports whether the selection changed.
func (s *State) MoveSelection(delta int) bool {
	if s.count == 0 {
		return false
	}
	selected := s.selected + delta
	if selected < 1 {
		selected = 1
	} else if selected > s.count {
		selected = s.count
	}
	if selected == s.selected {
		return false
	}
	s.selected = selected
	s.version++
	return true
}

// Select sets the selection to a 1-based index, clamped to [1, Count].
func (s *State) Select(index int) bool {
	return s.MoveSelection(index - s.selected)
}
