package server

import (
	"sort"
	"sync"
	"time"
)

// Registry owns every live room. Lock order is registry before room: code
// holding a room lock never takes the registry lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	codes *codeAllocator
	ttl   time.Duration
}

func NewRegistry(codes *codeAllocator, ttl time.Duration) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		codes: codes,
		ttl:   ttl,
	}
}

func (r *Registry) Create(opts RoomOptions, now time.Time) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.codes.allocate(func(code string) bool {
		_, ok := r.rooms[code]
		return ok
	})
	if err != nil {
		return nil, err
	}
	room := newRoom(code, opts, now, r.ttl)
	r.rooms[code] = room
	return room, nil
}

// CreateWithCode returns the room for code, creating it when absent.
// created reports whether a new room was made.
func (r *Registry) CreateWithCode(code string, opts RoomOptions, now time.Time) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[code]; ok && !room.isClosed() {
		return room, false
	}
	room := newRoom(code, opts, now, r.ttl)
	r.rooms[code] = room
	return room, true
}

func (r *Registry) lookup(code string) *Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[code]
}

func (r *Registry) Get(code string) (*Room, bool) {
	room := r.lookup(code)
	if room == nil {
		return nil, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return nil, false
	}
	return room, true
}

// Update runs fn with exclusive access to the room. Every mutation of room
// state goes through here.
func (r *Registry) Update(code string, fn func(room *Room) error) (*Room, error) {
	room := r.lookup(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return nil, ErrRoomNotFound
	}
	if err := fn(room); err != nil {
		return nil, err
	}
	return room, nil
}

// Delete closes the room: notify runs first, under the room lock, so the
// remaining connections hear about it before the entry disappears.
func (r *Registry) Delete(code string, notify func(room *Room)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return false
	}
	r.closeLocked(room, notify)
	delete(r.rooms, code)
	return true
}

// SweepExpired closes and removes every room whose ttl has elapsed.
func (r *Registry) SweepExpired(now time.Time, notify func(room *Room)) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []string
	for code, room := range r.rooms {
		if room.ExpiresAt.After(now) {
			continue
		}
		r.closeLocked(room, notify)
		delete(r.rooms, code)
		expired = append(expired, code)
	}
	sort.Strings(expired)
	return expired
}

func (r *Registry) closeLocked(room *Room, notify func(room *Room)) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return
	}
	if notify != nil {
		notify(room)
	}
	room.closed = true
	room.stopTimer()
	room.step++
}

func (room *Room) isClosed() bool {
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.closed
}

// forget drops a room that was already closed from inside Update.
func (r *Registry) forget(code string, room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.rooms[code]; ok && current == room {
		delete(r.rooms, code)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// View runs fn with the room locked for reading. fn must not mutate.
func (r *Registry) View(code string, fn func(room *Room)) error {
	_, err := r.Update(code, func(room *Room) error {
		fn(room)
		return nil
	})
	return err
}
