package server

import (
	"errors"
	"time"
)

var errStaleTimer = errors.New("stale room timer")

// scheduleRoomTimer arms the room's single timer. The caller holds the room
// lock. The callback runs transition only while the room is the same room,
// still in phase, and at the same step as when the timer was armed.
func (s *Server) scheduleRoomTimer(room *Room, delay time.Duration, phase Phase, transition func(room *Room)) {
	room.stopTimer()
	if delay < 0 {
		delay = 0
	}
	target := room
	step := room.step
	room.timer = time.AfterFunc(delay, func() {
		s.fireRoomTimer(target, step, phase, transition)
	})
}

func (s *Server) fireRoomTimer(target *Room, step uint64, phase Phase, transition func(room *Room)) {
	_, err := s.rooms.Update(target.Code, func(room *Room) error {
		if room != target || room.step != step || room.Phase != phase {
			return errStaleTimer
		}
		room.timer = nil
		transition(room)
		return nil
	})
	if err != nil {
		s.logger.Debug("room timer ignored", "code", target.Code, "phase", phase, "error", err)
	}
}
