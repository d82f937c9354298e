package server

import (
	"sync"
	"time"
)

type Phase string

const (
	phaseLobby    Phase = "lobby"
	phaseQuestion Phase = "question"
	phaseResults  Phase = "results"
	phaseFinished Phase = "finished"
)

type RoomOptions struct {
	MaxPlayers   int
	HostName     string
	TargetPoints int
}

type Room struct {
	mu     sync.Mutex
	closed bool

	Code          string
	Phase         Phase
	HostName      string
	MaxPlayers    int
	TargetPoints  int
	Category      string
	Players       []Player
	HostID        int
	Questions     []Question
	QuestionIndex int
	QuestionStart time.Time
	Answers       map[int]Answer
	// Expected holds the ready players at question start; the question
	// closes early once every one of them still seated has answered.
	Expected      map[int]struct{}
	ResultsShown  bool
	CreatedAt     time.Time
	ExpiresAt     time.Time

	// step increments on every phase change; timers carry the step they
	// were scheduled for and do nothing once it has moved on.
	step  uint64
	timer *time.Timer
	conns map[int]*Conn
}

type Player struct {
	ID       int
	Name     string
	Ready    bool
	Score    int
	IsHost   bool
	JoinedAt time.Time
}

type Question struct {
	Text         string
	Options      []string
	CorrectIndex int
	Category     string
}

type Answer struct {
	Choice  int
	Correct bool
	Points  int
	At      time.Time
}

func newRoom(code string, opts RoomOptions, now time.Time, ttl time.Duration) *Room {
	return &Room{
		Code:         code,
		Phase:        phaseLobby,
		HostName:     opts.HostName,
		MaxPlayers:   opts.MaxPlayers,
		TargetPoints: opts.TargetPoints,
		Answers:      make(map[int]Answer),
		Expected:     make(map[int]struct{}),
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		conns:        make(map[int]*Conn),
	}
}

func (r *Room) findPlayer(playerID int) (int, *Player) {
	for i := range r.Players {
		if r.Players[i].ID == playerID {
			return i, &r.Players[i]
		}
	}
	return -1, nil
}

func (r *Room) readyCount() int {
	count := 0
	for _, player := range r.Players {
		if player.Ready {
			count++
		}
	}
	return count
}

func (r *Room) currentQuestion() (Question, bool) {
	if r.QuestionIndex < 0 || r.QuestionIndex >= len(r.Questions) {
		return Question{}, false
	}
	return r.Questions[r.QuestionIndex], true
}

// setPhase moves the room to phase and invalidates any pending timer.
func (r *Room) setPhase(phase Phase) {
	r.Phase = phase
	r.step++
	r.stopTimer()
}

func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
