package server

import (
	"context"
	"sort"
	"time"
)

// StartGame draws a question batch and opens the first question. Only the
// host may start, only from the lobby, and only with a ready player. The
// fetch runs outside the room lock, so the room is checked again before the
// batch is installed.
func (s *Server) StartGame(ctx context.Context, conn *Conn) error {
	code, playerID, ok := conn.binding()
	if !ok {
		return ErrNotInRoom
	}
	category := ""
	_, err := s.rooms.Update(code, func(room *Room) error {
		if err := canStartGame(room, playerID); err != nil {
			return err
		}
		category = room.Category
		return nil
	})
	if err != nil {
		return err
	}

	fetched, err := s.questions.Fetch(ctx, s.cfg.QuestionsPerGame, category)
	if err != nil {
		s.logger.Error("fetch questions failed", "code", code, "category", category, "error", err)
		return ErrNoQuestions
	}
	questions := usableQuestions(fetched)
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	_, err = s.rooms.Update(code, func(room *Room) error {
		if err := canStartGame(room, playerID); err != nil {
			return err
		}
		for i := range room.Players {
			room.Players[i].Score = 0
		}
		room.Questions = questions
		room.QuestionIndex = 0
		s.openQuestion(room, "gameStarted")
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("game started", "code", code, "questions", len(questions), "category", category)
	return nil
}

func canStartGame(room *Room, playerID int) error {
	if room.Phase != phaseLobby {
		return ErrWrongPhase
	}
	if room.HostID != playerID {
		return ErrNotHost
	}
	if room.readyCount() == 0 {
		return ErrNoReadyPlayers
	}
	return nil
}

// usableQuestions drops records that cannot be answered.
func usableQuestions(questions []Question) []Question {
	usable := make([]Question, 0, len(questions))
	for _, q := range questions {
		if len(q.Options) < 2 || q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			continue
		}
		q.Options = append([]string(nil), q.Options...)
		usable = append(usable, q)
	}
	return usable
}

// openQuestion moves the room into the question at QuestionIndex. The
// completion set is the ready players at this moment.
func (s *Server) openQuestion(room *Room, msgType string) {
	room.Answers = make(map[int]Answer)
	room.Expected = make(map[int]struct{})
	for _, player := range room.Players {
		if player.Ready {
			room.Expected[player.ID] = struct{}{}
		}
	}
	room.ResultsShown = false
	room.QuestionStart = s.now()
	room.setPhase(phaseQuestion)
	if msg, ok := s.currentQuestionMessage(room, msgType); ok {
		broadcast(room, msg, nil)
	}
	if s.cfg.TimedRounds {
		s.scheduleRoomTimer(room, s.cfg.RoundTime, phaseQuestion, s.closeQuestion)
	}
}

func (s *Server) currentQuestionMessage(room *Room, msgType string) (questionMessage, bool) {
	q, ok := room.currentQuestion()
	if !ok {
		return questionMessage{}, false
	}
	return questionMessage{
		Type:           msgType,
		Question:       toQuestionView(q),
		QuestionNumber: room.QuestionIndex + 1,
		Total:          len(room.Questions),
		TimeLimitMs:    s.cfg.RoundTime.Milliseconds(),
		StartedAt:      room.QuestionStart,
	}, true
}

// closeQuestion is the one Question to Results transition. The round timer
// and the all-answered check both land here under the room lock; whichever
// arrives second finds the phase already moved and does nothing.
func (s *Server) closeQuestion(room *Room) {
	if room.Phase != phaseQuestion {
		return
	}
	room.setPhase(phaseResults)
	room.ResultsShown = false
	s.scheduleRoomTimer(room, s.cfg.RevealDelay, phaseResults, s.revealResults)
}

func (s *Server) revealResults(room *Room) {
	if room.Phase != phaseResults || room.ResultsShown {
		return
	}
	q, _ := room.currentQuestion()
	results := make([]playerResult, 0, len(room.Players))
	for _, player := range room.Players {
		result := playerResult{
			PlayerID: player.ID,
			Name:     player.Name,
			Score:    player.Score,
		}
		if answer, ok := room.Answers[player.ID]; ok {
			choice := answer.Choice
			result.Answered = true
			result.Choice = &choice
			result.Correct = answer.Correct
			result.Points = answer.Points
		}
		results = append(results, result)
	}
	room.ResultsShown = true
	broadcast(room, showResultsMessage{
		Type:           "showResults",
		QuestionNumber: room.QuestionIndex + 1,
		Total:          len(room.Questions),
		CorrectIndex:   q.CorrectIndex,
		Results:        results,
	}, nil)
	s.scheduleRoomTimer(room, s.cfg.ResultsDelay, phaseResults, s.advance)
}

// advance leaves Results for the next question, or finishes the game when
// the batch is used up.
func (s *Server) advance(room *Room) {
	if room.Phase != phaseResults || !room.ResultsShown {
		return
	}
	room.QuestionIndex++
	if room.QuestionIndex >= len(room.Questions) {
		room.setPhase(phaseFinished)
		broadcast(room, gameEndedMessage{Type: "gameEnded", Leaderboard: leaderboard(room.Players)}, nil)
		s.logger.Info("game finished", "code", room.Code, "questions", len(room.Questions))
		return
	}
	s.openQuestion(room, "nextQuestion")
}

// ReturnToLobby resets a finished game. The roster stays, scores and
// question progress do not.
func (s *Server) ReturnToLobby(conn *Conn) error {
	code, playerID, ok := conn.binding()
	if !ok {
		return ErrNotInRoom
	}
	_, err := s.rooms.Update(code, func(room *Room) error {
		if room.HostID != playerID {
			return ErrNotHost
		}
		if room.Phase != phaseFinished {
			return ErrWrongPhase
		}
		for i := range room.Players {
			room.Players[i].Score = 0
		}
		room.Questions = nil
		room.QuestionIndex = 0
		room.QuestionStart = time.Time{}
		room.Answers = make(map[int]Answer)
		room.Expected = make(map[int]struct{})
		room.ResultsShown = false
		room.setPhase(phaseLobby)
		broadcast(room, playersMessage{Type: "returnedToLobby", Players: playerViews(room)}, nil)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("room returned to lobby", "code", code)
	return nil
}

// PickCategory sets the category filter for the next game.
func (s *Server) PickCategory(conn *Conn, category string) error {
	code, playerID, ok := conn.binding()
	if !ok {
		return ErrNotInRoom
	}
	validated, err := validateCategory(category)
	if err != nil {
		return err
	}
	_, err = s.rooms.Update(code, func(room *Room) error {
		if room.HostID != playerID {
			return ErrNotHost
		}
		if room.Phase != phaseLobby {
			return ErrWrongPhase
		}
		room.Category = validated
		broadcast(room, categoryPickedMessage{Type: "categoryPicked", Category: validated}, nil)
		return nil
	})
	return err
}

// leaderboard orders by score, highest first. Equal scores keep seat order
// and share a rank.
func leaderboard(players []Player) []leaderboardEntry {
	ordered := append([]Player(nil), players...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})
	entries := make([]leaderboardEntry, 0, len(ordered))
	for i, player := range ordered {
		rank := i + 1
		if i > 0 && player.Score == ordered[i-1].Score {
			rank = entries[i-1].Rank
		}
		entries = append(entries, leaderboardEntry{
			Rank:     rank,
			PlayerID: player.ID,
			Name:     player.Name,
			Score:    player.Score,
		})
	}
	return entries
}
