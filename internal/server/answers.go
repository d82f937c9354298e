package server

// SubmitAnswer records the bound player's one answer for the current
// question. The result goes privately to the player; the room only learns
// that someone answered.
func (s *Server) SubmitAnswer(conn *Conn, choice int) (Answer, error) {
	code, playerID, ok := conn.binding()
	if !ok {
		return Answer{}, ErrNotInRoom
	}
	now := s.now()
	var recorded Answer
	_, err := s.rooms.Update(code, func(room *Room) error {
		if room.Phase != phaseQuestion {
			return ErrWrongPhase
		}
		_, player := room.findPlayer(playerID)
		if player == nil {
			return ErrPlayerNotFound
		}
		if _, answered := room.Answers[playerID]; answered {
			return ErrAlreadyAnswered
		}
		q, ok := room.currentQuestion()
		if !ok {
			return ErrWrongPhase
		}
		if choice < 0 || choice >= len(q.Options) {
			return ErrInvalidChoice
		}

		recorded = Answer{Choice: choice, Correct: choice == q.CorrectIndex, At: now}
		if recorded.Correct {
			recorded.Points = scoreAnswer(now.Sub(room.QuestionStart).Milliseconds(), s.cfg.RoundTime.Milliseconds(), s.cfg.PointsBase, s.cfg.BonusMax)
		}
		room.Answers[playerID] = recorded
		player.Score += recorded.Points

		conn.Send(answerSubmittedMessage{
			Type:       "answerSubmitted",
			Correct:    recorded.Correct,
			Points:     recorded.Points,
			TotalScore: player.Score,
		})
		answered, expected := room.completionProgress()
		broadcast(room, playerAnsweredMessage{
			Type:     "playerAnswered",
			PlayerID: playerID,
			Answered: answered,
			Expected: expected,
		}, nil)
		if room.questionComplete() {
			s.closeQuestion(room)
		}
		return nil
	})
	if err != nil {
		return Answer{}, err
	}
	return recorded, nil
}

// scoreAnswer is the award for a correct answer given elapsedMs into a round
// of limitMs. The bonus decays linearly to zero at the limit.
func scoreAnswer(elapsedMs, limitMs int64, base, bonusMax int) int {
	if limitMs <= 0 {
		return base
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	if elapsedMs > limitMs {
		elapsedMs = limitMs
	}
	bonus := (limitMs - elapsedMs) * int64(bonusMax) / limitMs
	return base + int(bonus)
}

func (r *Room) completionProgress() (answered, expected int) {
	for id := range r.Expected {
		if _, ok := r.Answers[id]; ok {
			answered++
		}
	}
	return answered, len(r.Expected)
}

// questionComplete reports whether everyone the question is waiting on has
// answered. Nobody left to wait on counts as complete.
func (r *Room) questionComplete() bool {
	answered, expected := r.completionProgress()
	return answered == expected
}
