package server

import (
	"errors"
	"strings"
)

func (s *Server) nextPlayerID() int {
	return int(s.playerSeq.Add(1))
}

// Join seats conn as a new player in the room for rawCode. The joiner gets a
// private joined message; everyone else hears player_joined and the new list.
func (s *Server) Join(conn *Conn, rawCode, name string) (Player, error) {
	if _, _, ok := conn.binding(); ok {
		return Player{}, ErrAlreadyJoined
	}
	code, ok := s.codes.normalize(rawCode)
	if !ok {
		return Player{}, ErrRoomNotFound
	}
	displayName := ""
	if strings.TrimSpace(name) != "" {
		validated, err := validateName(name)
		if err != nil {
			return Player{}, err
		}
		displayName = validated
	}
	if s.cfg.AutoCreateRooms {
		opts := RoomOptions{
			MaxPlayers:   s.cfg.MaxPlayers,
			HostName:     displayName,
			TargetPoints: s.cfg.TargetPoints,
		}
		if _, created := s.rooms.CreateWithCode(code, opts, s.now()); created {
			s.logger.Info("room created", "code", code, "max_players", opts.MaxPlayers, "via", "join")
		}
	}

	now := s.now()
	var joined Player
	_, err := s.rooms.Update(code, func(room *Room) error {
		if err := s.seatAvailable(room); err != nil {
			return err
		}
		player := Player{
			ID:       s.nextPlayerID(),
			Name:     displayName,
			Ready:    displayName != "",
			JoinedAt: now,
		}
		if room.HostID == 0 {
			room.HostID = player.ID
			player.IsHost = true
		}
		room.Players = append(room.Players, player)
		room.conns[player.ID] = conn
		conn.bind(code, player.ID)
		joined = player

		players := playerViews(room)
		conn.Send(joinedMessage{
			Type:         "joined",
			PlayerID:     player.ID,
			Code:         room.Code,
			Phase:        room.Phase,
			MaxPlayers:   room.MaxPlayers,
			TargetPoints: room.TargetPoints,
			Category:     room.Category,
			Players:      players,
		})
		if room.Phase == phaseQuestion {
			if msg, ok := s.currentQuestionMessage(room, "nextQuestion"); ok {
				conn.Send(msg)
			}
		}
		broadcast(room, playerJoinedMessage{Type: "player_joined", Player: toPlayerView(player)}, conn)
		broadcast(room, playersMessage{Type: "updatePlayers", Players: players}, nil)
		return nil
	})
	if err != nil {
		return Player{}, err
	}
	s.logger.Info("player joined", "code", code, "player_id", joined.ID, "conn_id", conn.ID())
	return joined, nil
}

func (s *Server) seatAvailable(room *Room) error {
	if len(room.Players) >= room.MaxPlayers {
		return ErrRoomFull
	}
	if room.Phase != phaseLobby && !s.cfg.AllowLateJoin {
		return ErrGameInProgress
	}
	return nil
}

// SetName names the bound player and marks them ready.
func (s *Server) SetName(conn *Conn, name string) error {
	code, playerID, ok := conn.binding()
	if !ok {
		return ErrNotInRoom
	}
	validated, err := validateName(name)
	if err != nil {
		return err
	}
	_, err = s.rooms.Update(code, func(room *Room) error {
		_, player := room.findPlayer(playerID)
		if player == nil {
			return ErrPlayerNotFound
		}
		player.Name = validated
		player.Ready = true
		broadcast(room, playersMessage{Type: "updatePlayers", Players: playerViews(room)}, nil)
		return nil
	})
	return err
}

// Leave removes the bound player and tells the connection it has left. The
// connection stays open and may join again.
func (s *Server) Leave(conn *Conn) error {
	return s.removePlayer(conn, "leave")
}

// Disconnect is called once the transport is gone.
func (s *Server) Disconnect(conn *Conn) {
	defer conn.Close()
	if err := s.removePlayer(conn, "disconnect"); err != nil && !errors.Is(err, ErrNotInRoom) {
		s.logger.Debug("disconnect cleanup skipped", "conn_id", conn.ID(), "error", err)
	}
}

// removePlayer is shared by leave and disconnect so both leave the room in
// the same state.
func (s *Server) removePlayer(conn *Conn, reason string) error {
	code, playerID, ok := conn.binding()
	if !ok {
		return ErrNotInRoom
	}
	conn.unbind()

	emptied := false
	hostChanged := 0
	room, err := s.rooms.Update(code, func(room *Room) error {
		idx, player := room.findPlayer(playerID)
		if player == nil {
			return ErrPlayerNotFound
		}
		wasHost := room.HostID == playerID
		room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
		delete(room.conns, playerID)
		delete(room.Expected, playerID)
		if reason == "leave" {
			conn.Send(signalMessage{Type: "left"})
		}

		if len(room.Players) == 0 {
			room.HostID = 0
			room.closed = true
			room.stopTimer()
			room.step++
			emptied = true
			return nil
		}
		if wasHost {
			room.HostID = room.Players[0].ID
			room.Players[0].IsHost = true
			hostChanged = room.HostID
		}
		broadcast(room, playerLeftMessage{Type: "player_left", PlayerID: playerID}, nil)
		if hostChanged != 0 {
			broadcast(room, hostChangedMessage{Type: "hostChanged", PlayerID: hostChanged}, nil)
		}
		broadcast(room, playersMessage{Type: "updatePlayers", Players: playerViews(room)}, nil)
		if room.Phase == phaseQuestion && room.questionComplete() {
			s.closeQuestion(room)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("player left", "code", code, "player_id", playerID, "reason", reason)
	if hostChanged != 0 {
		s.logger.Info("host changed", "code", code, "player_id", hostChanged)
	}
	if emptied {
		s.rooms.forget(code, room)
		s.logger.Info("room deleted", "code", code, "reason", "empty")
	}
	return nil
}

// Chat relays a line of text from the bound player to the whole room.
func (s *Server) Chat(conn *Conn, text string) error {
	code, playerID, ok := conn.binding()
	if !ok {
		return ErrNotInRoom
	}
	line, ok := validateChat(text)
	if !ok {
		return ErrInvalidMessage
	}
	_, err := s.rooms.Update(code, func(room *Room) error {
		_, player := room.findPlayer(playerID)
		if player == nil {
			return ErrPlayerNotFound
		}
		broadcast(room, chatBroadcast{
			Type: "chat",
			From: chatFrom{ID: player.ID, Name: player.Name},
			Text: line,
		}, nil)
		return nil
	})
	return err
}

func toPlayerView(player Player) playerView {
	return playerView{
		ID:     player.ID,
		Name:   player.Name,
		Ready:  player.Ready,
		Score:  player.Score,
		IsHost: player.IsHost,
	}
}

func playerViews(room *Room) []playerView {
	views := make([]playerView, 0, len(room.Players))
	for _, player := range room.Players {
		views = append(views, toPlayerView(player))
	}
	return views
}
