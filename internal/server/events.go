package server

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	msgJoin          = "join"
	msgSetName       = "setName"
	msgStartGame     = "startGame"
	msgSubmitAnswer  = "submitAnswer"
	msgLeaveRoom     = "leaveRoom"
	msgReturnToLobby = "returnToLobby"
	msgChat          = "chat"
	msgPickCategory  = "pickCategory"
)

// clientMessage is the closed set of frames a client may send.
type clientMessage interface {
	clientMessageType() string
}

type joinMessage struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type setNameMessage struct {
	Name string `json:"name"`
}

type startGameMessage struct{}

type submitAnswerMessage struct {
	ChoiceIndex *int `json:"choiceIndex"`
}

type leaveRoomMessage struct{}

type returnToLobbyMessage struct{}

type chatMessage struct {
	Text string `json:"text"`
}

type pickCategoryMessage struct {
	Category string `json:"category"`
}

func (joinMessage) clientMessageType() string          { return msgJoin }
func (setNameMessage) clientMessageType() string       { return msgSetName }
func (startGameMessage) clientMessageType() string     { return msgStartGame }
func (submitAnswerMessage) clientMessageType() string  { return msgSubmitAnswer }
func (leaveRoomMessage) clientMessageType() string     { return msgLeaveRoom }
func (returnToLobbyMessage) clientMessageType() string { return msgReturnToLobby }
func (chatMessage) clientMessageType() string          { return msgChat }
func (pickCategoryMessage) clientMessageType() string  { return msgPickCategory }

// decodeClientMessage reads the type tag and then the payload for that tag.
func decodeClientMessage(data []byte) (clientMessage, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, ErrMalformed
	}
	var msg clientMessage
	switch strings.TrimSpace(envelope.Type) {
	case msgJoin:
		var m joinMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, ErrMalformed
		}
		msg = m
	case msgSetName:
		var m setNameMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, ErrMalformed
		}
		msg = m
	case msgStartGame:
		msg = startGameMessage{}
	case msgSubmitAnswer:
		var m submitAnswerMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, ErrMalformed
		}
		if m.ChoiceIndex == nil {
			return nil, ErrInvalidChoice
		}
		msg = m
	case msgLeaveRoom:
		msg = leaveRoomMessage{}
	case msgReturnToLobby:
		msg = returnToLobbyMessage{}
	case msgChat:
		var m chatMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, ErrMalformed
		}
		msg = m
	case msgPickCategory:
		var m pickCategoryMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, ErrMalformed
		}
		msg = m
	default:
		return nil, ErrUnknownType
	}
	return msg, nil
}

// Outbound payloads.

type playerView struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Score  int    `json:"score"`
	IsHost bool   `json:"isHost"`
}

type questionView struct {
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Category string   `json:"category,omitempty"`
}

type joinedMessage struct {
	Type         string       `json:"type"`
	PlayerID     int          `json:"playerId"`
	Code         string       `json:"code"`
	Phase        Phase        `json:"phase"`
	MaxPlayers   int          `json:"maxPlayers"`
	TargetPoints int          `json:"targetPoints,omitempty"`
	Category     string       `json:"category,omitempty"`
	Players      []playerView `json:"players"`
}

type playerJoinedMessage struct {
	Type   string     `json:"type"`
	Player playerView `json:"player"`
}

type playersMessage struct {
	Type    string       `json:"type"`
	Players []playerView `json:"players"`
}

type playerLeftMessage struct {
	Type     string `json:"type"`
	PlayerID int    `json:"playerId"`
}

type hostChangedMessage struct {
	Type     string `json:"type"`
	PlayerID int    `json:"playerId"`
}

type questionMessage struct {
	Type           string       `json:"type"`
	Question       questionView `json:"question"`
	QuestionNumber int          `json:"questionNumber"`
	Total          int          `json:"total"`
	TimeLimitMs    int64        `json:"timeLimitMs"`
	StartedAt      time.Time    `json:"startedAt"`
}

type answerSubmittedMessage struct {
	Type       string `json:"type"`
	Correct    bool   `json:"correct"`
	Points     int    `json:"points"`
	TotalScore int    `json:"totalScore"`
}

type playerAnsweredMessage struct {
	Type     string `json:"type"`
	PlayerID int    `json:"playerId"`
	Answered int    `json:"answered"`
	Expected int    `json:"expected"`
}

type playerResult struct {
	PlayerID int    `json:"playerId"`
	Name     string `json:"name"`
	Answered bool   `json:"answered"`
	Choice   *int   `json:"choice,omitempty"`
	Correct  bool   `json:"correct"`
	Points   int    `json:"points"`
	Score    int    `json:"score"`
}

type showResultsMessage struct {
	Type           string         `json:"type"`
	QuestionNumber int            `json:"questionNumber"`
	Total          int            `json:"total"`
	CorrectIndex   int            `json:"correctIndex"`
	Results        []playerResult `json:"results"`
}

type leaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID int    `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

type gameEndedMessage struct {
	Type        string             `json:"type"`
	Leaderboard []leaderboardEntry `json:"leaderboard"`
}

type chatFrom struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type chatBroadcast struct {
	Type string   `json:"type"`
	From chatFrom `json:"from"`
	Text string   `json:"text"`
}

type categoryPickedMessage struct {
	Type     string `json:"type"`
	Category string `json:"category"`
}

type reasonMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type signalMessage struct {
	Type string `json:"type"`
}

func newErrorMessage(err error) errorMessage {
	return errorMessage{Type: "error", Message: errorReason(err)}
}

func isBlankFrame(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}
