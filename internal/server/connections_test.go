package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinFirstPlayerBecomesHost(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 4)

	adaConn, ada := joinRoom(t, srv, code, "Ada")
	assert.True(t, ada.IsHost)
	assert.True(t, ada.Ready)

	msgs := drainMessages(t, adaConn)
	assert.Equal(t, []string{"joined", "updatePlayers"}, messageTypes(msgs))
	assert.EqualValues(t, ada.ID, msgs[0]["playerId"])

	_, bob := joinRoom(t, srv, code, "")
	assert.False(t, bob.IsHost)
	assert.False(t, bob.Ready)

	msgs = drainMessages(t, adaConn)
	assert.Equal(t, []string{"player_joined", "updatePlayers"}, messageTypes(msgs))

	state, ok := inspectRoom(t, srv, code)
	require.True(t, ok)
	assert.Equal(t, ada.ID, state.HostID)
	require.Len(t, state.Players, 2)
	assert.Equal(t, bob.ID, state.Players[1].ID)
}

func TestJoinPadsShortCodes(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	room, created := srv.rooms.CreateWithCode("000042", RoomOptions{MaxPlayers: 4}, srv.now())
	require.True(t, created)

	_, player := joinRoom(t, srv, "42", "Ada")
	state, ok := inspectRoom(t, srv, room.Code)
	require.True(t, ok)
	assert.Equal(t, player.ID, state.HostID)
}

func TestJoinRejections(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 1)
	conn, _ := joinRoom(t, srv, code, "Ada")

	_, err := srv.Join(conn, code, "Ada")
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	_, err = srv.Join(newConn(nil, nil), code, "Bob")
	assert.ErrorIs(t, err, ErrRoomFull)

	_, err = srv.Join(newConn(nil, nil), "999999", "Bob")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = srv.Join(newConn(nil, nil), "A1B2C3", "Bob")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	other := createRoom(t, srv, 4)
	_, err = srv.Join(newConn(nil, nil), other, "<script>")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestJoinFullRoomNeverExceedsLimit(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 3)
	for i := 0; i < 3; i++ {
		joinRoom(t, srv, code, "")
	}
	for i := 0; i < 5; i++ {
		_, err := srv.Join(newConn(nil, nil), code, "Late")
		assert.ErrorIs(t, err, ErrRoomFull)
	}
	state, ok := inspectRoom(t, srv, code)
	require.True(t, ok)
	assert.Len(t, state.Players, 3)
}

func TestJoinAutoCreatesRoom(t *testing.T) {
	cfg := testConfig()
	cfg.AutoCreateRooms = true
	srv, _ := newGameServer(t, cfg, Options{})

	conn, player := joinRoom(t, srv, "123", "Ada")
	assert.True(t, player.IsHost)
	joined, ok := findMessage(drainMessages(t, conn), "joined")
	require.True(t, ok)
	assert.EqualValues(t, cfg.TargetPoints, joined["targetPoints"])
	state, ok := inspectRoom(t, srv, "000123")
	require.True(t, ok)
	assert.Equal(t, player.ID, state.HostID)
	assert.Equal(t, cfg.MaxPlayers, srv.rooms.lookup("000123").MaxPlayers)
	assert.Equal(t, cfg.TargetPoints, srv.rooms.lookup("000123").TargetPoints)
}

func TestJoinDuringGame(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 4)
	host, _ := joinRoom(t, srv, code, "Ada")
	require.NoError(t, srv.StartGame(context.Background(), host))

	_, err := srv.Join(newConn(nil, nil), code, "Bob")
	assert.ErrorIs(t, err, ErrGameInProgress)
}

func TestLateJoinSeesQuestionButIsNotAwaited(t *testing.T) {
	cfg := testConfig()
	cfg.AllowLateJoin = true
	srv, _ := newGameServer(t, cfg, Options{})
	code := createRoom(t, srv, 4)
	host, _ := joinRoom(t, srv, code, "Ada")
	require.NoError(t, srv.StartGame(context.Background(), host))

	late, _ := joinRoom(t, srv, code, "Bob")
	msgs := drainMessages(t, late)
	assert.Equal(t, []string{"joined", "nextQuestion", "updatePlayers"}, messageTypes(msgs))

	_, err := srv.SubmitAnswer(host, 1)
	require.NoError(t, err)
	state, ok := inspectRoom(t, srv, code)
	require.True(t, ok)
	assert.Equal(t, phaseResults, state.Phase)
}

func TestSetNameMarksReady(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 4)
	conn, player := joinRoom(t, srv, code, "")
	drainMessages(t, conn)

	require.NoError(t, srv.SetName(conn, "  Ada   Lovelace "))
	msgs := drainMessages(t, conn)
	assert.Equal(t, []string{"updatePlayers"}, messageTypes(msgs))

	state, _ := inspectRoom(t, srv, code)
	require.Len(t, state.Players, 1)
	assert.Equal(t, player.ID, state.Players[0].ID)
	assert.Equal(t, "Ada Lovelace", state.Players[0].Name)
	assert.True(t, state.Players[0].Ready)

	assert.ErrorIs(t, srv.SetName(newConn(nil, nil), "Bob"), ErrNotInRoom)
	assert.ErrorIs(t, srv.SetName(conn, ""), ErrInvalidName)
}

func TestHostDisconnectMigratesToEarliestSeat(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 4)
	host, ada := joinRoom(t, srv, code, "Ada")
	bobConn, bob := joinRoom(t, srv, code, "Bob")
	_, cy := joinRoom(t, srv, code, "Cy")
	drainMessages(t, bobConn)

	srv.Disconnect(host)

	state, ok := inspectRoom(t, srv, code)
	require.True(t, ok)
	assert.Equal(t, bob.ID, state.HostID)
	hosts := 0
	for _, player := range state.Players {
		assert.NotEqual(t, ada.ID, player.ID)
		if player.IsHost {
			hosts++
			assert.Equal(t, bob.ID, player.ID)
		}
	}
	assert.Equal(t, 1, hosts)
	assert.Equal(t, cy.ID, state.Players[1].ID)

	msgs := drainMessages(t, bobConn)
	assert.Equal(t, []string{"player_left", "hostChanged", "updatePlayers"}, messageTypes(msgs))
	assert.EqualValues(t, bob.ID, msgs[1]["playerId"])

	select {
	case <-host.Done():
	default:
		t.Fatal("disconnected conn should be closed")
	}
}

func TestLeaveSignalsDepartingConnection(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 4)
	adaConn, _ := joinRoom(t, srv, code, "Ada")
	bobConn, _ := joinRoom(t, srv, code, "Bob")
	drainMessages(t, adaConn)
	drainMessages(t, bobConn)

	require.NoError(t, srv.Leave(bobConn))
	assert.Equal(t, []string{"left"}, messageTypes(drainMessages(t, bobConn)))
	assert.Equal(t, []string{"player_left", "updatePlayers"}, messageTypes(drainMessages(t, adaConn)))

	_, _, bound := bobConn.binding()
	assert.False(t, bound)
	assert.ErrorIs(t, srv.Leave(bobConn), ErrNotInRoom)

	// The connection is still usable for another room.
	_, err := srv.Join(bobConn, code, "Bob")
	require.NoError(t, err)
}

func TestLastPlayerLeavingDeletesRoom(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 4)
	conn, _ := joinRoom(t, srv, code, "Ada")

	require.NoError(t, srv.Leave(conn))
	_, ok := srv.rooms.Get(code)
	assert.False(t, ok)
	assert.Equal(t, 0, srv.rooms.Len())
	_, err := srv.Join(newConn(nil, nil), code, "Bob")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestChatBroadcastsToRoom(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 4)
	adaConn, ada := joinRoom(t, srv, code, "Ada")
	bobConn, _ := joinRoom(t, srv, code, "Bob")
	drainMessages(t, adaConn)
	drainMessages(t, bobConn)

	require.NoError(t, srv.Chat(adaConn, "  hello  there "))
	msg, ok := findMessage(drainMessages(t, bobConn), "chat")
	require.True(t, ok)
	assert.Equal(t, "hello there", msg["text"])
	from := msg["from"].(map[string]any)
	assert.EqualValues(t, ada.ID, from["id"])
	assert.Equal(t, "Ada", from["name"])

	assert.ErrorIs(t, srv.Chat(adaConn, "   "), ErrInvalidMessage)
	assert.ErrorIs(t, srv.Chat(newConn(nil, nil), "hi"), ErrNotInRoom)
}
