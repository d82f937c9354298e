package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreAnswer(t *testing.T) {
	cases := []struct {
		name    string
		elapsed int64
		want    int
	}{
		{name: "instant", elapsed: 0, want: 1000},
		{name: "half", elapsed: 15000, want: 750},
		{name: "floors", elapsed: 10001, want: 833},
		{name: "at limit", elapsed: 30000, want: 500},
		{name: "past limit", elapsed: 45000, want: 500},
		{name: "clock skew", elapsed: -200, want: 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, scoreAnswer(tc.elapsed, 30000, 500, 500))
		})
	}
}

func startTwoPlayerGame(t *testing.T) (*Server, *testClock, string, *Conn, Player, *Conn, Player) {
	t.Helper()
	cfg := testConfig()
	cfg.RoundTime = 30 * time.Second
	srv, clock := newGameServer(t, cfg, Options{})
	code := createRoom(t, srv, 2)
	p1Conn, p1 := joinRoom(t, srv, code, "Ada")
	p2Conn, p2 := joinRoom(t, srv, code, "Bob")
	require.NoError(t, srv.StartGame(context.Background(), p1Conn))
	drainMessages(t, p1Conn)
	drainMessages(t, p2Conn)
	return srv, clock, code, p1Conn, p1, p2Conn, p2
}

func TestTwoPlayerScenario(t *testing.T) {
	srv, clock, code, p1Conn, p1, p2Conn, p2 := startTwoPlayerGame(t)

	_, err := srv.Join(newConn(nil, nil), code, "Cy")
	assert.ErrorIs(t, err, ErrGameInProgress)

	answer, err := srv.SubmitAnswer(p1Conn, 1)
	require.NoError(t, err)
	assert.True(t, answer.Correct)
	assert.Equal(t, 1000, answer.Points)

	state, _ := inspectRoom(t, srv, code)
	assert.Equal(t, phaseQuestion, state.Phase)

	clock.Advance(29 * time.Second)
	answer, err = srv.SubmitAnswer(p2Conn, 0)
	require.NoError(t, err)
	assert.False(t, answer.Correct)
	assert.Zero(t, answer.Points)

	state, _ = inspectRoom(t, srv, code)
	assert.Equal(t, phaseResults, state.Phase)
	assert.Greater(t, playerScore(state, p1.ID), playerScore(state, p2.ID))
	assert.Equal(t, 0, playerScore(state, p2.ID))

	private, ok := findMessage(drainMessages(t, p1Conn), "answerSubmitted")
	require.True(t, ok)
	assert.Equal(t, true, private["correct"])
	assert.EqualValues(t, 1000, private["totalScore"])

	msgs := drainMessages(t, p2Conn)
	assert.Equal(t, []string{"playerAnswered", "answerSubmitted", "playerAnswered"}, messageTypes(msgs))
}

func TestSecondAnswerRejected(t *testing.T) {
	srv, _, code, p1Conn, p1, _, _ := startTwoPlayerGame(t)

	_, err := srv.SubmitAnswer(p1Conn, 1)
	require.NoError(t, err)
	before, _ := inspectRoom(t, srv, code)

	_, err = srv.SubmitAnswer(p1Conn, 1)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)
	_, err = srv.SubmitAnswer(p1Conn, 0)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	after, _ := inspectRoom(t, srv, code)
	assert.Equal(t, playerScore(before, p1.ID), playerScore(after, p1.ID))
}

func TestAnswerRejections(t *testing.T) {
	srv, _, code, p1Conn, _, _, _ := startTwoPlayerGame(t)

	_, err := srv.SubmitAnswer(p1Conn, 4)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	_, err = srv.SubmitAnswer(p1Conn, -1)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	_, err = srv.SubmitAnswer(newConn(nil, nil), 1)
	assert.ErrorIs(t, err, ErrNotInRoom)

	state, _ := inspectRoom(t, srv, code)
	assert.Equal(t, phaseQuestion, state.Phase)

	lobby := createRoom(t, srv, 2)
	conn, _ := joinRoom(t, srv, lobby, "Ada")
	_, err = srv.SubmitAnswer(conn, 0)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestWrongAnswerLeavesScore(t *testing.T) {
	srv, clock, code, p1Conn, p1, _, _ := startTwoPlayerGame(t)
	clock.Advance(time.Second)
	answer, err := srv.SubmitAnswer(p1Conn, 3)
	require.NoError(t, err)
	assert.Zero(t, answer.Points)
	state, _ := inspectRoom(t, srv, code)
	assert.Equal(t, 0, playerScore(state, p1.ID))
}

func TestAllAnsweredClosesQuestionInAnyOrder(t *testing.T) {
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	for _, order := range orders {
		srv, _ := newGameServer(t, testConfig(), Options{})
		code := createRoom(t, srv, 3)
		conns := make([]*Conn, 3)
		for i, name := range []string{"Ada", "Bob", "Cy"} {
			conns[i], _ = joinRoom(t, srv, code, name)
		}
		require.NoError(t, srv.StartGame(context.Background(), conns[0]))

		for i, idx := range order {
			state, _ := inspectRoom(t, srv, code)
			require.Equal(t, phaseQuestion, state.Phase, "order %v step %d", order, i)
			_, err := srv.SubmitAnswer(conns[idx], idx%4)
			require.NoError(t, err)
		}
		state, _ := inspectRoom(t, srv, code)
		assert.Equal(t, phaseResults, state.Phase, "order %v", order)
	}
}

func TestUnreadyPlayerIsNotAwaited(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 3)
	host, _ := joinRoom(t, srv, code, "Ada")
	joinRoom(t, srv, code, "")
	require.NoError(t, srv.StartGame(context.Background(), host))

	state, _ := inspectRoom(t, srv, code)
	assert.Equal(t, 1, state.Expected)

	_, err := srv.SubmitAnswer(host, 1)
	require.NoError(t, err)
	state, _ = inspectRoom(t, srv, code)
	assert.Equal(t, phaseResults, state.Phase)
}

func TestPlayerNamedMidQuestionWaitsForNextQuestion(t *testing.T) {
	cfg := testConfig()
	cfg.RevealDelay = 5 * time.Millisecond
	cfg.ResultsDelay = 5 * time.Millisecond
	srv, _ := newGameServer(t, cfg, Options{})
	code := createRoom(t, srv, 3)
	host, _ := joinRoom(t, srv, code, "Ada")
	late, _ := joinRoom(t, srv, code, "")
	require.NoError(t, srv.StartGame(context.Background(), host))

	require.NoError(t, srv.SetName(late, "Bob"))
	state, _ := inspectRoom(t, srv, code)
	assert.Equal(t, phaseQuestion, state.Phase)
	assert.Equal(t, 1, state.Expected)

	_, err := srv.SubmitAnswer(host, 1)
	require.NoError(t, err)
	state, _ = inspectRoom(t, srv, code)
	assert.True(t, state.Phase != phaseQuestion || state.QuestionIndex == 1, "first question still open")

	require.Eventually(t, func() bool {
		state, _ := inspectRoom(t, srv, code)
		return state.Phase == phaseQuestion && state.QuestionIndex == 1
	}, 2*time.Second, 5*time.Millisecond)
	state, _ = inspectRoom(t, srv, code)
	assert.Equal(t, 2, state.Expected)
}

func TestLeavingPlayerCompletesQuestion(t *testing.T) {
	srv, _, code, p1Conn, _, p2Conn, _ := startTwoPlayerGame(t)

	_, err := srv.SubmitAnswer(p1Conn, 1)
	require.NoError(t, err)
	srv.Disconnect(p2Conn)

	state, ok := inspectRoom(t, srv, code)
	require.True(t, ok)
	assert.Equal(t, phaseResults, state.Phase)
}

func TestConcurrentAnswersTransitionOnce(t *testing.T) {
	srv, _ := newGameServer(t, testConfig(), Options{})
	code := createRoom(t, srv, 8)
	conns := make([]*Conn, 8)
	for i := range conns {
		conns[i], _ = joinRoom(t, srv, code, "P"+string(rune('A'+i)))
	}
	require.NoError(t, srv.StartGame(context.Background(), conns[0]))
	startStep := srv.rooms.lookup(code).step

	done := make(chan struct{})
	for _, conn := range conns {
		go func(conn *Conn) {
			defer func() { done <- struct{}{} }()
			_, _ = srv.SubmitAnswer(conn, 1)
		}(conn)
	}
	for range conns {
		<-done
	}

	var step uint64
	require.NoError(t, srv.rooms.View(code, func(room *Room) { step = room.step }))
	assert.Equal(t, startStep+1, step)
	state, _ := inspectRoom(t, srv, code)
	assert.Equal(t, phaseResults, state.Phase)
}
