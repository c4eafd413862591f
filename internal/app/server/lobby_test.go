package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Matir03/ttc-server/internal/domains/entities"
)

// The lobby's seek set must always equal the set implied by replaying
// inserts minus removes, and ids must never be reused.
func TestSeekSetMatchesReplay(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := newLobby(newHub())
		model := make(map[int]entities.Seek)
		seen := make(map[int]bool)

		ops := rapid.IntRange(1, 60).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			if len(model) == 0 || rapid.Bool().Draw(t, "insert") {
				owner := rapid.SampledFrom([]string{"alice", "bob", "carol"}).Draw(t, "owner")
				seek := l.insertSeek(entities.Seek{
					Player: owner,
					Color:  entities.SeekRandom,
				})
				if seen[seek.Id] {
					t.Fatalf("seek id %d reused", seek.Id)
				}
				seen[seek.Id] = true
				model[seek.Id] = seek
			} else {
				id := rapid.IntRange(-1, ops).Draw(t, "removeId")
				l.removeSeek(id)
				delete(model, id)
			}
		}

		snap := l.snapshotFor("zed")
		if len(snap.Seeks) != len(model) {
			t.Fatalf("got %d seeks, model has %d", len(snap.Seeks), len(model))
		}
		for _, seek := range snap.Seeks {
			if model[seek.Id] != seek {
				t.Fatalf("seek %d diverged from model", seek.Id)
			}
		}
	})
}

func TestRemoveAbsentSeekIsNoop(t *testing.T) {
	l := newLobby(newHub())
	l.removeSeek(42)

	seek := l.insertSeek(entities.Seek{Player: "alice", Color: entities.SeekRandom})
	l.removeSeek(seek.Id)
	l.removeSeek(seek.Id)
	assert.Empty(t, l.snapshotFor("alice").Seeks)
}

func TestPrivateSeekVisibility(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, _ := joinPlayer(t, srv, "alice")
	bob, _ := joinPlayer(t, srv, "bob")
	_, carolWire := joinPlayer(t, srv, "carol")
	_, daveWire := joinPlayer(t, srv, "dave")

	srv.handleLobbyAction(alice, MakeSeek{Color: entities.SeekRandom})
	carolWire.reset()
	daveWire.reset()
	srv.handleLobbyAction(bob, MakeSeek{Color: entities.SeekWhite, Opponent: "carol"})

	// Only bob and carol learn about the targeted seek.
	assert.Len(t, eventsOf[AddSeek](carolWire), 1)
	assert.Empty(t, eventsOf[AddSeek](daveWire))

	assert.Len(t, srv.lobby.snapshotFor("bob").Seeks, 2)
	assert.Len(t, srv.lobby.snapshotFor("carol").Seeks, 2)
	assert.Len(t, srv.lobby.snapshotFor("dave").Seeks, 1)
	assert.Len(t, srv.lobby.snapshotFor("alice").Seeks, 1)
}

func TestTargetedSeekOnlyNamedOpponentMayAccept(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, _ := joinPlayer(t, srv, "alice")
	_, _ = joinPlayer(t, srv, "carol")
	dave, _ := joinPlayer(t, srv, "dave")

	srv.handleLobbyAction(alice, MakeSeek{Color: entities.SeekWhite, Opponent: "carol"})
	srv.handleLobbyAction(dave, AcceptSeek{Id: 0})

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Empty(t, srv.sessions)
}

func TestAcceptSeekStartsGame(t *testing.T) {
	srv, _ := newTestServer(t)
	sess, alice, bob, _, _ := startTimedGame(t, srv,
		entities.TimeControl{Base: 300000}, entities.TimeControl{Base: 300000})

	assert.Equal(t, "game0", alice.currentRoom())
	assert.Equal(t, "game0", bob.currentRoom())
	assert.Equal(t, entities.StatusPlaying, srv.lobby.playerStatus("alice"))
	assert.Equal(t, entities.StatusPlaying, srv.lobby.playerStatus("bob"))

	lobbySnap := srv.lobby.snapshotFor("zed")
	assert.Empty(t, lobbySnap.Seeks)
	require.Len(t, lobbySnap.Games, 1)
	assert.Equal(t, entities.LobbyGame{
		Id: 0, White: "alice", Black: "bob", Status: "playing",
	}, lobbySnap.Games[0])
	require.NotEmpty(t, lobbySnap.Chat)
	assert.Equal(t, "alice and bob are playing", lobbySnap.Chat[len(lobbySnap.Chat)-1].Text)

	// The session's opening chat line reaches players, not spectators.
	snap := sess.snapshotFor("alice")
	require.NotEmpty(t, snap.Chat)
	assert.Equal(t, "New game started between alice and bob", snap.Chat[0].Text)
	assert.Empty(t, sess.snapshotFor("zed").Chat)
}

// Accepting the same seek twice must resolve to first wins, second no-op.
func TestAcceptSeekRace(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, _ := joinPlayer(t, srv, "alice")
	bob, _ := joinPlayer(t, srv, "bob")
	carol, _ := joinPlayer(t, srv, "carol")

	srv.handleLobbyAction(alice, MakeSeek{Color: entities.SeekWhite})
	srv.handleLobbyAction(bob, AcceptSeek{Id: 0})
	srv.handleLobbyAction(carol, AcceptSeek{Id: 0})

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Len(t, srv.sessions, 1)
}

func TestAcceptOwnSeekIsNoop(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, _ := joinPlayer(t, srv, "alice")

	srv.handleLobbyAction(alice, MakeSeek{Color: entities.SeekWhite})
	srv.handleLobbyAction(alice, AcceptSeek{Id: 0})

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Empty(t, srv.sessions)
}

// A player entering a game abandons all their other open offers.
func TestAcceptSeekRemovesBothPlayersSeeks(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, _ := joinPlayer(t, srv, "alice")
	bob, _ := joinPlayer(t, srv, "bob")

	srv.handleLobbyAction(alice, MakeSeek{Color: entities.SeekWhite})
	srv.handleLobbyAction(alice, MakeSeek{Color: entities.SeekRandom})
	srv.handleLobbyAction(bob, MakeSeek{Color: entities.SeekBlack})
	srv.handleLobbyAction(bob, AcceptSeek{Id: 0})

	assert.Empty(t, srv.lobby.snapshotFor("zed").Seeks)
}

func TestSeekColorPolicy(t *testing.T) {
	// A Black seek means the accepter plays White, and vice versa.
	for _, tc := range []struct {
		color entities.SeekColor
		white string
	}{
		{entities.SeekWhite, "alice"},
		{entities.SeekBlack, "bob"},
	} {
		srv, _ := newTestServer(t)
		alice, _ := joinPlayer(t, srv, "alice")
		bob, _ := joinPlayer(t, srv, "bob")

		srv.handleLobbyAction(alice, MakeSeek{Color: tc.color})
		srv.handleLobbyAction(bob, AcceptSeek{Id: 0})

		srv.mu.Lock()
		sess := srv.sessions[0]
		srv.mu.Unlock()
		require.NotNil(t, sess, "color %s", tc.color)
		assert.Equal(t, tc.white, sess.white, "color %s", tc.color)
	}
}

func TestRandomSeekAssignsBothColors(t *testing.T) {
	accepterWhite := 0
	const trials = 100
	for i := 0; i < trials; i++ {
		srv, _ := newTestServer(t)
		alice, _ := joinPlayer(t, srv, "alice")
		bob, _ := joinPlayer(t, srv, "bob")

		srv.handleLobbyAction(alice, MakeSeek{Color: entities.SeekRandom})
		srv.handleLobbyAction(bob, AcceptSeek{Id: 0})

		srv.mu.Lock()
		sess := srv.sessions[0]
		srv.mu.Unlock()
		require.NotNil(t, sess)
		if sess.white == "bob" {
			accepterWhite++
		}
	}
	assert.Greater(t, accepterWhite, 0)
	assert.Less(t, accepterWhite, trials)
}

func TestDeleteSeekRequiresOwnership(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, _ := joinPlayer(t, srv, "alice")
	bob, _ := joinPlayer(t, srv, "bob")

	srv.handleLobbyAction(alice, MakeSeek{Color: entities.SeekWhite})
	srv.handleLobbyAction(bob, DeleteSeek{Id: 0})
	assert.Len(t, srv.lobby.snapshotFor("zed").Seeks, 1)

	srv.handleLobbyAction(alice, DeleteSeek{Id: 0})
	assert.Empty(t, srv.lobby.snapshotFor("zed").Seeks)
}

func TestLobbyChat(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, _ := joinPlayer(t, srv, "alice")
	_, bobWire := joinPlayer(t, srv, "bob")

	srv.handleLobbyAction(alice, LobbyChat{Message: "hi all"})

	chats := eventsOf[ChatEvent](bobWire)
	require.Len(t, chats, 1)
	assert.Equal(t, entities.ChatMessage{Sender: "alice", Text: "hi all"}, chats[0].Message)
}
