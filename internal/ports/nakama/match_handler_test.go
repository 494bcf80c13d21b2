package nakama

import (
	"context"
	"encoding/json"
	"testing"

	"partyboard/internal/app"
	"partyboard/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode    int64
	data      []byte
	presences []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	sent         []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.sent = append(md.sent, sentMessage{opCode: opCode, data: append([]byte(nil), data...), presences: presences})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) byOp(opCode int64) []sentMessage {
	var out []sentMessage
	for _, m := range md.sent {
		if m.opCode == opCode {
			out = append(out, m)
		}
	}
	return out
}

func (md *mockDispatcher) reset() {
	md.sent = nil
}

type mockPresence struct {
	userID    string
	sessionID string
	username  string
}

func (p *mockPresence) GetHidden() bool                   { return false }
func (p *mockPresence) GetPersistence() bool              { return false }
func (p *mockPresence) GetUsername() string               { return p.username }
func (p *mockPresence) GetStatus() string                 { return "" }
func (p *mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p *mockPresence) GetUserId() string                 { return p.userID }
func (p *mockPresence) GetSessionId() string              { return p.sessionID }
func (p *mockPresence) GetNodeId() string                 { return "node" }

type mockMatchData struct {
	*mockPresence
	opCode int64
	data   []byte
}

func (m *mockMatchData) GetOpCode() int64      { return m.opCode }
func (m *mockMatchData) GetData() []byte       { return m.data }
func (m *mockMatchData) GetReference() string  { return "" }
func (m *mockMatchData) GetReliable() bool     { return true }
func (m *mockMatchData) GetReceiveTime() int64 { return 0 }

// mockNakama overrides the NakamaModule calls the adapter makes.
type mockNakama struct {
	runtime.NakamaModule
	matches   []*api.Match
	created   []map[string]interface{}
	signals   []string
	counters  map[string]int64
	lastQuery string
}

func (m *mockNakama) MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error) {
	m.created = append(m.created, params)
	return "match-new", nil
}

func (m *mockNakama) MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error) {
	m.lastQuery = query
	return m.matches, nil
}

func (m *mockNakama) MatchSignal(ctx context.Context, id string, data string) (string, error) {
	m.signals = append(m.signals, data)
	return `{"ok":true}`, nil
}

func (m *mockNakama) MetricsCounterAdd(name string, tags map[string]string, delta int64) {
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[name] += delta
}

func matchMsg(p *mockPresence, opCode int64, payload any) runtime.MatchData {
	var data []byte
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	return &mockMatchData{mockPresence: p, opCode: opCode, data: data}
}

func newTestMatch(t *testing.T, env map[string]string, params map[string]interface{}) (*matchHandler, *MatchState, string) {
	t.Helper()
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, env)
	ctx = context.WithValue(ctx, runtime.RUNTIME_CTX_MATCH_ID, "match-1")
	handler := &matchHandler{}
	state, tickRate, label := handler.MatchInit(ctx, noopLogger{}, nil, nil, params)
	if state == nil {
		t.Fatal("MatchInit returned nil state")
	}
	if tickRate <= 0 {
		t.Fatalf("tick rate = %d", tickRate)
	}
	return handler, state.(*MatchState), label
}

func decodeLabel(t *testing.T, label string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(label), &out); err != nil {
		t.Fatalf("label %q: %v", label, err)
	}
	return out
}

// lobby joins host and guest, puts them on red and blue, and returns the presences.
func lobby(t *testing.T, handler *matchHandler, state *MatchState, dispatcher *mockDispatcher) (*mockPresence, *mockPresence) {
	t.Helper()
	host := &mockPresence{userID: "user-a", sessionID: "s1", username: "alice"}
	guest := &mockPresence{userID: "user-b", sessionID: "s2", username: "bob"}
	ctx := context.Background()
	handler.MatchJoin(ctx, noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.Presence{host, guest})
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{
		matchMsg(host, OpJoinSession, joinSessionRequest{Name: "Alice"}),
		matchMsg(guest, OpJoinSession, joinSessionRequest{}),
		matchMsg(host, OpJoinTeam, joinTeamRequest{TeamID: "red"}),
		matchMsg(guest, OpJoinTeam, joinTeamRequest{TeamID: "blue"}),
	})
	if got := state.Session.PlayerCount(); got != 2 {
		t.Fatalf("players = %d, want 2", got)
	}
	return host, guest
}

func lastError(t *testing.T, dispatcher *mockDispatcher) (ValidationErrorEvent, []runtime.Presence) {
	t.Helper()
	errs := dispatcher.byOp(OpValidationError)
	if len(errs) == 0 {
		t.Fatal("expected a validation error")
	}
	last := errs[len(errs)-1]
	var ev ValidationErrorEvent
	if err := json.Unmarshal(last.data, &ev); err != nil {
		t.Fatalf("unmarshal error event: %v", err)
	}
	return ev, last.presences
}

func TestMatchInit_LabelAndConfig(t *testing.T) {
	_, state, label := newTestMatch(t, map[string]string{
		"partyboard_max_players": "10",
		"partyboard_tick_rate":   "2",
	}, map[string]interface{}{ParamHostUserID: "user-a"})

	want := map[string]interface{}{
		MatchLabelKey_Game:    GameLabel,
		MatchLabelKey_Phase:   "lobby",
		MatchLabelKey_Open:    float64(10),
		MatchLabelKey_Players: float64(0),
	}
	if diff := cmp.Diff(want, decodeLabel(t, label)); diff != "" {
		t.Fatalf("label mismatch (-want +got):\n%s", diff)
	}
	if state.Config.TickRate != 2 {
		t.Fatalf("tick rate = %d, want 2", state.Config.TickRate)
	}
	if state.Session.HostUserID() != "user-a" {
		t.Fatalf("host = %q, want user-a", state.Session.HostUserID())
	}
}

func TestMatchInit_BadConfig(t *testing.T) {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, map[string]string{"partyboard_board_length": "zero"})
	state, _, _ := (&matchHandler{}).MatchInit(ctx, noopLogger{}, nil, nil, nil)
	if state != nil {
		t.Fatal("expected nil state for invalid config")
	}
}

func TestMatchJoinAttempt_Capacity(t *testing.T) {
	handler, state, _ := newTestMatch(t, map[string]string{"partyboard_max_players": "1"}, nil)
	dispatcher := &mockDispatcher{}
	ctx := context.Background()
	first := &mockPresence{userID: "u1", sessionID: "s1"}

	if _, ok, _ := handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, first, nil); !ok {
		t.Fatal("first join attempt rejected")
	}
	handler.MatchJoin(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, []runtime.Presence{first})

	second := &mockPresence{userID: "u2", sessionID: "s2"}
	if _, ok, reason := handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, second, nil); ok || reason == "" {
		t.Fatalf("second join attempt accepted (reason %q)", reason)
	}
}

func TestMatchJoin_SendsSnapshotToJoiner(t *testing.T) {
	handler, state, _ := newTestMatch(t, nil, nil)
	dispatcher := &mockDispatcher{}
	p := &mockPresence{userID: "u1", sessionID: "s1"}

	handler.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 0, state, []runtime.Presence{p})

	snaps := dispatcher.byOp(OpStateSnapshot)
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snaps))
	}
	if len(snaps[0].presences) != 1 || snaps[0].presences[0].GetSessionId() != "s1" {
		t.Fatalf("snapshot recipients = %v", snaps[0].presences)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(snaps[0].data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.Phase != domain.PhaseLobby || len(snap.Teams) != 4 {
		t.Fatalf("snapshot phase=%s teams=%d", snap.Phase, len(snap.Teams))
	}
	if dispatcher.labelUpdates != 1 {
		t.Fatalf("label updates = %d, want 1", dispatcher.labelUpdates)
	}
}

func TestMatchLoop_LobbyFlow(t *testing.T) {
	handler, state, _ := newTestMatch(t, nil, map[string]interface{}{ParamHostUserID: "user-a"})
	dispatcher := &mockDispatcher{}
	lobby(t, handler, state, dispatcher)

	if got := len(dispatcher.byOp(OpPlayerJoined)); got != 2 {
		t.Fatalf("player_joined events = %d, want 2", got)
	}
	if got := len(dispatcher.byOp(OpTeamChanged)); got != 2 {
		t.Fatalf("team_changed events = %d, want 2", got)
	}
	if len(dispatcher.byOp(OpValidationError)) != 0 {
		t.Fatal("unexpected validation error in lobby flow")
	}
	// The guest sent no name, so the presence username is used.
	if pl := state.Session.Roster().Player("s2"); pl == nil || pl.Name != "bob" {
		t.Fatalf("guest player = %+v", pl)
	}
	label := decodeLabel(t, dispatcher.lastLabel)
	if label[MatchLabelKey_Players] != float64(2) {
		t.Fatalf("label players = %v, want 2", label[MatchLabelKey_Players])
	}
}

func TestMatchLoop_StartAndRoll(t *testing.T) {
	handler, state, _ := newTestMatch(t, nil, map[string]interface{}{ParamHostUserID: "user-a"})
	dispatcher := &mockDispatcher{}
	host, guest := lobby(t, handler, state, dispatcher)
	ctx := context.Background()

	// Only the host may start.
	dispatcher.reset()
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 3, state, []runtime.MatchData{matchMsg(guest, OpStartSession, nil)})
	ev, to := lastError(t, dispatcher)
	if ev.Code != string(domain.CodeNotHost) {
		t.Fatalf("code = %s, want %s", ev.Code, domain.CodeNotHost)
	}
	if len(to) != 1 || to[0].GetSessionId() != "s2" {
		t.Fatalf("error recipients = %v, want only the guest", to)
	}

	dispatcher.reset()
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 4, state, []runtime.MatchData{matchMsg(host, OpStartSession, nil)})
	if state.Session.Phase() != domain.PhaseInProgress {
		t.Fatalf("phase = %s, want in_progress", state.Session.Phase())
	}
	if len(dispatcher.byOp(OpSessionStarted)) != 1 || len(dispatcher.byOp(OpStateSnapshot)) == 0 {
		t.Fatal("expected session_started followed by a snapshot")
	}
	if label := decodeLabel(t, dispatcher.lastLabel); label[MatchLabelKey_Open] != float64(0) {
		t.Fatalf("label open = %v once started", label[MatchLabelKey_Open])
	}

	// Blue is second in the turn order.
	dispatcher.reset()
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 5, state, []runtime.MatchData{matchMsg(guest, OpRollDice, teamRequest{TeamID: "blue"})})
	if ev, _ := lastError(t, dispatcher); ev.Code != string(domain.CodeNotYourTurn) {
		t.Fatalf("code = %s, want %s", ev.Code, domain.CodeNotYourTurn)
	}

	dispatcher.reset()
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 6, state, []runtime.MatchData{matchMsg(host, OpRollDice, teamRequest{TeamID: "red"})})
	rolls := dispatcher.byOp(OpDiceResult)
	if len(rolls) != 1 {
		t.Fatalf("dice results = %d, want 1", len(rolls))
	}
	var roll app.DiceResultPayload
	if err := json.Unmarshal(rolls[0].data, &roll); err != nil {
		t.Fatalf("unmarshal dice result: %v", err)
	}
	if roll.TeamID != "red" || roll.Total != roll.Dice[0]+roll.Dice[1] {
		t.Fatalf("dice result = %+v", roll)
	}
	if rolls[0].presences != nil {
		t.Fatal("dice result should be broadcast")
	}
}

func TestMatchLoop_MalformedPayload(t *testing.T) {
	handler, state, _ := newTestMatch(t, nil, nil)
	dispatcher := &mockDispatcher{}
	p := &mockPresence{userID: "u1", sessionID: "s1"}
	ctx := context.Background()
	handler.MatchJoin(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, []runtime.Presence{p})

	bad := &mockMatchData{mockPresence: p, opCode: OpJoinSession, data: []byte("{not json")}
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{bad})

	if ev, _ := lastError(t, dispatcher); ev.Code != string(domain.CodeInvalidArgument) || ev.Kind != string(domain.KindValidation) {
		t.Fatalf("error = %+v", ev)
	}
	if state.Session.PlayerCount() != 0 {
		t.Fatal("malformed join registered a player")
	}
}

func TestMatchSignal_HostControl(t *testing.T) {
	handler, state, _ := newTestMatch(t, nil, map[string]interface{}{ParamHostUserID: "user-a"})
	dispatcher := &mockDispatcher{}
	host, _ := lobby(t, handler, state, dispatcher)
	ctx := context.Background()

	signal := func(userID, action string) SignalReply {
		t.Helper()
		data, _ := json.Marshal(hostSignal{UserID: userID, HostCommand: app.HostCommand{Action: action}})
		_, out := handler.MatchSignal(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, string(data))
		var reply SignalReply
		if err := json.Unmarshal([]byte(out), &reply); err != nil {
			t.Fatalf("unmarshal reply %q: %v", out, err)
		}
		return reply
	}

	if reply := signal("user-b", app.ActionPauseGame); reply.OK || reply.Error.Code != string(domain.CodeNotHost) {
		t.Fatalf("non-host reply = %+v", reply)
	}
	if reply := signal("user-a", app.ActionPauseGame); reply.OK || reply.Error.Code != string(domain.CodeSessionNotRunning) {
		t.Fatalf("lobby pause reply = %+v", reply)
	}

	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 3, state, []runtime.MatchData{matchMsg(host, OpStartSession, nil)})
	dispatcher.reset()
	if reply := signal("user-a", app.ActionPauseGame); !reply.OK {
		t.Fatalf("pause reply = %+v", reply)
	}
	if !state.Session.Paused() || len(dispatcher.byOp(OpSessionPaused)) != 1 {
		t.Fatal("expected the session to pause")
	}

	_, out := handler.MatchSignal(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, "garbage")
	var reply SignalReply
	if err := json.Unmarshal([]byte(out), &reply); err != nil || reply.OK || reply.Error.Code != string(domain.CodeInvalidArgument) {
		t.Fatalf("garbage reply = %q", out)
	}
}

func TestMatchLeave(t *testing.T) {
	handler, state, _ := newTestMatch(t, nil, map[string]interface{}{ParamHostUserID: "user-a"})
	dispatcher := &mockDispatcher{}
	host, guest := lobby(t, handler, state, dispatcher)
	ctx := context.Background()

	dispatcher.reset()
	if next := handler.MatchLeave(ctx, noopLogger{}, nil, nil, dispatcher, 3, state, []runtime.Presence{guest}); next == nil {
		t.Fatal("match terminated with a player still connected")
	}
	if state.Session.Roster().Player("s2") != nil {
		t.Fatal("guest still registered after leaving")
	}
	if len(dispatcher.byOp(OpPlayerLeft)) != 1 {
		t.Fatal("expected player_left")
	}

	if next := handler.MatchLeave(ctx, noopLogger{}, nil, nil, dispatcher, 4, state, []runtime.Presence{host}); next != nil {
		t.Fatal("expected the empty match to terminate")
	}
}

func TestBroadcastEvent_ReachesWholeMatch(t *testing.T) {
	handler, state, _ := newTestMatch(t, nil, nil)
	dispatcher := &mockDispatcher{}
	state.Presences["s1"] = &mockPresence{userID: "u1", sessionID: "s1"}
	state.Presences["s2"] = &mockPresence{userID: "u2", sessionID: "s2"}

	handler.broadcastEvent(state, dispatcher, noopLogger{}, app.Event{Kind: app.EventSessionPaused})
	handler.broadcastEvent(state, dispatcher, noopLogger{}, app.Event{Kind: app.EventTurnTimer, Payload: app.TurnTimerPayload{TeamID: "red", SecondsRemaining: 5}})
	if len(dispatcher.sent) != 2 {
		t.Fatalf("sent = %+v", dispatcher.sent)
	}
	if string(dispatcher.sent[0].data) != "{}" {
		t.Errorf("nil payload encoded as %q, want {}", dispatcher.sent[0].data)
	}
	for i, m := range dispatcher.sent {
		if m.presences != nil {
			t.Errorf("message %d targeted %d presences, want a broadcast", i, len(m.presences))
		}
	}
}

func TestDispatch_TimerOnlyBatchSkipsSnapshot(t *testing.T) {
	handler, state, _ := newTestMatch(t, nil, nil)
	dispatcher := &mockDispatcher{}

	handler.dispatch(state, dispatcher, noopLogger{}, []app.Event{{Kind: app.EventTurnTimer, Payload: app.TurnTimerPayload{TeamID: "red", SecondsRemaining: 3}}})
	if len(dispatcher.byOp(OpStateSnapshot)) != 0 {
		t.Fatal("timer-only batch sent a snapshot")
	}

	handler.dispatch(state, dispatcher, noopLogger{}, []app.Event{{Kind: app.EventSessionResumed}})
	if len(dispatcher.byOp(OpStateSnapshot)) != 1 {
		t.Fatal("mutating batch did not send a snapshot")
	}
}

func TestEventOpCodes_CoverEveryKind(t *testing.T) {
	kinds := []app.EventKind{
		app.EventPlayerJoined, app.EventPlayerLeft, app.EventTeamCreated, app.EventTeamChanged,
		app.EventSessionStarted, app.EventDiceResult, app.EventTileLanded, app.EventMiniGameStarted,
		app.EventMiniGameTimerArmed, app.EventMiniGameGraded, app.EventCardDrawn, app.EventScoreChanged,
		app.EventTransitionBegun, app.EventTurnEnded, app.EventCaptainChanged, app.EventTurnTimer,
		app.EventSessionPaused, app.EventSessionResumed, app.EventSettingsChanged, app.EventSessionEnded,
		app.EventSessionReset,
	}
	seen := make(map[int64]app.EventKind)
	for _, k := range kinds {
		op, ok := eventOpCodes[k]
		if !ok {
			t.Errorf("no opcode for %s", k)
			continue
		}
		if prev, dup := seen[op]; dup {
			t.Errorf("opcode %d shared by %s and %s", op, prev, k)
		}
		seen[op] = k
	}
}
