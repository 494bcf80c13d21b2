package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"partyboard/internal/app"
	"partyboard/internal/config"
	"partyboard/internal/domain"
	"partyboard/internal/log"
	"partyboard/internal/minigame"
	"partyboard/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// eventOpCodes maps session events to their server opcode.
var eventOpCodes = map[app.EventKind]int64{
	app.EventPlayerJoined:       OpPlayerJoined,
	app.EventPlayerLeft:         OpPlayerLeft,
	app.EventTeamCreated:        OpTeamCreated,
	app.EventTeamChanged:        OpTeamChanged,
	app.EventSessionStarted:     OpSessionStarted,
	app.EventDiceResult:         OpDiceResult,
	app.EventTileLanded:         OpTileLanded,
	app.EventMiniGameStarted:    OpMiniGameStarted,
	app.EventMiniGameTimerArmed: OpMiniGameTimerArmed,
	app.EventMiniGameGraded:     OpMiniGameGraded,
	app.EventCardDrawn:          OpCardDrawn,
	app.EventScoreChanged:       OpScoreChanged,
	app.EventTransitionBegun:    OpTransitionBegun,
	app.EventTurnEnded:          OpTurnEnded,
	app.EventCaptainChanged:     OpCaptainChanged,
	app.EventTurnTimer:          OpTurnTimer,
	app.EventSessionPaused:      OpSessionPaused,
	app.EventSessionResumed:     OpSessionResumed,
	app.EventSettingsChanged:    OpSettingsChanged,
	app.EventSessionEnded:       OpSessionEnded,
	app.EventSessionReset:       OpSessionReset,
}

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Presences map[string]runtime.Presence // session id -> presence; session ids are player ids
	Session   *app.Session
	Config    *config.GameConfig
	Metrics   ports.MetricsPort
	Label     string
}

// OpenSlots is the number of presences the match still accepts while in the lobby.
func (ms *MatchState) OpenSlots() int {
	if ms.Session.Phase() != domain.PhaseLobby {
		return 0
	}
	open := ms.Config.MaxPlayers - len(ms.Presences)
	if open < 0 {
		return 0
	}
	return open
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing session match.")

	environ, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg, err := config.Load(environ[EnvConfigPath], environ)
	if err != nil {
		logger.Error("MatchInit: Failed to load game config: %v", err)
		return nil, 0, ""
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: GameLabel})

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	metrics := NewNakamaMetricsAdapter(nk)
	session, err := app.NewSession(app.Options{ID: matchID, Config: cfg, Metrics: metrics})
	if err != nil {
		logger.Error("MatchInit: Failed to create session: %v", err)
		return nil, 0, ""
	}
	if host, ok := params[ParamHostUserID].(string); ok && host != "" {
		session.SetHost(host)
	}

	state := &MatchState{
		Presences: make(map[string]runtime.Presence),
		Session:   session,
		Config:    cfg,
		Metrics:   metrics,
	}
	label, err := buildLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.Label = label

	return state, cfg.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if len(matchState.Presences) >= matchState.Config.MaxPlayers {
		return state, false, "Session full"
	}
	return state, true, ""
}

// MatchJoin only tracks presences. Players register with OpJoinSession.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetSessionId()] = p
		logger.Debug("MatchJoin: User %s connected (session %s).", p.GetUserId(), p.GetSessionId())
	}

	mh.sendSnapshot(matchState, dispatcher, logger, presences)
	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave removes disconnected players from the session.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		playerID := p.GetSessionId()
		delete(matchState.Presences, playerID)
		if matchState.Session.Roster().Player(playerID) == nil {
			continue
		}
		events, err := matchState.Session.Leave(playerID)
		if err != nil {
			logger.Warn("MatchLeave: Failed to remove player %s: %v", playerID, err)
			continue
		}
		logger.Debug("MatchLeave: Player %s left.", playerID)
		mh.dispatch(matchState, dispatcher, logger, events)
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating session with no connected players.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	for _, msg := range messages {
		events, err := mh.handleMessage(matchState, logger, msg)
		if err != nil {
			mh.sendError(matchState, dispatcher, logger, msg, err)
		}
		// A failed grading still ends the turn, so events may accompany err.
		mh.dispatch(matchState, dispatcher, logger, events)
	}

	mh.dispatch(matchState, dispatcher, logger, matchState.Session.Tick())
	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) handleMessage(state *MatchState, logger runtime.Logger, msg runtime.MatchData) ([]app.Event, error) {
	switch msg.GetOpCode() {
	case OpJoinSession:
		return mh.handleJoinSession(state, msg)
	case OpJoinTeam:
		return mh.handleJoinTeam(state, msg)
	case OpCreateTeam:
		return mh.handleCreateTeam(state, msg)
	case OpStartSession:
		logger.Info("StartSession: Request received from %s (players=%d)", msg.GetUserId(), state.Session.PlayerCount())
		return state.Session.Start(msg.GetUserId())
	case OpRollDice:
		return mh.handleRollDice(state, msg)
	case OpMovementComplete:
		return mh.handleMovementComplete(state, msg)
	case OpMiniGameReady:
		return mh.handleMiniGameReady(state, msg)
	case OpMiniGameSubmit:
		return mh.handleMiniGameSubmit(state, msg)
	case OpHostControl:
		return mh.handleHostControl(state, logger, msg)
	default:
		logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		return nil, nil
	}
}

func (mh *matchHandler) handleJoinSession(state *MatchState, msg runtime.MatchData) ([]app.Event, error) {
	var req joinSessionRequest
	if err := decode(msg.GetData(), &req); err != nil {
		return nil, err
	}
	if req.Name == "" {
		req.Name = msg.GetUsername()
	}
	return state.Session.JoinSession(msg.GetSessionId(), msg.GetUserId(), req.Name, req.Group)
}

func (mh *matchHandler) handleJoinTeam(state *MatchState, msg runtime.MatchData) ([]app.Event, error) {
	var req joinTeamRequest
	if err := decode(msg.GetData(), &req); err != nil {
		return nil, err
	}
	return state.Session.JoinTeam(msg.GetSessionId(), req.TeamID)
}

func (mh *matchHandler) handleCreateTeam(state *MatchState, msg runtime.MatchData) ([]app.Event, error) {
	var req createTeamRequest
	if err := decode(msg.GetData(), &req); err != nil {
		return nil, err
	}
	return state.Session.CreateTeam(msg.GetSessionId(), req.Name)
}

func (mh *matchHandler) handleRollDice(state *MatchState, msg runtime.MatchData) ([]app.Event, error) {
	var req teamRequest
	if err := decode(msg.GetData(), &req); err != nil {
		return nil, err
	}
	return state.Session.RollDice(msg.GetSessionId(), req.TeamID)
}

func (mh *matchHandler) handleMovementComplete(state *MatchState, msg runtime.MatchData) ([]app.Event, error) {
	var req movementCompleteRequest
	if err := decode(msg.GetData(), &req); err != nil {
		return nil, err
	}
	return state.Session.CompleteMovement(msg.GetSessionId(), req.TeamID, req.Position)
}

func (mh *matchHandler) handleMiniGameReady(state *MatchState, msg runtime.MatchData) ([]app.Event, error) {
	var req teamRequest
	if err := decode(msg.GetData(), &req); err != nil {
		return nil, err
	}
	return state.Session.MiniGameReady(msg.GetSessionId(), req.TeamID)
}

func (mh *matchHandler) handleMiniGameSubmit(state *MatchState, msg runtime.MatchData) ([]app.Event, error) {
	var req miniGameSubmitRequest
	if err := decode(msg.GetData(), &req); err != nil {
		return nil, err
	}
	return state.Session.SubmitMiniGame(msg.GetSessionId(), req.TeamID, minigame.Submission{
		Answer:   req.Answer,
		TimedOut: req.TimedOut,
	})
}

func (mh *matchHandler) handleHostControl(state *MatchState, logger runtime.Logger, msg runtime.MatchData) ([]app.Event, error) {
	var cmd app.HostCommand
	if err := decode(msg.GetData(), &cmd); err != nil {
		return nil, err
	}
	logger.Info("HostControl: %s requested %q", msg.GetUserId(), cmd.Action)
	return state.Session.HostControl(msg.GetUserId(), cmd)
}

// dispatch broadcasts events and follows any mutating batch with a snapshot.
func (mh *matchHandler) dispatch(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	if len(events) == 0 {
		return
	}
	mutating := false
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
		if ev.Kind != app.EventTurnTimer {
			mutating = true
		}
	}
	if mutating {
		mh.sendSnapshot(state, dispatcher, logger, nil)
	}
}

// broadcastEvent handles the conversion and dispatching of session events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCodes[ev.Kind]
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes := []byte("{}")
	if ev.Payload != nil {
		b, err := json.Marshal(ev.Payload)
		if err != nil {
			logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
			return
		}
		bytes = b
	}

	if err := dispatcher.BroadcastMessage(opCode, bytes, nil, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, recipients []runtime.Presence) {
	bytes, err := json.Marshal(state.Session.Snapshot())
	if err != nil {
		logger.Error("Failed to marshal snapshot: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpStateSnapshot, bytes, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast snapshot: %v", err)
	}
}

// sendError sends a ValidationErrorEvent to the initiator only.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, sender runtime.Presence, err error) {
	ev := toValidationError(err)
	state.Metrics.RequestRejected(ev.Code)
	logger.Warn("Request from %s rejected: %s (%s)", sender.GetUserId(), ev.Message, ev.Code)

	bytes, mErr := json.Marshal(ev)
	if mErr != nil {
		logger.Error("Failed to marshal ValidationErrorEvent: %v", mErr)
		return
	}

	presence, ok := state.Presences[sender.GetSessionId()]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", sender.GetSessionId())
		return
	}
	dispatcher.BroadcastMessage(OpValidationError, bytes, []runtime.Presence{presence}, nil, true)
}

func buildLabel(state *MatchState) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKey_Game:    GameLabel,
		MatchLabelKey_Phase:   string(state.Session.Phase()),
		MatchLabelKey_Open:    state.OpenSlots(),
		MatchLabelKey_Players: state.Session.PlayerCount(),
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := buildLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == state.Label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	state.Label = label
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	return state
}

// MatchSignal runs host actions relayed by the host_control RPC. The reply is
// a JSON SignalReply.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}

	var sig hostSignal
	var err error
	if uErr := json.Unmarshal([]byte(data), &sig); uErr != nil {
		err = errBadPayload
	} else {
		var events []app.Event
		events, err = matchState.Session.HostControl(sig.UserID, sig.HostCommand)
		mh.dispatch(matchState, dispatcher, logger, events)
		mh.updateLabel(matchState, dispatcher, logger)
	}

	reply := SignalReply{OK: err == nil}
	if err != nil {
		reply.Error = toValidationError(err)
		matchState.Metrics.RequestRejected(reply.Error.Code)
		logger.Warn("MatchSignal: Host action from %s rejected: %v", sig.UserID, err)
	}
	b, _ := json.Marshal(reply)
	return matchState, string(b)
}
