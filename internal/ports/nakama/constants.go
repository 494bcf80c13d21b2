package nakama

const (
	// RpcCreateSession creates a new session match owned by the caller.
	RpcCreateSession = "create_session"
	// RpcFindSession returns an open lobby, creating one when none exists.
	RpcFindSession = "find_session"
	// RpcHostControl relays a host action into a running match.
	RpcHostControl = "host_control"

	// MatchNamePartyBoard is the authoritative match handler name registered with Nakama.
	MatchNamePartyBoard = "partyboard_session"

	// GameLabel identifies partyboard matches in label queries.
	GameLabel = "partyboard"
)

// Label keys.
const (
	MatchLabelKey_Game    = "game"
	MatchLabelKey_Phase   = "phase"
	MatchLabelKey_Open    = "open"
	MatchLabelKey_Players = "players"
)

// Runtime env keys read by the adapter itself. Game settings use the
// partyboard_ prefix handled by the config package.
const (
	EnvConfigPath = "partyboard_config_path"
)

// Match params.
const (
	ParamHostUserID = "host_user_id"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpJoinSession      int64 = 1
	OpJoinTeam         int64 = 2
	OpCreateTeam       int64 = 3
	OpStartSession     int64 = 4
	OpRollDice         int64 = 5
	OpMovementComplete int64 = 6
	OpMiniGameReady    int64 = 7
	OpMiniGameSubmit   int64 = 8
	OpHostControl      int64 = 9

	// Server -> Client events
	OpStateSnapshot      int64 = 100
	OpPlayerJoined       int64 = 101
	OpPlayerLeft         int64 = 102
	OpTeamCreated        int64 = 103
	OpTeamChanged        int64 = 104
	OpSessionStarted     int64 = 105
	OpDiceResult         int64 = 106
	OpTileLanded         int64 = 107
	OpMiniGameStarted    int64 = 108
	OpMiniGameTimerArmed int64 = 109
	OpMiniGameGraded     int64 = 110
	OpCardDrawn          int64 = 111
	OpScoreChanged       int64 = 112
	OpTransitionBegun    int64 = 113
	OpTurnEnded          int64 = 114
	OpCaptainChanged     int64 = 115
	OpTurnTimer          int64 = 116
	OpSessionPaused      int64 = 117
	OpSessionResumed     int64 = 118
	OpSettingsChanged    int64 = 119
	OpSessionEnded       int64 = 120
	OpSessionReset       int64 = 121
	OpValidationError    int64 = 199 // sent to the initiator only
)
