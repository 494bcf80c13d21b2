package app

// DiceFaces is the number of faces on each of the two dice.
const DiceFaces = 6

// Reasons attached to turn transitions and session endings.
const (
	ReasonTurnTimeout     = "turn_timeout"
	ReasonTileResolved    = "tile_resolved"
	ReasonCardResolved    = "card_resolved"
	ReasonMiniGameGraded  = "minigame_graded"
	ReasonMiniGameExpired = "minigame_expired"
	ReasonGradingFailed   = "grading_failed"
	ReasonHostSkip        = "host_skip"
	ReasonOrphanedTurn    = "orphaned_turn"

	EndRunsCompleted  = "runs_completed"
	EndSessionTimeout = "session_timeout"
	EndHost           = "host_ended"
	EndNoTeams        = "no_teams"
)

// Host control actions.
const (
	ActionSkipTurn        = "skip_turn"
	ActionAdjustScore     = "adjust_score"
	ActionEndGame         = "end_game"
	ActionResetGame       = "reset_game"
	ActionPauseGame       = "pause_game"
	ActionResumeGame      = "resume_game"
	ActionUpdateTurnTime  = "update_turn_time"
	ActionUpdateMaxRounds = "update_max_rounds"
)

// Team palette handed to ad-hoc teams in creation order.
var adHocColors = []string{"#9b59b6", "#e67e22", "#1abc9c", "#34495e", "#e84393", "#00cec9"}
