package domain

import "errors"

// ErrorKind classifies a rejected request.
type ErrorKind string

const (
	// KindValidation covers wrong turn, unknown team/player, capacity and phase checks.
	KindValidation ErrorKind = "validation"
	// KindAuthorization covers actions attempted by someone other than the captain or host.
	KindAuthorization ErrorKind = "authorization"
	// KindConcurrency covers actions rejected while a turn transition is in flight.
	KindConcurrency ErrorKind = "concurrency"
	// KindInvariant covers requests that would violate a session invariant.
	KindInvariant ErrorKind = "invariant"
)

// Code is a machine-readable error code sent to clients.
type Code string

const (
	CodeUnknown             Code = "UNKNOWN"
	CodeNotYourTurn         Code = "NOT_YOUR_TURN"
	CodeTeamNotFound        Code = "TEAM_NOT_FOUND"
	CodePlayerNotFound      Code = "PLAYER_NOT_FOUND"
	CodeTeamFull            Code = "TEAM_FULL"
	CodeSessionFull         Code = "SESSION_FULL"
	CodeSessionInProgress   Code = "SESSION_IN_PROGRESS"
	CodeSessionNotRunning   Code = "SESSION_NOT_RUNNING"
	CodeSessionPaused       Code = "SESSION_PAUSED"
	CodeAlreadyMoving       Code = "ALREADY_MOVING"
	CodeNotMoving           Code = "NOT_MOVING"
	CodePositionMismatch    Code = "POSITION_MISMATCH"
	CodeTurnResolving       Code = "TURN_RESOLVING"
	CodeNoLiveMiniGame      Code = "NO_LIVE_MINIGAME"
	CodeInvalidName         Code = "INVALID_NAME"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeNotCaptain          Code = "NOT_CAPTAIN"
	CodeNotTeamMember       Code = "NOT_TEAM_MEMBER"
	CodeNotHost             Code = "NOT_HOST"
	CodeTransitionInFlight  Code = "TRANSITION_IN_FLIGHT"
	CodeNoPopulatedTeams    Code = "NO_POPULATED_TEAMS"
	CodeMalformedSubmission Code = "MALFORMED_SUBMISSION"
)

// Error is a domain error raised at validation time, before any mutation.
type Error struct {
	Kind    ErrorKind
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a domain error.
func NewError(kind ErrorKind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// CodeOf returns the code carried by err or anything it wraps, or CodeUnknown.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}

var (
	ErrTeamNotFound   = NewError(KindValidation, CodeTeamNotFound, "team not found")
	ErrPlayerNotFound = NewError(KindValidation, CodePlayerNotFound, "player not found")
	ErrTeamFull       = NewError(KindValidation, CodeTeamFull, "team is full")
	ErrSessionFull    = NewError(KindValidation, CodeSessionFull, "session is full")
	ErrInvalidName    = NewError(KindValidation, CodeInvalidName, "a display name is required")
	ErrNotTeamMember  = NewError(KindAuthorization, CodeNotTeamMember, "player is not a member of this team")
)
