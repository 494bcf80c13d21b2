package app

import "partyboard/internal/domain"

var (
	ErrNotYourTurn        = domain.NewError(domain.KindValidation, domain.CodeNotYourTurn, "it is not this team's turn")
	ErrSessionInProgress  = domain.NewError(domain.KindValidation, domain.CodeSessionInProgress, "session already in progress")
	ErrSessionNotRunning  = domain.NewError(domain.KindValidation, domain.CodeSessionNotRunning, "session is not in progress")
	ErrSessionEnded       = domain.NewError(domain.KindValidation, domain.CodeSessionNotRunning, "session has ended; reset it first")
	ErrSessionPaused      = domain.NewError(domain.KindValidation, domain.CodeSessionPaused, "session is paused")
	ErrAlreadyMoving      = domain.NewError(domain.KindValidation, domain.CodeAlreadyMoving, "team is already moving")
	ErrNotMoving          = domain.NewError(domain.KindValidation, domain.CodeNotMoving, "team has no pending move")
	ErrPositionMismatch   = domain.NewError(domain.KindValidation, domain.CodePositionMismatch, "reported position does not match the pending move")
	ErrTurnResolving      = domain.NewError(domain.KindValidation, domain.CodeTurnResolving, "team has already rolled this turn")
	ErrInvalidArgument    = domain.NewError(domain.KindValidation, domain.CodeInvalidArgument, "invalid argument")
	ErrNotCaptain         = domain.NewError(domain.KindAuthorization, domain.CodeNotCaptain, "only the team captain can do that")
	ErrNotHost            = domain.NewError(domain.KindAuthorization, domain.CodeNotHost, "only the host can do that")
	ErrTransitionInFlight = domain.NewError(domain.KindConcurrency, domain.CodeTransitionInFlight, "a turn transition is in progress")
	ErrNoPopulatedTeams   = domain.NewError(domain.KindInvariant, domain.CodeNoPopulatedTeams, "at least one team needs a member to start")
)
