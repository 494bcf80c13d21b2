package nakama

import (
	"encoding/json"
	"errors"

	"partyboard/internal/app"
	"partyboard/internal/domain"
)

type joinSessionRequest struct {
	Name  string `json:"name"`
	Group string `json:"group"`
}

type joinTeamRequest struct {
	TeamID string `json:"team_id"`
}

type createTeamRequest struct {
	Name string `json:"name"`
}

type teamRequest struct {
	TeamID string `json:"team_id"`
}

type movementCompleteRequest struct {
	TeamID   string `json:"team_id"`
	Position int    `json:"position"`
}

type miniGameSubmitRequest struct {
	TeamID   string          `json:"team_id"`
	Answer   json.RawMessage `json:"answer"`
	TimedOut bool            `json:"timed_out"`
}

// hostSignal is the MatchSignal envelope built by the host_control RPC.
type hostSignal struct {
	UserID string `json:"user_id"`
	app.HostCommand
}

// ValidationErrorEvent is sent to the initiator of a rejected request.
type ValidationErrorEvent struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// SignalReply is returned from MatchSignal and relayed by the host_control RPC.
type SignalReply struct {
	OK    bool                  `json:"ok"`
	Error *ValidationErrorEvent `json:"error,omitempty"`
}

var errBadPayload = domain.NewError(domain.KindValidation, domain.CodeInvalidArgument, "malformed request payload")

// decode unmarshals a client payload. An empty payload leaves v untouched.
func decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errBadPayload
	}
	return nil
}

func toValidationError(err error) *ValidationErrorEvent {
	ev := &ValidationErrorEvent{Code: string(domain.CodeOf(err)), Message: err.Error()}
	var de *domain.Error
	if errors.As(err, &de) {
		ev.Kind = string(de.Kind)
	}
	return ev
}
