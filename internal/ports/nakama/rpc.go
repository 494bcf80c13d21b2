package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"partyboard/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	codeInvalidArgument = 3
	codeUnauthenticated = 16
)

var (
	errNoUser       = runtime.NewError("no user id in context", codeUnauthenticated)
	errBadRPCInput  = runtime.NewError("malformed payload", codeInvalidArgument)
	errMissingMatch = runtime.NewError("match_id is required", codeInvalidArgument)
)

// SessionResponse is the payload returned by create_session and find_session.
type SessionResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

type hostControlRequest struct {
	MatchID string `json:"match_id"`
	app.HostCommand
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcCreateSession, RpcCreateSessionFn); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcFindSession, RpcFindSessionFn); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcHostControl, RpcHostControlFn)
}

// RpcCreateSessionFn creates a new session match with the caller as host.
func RpcCreateSessionFn(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", errNoUser
	}

	matchID, err := nk.MatchCreate(ctx, MatchNamePartyBoard, map[string]interface{}{ParamHostUserID: userID})
	if err != nil {
		logger.Error("RpcCreateSession [User:%s]: Failed to create match: %v", userID, err)
		return "", err
	}

	logger.Info("RpcCreateSession [User:%s]: Created session %s", userID, matchID)
	return marshalResponse(SessionResponse{MatchID: matchID, IsNew: true})
}

// RpcFindSessionFn returns an open lobby, creating one when none exists.
// A newly created lobby is hosted by the caller.
func RpcFindSessionFn(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	query := fmt.Sprintf("+label.%s:%s +label.%s:lobby +label.%s:>=1",
		MatchLabelKey_Game, GameLabel, MatchLabelKey_Phase, MatchLabelKey_Open)
	limit := 10
	authoritative := true
	minSize := 0

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, nil, query)
	if err != nil {
		logger.Error("RpcFindSession [User:%s]: Failed to list matches: %v", userID, err)
		return "", err
	}

	if len(matches) > 0 {
		matchID := matches[0].MatchId
		logger.Info("RpcFindSession [User:%s]: Found existing session %s", userID, matchID)
		return marshalResponse(SessionResponse{MatchID: matchID})
	}

	params := map[string]interface{}{}
	if userID != "" {
		params[ParamHostUserID] = userID
	}
	matchID, err := nk.MatchCreate(ctx, MatchNamePartyBoard, params)
	if err != nil {
		logger.Error("RpcFindSession [User:%s]: Failed to create match: %v", userID, err)
		return "", err
	}

	logger.Info("RpcFindSession [User:%s]: Created new session %s", userID, matchID)
	return marshalResponse(SessionResponse{MatchID: matchID, IsNew: true})
}

// RpcHostControlFn relays a host action into the match. The match checks that
// the caller is its host and returns a SignalReply.
//
// Payload: {"match_id": "...", "action": "...", "payload": {...}}
func RpcHostControlFn(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", errNoUser
	}

	var req hostControlRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", errBadRPCInput
	}
	if req.MatchID == "" {
		return "", errMissingMatch
	}

	data, err := json.Marshal(hostSignal{UserID: userID, HostCommand: req.HostCommand})
	if err != nil {
		return "", err
	}
	reply, err := nk.MatchSignal(ctx, req.MatchID, string(data))
	if err != nil {
		logger.Error("RpcHostControl [User:%s]: Failed to signal match %s: %v", userID, req.MatchID, err)
		return "", err
	}
	return reply, nil
}

func marshalResponse(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
