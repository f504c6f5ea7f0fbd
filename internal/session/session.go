// Package session is the coordinator that sits between inbound
// websocket connections and the table state machine: it authenticates
// identities, assigns them to seats, fans out personalised broadcasts,
// and manages the disconnect grace ladder (silent reconnect-as-swap,
// then auto sit-out, then the table's own kick timer).
package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/pokertable/internal/auth"
	"github.com/lox/pokertable/internal/engineerror"
	"github.com/lox/pokertable/internal/handhistory"
	"github.com/lox/pokertable/internal/protocol"
	"github.com/lox/pokertable/internal/table"
	"github.com/lox/pokertable/internal/tablestats"
)

// Coordinator wires together auth, the session registry, and the
// table manager. One Coordinator serves an entire process.
type Coordinator struct {
	logger     *log.Logger
	validator  auth.Validator
	challenges *auth.ChallengeStore

	registry *sessionRegistry
	Manager  *Manager

	upgrader websocket.Upgrader
}

// NewCoordinator builds a Coordinator. validator authenticates the
// bearer tokens presented over the websocket's inline auth message;
// challenges issues and verifies the HTTP /auth/challenge and
// /auth/verify handshake that mints those tokens in the first place.
// Passing the same *auth.ChallengeStore as both is the common case for
// a self-contained deployment with no external identity service.
// recorder and stats may be nil to run without hand archival or runtime
// counters wired up.
func NewCoordinator(logger *log.Logger, clock quartz.Clock, cfg Config, tblCfg table.Config, validator auth.Validator, challenges *auth.ChallengeStore, recorder *handhistory.Recorder, stats *tablestats.Tracker) *Coordinator {
	c := &Coordinator{
		logger:     logger.WithPrefix("session"),
		validator:  validator,
		challenges: challenges,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	c.registry = newSessionRegistry(clock, cfg)
	c.Manager = NewManager(logger, clock, tblCfg, c.registry.connFor, recorder, stats)
	return c
}

// ServeWebsocket upgrades an HTTP request to a websocket and runs its
// connection pumps until the client disconnects.
func (c *Coordinator) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	wrapped := newConnection(conn, c.logger, c)
	wrapped.Start()
}

// ServeWebsocketBinary is the bot-facing counterpart of ServeWebsocket:
// the same upgrade and connection pumps, but every Envelope crosses the
// wire msgpack-encoded inside binary websocket frames instead of JSON
// text frames, for clients using internal/protocol's MarshalMsg codec
// directly instead of parsing JSON.
func (c *Coordinator) ServeWebsocketBinary(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	wrapped := newConnection(binaryConn{conn}, c.logger, c)
	wrapped.Start()
}

// onDisconnect is called from a Connection's readPump on exit.
func (c *Coordinator) onDisconnect(conn *Connection) {
	id := conn.Identity()
	if id == nil {
		return
	}
	c.registry.onDrop(id, conn,
		func(ref seatRef) {
			if ts, ok := c.Manager.GetTable(ref.tableID); ok {
				ts.SetDisconnected(ref, true)
			}
		},
		func(ref seatRef) {
			if ts, ok := c.Manager.GetTable(ref.tableID); ok {
				ts.AutoSitOut(ref)
			}
		},
	)
}

func (c *Coordinator) handleEnvelope(conn *Connection, env *protocol.Envelope) {
	if env.Type == protocol.TypeAuth {
		c.handleAuth(conn, env)
		return
	}

	identity := conn.Identity()
	if identity == nil {
		conn.SendTyped(protocol.TypeAuthError, protocol.ErrorData{
			Code: "unauthenticated", Message: "send an auth message first",
		})
		return
	}

	var err error
	switch env.Type {
	case protocol.TypeJoinTable:
		err = c.handleJoinTable(identity, env.Data)
	case protocol.TypeObserveTable:
		err = c.handleObserveTable(identity, env.Data)
	case protocol.TypeLeaveTable:
		err = c.handleLeaveTable(identity, env.Data)
	case protocol.TypeAction:
		err = c.handleAction(identity, env.Data)
	case protocol.TypeSitOut:
		err = c.handleSitOut(identity, env.Data)
	case protocol.TypeSitBackIn:
		err = c.handleSitBackIn(identity, env.Data)
	case protocol.TypeRebuy:
		err = c.handleRebuy(identity, env.Data)
	case protocol.TypeChatMessage:
		err = c.handleChat(identity, env.Data)
	default:
		conn.sendError("unknown_message_type", fmt.Sprintf("unknown message type %q", env.Type))
		return
	}
	if err != nil {
		conn.sendError(string(engineerror.KindOf(err)), err.Error())
	}
}

func (c *Coordinator) handleAuth(conn *Connection, env *protocol.Envelope) {
	data, err := decodeData[protocol.AuthData](env.Data)
	if err != nil {
		conn.sendError("invalid_message", "failed to parse auth data")
		return
	}

	identity, verr := c.validator.Validate(context.Background(), data.Token)
	if verr != nil {
		code := "invalid_token"
		if errors.Is(verr, auth.ErrUnavailable) {
			code = "auth_unavailable"
		}
		conn.SendTyped(protocol.TypeAuthResponse, protocol.AuthResponseData{Success: false, Error: code})
		return
	}
	if identity == nil {
		// NoopValidator: mint a throwaway identity from the handle.
		identity = &auth.Identity{ID: []byte(data.Handle), Handle: data.Handle}
	} else if data.Handle != "" {
		identity.Handle = data.Handle
	}

	conn.setIdentity(identity)
	c.registry.bind(identity, conn)
	conn.SendTyped(protocol.TypeAuthResponse, protocol.AuthResponseData{
		Success:  true,
		Identity: hex.EncodeToString(identity.ID),
	})
}

func (c *Coordinator) handleJoinTable(identity *auth.Identity, raw json.RawMessage) error {
	data, err := decodeData[protocol.JoinTableData](raw)
	if err != nil {
		return engineerror.Wrap(engineerror.InvalidArgument, err, "invalid join_table payload")
	}
	ts, err := c.Manager.GetOrCreateTable(data.TableID)
	if err != nil {
		return err
	}
	preferred := -1
	if data.SeatNumber != nil {
		preferred = *data.SeatNumber
	}
	seat, err := ts.Join(identity, preferred, data.BuyIn)
	if err != nil {
		return err
	}
	c.registry.setSeat(identity, seatRef{tableID: data.TableID, seat: seat})
	return nil
}

func (c *Coordinator) handleObserveTable(identity *auth.Identity, raw json.RawMessage) error {
	data, err := decodeData[protocol.ObserveTableData](raw)
	if err != nil {
		return engineerror.Wrap(engineerror.InvalidArgument, err, "invalid observe_table payload")
	}
	ts, err := c.Manager.GetOrCreateTable(data.TableID)
	if err != nil {
		return err
	}
	ts.Observe(identity)
	c.registry.setSeat(identity, seatRef{tableID: data.TableID, seat: -1})
	return nil
}

func (c *Coordinator) handleLeaveTable(identity *auth.Identity, raw json.RawMessage) error {
	data, err := decodeData[protocol.LeaveTableData](raw)
	if err != nil {
		return engineerror.Wrap(engineerror.InvalidArgument, err, "invalid leave_table payload")
	}
	ts, ok := c.Manager.GetTable(data.TableID)
	if !ok {
		return engineerror.New(engineerror.TableNotFound, "table %q not found", data.TableID)
	}
	if err := ts.Leave(identity); err != nil {
		return err
	}
	c.registry.setSeat(identity, seatRef{seat: -1})
	return nil
}

func (c *Coordinator) handleAction(identity *auth.Identity, raw json.RawMessage) error {
	data, err := decodeData[protocol.ActionData](raw)
	if err != nil {
		return engineerror.Wrap(engineerror.InvalidArgument, err, "invalid action payload")
	}
	ts, ok := c.Manager.GetTable(data.TableID)
	if !ok {
		return engineerror.New(engineerror.TableNotFound, "table %q not found", data.TableID)
	}
	kind, err := parseActionKind(data.Action)
	if err != nil {
		return err
	}
	return ts.Action(identity, table.Action{Kind: kind, Total: data.Total})
}

func parseActionKind(s string) (table.ActionKind, error) {
	switch s {
	case "fold":
		return table.Fold, nil
	case "check":
		return table.Check, nil
	case "call":
		return table.Call, nil
	case "raise":
		return table.Raise, nil
	default:
		return 0, engineerror.New(engineerror.InvalidArgument, "unknown action %q", s)
	}
}

func (c *Coordinator) handleSitOut(identity *auth.Identity, raw json.RawMessage) error {
	data, err := decodeData[protocol.SitOutData](raw)
	if err != nil {
		return engineerror.Wrap(engineerror.InvalidArgument, err, "invalid sit_out payload")
	}
	ts, ok := c.Manager.GetTable(data.TableID)
	if !ok {
		return engineerror.New(engineerror.TableNotFound, "table %q not found", data.TableID)
	}
	return ts.SitOut(identity)
}

func (c *Coordinator) handleSitBackIn(identity *auth.Identity, raw json.RawMessage) error {
	data, err := decodeData[protocol.SitOutData](raw)
	if err != nil {
		return engineerror.Wrap(engineerror.InvalidArgument, err, "invalid sit_back_in payload")
	}
	ts, ok := c.Manager.GetTable(data.TableID)
	if !ok {
		return engineerror.New(engineerror.TableNotFound, "table %q not found", data.TableID)
	}
	return ts.SitBackIn(identity)
}

func (c *Coordinator) handleRebuy(identity *auth.Identity, raw json.RawMessage) error {
	data, err := decodeData[protocol.RebuyData](raw)
	if err != nil {
		return engineerror.Wrap(engineerror.InvalidArgument, err, "invalid rebuy payload")
	}
	ts, ok := c.Manager.GetTable(data.TableID)
	if !ok {
		return engineerror.New(engineerror.TableNotFound, "table %q not found", data.TableID)
	}
	return ts.Rebuy(identity, data.Amount)
}

func (c *Coordinator) handleChat(identity *auth.Identity, raw json.RawMessage) error {
	data, err := decodeData[protocol.ChatMessageData](raw)
	if err != nil {
		return engineerror.Wrap(engineerror.InvalidArgument, err, "invalid chat_message payload")
	}
	ts, ok := c.Manager.GetTable(data.TableID)
	if !ok {
		return engineerror.New(engineerror.TableNotFound, "table %q not found", data.TableID)
	}
	ts.Chat(identity, data.Text)
	return nil
}

// HTTP auth handshake: /auth/challenge, /auth/verify, /auth/session.

type challengeResponse struct {
	ChallengeID string `json:"challengeId"`
	Nonce       string `json:"nonce"`
	ExpiresAt   int64  `json:"expiresAt"`
}

func (c *Coordinator) ChallengeHandler(w http.ResponseWriter, r *http.Request) {
	ch, err := c.challenges.NewChallenge()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, challengeResponse{
		ChallengeID: ch.ID,
		Nonce:       hex.EncodeToString(ch.Nonce),
		ExpiresAt:   ch.Expires.Unix(),
	})
}

type verifyRequest struct {
	ChallengeID string `json:"challengeId"`
	Response    string `json:"response"`
	IdentityID  string `json:"identityId"`
	Handle      string `json:"handle"`
}

type verifyResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (c *Coordinator) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	response, err := hex.DecodeString(req.Response)
	if err != nil {
		http.Error(w, "invalid response encoding", http.StatusBadRequest)
		return
	}
	idBytes, err := hex.DecodeString(req.IdentityID)
	if err != nil {
		http.Error(w, "invalid identityId encoding", http.StatusBadRequest)
		return
	}
	token, expires, err := c.challenges.Verify(req.ChallengeID, response, auth.Identity{ID: idBytes, Handle: req.Handle})
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Token: token, ExpiresAt: expires.Unix()})
}

type sessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Valid      bool   `json:"valid"`
	IdentityID string `json:"identityId,omitempty"`
	Handle     string `json:"handle,omitempty"`
}

func (c *Coordinator) SessionHandler(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	identity, err := c.validator.Validate(r.Context(), req.Token)
	if err != nil || identity == nil {
		writeJSON(w, http.StatusOK, sessionResponse{Valid: false})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Valid:      true,
		IdentityID: hex.EncodeToString(identity.ID),
		Handle:     identity.Handle,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
