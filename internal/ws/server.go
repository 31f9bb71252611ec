package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"duel-session/internal/match"
	"duel-session/internal/store"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 25 * time.Second
	maxMessageSize = 4096
)

// Sessions resolves a join code to its live session.
type Sessions interface {
	Ensure(code string) (*match.Session, error)
}

type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	id      match.ParticipantID
	session *match.Session
}

type Server struct {
	sessions Sessions
	upgrader websocket.Upgrader
	newID    func() string
}

func NewServer(sessions Sessions) *Server {
	return &Server{
		sessions: sessions,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		newID:    store.NewID,
	}
}

// HandleWS joins the caller to the session named by ?session= and then
// relays its messages to the authority. Join failures are answered with a
// plain HTTP error before the upgrade.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("session")
	sess, err := s.sessions.Ensure(code)
	if err != nil {
		s.rejectJoin(w, code, err)
		return
	}
	id := match.ParticipantID(s.newID())
	if err := sess.Join(id); err != nil {
		s.rejectJoin(w, code, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sess.Leave(id, "upgrade_failed")
		return
	}
	metricConnections.Add(1)
	metricConnectionsOpen.Add(1)
	log.Info().
		Str("session_code", code).
		Str("participant_id", string(id)).
		Str("remote_addr", r.RemoteAddr).
		Msg("participant connected")

	client := &Client{conn: conn, send: make(chan []byte, 8), id: id, session: sess}
	go s.writeLoop(client)
	s.readLoop(client)
}

func (s *Server) rejectJoin(w http.ResponseWriter, code string, err error) {
	metricRejectedJoins.Add(1)
	status, errCode := match.MapSessionError(err)
	log.Info().Err(err).Str("session_code", code).Msg("join rejected")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": errCode})
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		c.session.Leave(c.id, "disconnected")
		metricConnectionsOpen.Add(-1)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.handleMessage(c, msg)
	}
}

func (s *Server) handleMessage(c *Client, msg []byte) {
	var base inboundMessage
	if err := json.Unmarshal(msg, &base); err != nil {
		metricBadMessages.Add(1)
		s.sendError(c, "", "invalid_json")
		return
	}
	var err error
	switch base.Type {
	case MsgSubmitIdentity:
		var sub SubmitIdentityMessage
		if err := json.Unmarshal(msg, &sub); err != nil {
			metricBadMessages.Add(1)
			s.sendError(c, base.Type, "invalid_json")
			return
		}
		err = c.session.SubmitIdentity(c.id, sub.Identity)
	case MsgReady:
		err = c.session.NotifyReady(c.id)
	case MsgActivity:
		c.session.ReportActivity(c.id)
	case MsgVote:
		err = c.session.Vote(c.id)
	default:
		metricBadMessages.Add(1)
		s.sendError(c, base.Type, "unknown_type")
		return
	}
	if err != nil {
		_, code := match.MapSessionError(err)
		s.sendError(c, base.Type, code)
	}
}

func (s *Server) sendError(c *Client, request, code string) {
	raw, err := json.Marshal(ErrorMessage{
		Type:            "error",
		ProtocolVersion: ProtocolVersion,
		Request:         request,
		Error:           code,
	})
	if err != nil {
		return
	}
	select {
	case c.send <- raw:
	default:
		log.Warn().Str("participant_id", string(c.id)).Msg("dropping error reply; send queue full")
	}
}

// writeLoop is the only writer on the connection. It drains the
// participant's event stream in order, using the subscription only as a
// wake-up so a slow socket never loses events.
func (s *Server) writeLoop(c *Client) {
	defer c.conn.Close()
	stream := c.session.Stream(c.id)
	if stream == nil {
		return
	}
	wake := stream.Subscribe()
	defer stream.Unsubscribe(wake)
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	last := ""
	flush := func() bool {
		for _, ev := range stream.ReplayAfter(last) {
			if err := s.write(c, websocket.TextMessage, ev); err != nil {
				return false
			}
			last = ev.EventID
		}
		return true
	}

	if !flush() {
		return
	}
	for {
		select {
		case _, ok := <-wake:
			if !flush() {
				return
			}
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session_closed"))
				return
			}
		case raw := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(c *Client, kind int, ev match.StreamEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event", ev.Event).Msg("marshal stream event")
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, raw)
}
