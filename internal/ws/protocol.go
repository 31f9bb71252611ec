package ws

import "duel-session/internal/match"

const ProtocolVersion = "1.0"

const (
	MsgSubmitIdentity = "submit_identity"
	MsgReady          = "ready"
	MsgActivity       = "activity"
	MsgVote           = "vote"
)

type inboundMessage struct {
	Type string `json:"type"`
}

type SubmitIdentityMessage struct {
	Type string `json:"type"`
	match.Identity
}

// ErrorMessage is written back when a participant message is rejected.
// Authority state is never changed by a rejected message.
type ErrorMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Request         string `json:"request,omitempty"`
	Error           string `json:"error"`
}
