package match

// ReturnToLobbyConsensus collects continue votes after the session ended.
type ReturnToLobbyConsensus struct {
	requireAll bool
	votes      map[ParticipantID]struct{}
}

// Vote records a continue vote. It reports false for a duplicate.
func (c *ReturnToLobbyConsensus) Vote(id ParticipantID) bool {
	if _, ok := c.votes[id]; ok {
		return false
	}
	c.votes[id] = struct{}{}
	metricVotes.Add(1)
	return true
}

// Forget drops a departed participant's vote.
func (c *ReturnToLobbyConsensus) Forget(id ParticipantID) {
	delete(c.votes, id)
}

func (c *ReturnToLobbyConsensus) Count() int {
	return len(c.votes)
}

// Required is the number of votes needed with the given participants
// connected.
func (c *ReturnToLobbyConsensus) Required(connected []ParticipantID) int {
	if !c.requireAll {
		return 1
	}
	return len(connected)
}

// QuorumReached reports whether the votes cover the connected set, or
// whether a single vote exists when requireAll is off.
func (c *ReturnToLobbyConsensus) QuorumReached(connected []ParticipantID) bool {
	if len(c.votes) == 0 || len(connected) == 0 {
		return false
	}
	if !c.requireAll {
		return true
	}
	for _, id := range connected {
		if _, ok := c.votes[id]; !ok {
			return false
		}
	}
	return true
}

func (c *ReturnToLobbyConsensus) Clear() {
	clear(c.votes)
}
