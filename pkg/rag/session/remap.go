package session

// Summary is a session as listed by a client.
type Summary struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	IsGeneratingTitle bool   `json:"is_generating_title"`
}

// MessageRef is a message held by a client, tagged with its session.
type MessageRef struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

// State is the client side view of a user's conversations.
type State struct {
	Sessions   []Summary    `json:"sessions"`
	SelectedID string       `json:"selected_id"`
	Messages   []MessageRef `json:"messages"`
}

// Remap rewrites every reference to the provisional session id with the
// authoritative one. The input is not modified. If both ids are already
// listed, the provisional entry is dropped.
func Remap(state State, provisional, authoritative string) State {
	if provisional == "" || provisional == authoritative {
		return clone(state)
	}

	hasAuthoritative := false
	for _, s := range state.Sessions {
		if s.ID == authoritative {
			hasAuthoritative = true
			break
		}
	}

	out := State{
		Sessions:   make([]Summary, 0, len(state.Sessions)),
		SelectedID: state.SelectedID,
		Messages:   make([]MessageRef, len(state.Messages)),
	}

	for _, s := range state.Sessions {
		if s.ID == provisional {
			if hasAuthoritative {
				continue
			}
			s.ID = authoritative
		}
		out.Sessions = append(out.Sessions, s)
	}

	if out.SelectedID == provisional {
		out.SelectedID = authoritative
	}

	for i, m := range state.Messages {
		if m.SessionID == provisional {
			m.SessionID = authoritative
		}
		out.Messages[i] = m
	}
	return out
}

func clone(state State) State {
	out := State{SelectedID: state.SelectedID}
	out.Sessions = append([]Summary(nil), state.Sessions...)
	out.Messages = append([]MessageRef(nil), state.Messages...)
	return out
}
