package journey

import "time"

// CartItem is one add-to-cart the target accepted.
type CartItem struct {
	ProductID int
	Quantity  int
}

// SessionState is the mutable state of one simulated shopper. It belongs to
// a single session goroutine and is not safe for concurrent use.
type SessionState struct {
	UserID         string
	CartItems      []CartItem
	ViewedProducts []int
	AuthToken      string
	SessionStart   time.Time
	Abandoned      bool
	AbandonReason  string
}

// NewSessionState returns an empty state for userID.
func NewSessionState(userID string, start time.Time) *SessionState {
	return &SessionState{UserID: userID, SessionStart: start}
}

// LoggedIn reports whether a token has been obtained.
func (s *SessionState) LoggedIn() bool {
	return s.AuthToken != ""
}

func (s *SessionState) markAbandoned(reason string) {
	s.Abandoned = true
	s.AbandonReason = reason
}
