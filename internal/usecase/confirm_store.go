package usecase

import (
	"sync"
	"time"

	"shop/internal/domain/model"
)

// 遷移の確認チケット。Request時に発行し、Confirmで1回だけ使える。
type TransitionTicket struct {
	Token       string
	OrderID     int64
	ActorUserID int64
	From        model.OrderStatus
	To          model.OrderStatus
	ExpiresAt   time.Time
}

// ConfirmationStore はプロセス内のチケット置き場。
// 確認ダイアログの代わりで、寿命が短いのでDBには置かない。
type ConfirmationStore struct {
	mu      sync.Mutex
	tickets map[string]TransitionTicket
}

func NewConfirmationStore() *ConfirmationStore {
	return &ConfirmationStore{tickets: map[string]TransitionTicket{}}
}

func (s *ConfirmationStore) Issue(t TransitionTicket, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	//ついでに期限切れを掃除する
	for token, ticket := range s.tickets {
		if ticket.ExpiresAt.Before(now) {
			delete(s.tickets, token)
		}
	}

	s.tickets[t.Token] = t
}

// Take はチケットを取り出して削除する（1回しか使えない）。
// 期限切れ・存在しないtokenは false。
func (s *ConfirmationStore) Take(token string, now time.Time) (TransitionTicket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[token]
	if !ok {
		return TransitionTicket{}, false
	}
	delete(s.tickets, token)

	if now.After(t.ExpiresAt) {
		return TransitionTicket{}, false
	}
	return t, true
}
