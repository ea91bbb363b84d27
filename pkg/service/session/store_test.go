package session_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
	"github.com/moneta-lab/moneta/pkg/service/session"
)

func TestSessionAppendOrder(t *testing.T) {
	store := session.NewStore(4)
	s := store.Get("s1")

	s.Append(
		model.NewMessage(types.RoleUser, "first question"),
		model.NewMessage(types.RoleAssistant, "first answer"),
	)
	s.Append(model.NewMessage(types.RoleUser, "second question"))

	msgs := s.Messages()
	gt.Array(t, msgs).Length(3)
	gt.Value(t, msgs[0].Content).Equal("first question")
	gt.Value(t, msgs[1].Content).Equal("first answer")
	gt.Value(t, msgs[2].Content).Equal("second question")
}

func TestSessionCopyOnReturn(t *testing.T) {
	store := session.NewStore(4)
	s := store.Get("s1")

	msg := model.NewMessage(types.RoleUser, "original")
	msg.Attachments = []model.FileRef{{Name: "a.txt", Data: []byte("data")}}
	s.Append(msg)

	// Mutating the caller's message after Append must not affect history
	msg.Content = "mutated"
	msg.Attachments[0].Data[0] = 'X'

	got := s.Messages()
	gt.Value(t, got[0].Content).Equal("original")
	gt.Value(t, string(got[0].Attachments[0].Data)).Equal("data")

	// Mutating the returned copy must not affect history either
	got[0].Content = "mutated again"
	gt.Value(t, s.Messages()[0].Content).Equal("original")
}

func TestStoreLazyCreate(t *testing.T) {
	store := session.NewStore(4)
	gt.Value(t, store.Len()).Equal(0)

	a := store.Get("alpha")
	b := store.Get("alpha")
	gt.Value(t, store.Len()).Equal(1)

	a.Append(model.NewMessage(types.RoleUser, "hello"))
	gt.Value(t, b.Len()).Equal(1)
}

func TestStoreLRUEviction(t *testing.T) {
	store := session.NewStore(3)

	for i := 0; i < 3; i++ {
		s := store.Get(fmt.Sprintf("s%d", i))
		s.Append(model.NewMessage(types.RoleUser, fmt.Sprintf("msg %d", i)))
	}

	// Refresh s0 so s1 becomes the oldest
	store.Get("s0")
	store.Get("s3")
	gt.Value(t, store.Len()).Equal(3)

	// s1 was evicted: getting it again yields a fresh, empty session
	gt.Value(t, store.Get("s1").Len()).Equal(0)
	// s0 survived with its history
	gt.Value(t, store.Get("s0").Len()).Equal(1)
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := session.NewStore(8)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", n%4)
			for j := 0; j < 50; j++ {
				s := store.Get(id)
				s.Append(model.NewMessage(types.RoleUser, "ping"))
				_ = s.Messages()
			}
		}(i)
	}
	wg.Wait()

	// 8 goroutines over 4 sessions, 50 appends each
	total := 0
	for i := 0; i < 4; i++ {
		total += store.Get(fmt.Sprintf("s%d", i)).Len()
	}
	gt.Value(t, total).Equal(400)
}
