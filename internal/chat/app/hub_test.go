package app

import (
	"fmt"
	"sync"
	"testing"

	"apartment_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frames(s *Session) int {
	return len(drain(s))
}

func payload(t *testing.T) []byte {
	b, err := domain.Encode(domain.NewMessage, map[string]string{"content": "hi"})
	require.NoError(t, err)
	return b
}

func TestHub_JoinLeave(t *testing.T) {
	h := NewHub()
	s := h.Register(resident, 4)

	assert.False(t, h.IsJoined(s, "room-1"))
	h.Join(s, "room-1")
	h.Join(s, "room-1")
	assert.True(t, h.IsJoined(s, "room-1"))
	assert.Equal(t, 1, h.Members("room-1"))

	assert.True(t, h.Leave(s, "room-1"))
	assert.False(t, h.Leave(s, "room-1"), "second leave is a no-op")
	assert.Equal(t, 0, h.Members("room-1"))
}

func TestHub_DeliverRoomGroup(t *testing.T) {
	h := NewHub()
	res := h.Register(resident, 4)
	adm := h.Register(adminA, 4)
	outsider := h.Register(adminB, 4)
	h.Join(res, "room-1")
	h.Join(adm, "room-1")

	n := h.Deliver(domain.Delivery{RoomID: "room-1", Payload: payload(t)})
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, frames(res))
	assert.Equal(t, 1, frames(adm))
	assert.Equal(t, 0, frames(outsider))
}

func TestHub_DeliverExclusions(t *testing.T) {
	h := NewHub()
	tab1 := h.Register(resident, 4)
	tab2 := h.Register(resident, 4)
	adm := h.Register(adminA, 4)
	for _, s := range []*Session{tab1, tab2, adm} {
		h.Join(s, "room-1")
	}

	h.Deliver(domain.Delivery{RoomID: "room-1", ExcludeConnID: tab1.ID, Payload: payload(t)})
	assert.Equal(t, 0, frames(tab1))
	assert.Equal(t, 1, frames(tab2))
	assert.Equal(t, 1, frames(adm))

	h.Deliver(domain.Delivery{RoomID: "room-1", ExcludeUserID: resident.UserID, Payload: payload(t)})
	assert.Equal(t, 0, frames(tab1))
	assert.Equal(t, 0, frames(tab2))
	assert.Equal(t, 1, frames(adm))
}

func TestHub_DeliverNotJoinedAdmins(t *testing.T) {
	h := NewHub()
	res := h.Register(resident, 4)
	joinedAdmin := h.Register(adminA, 4)
	idleAdmin := h.Register(adminB, 4)
	otherApt := h.Register(adminX, 4)
	idleResident := h.Register(neighbor, 4)
	h.Join(res, "room-1")
	h.Join(joinedAdmin, "room-1")

	n := h.Deliver(domain.Delivery{
		RoomID:        "room-1",
		ApartmentID:   "apt-1",
		NotJoinedRole: domain.RoleAdmin,
		Payload:       payload(t),
	})
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, frames(res))
	assert.Equal(t, 1, frames(joinedAdmin), "joined admin gets it once")
	assert.Equal(t, 1, frames(idleAdmin))
	assert.Equal(t, 0, frames(otherApt))
	assert.Equal(t, 0, frames(idleResident))
}

func TestHub_DeliverNotJoinedUser(t *testing.T) {
	h := NewHub()
	res := h.Register(resident, 4)
	other := h.Register(neighbor, 4)

	h.Deliver(domain.Delivery{
		RoomID:          "room-1",
		ApartmentID:     "apt-1",
		NotJoinedRole:   domain.RoleUser,
		NotJoinedUserID: resident.UserID,
		Payload:         payload(t),
	})
	assert.Equal(t, 1, frames(res))
	assert.Equal(t, 0, frames(other))
}

func TestHub_FullQueueDoesNotBlockOthers(t *testing.T) {
	h := NewHub()
	slow := h.Register(resident, 1)
	fast := h.Register(adminA, 8)
	h.Join(slow, "room-1")
	h.Join(fast, "room-1")

	for i := 0; i < 5; i++ {
		h.Deliver(domain.Delivery{RoomID: "room-1", Payload: payload(t)})
	}
	assert.Equal(t, 1, frames(slow))
	assert.Equal(t, 5, frames(fast))
}

func TestHub_Unregister(t *testing.T) {
	h := NewHub()
	s := h.Register(resident, 4)
	h.Join(s, "room-1")

	h.Unregister(s)
	h.Unregister(s)
	assert.Equal(t, 0, h.Members("room-1"))

	_, ok := <-s.Send()
	assert.False(t, ok, "queue closed")

	assert.Equal(t, 0, h.Deliver(domain.Delivery{RoomID: "room-1", ApartmentID: "apt-1", NotJoinedRole: domain.RoleUser, Payload: payload(t)}))
	assert.False(t, h.SendTo(s, payload(t)))
	h.Join(s, "room-1")
	assert.Equal(t, 0, h.Members("room-1"))
}

func TestHub_Concurrent(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.Identity{UserID: fmt.Sprintf("u-%d", i), Role: domain.RoleAdmin, ApartmentID: "apt-1"}
			s := h.Register(id, 16)
			done := make(chan struct{})
			go func() {
				for range s.Send() {
				}
				close(done)
			}()
			for j := 0; j < 50; j++ {
				room := fmt.Sprintf("room-%d", j%3)
				h.Join(s, room)
				h.Deliver(domain.Delivery{RoomID: room, ApartmentID: "apt-1", NotJoinedRole: domain.RoleAdmin, Payload: []byte(`{}`)})
				h.IsJoined(s, room)
				h.Leave(s, room)
			}
			h.Unregister(s)
			<-done
		}(i)
	}
	wg.Wait()

	for j := 0; j < 3; j++ {
		assert.Equal(t, 0, h.Members(fmt.Sprintf("room-%d", j)))
	}
}
