package app

import (
	"context"
	"strings"
	"testing"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/pkg/config"
	"apartment_chat_service/pkg/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorsOf(t *testing.T, s *Session) []string {
	t.Helper()
	var out []string
	for _, ev := range only(t, s, domain.Error) {
		out = append(out, decode[domain.ErrorPayload](t, ev).Message)
	}
	return out
}

func TestDispatch_RequiresJoin(t *testing.T) {
	st := newStack(t, config.RoomConfig{})
	room := st.roomOf(t, resident)
	sess := st.connect(resident)

	st.dispatch(t, sess, domain.SendMessage, domain.WSRequestData{RoomID: room.ID, Content: "hello"})
	st.dispatch(t, sess, domain.MarkAsRead, domain.WSRequestData{RoomID: room.ID})
	st.dispatch(t, sess, domain.Typing, domain.WSRequestData{RoomID: room.ID, IsTyping: true})

	assert.Equal(t, []string{"must join room first", "must join room first", "must join room first"}, errorsOf(t, sess))

	n, err := st.store.CountMessages(context.Background(), room.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing persisted")
}

func TestDispatch_JoinRefused(t *testing.T) {
	st := newStack(t, config.RoomConfig{})
	room := st.roomOf(t, resident)
	missing := uuid.New().String()

	tests := []struct {
		name   string
		who    domain.Identity
		roomID string
		reason string
	}{
		{name: "other resident", who: neighbor, roomID: room.ID, reason: "not authorized"},
		{name: "admin of another apartment", who: adminX, roomID: room.ID, reason: "not authorized"},
		{name: "malformed id", who: resident, roomID: "not-a-uuid", reason: "invalid room id"},
		{name: "unknown room", who: resident, roomID: missing, reason: "room not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := st.connect(tt.who)
			st.dispatch(t, sess, domain.JoinRoom, domain.WSRequestData{RoomID: tt.roomID})

			errs := errorsOf(t, sess)
			require.Len(t, errs, 1)
			assert.True(t, strings.Contains(errs[0], tt.roomID), "error names the room: %s", errs[0])
			assert.Contains(t, errs[0], tt.reason)
			assert.False(t, st.hub.IsJoined(sess, tt.roomID))

			// connection stays usable
			st.dispatch(t, sess, domain.LeaveRoom, domain.WSRequestData{RoomID: tt.roomID})
			assert.Len(t, only(t, sess, domain.LeaveRoomSuccess), 1)
		})
	}
}

func TestDispatch_JoinAndLeave(t *testing.T) {
	st := newStack(t, config.RoomConfig{})
	room := st.roomOf(t, resident)

	adm := st.joined(t, adminA, room.ID)
	assert.True(t, st.hub.IsJoined(adm, room.ID))

	st.dispatch(t, adm, domain.LeaveRoom, domain.WSRequestData{RoomID: room.ID})
	acks := only(t, adm, domain.LeaveRoomSuccess)
	require.Len(t, acks, 1)
	assert.Equal(t, room.ID, decode[domain.RoomAck](t, acks[0]).RoomID)
	assert.False(t, st.hub.IsJoined(adm, room.ID))

	// leaving again is still acknowledged
	st.dispatch(t, adm, domain.LeaveRoom, domain.WSRequestData{RoomID: room.ID})
	assert.Len(t, only(t, adm, domain.LeaveRoomSuccess), 1)
}

func TestDispatch_BadEvents(t *testing.T) {
	st := newStack(t, config.RoomConfig{})
	sess := st.connect(resident)

	st.dispatch(t, sess, domain.Action("delete_room"), domain.WSRequestData{})
	st.ws.Dispatch(context.Background(), sess, []byte(`{not json`))

	assert.Equal(t, []string{"unknown event: delete_room", "invalid event payload"}, errorsOf(t, sess))
}

func TestDispatch_SendValidation(t *testing.T) {
	st := newStack(t, config.RoomConfig{MaxMessageLength: 5})
	room := st.roomOf(t, resident)
	res := st.joined(t, resident, room.ID)
	adm := st.joined(t, adminA, room.ID)

	for _, content := range []string{"", "   ", "123456"} {
		st.dispatch(t, res, domain.SendMessage, domain.WSRequestData{RoomID: room.ID, Content: content})
	}
	errs := errorsOf(t, res)
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Contains(t, e, "invalid input")
	}
	assert.Empty(t, drain(adm), "rejected messages are never broadcast")

	n, err := st.store.CountMessages(context.Background(), room.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDispatch_ResidentMessageFanOut(t *testing.T) {
	st := newStack(t, config.RoomConfig{})
	room := st.roomOf(t, resident)
	res := st.joined(t, resident, room.ID)
	inRoom := st.joined(t, adminA, room.ID)
	roomListOpen := st.connect(adminB)
	otherApt := st.connect(adminX)
	otherResident := st.connect(neighbor)

	st.dispatch(t, res, domain.SendMessage, domain.WSRequestData{RoomID: room.ID, Content: "  water leak in 3F  "})

	echo := only(t, res, domain.NewMessage)
	require.Len(t, echo, 1, "sender gets the authoritative copy")
	msg := decode[domain.ChatMessage](t, echo[0])
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "water leak in 3F", msg.Content)
	assert.Equal(t, resident.UserID, msg.SenderID)
	assert.False(t, msg.IsReadByAdmin)
	assert.True(t, msg.IsReadByResident)
	assert.False(t, msg.CreatedAt.IsZero())

	assert.Len(t, only(t, inRoom, domain.NewMessage), 1)
	assert.Len(t, only(t, roomListOpen, domain.NewMessage), 1, "admin without the room open still sees it")
	assert.Empty(t, drain(otherApt))
	assert.Empty(t, drain(otherResident))
}

func TestDispatch_AdminMessageFanOut(t *testing.T) {
	tests := []struct {
		name      string
		symmetric bool
		want      int
	}{
		{name: "asymmetric", symmetric: false, want: 0},
		{name: "symmetric", symmetric: true, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStack(t, config.RoomConfig{SymmetricFanout: tt.symmetric})
			room := st.roomOf(t, resident)
			adm := st.joined(t, adminA, room.ID)
			idleResident := st.connect(resident)
			otherResident := st.connect(neighbor)

			st.dispatch(t, adm, domain.SendMessage, domain.WSRequestData{RoomID: room.ID, Content: "fixed"})

			echo := only(t, adm, domain.NewMessage)
			require.Len(t, echo, 1)
			msg := decode[domain.ChatMessage](t, echo[0])
			assert.True(t, msg.IsReadByAdmin)
			assert.False(t, msg.IsReadByResident)

			assert.Len(t, only(t, idleResident, domain.NewMessage), tt.want)
			assert.Empty(t, drain(otherResident))
		})
	}
}

func TestDispatch_MarkAsRead(t *testing.T) {
	st := newStack(t, config.RoomConfig{})
	room := st.roomOf(t, resident)
	adm := st.joined(t, adminA, room.ID)
	for _, c := range []string{"one", "two", "three"} {
		st.dispatch(t, adm, domain.SendMessage, domain.WSRequestData{RoomID: room.ID, Content: c})
	}
	res := st.joined(t, resident, room.ID)
	drain(adm)

	st.dispatch(t, res, domain.MarkAsRead, domain.WSRequestData{RoomID: room.ID})

	assert.Empty(t, only(t, res, domain.MessagesRead), "caller is not notified")
	notices := only(t, adm, domain.MessagesRead)
	require.Len(t, notices, 1)
	p := decode[domain.MessagesReadPayload](t, notices[0])
	assert.Equal(t, room.ID, p.RoomID)
	assert.Equal(t, domain.RoleUser, p.ReaderRole)
	assert.Equal(t, int64(3), p.UpdatedCount)

	after, err := st.store.FindByID(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Zero(t, after.UnreadCountForResident)

	// idempotent
	st.dispatch(t, res, domain.MarkAsRead, domain.WSRequestData{RoomID: room.ID})
	notices = only(t, adm, domain.MessagesRead)
	require.Len(t, notices, 1)
	assert.Zero(t, decode[domain.MessagesReadPayload](t, notices[0]).UpdatedCount)
}

func TestDispatch_Typing(t *testing.T) {
	st := newStack(t, config.RoomConfig{})
	room := st.roomOf(t, resident)
	tab1 := st.joined(t, resident, room.ID)
	tab2 := st.joined(t, resident, room.ID)
	adm := st.joined(t, adminA, room.ID)

	st.dispatch(t, tab1, domain.Typing, domain.WSRequestData{RoomID: room.ID, IsTyping: true})

	assert.Empty(t, drain(tab1))
	assert.Empty(t, drain(tab2), "never echoed to the typing user")
	evs := only(t, adm, domain.UserTyping)
	require.Len(t, evs, 1)
	assert.Equal(t, domain.UserTypingPayload{RoomID: room.ID, UserID: resident.UserID, UserName: "Kim", IsTyping: true},
		decode[domain.UserTypingPayload](t, evs[0]))
}

func TestDispatch_JoinBeforeSendReceives(t *testing.T) {
	st := newStack(t, config.RoomConfig{})
	room := st.roomOf(t, resident)
	res := st.joined(t, resident, room.ID)

	late := st.connect(adminA)
	st.dispatch(t, late, domain.JoinRoom, domain.WSRequestData{RoomID: room.ID})
	st.dispatch(t, res, domain.SendMessage, domain.WSRequestData{RoomID: room.ID, Content: "hi"})

	evs := drain(late)
	require.Len(t, evs, 2)
	assert.Equal(t, domain.JoinRoomSuccess, evs[0].Event)
	assert.Equal(t, domain.NewMessage, evs[1].Event)
}

func TestIdentityFromClaims(t *testing.T) {
	id := IdentityFromClaims(&token.Claims{UserID: "u", Role: token.RoleAdmin, ApartmentID: "apt"})
	assert.Equal(t, domain.Identity{UserID: "u", Role: domain.RoleAdmin, ApartmentID: "apt"}, id)
}

func TestFrameLimit_FitsEscapedMessages(t *testing.T) {
	for _, max := range []int{5, 1000, 20000} {
		h := NewChatWebsocketHandler(NewHub(), nil, nil, nil, nil, config.RoomConfig{MaxMessageLength: max})
		// every rune escaped as a surrogate pair is the widest JSON encoding there is
		frame := `{"event":"send_message","data":{"roomId":"` + uuid.New().String() + `","content":"` +
			strings.Repeat(`\ud83d\ude00`, max) + `"}}`
		assert.LessOrEqual(t, int64(len(frame)), h.frameLimit(), "max %d", max)
		assert.GreaterOrEqual(t, h.frameLimit(), int64(minFrameLimit))
	}
}

func TestDispatch_EscapedContentAtLimit(t *testing.T) {
	st := newStack(t, config.RoomConfig{MaxMessageLength: 10})
	room := st.roomOf(t, resident)
	res := st.joined(t, resident, room.ID)

	raw := `{"event":"send_message","data":{"roomId":"` + room.ID + `","content":"` + strings.Repeat(`\u003c`, 10) + `"}}`
	st.ws.Dispatch(context.Background(), res, []byte(raw))
	echo := only(t, res, domain.NewMessage)
	require.Len(t, echo, 1)
	assert.Equal(t, strings.Repeat("<", 10), decode[domain.ChatMessage](t, echo[0]).Content)

	raw = `{"event":"send_message","data":{"roomId":"` + room.ID + `","content":"` + strings.Repeat(`\u003c`, 11) + `"}}`
	st.ws.Dispatch(context.Background(), res, []byte(raw))
	errs := errorsOf(t, res)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "too long")
}
