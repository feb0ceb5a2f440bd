package chatclient

import (
	"sort"

	"apartment_chat_service/internal/chat/domain"
)

// AutoScrollThreshold px from the bottom that still counts as "at the bottom"
const AutoScrollThreshold = 100

// Snapshot read flags of the viewer, captured once when the room is opened and
// before mark_as_read is sent. Never updated afterwards.
type Snapshot map[string]bool

// TakeSnapshot message id -> already read by viewer
func TakeSnapshot(page []domain.ChatMessage, viewer domain.Role) Snapshot {
	s := make(Snapshot, len(page))
	for i := range page {
		s[page[i].ID] = page[i].ReadBy(viewer)
	}
	return s
}

// HasUnread any message was unread at open
func (s Snapshot) HasUnread() bool {
	for _, read := range s {
		if !read {
			return true
		}
	}
	return false
}

// RenderOrder wire pages are newest first, the list is drawn oldest first
func RenderOrder(newestFirst []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(newestFirst))
	for i := range newestFirst {
		out[len(newestFirst)-1-i] = newestFirst[i]
	}
	return out
}

// Boundary id of the message the unread marker is drawn before: the first
// snapshot-unread message that follows a snapshot-read one, or the first
// message when it is itself unread. Messages outside the snapshot (live
// arrivals, older backfill) are ignored so the marker never moves.
func Boundary(rendered []domain.ChatMessage, snap Snapshot) (string, bool) {
	first := true
	prevRead := false
	for i := range rendered {
		read, ok := snap[rendered[i].ID]
		if !ok {
			continue
		}
		if !read && (first || prevRead) {
			return rendered[i].ID, true
		}
		first = false
		prevRead = read
	}
	return "", false
}

// Merge add live or backfilled messages to a newest-first list, dropping ids
// already present (the echo of a message that was loaded by a page fetch)
func Merge(newestFirst []domain.ChatMessage, incoming ...domain.ChatMessage) []domain.ChatMessage {
	seen := make(map[string]struct{}, len(newestFirst)+len(incoming))
	out := make([]domain.ChatMessage, 0, len(newestFirst)+len(incoming))
	for _, list := range [][]domain.ChatMessage{newestFirst, incoming} {
		for _, m := range list {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq > out[j].Seq
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Viewport scroll container geometry in px
type Viewport struct {
	ScrollTop    float64
	ClientHeight float64
	ScrollHeight float64
}

func (v Viewport) maxScrollTop() float64 {
	if m := v.ScrollHeight - v.ClientHeight; m > 0 {
		return m
	}
	return 0
}

func (v Viewport) clamp(top float64) float64 {
	if top < 0 {
		return 0
	}
	if m := v.maxScrollTop(); top > m {
		return m
	}
	return top
}

// NearBottom within threshold px of the bottom
func NearBottom(v Viewport, threshold float64) bool {
	return v.ScrollHeight-v.ScrollTop-v.ClientHeight <= threshold
}

// InitialScrollTop with unread messages the marker (boundaryTop = its offset in the
// content) is centered, otherwise the view starts at the newest message
func InitialScrollTop(v Viewport, boundaryTop float64, hasBoundary bool) float64 {
	if !hasBoundary {
		return v.maxScrollTop()
	}
	return v.clamp(boundaryTop - v.ClientHeight/2)
}

// AutoScroll a message was appended; before is the viewport prior to the append and
// after has the new content height. Returns the new scrollTop and whether to apply it.
func AutoScroll(before, after Viewport) (float64, bool) {
	if !NearBottom(before, AutoScrollThreshold) {
		return before.ScrollTop, false
	}
	return after.maxScrollTop(), true
}

// PrependScrollTop older messages were inserted above the view; keep the same
// messages on screen by shifting by the content height delta
func PrependScrollTop(prev Viewport, newScrollHeight float64) float64 {
	next := prev
	next.ScrollHeight = newScrollHeight
	return next.clamp(prev.ScrollTop + (newScrollHeight - prev.ScrollHeight))
}

// State inputs of the reconciler
type State struct {
	Snapshot Snapshot
	// Messages newest first, as held by the client
	Messages []domain.ChatMessage
	Viewport Viewport
}

// View what to draw
type View struct {
	Rendered    []domain.ChatMessage
	BoundaryID  string
	HasBoundary bool
	// FollowTail new messages should scroll the view to the bottom
	FollowTail bool
}

// Reconcile recompute the view from the current state
func Reconcile(s State) View {
	rendered := RenderOrder(s.Messages)
	id, ok := Boundary(rendered, s.Snapshot)
	return View{
		Rendered:    rendered,
		BoundaryID:  id,
		HasBoundary: ok,
		FollowTail:  NearBottom(s.Viewport, AutoScrollThreshold),
	}
}
