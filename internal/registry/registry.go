// Package registry tracks live room membership in memory. Membership is
// ephemeral: it exists only for connected users and is rebuilt from scratch
// after a restart.
package registry

import "sync"

// Registry keeps room->members and user->rooms as mutual inverses. Every
// mutation happens under one mutex, so a reader never observes a user in a
// room's member set without that room in the user's room set or vice versa.
type Registry struct {
	mu          sync.Mutex
	roomMembers map[string]map[string]struct{}
	userRooms   map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		roomMembers: make(map[string]map[string]struct{}),
		userRooms:   make(map[string]map[string]struct{}),
	}
}

// Join adds the user to the room. Joining a room twice is a no-op.
func (r *Registry) Join(userID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(map[string]struct{})
	}
	r.roomMembers[roomID][userID] = struct{}{}

	if _, ok := r.userRooms[userID]; !ok {
		r.userRooms[userID] = make(map[string]struct{})
	}
	r.userRooms[userID][roomID] = struct{}{}
}

// Leave removes the user from the room. Leaving a room the user never joined
// is a no-op.
func (r *Registry) Leave(userID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(userID, roomID)
}

func (r *Registry) leaveLocked(userID, roomID string) {
	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
	if rooms, ok := r.userRooms[userID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.userRooms, userID)
		}
	}
}

// Members returns a snapshot of the room's current members.
func (r *Registry) Members(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return keys(r.roomMembers[roomID])
}

// Rooms returns a snapshot of the rooms the user has joined.
func (r *Registry) Rooms(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return keys(r.userRooms[userID])
}

// DropUser removes the user from every room in one step and returns the
// rooms they were in, for leave notifications.
func (r *Registry) DropUser(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := keys(r.userRooms[userID])
	for _, roomID := range rooms {
		r.leaveLocked(userID, roomID)
	}
	return rooms
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
