package relay

import (
	"sort"
	"sync"
)

// RoomInfo describes a room for the stats endpoints.
type RoomInfo struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
}

// Directory maps room ids to their member connections. Rooms exist only
// while they have at least one member.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]map[string]*Client)}
}

// Join adds c to roomID, creating the room on first use. Joining a room
// twice has no further effect. A closed client is never added.
func (d *Directory) Join(c *Client, roomID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c.isClosed() {
		return ErrClientClosed
	}

	members, ok := d.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		d.rooms[roomID] = members
	}
	members[c.ID] = c
	c.addRoom(roomID)
	return nil
}

// Leave removes c from roomID and drops the room once it is empty.
func (d *Directory) Leave(c *Client, roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.leaveLocked(c, roomID)
}

// LeaveAll removes c from every room it joined.
func (d *Directory) LeaveAll(c *Client) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, roomID := range c.Rooms() {
		d.leaveLocked(c, roomID)
	}
}

func (d *Directory) leaveLocked(c *Client, roomID string) {
	c.removeRoom(roomID)

	members, ok := d.rooms[roomID]
	if !ok {
		return
	}
	delete(members, c.ID)
	if len(members) == 0 {
		delete(d.rooms, roomID)
	}
}

// Members returns a snapshot of the room's members; nil for unknown rooms.
func (d *Directory) Members(roomID string) []*Client {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// has reports whether the client with id is a member of roomID.
func (d *Directory) has(roomID, clientID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.rooms[roomID][clientID]
	return ok
}

func (d *Directory) Size(roomID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms[roomID])
}

// Rooms lists every live room ordered by id.
func (d *Directory) Rooms() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]RoomInfo, 0, len(d.rooms))
	for id, members := range d.rooms {
		out = append(out, RoomInfo{ID: id, Members: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
