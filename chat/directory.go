package chat

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// RoomName is the single room everybody shares.
	RoomName = "main"

	// MaxUsers caps room membership.
	MaxUsers = 10
)

var (
	ErrRoomFull     = errors.New("room is full")
	ErrNameRequired = errors.New("name is required to join")
	ErrUnknownUser  = errors.New("unknown user")
)

// Directory is the in-memory registry of room members and their published
// public keys. Members who leave are kept but marked out of the room so a
// reconnecting client can pick up its identity.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[string]*User)}
}

// Join admits a user under the given display name, enforcing the room cap.
func (d *Directory) Join(name string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	inRoom := 0
	for _, u := range d.users {
		if u.InRoom {
			inRoom++
		}
	}
	if inRoom >= MaxUsers {
		return nil, ErrRoomFull
	}

	user := &User{
		ID:       newUserID(),
		Name:     name,
		JoinedAt: time.Now().UnixMilli(),
		InRoom:   true,
	}
	d.users[user.ID] = user

	return user.clone(), nil
}

// Leave marks a user as out of the room.
func (d *Directory) Leave(id string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[id]
	if !ok {
		return nil, ErrUnknownUser
	}
	user.InRoom = false
	return user.clone(), nil
}

// UpdateKey publishes a user's public encryption key.
func (d *Directory) UpdateKey(id, publicKey string) (*User, error) {
	if publicKey == "" {
		return nil, errors.New("public key is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[id]
	if !ok {
		return nil, ErrUnknownUser
	}
	user.PublicKey = publicKey
	return user.clone(), nil
}

// Get returns a user by id.
func (d *Directory) Get(id string) (*User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[id]
	if !ok {
		return nil, false
	}
	return user.clone(), true
}

// List returns all users currently in the room.
func (d *Directory) List() []*User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		if u.InRoom {
			result = append(result, u.clone())
		}
	}
	return result
}

// Count returns the number of users currently in the room.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := 0
	for _, u := range d.users {
		if u.InRoom {
			count++
		}
	}
	return count
}

func (u *User) clone() *User {
	cp := *u
	return &cp
}

func newUserID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(buf[:])
}
