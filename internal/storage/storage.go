package storage

import (
	"encoding/json"
	"errors"
	"log"
)

// Well-known keys within a profile namespace.
const (
	KeyPartner = "partner"
	KeyCouple  = "couple"
	KeySession = "session"
)

// SharedProfile holds keys visible to every profile on the origin: the
// profile directory and the broadcast append log.
const SharedProfile = "shared"

const (
	KeyProfileDirectory = "profiles"
	KeyBroadcastLog     = "broadcast-log"
)

var ErrUnavailable = errors.New("storage unavailable")

// Store is one physical storage origin. All simulated profiles share it;
// the profile argument keeps their key sets apart.
type Store interface {
	Get(profile, key string) ([]byte, bool, error)
	Put(profile, key string, value []byte) error
	Delete(profile, key string) error
	Keys(profile string) ([]string, error)
}

// Adapter binds a Store to one active profile. Switching profiles is an
// explicit swap via WithProfile, never a process restart.
type Adapter struct {
	store   Store
	profile string
}

func NewAdapter(store Store, profile string) *Adapter {
	return &Adapter{store: store, profile: profile}
}

// WithProfile returns an adapter over the same origin scoped to another
// profile. The receiver is unchanged.
func (a *Adapter) WithProfile(profile string) *Adapter {
	return &Adapter{store: a.store, profile: profile}
}

func (a *Adapter) Profile() string {
	return a.profile
}

func (a *Adapter) Store() Store {
	return a.store
}

// ReadJSON decodes the record at key into dest. Malformed persisted JSON is
// logged and reported as record-absent, never as an error.
func (a *Adapter) ReadJSON(key string, dest any) (bool, error) {
	raw, ok, err := a.store.Get(a.profile, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		log.Printf("storage: discarding malformed record profile=%s key=%s: %v", a.profile, key, err)
		return false, nil
	}
	return true, nil
}

// WriteJSON replaces the whole record at key.
func (a *Adapter) WriteJSON(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return a.store.Put(a.profile, key, raw)
}

func (a *Adapter) Delete(key string) error {
	return a.store.Delete(a.profile, key)
}

func (a *Adapter) Keys() ([]string, error) {
	return a.store.Keys(a.profile)
}

// RegisterProfile upserts the active profile into the origin-wide directory.
func (a *Adapter) RegisterProfile() error {
	var names []string
	raw, ok, err := a.store.Get(SharedProfile, KeyProfileDirectory)
	if err != nil {
		return err
	}
	if ok {
		if err := json.Unmarshal(raw, &names); err != nil {
			log.Printf("storage: discarding malformed profile directory: %v", err)
			names = nil
		}
	}
	for _, name := range names {
		if name == a.profile {
			return nil
		}
	}
	names = append(names, a.profile)
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return a.store.Put(SharedProfile, KeyProfileDirectory, data)
}

// Profiles lists every profile registered on the origin.
func (a *Adapter) Profiles() ([]string, error) {
	var names []string
	raw, ok, err := a.store.Get(SharedProfile, KeyProfileDirectory)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &names); err != nil {
		log.Printf("storage: discarding malformed profile directory: %v", err)
		return nil, nil
	}
	return names, nil
}
