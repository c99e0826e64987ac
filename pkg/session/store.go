// Package session holds per-actor wizard state. Sessions live only in
// memory; a process restart drops every in-flight draft, which is
// acceptable for this bot.
package session

import (
	"sync"

	"telepost/pkg/post"
)

// Step is the wizard state an actor's session currently sits in.
type Step string

const (
	StepIdle                 Step = "idle"
	StepAwaitingContent      Step = "awaiting_content"
	StepBuilding             Step = "building"
	StepAwaitingTextEdit     Step = "awaiting_text_edit"
	StepAwaitingButtonsInput Step = "awaiting_buttons_input"
	StepAwaitingFileAttach   Step = "awaiting_file_attach"
	StepAwaitingButtonTitle  Step = "awaiting_button_title"
	StepPreviewing           Step = "previewing"
	StepAwaitingSendTarget   Step = "awaiting_send_target"
	StepAwaitingDestChannel  Step = "awaiting_dest_channel"
	StepAwaitingGateChannel  Step = "awaiting_gate_channel"
)

// StagedFile is a media payload received during the attach-file sub-flow,
// waiting for its button title before it becomes a share record.
type StagedFile struct {
	Kind     post.Kind
	Ref      string
	FileName string
	Caption  string
}

// Session is the per-actor wizard state. The Draft is owned exclusively by
// the session until handed to the delivery engine.
type Session struct {
	Step   Step
	Draft  *post.Post
	Staged *StagedFile
}

type entry struct {
	mu      sync.Mutex // serializes handling of same-actor events
	stateMu sync.Mutex
	sess    Session
}

// Store maps actor IDs to sessions. Absence is not an error: a missing
// session reads as a fresh one at StepIdle.
type Store struct {
	mu      sync.RWMutex
	entries map[int64]*entry
}

func NewStore() *Store {
	return &Store{entries: make(map[int64]*entry)}
}

func (s *Store) getOrCreate(actorID int64) *entry {
	s.mu.RLock()
	e, ok := s.entries[actorID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[actorID]; ok {
		return e
	}
	e = &entry{sess: Session{Step: StepIdle}}
	s.entries[actorID] = e
	return e
}

// Get returns a copy of the actor's session, creating an idle one if absent.
func (s *Store) Get(actorID int64) Session {
	e := s.getOrCreate(actorID)
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.sess
}

// Mutate applies fn to the actor's session under its state lock.
func (s *Store) Mutate(actorID int64, fn func(*Session)) {
	e := s.getOrCreate(actorID)
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	fn(&e.sess)
}

// Reset returns the actor's session to StepIdle, discarding the draft and
// all transient fields.
func (s *Store) Reset(actorID int64) {
	s.Mutate(actorID, func(sess *Session) {
		*sess = Session{Step: StepIdle}
	})
}

// WithActor runs fn while holding the actor's serialization lock, so
// rapid-fire events from the same actor apply in arrival order. Distinct
// actors proceed concurrently.
func (s *Store) WithActor(actorID int64, fn func()) {
	e := s.getOrCreate(actorID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}
