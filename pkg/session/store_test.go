package session

import (
	"sync"
	"testing"

	"telepost/pkg/post"
)

func TestGetCreatesIdleSession(t *testing.T) {
	t.Parallel()

	s := NewStore()
	sess := s.Get(1)
	if sess.Step != StepIdle {
		t.Fatalf("new session not idle: %s", sess.Step)
	}
	if sess.Draft != nil {
		t.Fatalf("new session has draft")
	}
}

func TestMutateAndReset(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Mutate(1, func(sess *Session) {
		sess.Step = StepBuilding
		sess.Draft = post.NewText("hello", nil)
		sess.Staged = &StagedFile{Kind: post.KindDocument, Ref: "file-1"}
	})

	if got := s.Get(1); got.Step != StepBuilding || got.Draft == nil {
		t.Fatalf("mutation lost: %+v", got)
	}

	s.Reset(1)
	got := s.Get(1)
	if got.Step != StepIdle || got.Draft != nil || got.Staged != nil {
		t.Fatalf("reset incomplete: %+v", got)
	}
}

func TestSessionsAreIsolatedPerActor(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Mutate(1, func(sess *Session) { sess.Step = StepPreviewing })

	if got := s.Get(2); got.Step != StepIdle {
		t.Fatalf("actor 2 saw actor 1 state: %s", got.Step)
	}
}

func TestWithActorSerializesSameActor(t *testing.T) {
	t.Parallel()

	s := NewStore()
	const rounds = 200

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.WithActor(1, func() {
				counter++
			})
		}()
	}
	wg.Wait()

	if counter != rounds {
		t.Fatalf("lost updates under serialization: %d != %d", counter, rounds)
	}
}
