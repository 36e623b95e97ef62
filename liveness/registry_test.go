package liveness

import (
	"sync"
	"testing"

	"github.com/kbukum/scopecache/errors"
)

type request struct{ id int }

func TestTrackAssignsMonotonicTokens(t *testing.T) {
	r := NewRegistry()
	a, b := &request{1}, &request{2}

	ta, err := r.Track(a)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	tb, err := r.Track(b)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if ta.ID() == 0 || tb.ID() <= ta.ID() {
		t.Errorf("expected increasing ids, got %d then %d", ta.ID(), tb.ID())
	}

	again, _ := r.Track(a)
	if again != ta {
		t.Error("expected Track to return the existing token for a live scope")
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 tracked scopes, got %d", r.Len())
	}
}

func TestTrackMatchesByIdentity(t *testing.T) {
	r := NewRegistry()
	a, b := &request{1}, &request{1}

	ta, _ := r.Track(a)
	if _, ok := r.Lookup(b); ok {
		t.Fatal("expected value-equal scope to be a different key")
	}
	tb, _ := r.Track(b)
	if ta == tb {
		t.Error("expected distinct tokens for distinct scope objects")
	}
}

func TestNilScopeIsUnscoped(t *testing.T) {
	r := NewRegistry()
	tok, err := r.Track(nil)
	if err != nil {
		t.Fatalf("Track(nil) failed: %v", err)
	}
	if tok != Unscoped() || !tok.Unscoped() {
		t.Error("expected nil scope to map to the unscoped token")
	}
	if tok.String() != "unscoped" {
		t.Errorf("unexpected String(): %q", tok.String())
	}
	if r.End(nil) {
		t.Error("expected End(nil) to be a no-op")
	}
	if _, err := r.Release(nil); !errors.HasCode(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT releasing unscoped, got %v", err)
	}
	if !tok.Alive() {
		t.Error("unscoped token must never die")
	}
	if r.Len() != 0 {
		t.Errorf("unscoped bucket must not be counted, got %d", r.Len())
	}
}

func TestEndKillsTokenAndForgetsScope(t *testing.T) {
	r := NewRegistry()
	s := &request{1}
	tok, _ := r.Track(s)

	if !r.End(s) {
		t.Fatal("expected End to report a live scope")
	}
	if tok.Alive() {
		t.Error("expected token to be dead after End")
	}
	if _, ok := r.Lookup(s); ok {
		t.Error("expected Lookup to miss after End")
	}
	if r.End(s) {
		t.Error("expected second End to report false")
	}

	next, _ := r.Track(s)
	if next == tok || !next.Alive() {
		t.Error("expected re-tracking an ended scope to start a new generation")
	}
	if next.ID() <= tok.ID() {
		t.Errorf("expected new generation id > %d, got %d", tok.ID(), next.ID())
	}
}

func TestOnEndNotifiesEndedTokens(t *testing.T) {
	r := NewRegistry()
	var got []*Token
	cancel := r.OnEnd(func(tok *Token) {
		if tok.Alive() {
			t.Error("hook saw a live token")
		}
		got = append(got, tok)
	})

	a, b := &request{1}, &request{2}
	ta, _ := r.Track(a)
	tb, _ := r.Track(b)

	r.End(a)
	r.End(a)
	if ended, _ := r.Release(b); !ended {
		t.Fatal("expected Release to end b")
	}
	if len(got) != 2 || got[0] != ta || got[1] != tb {
		t.Fatalf("hook calls = %v, want [%v %v]", got, ta, tb)
	}

	cancel()
	c := &request{3}
	r.Track(c)
	r.End(c)
	if len(got) != 2 {
		t.Errorf("hook called after cancel: %d calls", len(got))
	}
}

func TestAcquireReleaseCounts(t *testing.T) {
	r := NewRegistry()
	s := &request{1}
	tok, _ := r.Track(s)
	if err := r.Acquire(s); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ended, err := r.Release(s)
	if err != nil || ended {
		t.Fatalf("expected first release to keep scope alive, ended=%v err=%v", ended, err)
	}
	if !tok.Alive() {
		t.Fatal("expected token alive with one owner left")
	}

	ended, err = r.Release(s)
	if err != nil || !ended {
		t.Fatalf("expected last release to end scope, ended=%v err=%v", ended, err)
	}
	if tok.Alive() {
		t.Error("expected token dead after last release")
	}

	ended, err = r.Release(s)
	if err != nil || ended {
		t.Errorf("expected release of ended scope to be a no-op, ended=%v err=%v", ended, err)
	}
}

func TestAcquireTracksUnknownScope(t *testing.T) {
	r := NewRegistry()
	s := &request{1}
	if err := r.Acquire(s); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, ok := r.Lookup(s); !ok {
		t.Error("expected Acquire to track the scope")
	}
}

func TestCheckIdentity(t *testing.T) {
	var nilPtr *request
	tests := []struct {
		name    string
		v       any
		wantErr bool
	}{
		{"pointer", &request{}, false},
		{"channel", make(chan int), false},
		{"nil", nil, true},
		{"typed nil pointer", nilPtr, true},
		{"string", "scope", true},
		{"int", 42, true},
		{"struct value", request{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckIdentity("scope", tc.v)
			if (err != nil) != tc.wantErr {
				t.Fatalf("CheckIdentity() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.HasCode(err, errors.ErrCodeInvalidArgument) {
				t.Errorf("expected INVALID_ARGUMENT, got %v", err)
			}
		})
	}
}

func TestTrackRejectsValueScopes(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Track("request-1"); !errors.HasCode(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
	if _, ok := r.Lookup("request-1"); ok {
		t.Error("expected Lookup of value scope to miss")
	}
}

func TestConcurrentTrackSameScope(t *testing.T) {
	r := NewRegistry()
	s := &request{1}

	var wg sync.WaitGroup
	tokens := make([]*Token, 32)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = r.Track(s)
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens[1:] {
		if tok != tokens[0] {
			t.Fatal("expected all concurrent Track calls to share one token")
		}
	}
}
