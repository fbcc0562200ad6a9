package search

import (
	"testing"
	"time"
)

func TestBreaker_TripsAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(2, time.Minute)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	if !b.Allow() {
		t.Fatal("breaker tripped after one failure")
	}
	b.RecordFailure()
	if b.Allow() {
		t.Fatal("breaker should be open after two failures")
	}

	now = now.Add(61 * time.Second)
	if !b.Allow() {
		t.Fatal("breaker should allow a trial call after cooldown")
	}

	b.RecordSuccess()
	if !b.DisabledUntil().IsZero() {
		t.Error("success should close the breaker")
	}
}

func TestBreaker_HalfOpenAdmitsOneCaller(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(61 * time.Second)

	if !b.Allow() {
		t.Fatal("first caller after cooldown should get the trial")
	}
	for i := 0; i < 3; i++ {
		if b.Allow() {
			t.Fatal("only one trial call may run at a time")
		}
	}

	b.RecordFailure()
	if b.Allow() {
		t.Fatal("failed trial should restart the cooldown")
	}
	if want := now.Add(time.Minute); !b.DisabledUntil().Equal(want) {
		t.Errorf("DisabledUntil = %v, want %v", b.DisabledUntil(), want)
	}

	now = now.Add(61 * time.Second)
	if !b.Allow() {
		t.Fatal("next cooldown should admit a new trial")
	}
	b.RecordSuccess()
	if !b.Allow() || !b.Allow() {
		t.Error("closed breaker should admit every caller")
	}
}

func TestBreaker_NilAndDisabled(t *testing.T) {
	var nilBreaker *Breaker
	if !nilBreaker.Allow() {
		t.Error("nil breaker must allow")
	}
	nilBreaker.RecordFailure()

	b := NewBreaker(0, time.Minute)
	for i := 0; i < 10; i++ {
		b.RecordFailure()
	}
	if !b.Allow() {
		t.Error("breaker with maxFailures 0 must never trip")
	}
}
