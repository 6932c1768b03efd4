package main

import (
	"testing"
	"time"
)

func TestDebouncePolicy_SuppressesWithinWindow(t *testing.T) {
	p := NewDebouncePolicy(10 * time.Second)
	base := time.Unix(1000, 0)

	if !p.Allow("c", base) {
		t.Fatal("first event should be allowed")
	}
	if p.Allow("c", base.Add(3*time.Second)) {
		t.Fatal("repeat within the window should be suppressed")
	}
	if !p.Allow("c", base.Add(11*time.Second)) {
		t.Fatal("event after the window should be allowed")
	}
}

func TestDebouncePolicy_SuppressedEventDoesNotExtendWindow(t *testing.T) {
	p := NewDebouncePolicy(10 * time.Second)
	base := time.Unix(1000, 0)

	p.Allow("c", base)
	p.Allow("c", base.Add(9*time.Second))

	// The window is measured from the last *accepted* event.
	if !p.Allow("c", base.Add(10*time.Second)) {
		t.Fatal("suppressed events must not push the window out")
	}
}

func TestDebouncePolicy_KeysAreIndependent(t *testing.T) {
	p := NewDebouncePolicy(10 * time.Second)
	base := time.Unix(1000, 0)

	if !p.Allow("c", base) {
		t.Fatal("first key should be allowed")
	}
	if !p.Allow("v", base.Add(time.Second)) {
		t.Fatal("different key should not share the window")
	}
}

func TestDebouncePolicy_ZeroWindowDisables(t *testing.T) {
	p := NewDebouncePolicy(0)
	base := time.Unix(1000, 0)

	for i := 0; i < 3; i++ {
		if !p.Allow("c", base) {
			t.Fatal("zero window must allow everything")
		}
	}
}
