package debugger

import (
	"testing"

	"pascalvm/internal/bytecode"
)

func TestAddAndRemoveBreakpoint(t *testing.T) {
	d := New()
	id := d.AddBreakpoint("main.pas", 10)
	if id != 1 {
		t.Fatalf("expected first breakpoint id 1, got %d", id)
	}
	if !d.RemoveBreakpoint(id) {
		t.Fatal("expected RemoveBreakpoint to find the breakpoint just added")
	}
	if d.RemoveBreakpoint(id) {
		t.Fatal("expected a second removal of the same id to fail")
	}
}

func TestCheckBreakpointCountsHits(t *testing.T) {
	d := New()
	d.AddBreakpoint("main.pas", 5)

	if d.checkBreakpoint("main.pas", 6) {
		t.Fatal("expected no match on a different line")
	}
	if !d.checkBreakpoint("main.pas", 5) {
		t.Fatal("expected a match on the breakpoint's own line")
	}
	if d.breakpoints[1].HitCount != 1 {
		t.Fatalf("expected hit count 1, got %d", d.breakpoints[1].HitCount)
	}
}

func TestHookDoesNotPauseWithoutMatchingBreakpoint(t *testing.T) {
	d := New()
	d.state = Running
	hook := NewHook(d)

	cont := hook.OnInstruction(0, bytecode.DebugInfo{File: "main.pas", Line: 1})
	if !cont {
		t.Fatal("expected OnInstruction to report continue with no breakpoints set")
	}
	if d.state != Running {
		t.Fatalf("expected state to remain Running, got %v", d.state)
	}
}
