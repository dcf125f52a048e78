package layout

import "testing"

func TestClickSelectsAndEnterEditing(t *testing.T) {
	m := NewMachine()

	m.Click(FocusTarget{BlockID: "b1"})
	if m.State() != StateSelected || m.BlockID() != "b1" {
		t.Fatalf("expected selected b1, got %s/%s", m.State(), m.BlockID())
	}

	// Text-bearing blocks enter edit mode on plain click.
	m.Click(FocusTarget{BlockID: "b2", SupportsEditing: true})
	if m.State() != StateEditing || m.BlockID() != "b2" {
		t.Fatalf("expected editing b2, got %s/%s", m.State(), m.BlockID())
	}
}

func TestSelectionExclusivity(t *testing.T) {
	m := NewMachine()
	m.Click(FocusTarget{BlockID: "b1", SupportsEditing: true})
	m.Click(FocusTarget{BlockID: "b2"})

	// Selecting b2 implicitly closed editing on b1; exactly one block
	// is selected.
	if m.BlockID() != "b2" || m.State() != StateSelected {
		t.Errorf("expected only b2 selected, got %s/%s", m.State(), m.BlockID())
	}
}

func TestDoubleClickForcesEditing(t *testing.T) {
	m := NewMachine()
	m.DoubleClick(FocusTarget{BlockID: "img1"})
	if m.State() != StateEditing || m.BlockID() != "img1" {
		t.Errorf("double-click should force editing, got %s/%s", m.State(), m.BlockID())
	}
}

func TestEscapeKeepsSelection(t *testing.T) {
	m := NewMachine()
	m.DoubleClick(FocusTarget{BlockID: "b1"})
	m.Escape()
	if m.State() != StateSelected || m.BlockID() != "b1" {
		t.Errorf("escape should leave selected, not idle: %s/%s", m.State(), m.BlockID())
	}
	// Escape outside editing does nothing.
	m.Escape()
	if m.State() != StateSelected {
		t.Errorf("second escape changed state to %s", m.State())
	}
}

func TestClickOutsideDeselects(t *testing.T) {
	m := NewMachine()
	m.Click(FocusTarget{BlockID: "b1", SupportsEditing: true})
	m.ClickOutside()
	if m.State() != StateIdle || m.BlockID() != "" {
		t.Errorf("expected idle, got %s/%s", m.State(), m.BlockID())
	}
}

func TestBlurToToolbarKeepsEditing(t *testing.T) {
	m := NewMachine()
	m.DoubleClick(FocusTarget{BlockID: "b1"})

	m.Blur(FocusTarget{InsideToolbar: true})
	if m.State() != StateEditing {
		t.Errorf("focus on the toolbar must not end editing, got %s", m.State())
	}
	m.Blur(FocusTarget{InsideSettings: true})
	if m.State() != StateEditing {
		t.Errorf("focus on a settings overlay must not end editing, got %s", m.State())
	}
}

func TestBlurOutsideGoesIdle(t *testing.T) {
	m := NewMachine()
	m.DoubleClick(FocusTarget{BlockID: "b1"})

	// Blur to an unrelated element goes straight to idle, not
	// selected.
	m.Blur(FocusTarget{BlockID: "other"})
	if m.State() != StateIdle {
		t.Errorf("expected idle after outside blur, got %s", m.State())
	}
}

func TestDeselectOnDelete(t *testing.T) {
	m := NewMachine()
	m.Click(FocusTarget{BlockID: "b1"})
	m.Deselect("b1")
	if m.State() != StateIdle {
		t.Errorf("deleting the selected block should idle the machine, got %s", m.State())
	}

	m.Click(FocusTarget{BlockID: "b2"})
	m.Deselect("b1")
	if m.BlockID() != "b2" {
		t.Errorf("deselect of an unselected block must not disturb b2")
	}
}

func TestExclusivityUnderEventSequences(t *testing.T) {
	m := NewMachine()
	events := []func(){
		func() { m.Click(FocusTarget{BlockID: "a", SupportsEditing: true}) },
		func() { m.DoubleClick(FocusTarget{BlockID: "b"}) },
		func() { m.Escape() },
		func() { m.Click(FocusTarget{BlockID: "c"}) },
		func() { m.Blur(FocusTarget{BlockID: "zz"}) },
		func() { m.DoubleClick(FocusTarget{BlockID: "a"}) },
		func() { m.ClickOutside() },
	}
	for i, ev := range events {
		ev()
		if m.State() == StateIdle && m.BlockID() != "" {
			t.Fatalf("step %d: idle with a block id", i)
		}
		if m.State() != StateIdle && m.BlockID() == "" {
			t.Fatalf("step %d: %s without a block id", i, m.State())
		}
	}
}
