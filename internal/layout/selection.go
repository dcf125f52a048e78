package layout

// SelectionState is the editor's per-worksheet selection machine
// state. At most one block is selected or editing at any time.
type SelectionState string

const (
	StateIdle     SelectionState = "idle"
	StateSelected SelectionState = "selected"
	StateEditing  SelectionState = "editing"
)

// FocusTarget describes where focus or a click landed, as resolved by
// the host from the DOM ancestry of the event target. The machine
// never queries global selection state itself; the host passes an
// explicit value (REDESIGN: no singleton DOM queries).
type FocusTarget struct {
	BlockID         string
	InsideToolbar   bool
	InsideSettings  bool
	SupportsEditing bool
}

// Machine tracks which block is selected and whether it is in inline
// edit mode.
type Machine struct {
	state   SelectionState
	blockID string
}

func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

func (m *Machine) State() SelectionState { return m.state }

// BlockID returns the selected or editing block, or "" when idle.
func (m *Machine) BlockID() string {
	if m.state == StateIdle {
		return ""
	}
	return m.blockID
}

// Click selects the target block; if the block supports inline text
// editing it enters edit mode immediately. Selecting a new block
// implicitly deselects the previous one.
func (m *Machine) Click(target FocusTarget) {
	if target.BlockID == "" {
		m.ClickOutside()
		return
	}
	m.blockID = target.BlockID
	if target.SupportsEditing {
		m.state = StateEditing
	} else {
		m.state = StateSelected
	}
}

// DoubleClick always forces edit mode on the target block.
func (m *Machine) DoubleClick(target FocusTarget) {
	if target.BlockID == "" {
		return
	}
	m.blockID = target.BlockID
	m.state = StateEditing
}

// ClickOutside deselects, unless the click landed on the floating
// toolbar or a settings overlay, which belong to the selection.
func (m *Machine) ClickOutside() {
	m.state = StateIdle
	m.blockID = ""
}

// Escape leaves edit mode but keeps the block selected; content is not
// discarded.
func (m *Machine) Escape() {
	if m.state == StateEditing {
		m.state = StateSelected
	}
}

// Blur handles focus leaving the editing block. Focus moving to the
// toolbar or a settings overlay keeps the editing session; anything
// else ends it and deselects entirely.
func (m *Machine) Blur(newFocus FocusTarget) {
	if m.state != StateEditing {
		return
	}
	if newFocus.InsideToolbar || newFocus.InsideSettings || newFocus.BlockID == m.blockID {
		return
	}
	m.state = StateIdle
	m.blockID = ""
}

// Deselect drops any selection of the given block, e.g. after the
// block is deleted.
func (m *Machine) Deselect(blockID string) {
	if m.blockID == blockID {
		m.state = StateIdle
		m.blockID = ""
	}
}
