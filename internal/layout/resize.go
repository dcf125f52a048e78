package layout

import "errors"

// snapBand is the distance from an even split within which the live
// percent snaps to exactly 50.
const snapBand = 3

var ErrNoGesture = errors.New("no gesture in progress")

// SplitResize is the drag controller for the split ratio of a
// side-by-side half-width pair. During the drag only the ephemeral
// percent moves; the authoritative width percent is written once, on
// commit. Releasing the pointer anywhere, including outside a drop
// target, commits the last valid value.
type SplitResize struct {
	active  bool
	blockA  string
	blockB  string
	percent int
}

// Begin starts a gesture on the pair (a, b) from the stored percent.
func (s *SplitResize) Begin(blockAID, blockBID string, startPercent int) {
	s.active = true
	s.blockA = blockAID
	s.blockB = blockBID
	s.percent = SnapSplitPercent(startPercent)
}

// Update moves the live percent. The value is clamped and snapped
// immediately so the preview always shows what a release would commit.
func (s *SplitResize) Update(percent int) int {
	if !s.active {
		return s.percent
	}
	s.percent = SnapSplitPercent(percent)
	return s.percent
}

// Live returns the current ephemeral percent.
func (s *SplitResize) Live() int {
	return s.percent
}

// Commit ends the gesture and returns the value to persist on the
// first block of the pair; the second block's width is always the
// complement and is never stored.
func (s *SplitResize) Commit() (blockAID string, percent int, err error) {
	if !s.active {
		return "", 0, ErrNoGesture
	}
	s.active = false
	return s.blockA, s.percent, nil
}

// ClampSplitPercent bounds a raw percent to the legal split range.
func ClampSplitPercent(p int) int {
	return clampPercent(p)
}

// SnapSplitPercent clamps and then snaps values near an even split to
// exactly 50, so even splits are easy to hit by hand.
func SnapSplitPercent(p int) int {
	p = clampPercent(p)
	if p >= 50-snapBand && p <= 50+snapBand {
		return 50
	}
	return p
}

// Complement returns the derived percent of the second block in a
// pair.
func Complement(p int) int {
	return 100 - clampPercent(p)
}
