package model

// ComparisonSet is an anchor event plus the comparable events chosen for it,
// ordered by ascending volume distance.
type ComparisonSet struct {
	Anchor  Event   `json:"anchor"`
	Similar []Event `json:"similar"`
}

// LayoutSplit is how many comparables the display layout places before the
// anchor.
const LayoutSplit = 4

// Layout places the anchor after the first LayoutSplit similar events, or
// last when there are fewer.
func (c ComparisonSet) Layout() []Event {
	mid := min(LayoutSplit, len(c.Similar))
	out := make([]Event, 0, len(c.Similar)+1)
	out = append(out, c.Similar[:mid]...)
	out = append(out, c.Anchor)
	out = append(out, c.Similar[mid:]...)
	return out
}
