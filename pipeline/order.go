package pipeline

// Order places a pipe inside its pipeline.
type Order int

const (
	// Unordered pipes run between the First and Last groups, in insertion order.
	Unordered Order = iota
	// First pipes run before all other pipes.
	First
	// Last pipes run after all other pipes.
	Last
)

// String returns the lowercase name of the order
func (o Order) String() string {
	switch o {
	case First:
		return "first"
	case Last:
		return "last"
	default:
		return "unordered"
	}
}
