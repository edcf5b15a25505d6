package plan

// Interval is the half-open range of element indexes [Begin, End).
type Interval struct {
	Begin int
	End   int
}

func (i Interval) Len() int { return i.End - i.Begin }

// EvenPartition splits r into k consecutive parts whose lengths differ by
// at most one. The longer parts come first.
func EvenPartition(r Interval, k int) []Interval {
	quo, rem := r.Len()/k, r.Len()%k
	parts := make([]Interval, k)
	begin := r.Begin
	for i := range parts {
		n := quo
		if i < rem {
			n++
		}
		parts[i] = Interval{Begin: begin, End: begin + n}
		begin += n
	}
	return parts
}
