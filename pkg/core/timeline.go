package core

// Timeline is the EI encoding of time-keyed events: a list of small numeric
// arrays, usually [time, value] pairs. Down and death intervals use
// [start, end]; buff states use [time, stacks].
type Timeline [][]float64

// Pair is one decoded timeline entry.
type Pair struct {
	Key   float64
	Value float64
}

// Pairs decodes the timeline into ordered (key, value) pairs. Duplicate
// keys keep their first position and take the last value, which is how the
// exports are read as maps. Entries shorter than two elements are dropped.
func (t Timeline) Pairs() []Pair {
	if len(t) == 0 {
		return nil
	}
	out := make([]Pair, 0, len(t))
	index := make(map[float64]int, len(t))
	for _, e := range t {
		if len(e) < 2 {
			continue
		}
		if i, ok := index[e[0]]; ok {
			out[i].Value = e[1]
			continue
		}
		index[e[0]] = len(out)
		out = append(out, Pair{Key: e[0], Value: e[1]})
	}
	return out
}

// Interval is a closed-open time range in milliseconds with a stack count.
type Interval struct {
	Start  float64
	End    float64
	Stacks int
}

// Length returns End-Start, never negative.
func (i Interval) Length() float64 {
	if i.End < i.Start {
		return 0
	}
	return i.End - i.Start
}

// StateIntervals converts buff state transitions into intervals. Two-element
// entries are [time, stacks] transitions, each lasting until the next one
// (the last until end). Three-element entries are already [start, end,
// stacks] and are taken as is. Zero-length intervals are dropped.
func (t Timeline) StateIntervals(end float64) []Interval {
	out := make([]Interval, 0, len(t))
	for i, e := range t {
		switch {
		case len(e) >= 3:
			iv := Interval{Start: e[0], End: e[1], Stacks: int(e[2])}
			if iv.Length() > 0 {
				out = append(out, iv)
			}
		case len(e) == 2:
			stop := end
			if i+1 < len(t) && len(t[i+1]) >= 1 {
				stop = t[i+1][0]
			}
			if stop > end {
				stop = end
			}
			iv := Interval{Start: e[0], End: stop, Stacks: int(e[1])}
			if iv.Length() > 0 {
				out = append(out, iv)
			}
		}
	}
	return out
}

// Spans returns the timeline read as [start, end] ranges.
func (t Timeline) Spans() []Interval {
	out := make([]Interval, 0, len(t))
	for _, p := range t.Pairs() {
		out = append(out, Interval{Start: p.Key, End: p.Value})
	}
	return out
}
