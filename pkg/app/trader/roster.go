package trader

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/uhyunpark/lobsim/pkg/app/core/market"
)

var ErrEmptySide = errors.New("mix has no traders on one side")

// MixEntry is one (strategy, count) pair of a trader population.
type MixEntry struct {
	Kind  Kind
	Count int
}

// ParseMix parses "ZIC:5,ZIP:5" into mix entries. Unknown strategy tokens
// are fatal.
func ParseMix(s string) ([]MixEntry, error) {
	var out []MixEntry
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, num, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("mix entry %q: want KIND:COUNT", part)
		}
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("mix entry %q: invalid count", part)
		}
		out = append(out, MixEntry{Kind: kind, Count: n})
	}
	return out, nil
}

// FormatMix is the inverse of ParseMix.
func FormatMix(mix []MixEntry) string {
	parts := make([]string, len(mix))
	for i, e := range mix {
		parts[i] = fmt.Sprintf("%s:%d", e.Kind, e.Count)
	}
	return strings.Join(parts, ",")
}

func mixTotal(mix []MixEntry) int {
	n := 0
	for _, e := range mix {
		n += e.Count
	}
	return n
}

// MixWithNoise reassigns each individual to a different strategy of the
// mix with probability prob.
func MixWithNoise(mix []MixEntry, prob float64, rng *rand.Rand) []MixEntry {
	out := make([]MixEntry, len(mix))
	for i, e := range mix {
		out[i] = MixEntry{Kind: e.Kind}
	}
	for i, e := range mix {
		for range e.Count {
			if len(mix) > 1 && rng.Float64() < prob {
				j := rng.Intn(len(mix) - 1)
				if j >= i {
					j++
				}
				out[j].Count++
			} else {
				out[i].Count++
			}
		}
	}
	return out
}

// Roster is the fixed population of a session. Iteration order is buyers
// by id, then sellers by id, and never changes.
type Roster struct {
	agents   []*Agent
	byID     map[string]*Agent
	nBuyers  int
	nSellers int
}

// Populate creates buyers B00.. and sellers S00.. from the mixes. With
// shuffle set, strategies are permuted across ids within each side.
func Populate(buyers, sellers []MixEntry, p market.Params, shuffle bool, rng *rand.Rand) (*Roster, error) {
	if mixTotal(buyers) < 1 || mixTotal(sellers) < 1 {
		return nil, ErrEmptySide
	}
	r := &Roster{byID: make(map[string]*Agent)}

	build := func(prefix byte, mix []MixEntry) ([]*Agent, error) {
		var side []*Agent
		for _, e := range mix {
			for range e.Count {
				id := fmt.Sprintf("%c%02d", prefix, len(side))
				a, err := NewAgent(id, e.Kind, 0, p, rng)
				if err != nil {
					return nil, err
				}
				side = append(side, a)
			}
		}
		if shuffle {
			shuffleSide(prefix, side, rng)
		}
		return side, nil
	}

	bs, err := build('B', buyers)
	if err != nil {
		return nil, err
	}
	ss, err := build('S', sellers)
	if err != nil {
		return nil, err
	}
	r.nBuyers, r.nSellers = len(bs), len(ss)
	r.agents = append(bs, ss...)
	for _, a := range r.agents {
		r.byID[a.ID] = a
	}
	return r, nil
}

// shuffleSide swaps agents between slots from the top down, each slot
// trading places with a uniformly chosen slot at or below it. Ids follow
// the slot.
func shuffleSide(prefix byte, side []*Agent, rng *rand.Rand) {
	n := len(side)
	for swap := range n {
		t1 := (n - 1) - swap
		t2 := rng.Intn(t1 + 1)
		side[t1], side[t2] = side[t2], side[t1]
	}
	for i, a := range side {
		a.ID = fmt.Sprintf("%c%02d", prefix, i)
	}
}

func (r *Roster) Len() int      { return len(r.agents) }
func (r *Roster) NBuyers() int  { return r.nBuyers }
func (r *Roster) NSellers() int { return r.nSellers }

// At returns the agent in iteration slot i.
func (r *Roster) At(i int) *Agent { return r.agents[i] }

// Get looks an agent up by id.
func (r *Roster) Get(id string) (*Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Agents returns the agents in iteration order.
func (r *Roster) Agents() []*Agent {
	out := make([]*Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Summaries digests every agent in iteration order.
func (r *Roster) Summaries() []Summary {
	out := make([]Summary, len(r.agents))
	for i, a := range r.agents {
		out[i] = a.Summary()
	}
	return out
}
