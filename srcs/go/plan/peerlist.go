package plan

import (
	"strings"

	"github.com/pkg/errors"
)

// PeerList is ordered by rank.
type PeerList []PeerID

func (pl PeerList) String() string {
	var parts []string
	for _, p := range pl {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ",")
}

func (pl PeerList) Rank(ps PeerID) (int, bool) {
	for i, p := range pl {
		if p == ps {
			return i, true
		}
	}
	return -1, false
}

func (pl PeerList) Select(ranks []int) PeerList {
	var ql PeerList
	for _, r := range ranks {
		ql = append(ql, pl[r])
	}
	return ql
}

func (pl PeerList) Set() map[PeerID]struct{} {
	s := make(map[PeerID]struct{})
	for _, p := range pl {
		s[p] = struct{}{}
	}
	return s
}

func (pl PeerList) Eq(ql PeerList) bool {
	if len(pl) != len(ql) {
		return false
	}
	for i, p := range pl {
		if p != ql[i] {
			return false
		}
	}
	return true
}

var errDuplicatedPeer = errors.New("duplicated peer")

func ParsePeerList(val string) (PeerList, error) {
	if len(val) == 0 {
		return nil, nil
	}
	var pl PeerList
	for _, p := range strings.Split(val, ",") {
		id, err := ParsePeerID(p)
		if err != nil {
			return nil, err
		}
		pl = append(pl, *id)
	}
	if len(pl.Set()) != len(pl) {
		return nil, errors.Wrap(errDuplicatedPeer, val)
	}
	return pl, nil
}
