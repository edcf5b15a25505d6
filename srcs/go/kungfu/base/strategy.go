package base

import (
	"sort"

	"github.com/pkg/errors"
)

// Strategy selects the graph that broadcast and reduce follow.
type Strategy int

const (
	Star Strategy = iota
	BinaryTree
)

const DefaultStrategy = Star

var strategyNames = map[Strategy]string{
	Star:       `STAR`,
	BinaryTree: `BINARY_TREE`,
}

func StrategyNames() []string {
	var names []string
	for _, name := range strategyNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Strategy) String() string {
	return strategyNames[s]
}

// Set implements flag.Value::Set
func (s *Strategy) Set(val string) error {
	value, err := ParseStrategy(val)
	if err != nil {
		return err
	}
	*s = value
	return nil
}

var errInvalidStrategy = errors.New("invalid strategy")

func ParseStrategy(s string) (Strategy, error) {
	for k, v := range strategyNames {
		if s == v {
			return k, nil
		}
	}
	return 0, errors.Wrapf(errInvalidStrategy, "%q", s)
}
