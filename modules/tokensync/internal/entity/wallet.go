package entity

import (
	"slices"

	"github.com/samber/lo"
)

type Wallet struct {
	Address string
	Roles   []string
}

// RolesDiff returns the roles present in next but not in prev, and the roles present in prev but not in next.
func RolesDiff(prev, next []string) (added, removed []string) {
	added = lo.Filter(next, func(role string, _ int) bool { return !slices.Contains(prev, role) })
	removed = lo.Filter(prev, func(role string, _ int) bool { return !slices.Contains(next, role) })
	return added, removed
}
