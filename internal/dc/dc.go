// Package dc lists the data centers a credential can be bound to.
package dc

import "sort"

// DefaultPort is the port used when encoding sessions
const DefaultPort = 443

var addresses = map[int]string{
	1: "149.154.175.53",
	2: "149.154.167.51",
	3: "149.154.175.100",
	4: "149.154.167.91",
	5: "149.154.171.5",
}

// Known reports whether id is a recognized data center
func Known(id int) bool {
	_, ok := addresses[id]
	return ok
}

// Address returns the default IPv4 address of a data center
func Address(id int) (string, bool) {
	addr, ok := addresses[id]
	return addr, ok
}

// IDs returns all recognized data center ids in ascending order
func IDs() []int {
	ids := make([]int, 0, len(addresses))
	for id := range addresses {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
