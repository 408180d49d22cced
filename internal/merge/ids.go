package merge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
)

// Identifier strategies.
const (
	// IDStrategySequential numbers athletes by output position. It is the
	// default.
	IDStrategySequential = "sequential"
	// IDStrategyStable keeps the identifier an athlete was published under
	// and allocates fresh numbers above the highest one in use.
	IDStrategyStable = "stable"
)

type idAllocator struct {
	prefix string
}

func (a idAllocator) format(n int) string {
	return fmt.Sprintf("%s%03d", a.prefix, n)
}

// parse returns the number of a well-formed identifier (prefix followed by
// digits only).
func (a idAllocator) parse(id string) (int, bool) {
	digits, ok := strings.CutPrefix(id, a.prefix)
	if !ok || digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (a idAllocator) sequential(records []athlete.ProcessedAthleteRecord) {
	for i := range records {
		records[i].ID = a.format(i + 1)
	}
}

// stable reuses baseline identifiers by external id. Every well-formed
// baseline identifier is reserved, including those of athletes absent from
// this run, so a new athlete never takes over a retired number.
func (a idAllocator) stable(records []athlete.ProcessedAthleteRecord, baseline athlete.Baseline) {
	highest := 0
	for _, cur := range baseline {
		if n, ok := a.parse(cur.ID); ok && n > highest {
			highest = n
		}
	}

	claimed := make(map[int]bool, len(records))
	var pending []int
	for i := range records {
		cur, ok := baseline[records[i].ExternalID]
		if n, wellFormed := a.parse(cur.ID); ok && wellFormed && !claimed[n] {
			claimed[n] = true
			records[i].ID = cur.ID
			continue
		}
		pending = append(pending, i)
	}
	for _, i := range pending {
		highest++
		records[i].ID = a.format(highest)
	}
}
