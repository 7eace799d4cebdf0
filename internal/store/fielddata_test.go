package store

import (
	"strings"
	"testing"
)

func TestGrowthPercentage(t *testing.T) {
	tests := []struct {
		name    string
		current int
		last    int
		want    float64
	}{
		{"no records at all", 0, 0, 0},
		{"records appear from nothing", 3, 0, 100},
		{"doubled month over month", 10, 5, 100},
		{"halved month over month", 5, 10, -50},
		{"unchanged", 4, 4, 0},
		{"dropped to zero", 0, 8, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := growthPercentage(tt.current, tt.last); got != tt.want {
				t.Errorf("growthPercentage(%d, %d) = %v, want %v", tt.current, tt.last, got, tt.want)
			}
		})
	}
}

func TestOwnershipPredicateNumbering(t *testing.T) {
	got := ownershipPredicate(3, 4)
	if !strings.Contains(got, "field_data.id = $3") {
		t.Errorf("predicate missing id placeholder: %s", got)
	}
	if strings.Count(got, "$4") != 2 {
		t.Errorf("owner placeholder should appear for both record and parent field: %s", got)
	}
	if strings.Contains(got, "$5") {
		t.Errorf("predicate must reuse the owner argument, got: %s", got)
	}
}
