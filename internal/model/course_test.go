package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCourseFull(t *testing.T) {
	cases := []struct {
		name     string
		capacity uint32
		count    uint32
		want     bool
	}{
		{"unlimited", 0, 500, false},
		{"seats left", 10, 9, false},
		{"exactly full", 10, 10, true},
		{"over capacity", 10, 11, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Course{Capacity: tc.capacity, TotalRegistered: tc.count}
			assert.Equal(t, tc.want, c.Full())
		})
	}
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleStudent))
	assert.False(t, ValidRole("OWNER"))
	assert.False(t, ValidRole("student"))
}
