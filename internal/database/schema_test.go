package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaDeclaresEveryTable(t *testing.T) {
	ddl := Schema()
	for _, table := range []string{
		"users", "refresh_tokens", "sites", "locations",
		"reservations", "courses", "course_registrations",
	} {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
	assert.Equal(t, 7, strings.Count(ddl, "CREATE TABLE"))
}
