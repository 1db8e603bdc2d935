package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationsLeaveSenderUnbounded(t *testing.T) {
	all := strings.Join(Migrations, "\n")
	assert.NotContains(t, all, "VARCHAR")
	assert.Contains(t, all, "sender TEXT NOT NULL")
	assert.Contains(t, all, "ALTER COLUMN sender TYPE TEXT")
}
