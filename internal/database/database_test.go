package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "rental.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", sqliteDSN("rental.db"))
	assert.Equal(t, "file:x?mode=memory&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", sqliteDSN("file:x?mode=memory"))
	assert.Equal(t, "a.db?_pragma=journal_mode(WAL)", sqliteDSN("a.db?_pragma=journal_mode(WAL)"))
}
