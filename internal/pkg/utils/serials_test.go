package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSerials(t *testing.T) {
	in := " SN-1\r\nSN-2, SN-3;;\n\n  SN-4 ,"
	assert.Equal(t, []string{"SN-1", "SN-2", "SN-3", "SN-4"}, SplitSerials(in))
	assert.Empty(t, SplitSerials(" \n ,; "))
}

func TestDuplicates(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, Duplicates([]string{"a", "b", "b", "a", "a", "c"}))
	assert.Nil(t, Duplicates([]string{"a", "b"}))
}
