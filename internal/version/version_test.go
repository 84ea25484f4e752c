package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.0"
	assert.Equal(t, "1.2.0 (unknown, built unknown)", String())
}
