package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("secret", time.Hour)
	token, err := svc.GenerateToken("stu-1", "Lee", "lee@film.ac.kr", "student")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.Subject)
	assert.Equal(t, "Lee", claims.Name)
	assert.Equal(t, "student", claims.Role)
}

func TestValidateRejectsForeignAndExpired(t *testing.T) {
	token, err := New("other", time.Hour).GenerateToken("stu-1", "", "", "student")
	require.NoError(t, err)
	_, err = New("secret", time.Hour).ValidateToken(token)
	assert.Error(t, err)

	expired, err := New("secret", -time.Minute).GenerateToken("stu-1", "", "", "student")
	require.NoError(t, err)
	_, err = New("secret", time.Hour).ValidateToken(expired)
	assert.Error(t, err)
}
