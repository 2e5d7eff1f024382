package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateAndValidate(t *testing.T) {
	m := NewManager(2 * time.Hour)

	token := m.Create("user_001")
	require.NotEmpty(t, token)

	userID, ok := m.Validate(token)
	assert.True(t, ok)
	assert.Equal(t, "user_001", userID)

	other := m.Create("user_001")
	assert.NotEqual(t, token, other)

	_, ok = m.Validate("not-a-token")
	assert.False(t, ok)
}

func TestManager_Expiry(t *testing.T) {
	m := NewManager(2 * time.Hour)
	current := time.Now()
	m.now = func() time.Time { return current }

	token := m.Create("user_001")

	current = current.Add(time.Hour)
	_, ok := m.Validate(token)
	assert.True(t, ok)

	current = current.Add(2 * time.Hour)
	_, ok = m.Validate(token)
	assert.False(t, ok)

	// The expired token was evicted, not just rejected.
	m.mu.RLock()
	_, present := m.sessions[token]
	m.mu.RUnlock()
	assert.False(t, present)
}

func TestManager_Delete(t *testing.T) {
	m := NewManager(2 * time.Hour)
	token := m.Create("user_001")

	assert.True(t, m.Delete(token))
	assert.False(t, m.Delete(token))

	_, ok := m.Validate(token)
	assert.False(t, ok)
}

func TestManager_DeleteByUser(t *testing.T) {
	m := NewManager(2 * time.Hour)
	t1 := m.Create("user_001")
	t2 := m.Create("user_001")
	t3 := m.Create("user_002")

	m.DeleteByUser("user_001")

	_, ok := m.Validate(t1)
	assert.False(t, ok)
	_, ok = m.Validate(t2)
	assert.False(t, ok)
	_, ok = m.Validate(t3)
	assert.True(t, ok)
}

func TestManager_Cleanup(t *testing.T) {
	m := NewManager(time.Hour)
	current := time.Now()
	m.now = func() time.Time { return current }

	m.Create("user_001")
	m.Create("user_002")
	current = current.Add(30 * time.Minute)
	fresh := m.Create("user_003")

	current = current.Add(45 * time.Minute)
	assert.Equal(t, 2, m.Cleanup())

	_, ok := m.Validate(fresh)
	assert.True(t, ok)
}
