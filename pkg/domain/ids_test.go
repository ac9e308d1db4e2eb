package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "linkup/pkg/domain-errors"
)

// TestParseUserID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs".
func TestParseUserID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

func TestParseConnectionID(t *testing.T) {
	t.Run("round-trips through String", func(t *testing.T) {
		id := NewConnectionID()
		parsed, err := ParseConnectionID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseConnectionID("123")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestUserID_JSONRoundTrip(t *testing.T) {
	userID := NewUserID()

	data, err := json.Marshal(userID)
	require.NoError(t, err)
	assert.Equal(t, `"`+userID.String()+`"`, string(data), "must encode as canonical string")

	var decoded UserID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, userID, decoded)

	t.Run("rejects nil UUID on decode", func(t *testing.T) {
		var decoded UserID
		err := json.Unmarshal([]byte(`"`+uuid.Nil.String()+`"`), &decoded)
		require.Error(t, err)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety between ID
// kinds. If this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	connectionID := ConnectionID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ UserID = connectionID   // compile error
	// var _ ConnectionID = userID   // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(connectionID))
	assert.False(t, userID.IsNil())
	assert.True(t, UserID{}.IsNil())
}
