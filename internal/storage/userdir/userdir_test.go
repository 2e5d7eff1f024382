package userdir

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
)

var testLogger = logger.New("test")

const validPassword = "Sup3r$ecret"

func openDirectory(t *testing.T) (*Directory, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.csv")
	dir, err := Open(path, testLogger)
	require.NoError(t, err)
	return dir, path
}

func createUser(t *testing.T, dir *Directory, username, email string) *domain.User {
	t.Helper()
	created, err := dir.Create(&domain.User{Username: username, Email: email}, validPassword)
	require.NoError(t, err)
	return created
}

func TestDirectory_Create(t *testing.T) {
	dir, _ := openDirectory(t)

	alice := createUser(t, dir, "alice", "alice@example.com")
	assert.Equal(t, "user_001", alice.ID)
	assert.Equal(t, 3, alice.Reputation)
	assert.NotEqual(t, validPassword, alice.PasswordHash)

	bob := createUser(t, dir, "bob", "bob@example.com")
	assert.Equal(t, "user_002", bob.ID)

	_, err := dir.Create(&domain.User{Username: "alice2", Email: "alice@example.com"}, validPassword)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDirectory_PasswordValidation(t *testing.T) {
	dir, _ := openDirectory(t)

	bad := []string{
		"short1!",      // too short
		"alllower1!",   // no upper
		"ALLUPPER1!",   // no lower
		"NoDigits!!",   // no digit
		"NoSpecial11a", // no special
	}
	for _, password := range bad {
		_, err := dir.Create(&domain.User{Username: "u", Email: password + "@example.com"}, password)
		assert.ErrorIsf(t, err, domain.ErrInvalidInput, "password %q", password)
	}
}

func TestDirectory_Authenticate(t *testing.T) {
	dir, _ := openDirectory(t)
	createUser(t, dir, "alice", "alice@example.com")

	user, err := dir.Authenticate("alice@example.com", validPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = dir.Authenticate("alice@example.com", "WrongPass1!")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = dir.Authenticate("nobody@example.com", validPassword)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDirectory_PersistsAcrossReopen(t *testing.T) {
	dir, path := openDirectory(t)
	alice := createUser(t, dir, "alice", "alice@example.com")
	bob := createUser(t, dir, "bob", "bob@example.com")
	require.NoError(t, dir.Follow(alice.ID, bob.ID))

	reopened, err := Open(path, testLogger)
	require.NoError(t, err)

	got, err := reopened.Get(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, []string{bob.ID}, got.Following)

	// Password hashes survive the round trip.
	_, err = reopened.Authenticate("alice@example.com", validPassword)
	require.NoError(t, err)

	// The id counter resumes past the stored users.
	carol := createUser(t, reopened, "carol", "carol@example.com")
	assert.Equal(t, "user_003", carol.ID)
}

func TestDirectory_Follow(t *testing.T) {
	dir, _ := openDirectory(t)
	alice := createUser(t, dir, "alice", "alice@example.com")
	bob := createUser(t, dir, "bob", "bob@example.com")

	require.NoError(t, dir.Follow(alice.ID, bob.ID))
	require.NoError(t, dir.Follow(alice.ID, bob.ID)) // idempotent

	gotAlice, _ := dir.Get(alice.ID)
	gotBob, _ := dir.Get(bob.ID)
	assert.Equal(t, []string{bob.ID}, gotAlice.Following)
	assert.Equal(t, []string{alice.ID}, gotBob.Followers)

	assert.ErrorIs(t, dir.Follow(alice.ID, alice.ID), domain.ErrInvalidInput)
	assert.ErrorIs(t, dir.Follow(alice.ID, "user_999"), domain.ErrNotFound)

	require.NoError(t, dir.Unfollow(alice.ID, bob.ID))
	gotAlice, _ = dir.Get(alice.ID)
	gotBob, _ = dir.Get(bob.ID)
	assert.Empty(t, gotAlice.Following)
	assert.Empty(t, gotBob.Followers)
}

func TestDirectory_BlockIsSymmetricAndSeversFollows(t *testing.T) {
	dir, _ := openDirectory(t)
	alice := createUser(t, dir, "alice", "alice@example.com")
	bob := createUser(t, dir, "bob", "bob@example.com")

	require.NoError(t, dir.Follow(alice.ID, bob.ID))
	require.NoError(t, dir.Follow(bob.ID, alice.ID))

	require.NoError(t, dir.Block(alice.ID, bob.ID))

	gotAlice, _ := dir.Get(alice.ID)
	gotBob, _ := dir.Get(bob.ID)
	assert.Equal(t, []string{bob.ID}, gotAlice.BlockedUsers)
	assert.Equal(t, []string{alice.ID}, gotBob.BlockedUsers)
	assert.Empty(t, gotAlice.Following)
	assert.Empty(t, gotAlice.Followers)
	assert.Empty(t, gotBob.Following)
	assert.Empty(t, gotBob.Followers)

	// Both sides report the block through the social graph view.
	_, aliceBlocksBob := dir.UserStatus(alice.ID).Blocked[bob.ID]
	_, bobBlocksAlice := dir.UserStatus(bob.ID).Blocked[alice.ID]
	assert.True(t, aliceBlocksBob)
	assert.True(t, bobBlocksAlice)

	require.NoError(t, dir.Unblock(bob.ID, alice.ID)) // either side may unblock
	gotAlice, _ = dir.Get(alice.ID)
	gotBob, _ = dir.Get(bob.ID)
	assert.Empty(t, gotAlice.BlockedUsers)
	assert.Empty(t, gotBob.BlockedUsers)
}

func TestDirectory_SuspendAndReactivate(t *testing.T) {
	dir, _ := openDirectory(t)
	alice := createUser(t, dir, "alice", "alice@example.com")

	assert.False(t, dir.UserStatus(alice.ID).Suspended)

	require.NoError(t, dir.Suspend(alice.ID))
	assert.True(t, dir.UserStatus(alice.ID).Suspended)

	require.NoError(t, dir.Reactivate(alice.ID))
	assert.False(t, dir.UserStatus(alice.ID).Suspended)

	assert.ErrorIs(t, dir.Suspend("user_999"), domain.ErrNotFound)
}

func TestDirectory_UserStatusUnknownUser(t *testing.T) {
	dir, _ := openDirectory(t)

	status := dir.UserStatus("user_999")
	assert.False(t, status.Suspended)
	assert.Empty(t, status.Blocked)
}

func TestDirectory_ToggleFavorite(t *testing.T) {
	dir, _ := openDirectory(t)
	alice := createUser(t, dir, "alice", "alice@example.com")

	favorited, err := dir.ToggleFavorite(alice.ID, "movie_001")
	require.NoError(t, err)
	assert.True(t, favorited)

	favorited, err = dir.ToggleFavorite(alice.ID, "movie_001")
	require.NoError(t, err)
	assert.False(t, favorited)

	got, _ := dir.Get(alice.ID)
	assert.Empty(t, got.Favorites)
}

func TestDirectory_DeleteRemovesReferences(t *testing.T) {
	dir, _ := openDirectory(t)
	alice := createUser(t, dir, "alice", "alice@example.com")
	bob := createUser(t, dir, "bob", "bob@example.com")
	carol := createUser(t, dir, "carol", "carol@example.com")

	require.NoError(t, dir.Follow(bob.ID, alice.ID))
	require.NoError(t, dir.Block(carol.ID, alice.ID))

	require.NoError(t, dir.Delete(alice.ID))

	_, err := dir.Get(alice.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	gotBob, _ := dir.Get(bob.ID)
	gotCarol, _ := dir.Get(carol.ID)
	assert.Empty(t, gotBob.Following)
	assert.Empty(t, gotCarol.BlockedUsers)

	// The freed email may be registered again, but the old id is gone.
	again := createUser(t, dir, "alice2", "alice@example.com")
	assert.Equal(t, "user_004", again.ID)
}

func TestDirectory_IncrementReviewCount(t *testing.T) {
	dir, _ := openDirectory(t)
	alice := createUser(t, dir, "alice", "alice@example.com")

	require.NoError(t, dir.IncrementReviewCount(alice.ID))
	require.NoError(t, dir.IncrementReviewCount(alice.ID))

	got, _ := dir.Get(alice.ID)
	assert.Equal(t, 2, got.TotalReviews)
}
