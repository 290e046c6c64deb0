package credentials

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/account-api/internal/apperr"
)

var fullProfile = Profile{
	Fullname: "Sam Ham",
	Street1:  "123 Sesame Street",
	Street2:  "APT 123",
	City:     "New York",
	State:    "NY",
	Zip:      "10003",
}

func newRedisRepository(t *testing.T) *RedisRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRepository(rdb)
}

// forEachRepository は同じテストをメモリ実装と Redis 実装の両方で実行します。
func forEachRepository(t *testing.T, fn func(t *testing.T, store *Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewStore(NewMemoryRepository(), NewHasher(bcrypt.MinCost)))
	})
	t.Run("redis", func(t *testing.T) {
		fn(t, NewStore(newRedisRepository(t), NewHasher(bcrypt.MinCost)))
	})
}

func TestCreateUserAndVerify(t *testing.T) {
	forEachRepository(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		require.NoError(t, store.CreateUser(ctx, "sam", "Abc123!"))

		ok, err := store.VerifyCredentials(ctx, "sam", "Abc123!")
		require.NoError(t, err)
		assert.True(t, ok)

		for _, wrong := range []string{"wrong", "abc123!", "Abc123", ""} {
			ok, err := store.VerifyCredentials(ctx, "sam", wrong)
			require.NoError(t, err)
			assert.False(t, ok, "password %q must not verify", wrong)
		}

		ok, err = store.VerifyCredentials(ctx, "Sam", "Abc123!")
		require.NoError(t, err)
		assert.False(t, ok, "usernames are case-sensitive")
	})
}

func TestVerifyUnknownUserIsFalseNotError(t *testing.T) {
	forEachRepository(t, func(t *testing.T, store *Store) {
		ok, err := store.VerifyCredentials(context.Background(), "ghost", "Abc123!")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCreateUserDuplicateKeepsOriginal(t *testing.T) {
	forEachRepository(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		require.NoError(t, store.CreateUser(ctx, "sam", "Abc123!"))

		err := store.CreateUser(ctx, "sam", "Other999")
		require.Error(t, err)
		assert.Equal(t, apperr.KindDuplicateUser, apperr.KindOf(err))

		ok, err := store.VerifyCredentials(ctx, "sam", "Abc123!")
		require.NoError(t, err)
		assert.True(t, ok, "original password must still verify")

		ok, err = store.VerifyCredentials(ctx, "sam", "Other999")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCreateUserRejectsMalformedInput(t *testing.T) {
	store := NewStore(NewMemoryRepository(), NewHasher(bcrypt.MinCost))
	tests := []struct {
		username string
		password string
	}{
		{"", "Abc123!"},
		{"sam", ""},
		{"samham1", "123"},
		{"ab", "Abc123!"},
		{"has space", "Abc123!"},
		{"sam", "abcdefgh"},
		{"sam", "12345678"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q/%q", tt.username, tt.password), func(t *testing.T) {
			err := store.CreateUser(context.Background(), tt.username, tt.password)
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
		})
	}
}

func TestStoredHashIsBcrypt(t *testing.T) {
	repo := NewMemoryRepository()
	store := NewStore(repo, NewHasher(bcrypt.MinCost))
	require.NoError(t, store.CreateUser(context.Background(), "samham123", "Abc12345!"))

	record, err := repo.Get(context.Background(), "samham123")
	require.NoError(t, err)
	assert.NotEqual(t, "Abc12345!", record.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte("Abc12345!")))
}

func TestProfileRoundTrip(t *testing.T) {
	forEachRepository(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		require.NoError(t, store.CreateUser(ctx, "sam", "Abc123!"))

		profile, err := store.GetProfile(ctx, "sam")
		require.NoError(t, err)
		assert.Equal(t, Profile{}, profile)

		require.NoError(t, store.SetProfile(ctx, "sam", fullProfile))
		profile, err = store.GetProfile(ctx, "sam")
		require.NoError(t, err)
		assert.Equal(t, fullProfile, profile)
	})
}

func TestSetProfileRejectsPartialUpdate(t *testing.T) {
	forEachRepository(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		require.NoError(t, store.CreateUser(ctx, "sam", "Abc123!"))
		require.NoError(t, store.SetProfile(ctx, "sam", fullProfile))

		err := store.SetProfile(ctx, "sam", Profile{Fullname: "x"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "street1")

		blankZip := fullProfile
		blankZip.Fullname = "Changed"
		blankZip.Zip = "   "
		err = store.SetProfile(ctx, "sam", blankZip)
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

		profile, err := store.GetProfile(ctx, "sam")
		require.NoError(t, err)
		assert.Equal(t, fullProfile, profile, "rejected updates must not merge")
	})
}

func TestSetProfileStreet2Optional(t *testing.T) {
	store := NewStore(NewMemoryRepository(), NewHasher(bcrypt.MinCost))
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, "sam", "Abc123!"))

	noStreet2 := fullProfile
	noStreet2.Street2 = ""
	require.NoError(t, store.SetProfile(ctx, "sam", noStreet2))

	profile, err := store.GetProfile(ctx, "sam")
	require.NoError(t, err)
	assert.Empty(t, profile.Street2)
}

func TestUnknownUserProfile(t *testing.T) {
	forEachRepository(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		_, err := store.GetProfile(ctx, "ghost")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

		err = store.SetProfile(ctx, "ghost", fullProfile)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestConcurrentProfileUpdatesNeverTear(t *testing.T) {
	forEachRepository(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		require.NoError(t, store.CreateUser(ctx, "sam", "Abc123!"))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v := fmt.Sprint(i)
				_ = store.SetProfile(ctx, "sam", Profile{
					Fullname: v, Street1: v, Street2: v, City: v, State: v, Zip: v,
				})
			}(i)
		}
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p, err := store.GetProfile(ctx, "sam")
				if err != nil {
					t.Errorf("GetProfile: %v", err)
					return
				}
				if p == (Profile{}) {
					return
				}
				if p.Street1 != p.Fullname || p.City != p.Fullname || p.Zip != p.Fullname {
					t.Errorf("torn profile observed: %+v", p)
				}
			}()
		}
		wg.Wait()

		// 最後に書き込まれた値が全項目で揃っている
		p, err := store.GetProfile(ctx, "sam")
		require.NoError(t, err)
		assert.NotEmpty(t, p.Fullname)
		assert.Equal(t, p.Fullname, p.Street1)
		assert.Equal(t, p.Fullname, p.State)
	})
}

func TestConcurrentRegistrationSingleWinner(t *testing.T) {
	forEachRepository(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.CreateUser(ctx, "race", "Abc123!"); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, successes)
	})
}
