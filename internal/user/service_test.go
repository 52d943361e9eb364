package user

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	users  map[string]*User
	nextID int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: make(map[string]*User)}
}

func (r *fakeRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepository) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepository) Create(_ context.Context, u *User) error {
	r.nextID++
	u.ID = "user-" + strconv.Itoa(r.nextID)
	u.CreatedAt = time.Now().UTC()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeRepository) UpdateLastLogin(_ context.Context, id string, t time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &t
	return nil
}

// plainHasher keeps the password tests independent of bcrypt timing.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

func (plainHasher) Compare(hash, plain string) error {
	if hash != "hashed:"+plain {
		return ErrInvalidCredentials
	}
	return nil
}

func TestUserRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active user with a hashed password", func(t *testing.T) {
		repo := newFakeRepository()
		svc := NewService(repo, plainHasher{})

		u, err := svc.Register(ctx, "  Alice@Example.COM ", "secret-password", " Alice ")
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "alice@example.com", u.Email, "email is normalized")
		assert.Equal(t, "hashed:secret-password", u.PasswordHash)
		require.NotNil(t, u.DisplayName)
		assert.Equal(t, "Alice", *u.DisplayName)
		assert.True(t, u.IsActive)
	})

	t.Run("blank display name stays unset", func(t *testing.T) {
		svc := NewService(newFakeRepository(), plainHasher{})

		u, err := svc.Register(ctx, "alice@example.com", "secret-password", "   ")
		require.NoError(t, err)
		assert.Nil(t, u.DisplayName)
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		svc := NewService(newFakeRepository(), plainHasher{})

		_, err := svc.Register(ctx, "alice@example.com", "secret-password", "Alice")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "ALICE@example.com", "other-password", "Impostor")
		assert.ErrorIs(t, err, ErrEmailAlreadyUsed, "normalization catches case-variant duplicates")
	})

	t.Run("rejects a short password", func(t *testing.T) {
		svc := NewService(newFakeRepository(), plainHasher{})

		_, err := svc.Register(ctx, "alice@example.com", "short", "Alice")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 8")
	})

	t.Run("rejects an empty email", func(t *testing.T) {
		svc := NewService(newFakeRepository(), plainHasher{})

		_, err := svc.Register(ctx, "   ", "secret-password", "Alice")
		require.Error(t, err)
	})
}

func TestUserLogin(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T) (Service, *fakeRepository) {
		t.Helper()
		repo := newFakeRepository()
		svc := NewService(repo, plainHasher{})
		_, err := svc.Register(ctx, "alice@example.com", "secret-password", "Alice")
		require.NoError(t, err)
		return svc, repo
	}

	t.Run("succeeds and records the login time", func(t *testing.T) {
		svc, repo := register(t)

		u, err := svc.Login(ctx, "Alice@Example.com", "secret-password")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", u.Email)

		stored, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLoginAt)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _ := register(t)

		_, err := svc.Login(ctx, "alice@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email maps to the same error as a bad password", func(t *testing.T) {
		svc, _ := register(t)

		_, err := svc.Login(ctx, "nobody@example.com", "secret-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("blank credentials", func(t *testing.T) {
		svc, _ := register(t)

		_, err := svc.Login(ctx, "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		svc, repo := register(t)

		u, err := repo.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		repo.users[u.ID].IsActive = false

		_, err = svc.Login(ctx, "alice@example.com", "secret-password")
		assert.ErrorIs(t, err, ErrInactiveUser)
	})
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.co", normalizeEmail("  A@B.Co "))
	assert.Equal(t, "", normalizeEmail("   "))
	assert.Equal(t, "a@b.co", normalizeEmail(strings.ToUpper("a@b.co")))
}
