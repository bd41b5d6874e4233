package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityService_Register_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "empty", input: "", want: ErrNameTooShort},
		{name: "too short", input: "ab", want: ErrNameTooShort},
		{name: "short after trim", input: "  ab  ", want: ErrNameTooShort},
		{name: "too long", input: strings.Repeat("ä", MaxNameLength+1), want: ErrNameTooLong},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Identity.Register(ctx, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	u, err := env.Identity.Register(ctx, strings.Repeat("ä", MaxNameLength))
	require.NoError(t, err)
	assert.Equal(t, MaxNameLength, utf8.RuneCountInString(u.Name))
}

func TestIdentityService_Register_CreatesUserAndCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	u := env.register(t, "  Alice  ")
	assert.Equal(t, "Alice", u.Name)
	assert.NotZero(t, u.ID)

	cart, err := env.Identity.CartOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, cart.UserID)

	assert.Equal(t, 1, env.Events.count("user_registered"))
}

func TestIdentityService_Register_Duplicate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "Alice")
	_, err := env.Identity.Register(ctx, "Alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	n, err := env.Repo.CountUsersByName(ctx, "Alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestIdentityService_DeleteUser_Cascades(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	u := env.register(t, "Alice")
	env.add(t, u.ID, "Sage", 2)
	h, err := env.Checkout.BuildSession(ctx, u.ID)
	require.NoError(t, err)

	require.NoError(t, env.Identity.DeleteUser(ctx, u.ID, u.ID))

	_, err = env.Identity.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	lines, err := env.Repo.ListLines(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, err = env.Identity.CartOf(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.Repo.CheckoutByProviderID(ctx, h.SessionID)
	assert.Error(t, err)
	assert.Equal(t, 1, env.Events.count("user_deleted"))
}

func TestIdentityService_DeleteUser_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.register(t, "Alice")
	bob := env.register(t, "Bobby")

	err := env.Identity.DeleteUser(ctx, bob.ID, alice.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = env.Identity.DeleteUser(ctx, 999, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdentityService_DeleteCart_RecreatedLazily(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	u := env.register(t, "Alice")
	env.add(t, u.ID, "Thyme", 1)
	cart, err := env.Identity.CartOf(ctx, u.ID)
	require.NoError(t, err)

	other := env.register(t, "Bobby")
	assert.ErrorIs(t, env.Identity.DeleteCart(ctx, other.ID, cart.ID), ErrForbidden)
	assert.ErrorIs(t, env.Identity.DeleteCart(ctx, u.ID, 999), ErrNotFound)

	require.NoError(t, env.Identity.DeleteCart(ctx, u.ID, cart.ID))
	lines, err := env.Cart.Lines(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	env.add(t, u.ID, "Thyme", 1)
	recreated, err := env.Identity.CartOf(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, cart.ID, recreated.ID)
}
