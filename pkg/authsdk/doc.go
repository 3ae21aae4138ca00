/*
Package authsdk is the client side of the NearbyNurse gateway: a thin HTTP
client for the /auth endpoints and a Manager that keeps a logged-in
session's tokens fresh.

# Client vs Manager

Client is stateless. Every call takes what it needs and returns what the
gateway answered:

	client := authsdk.NewClient("https://api.example.com")

	tokens, err := client.Login(ctx, "sam", "password")
	profile, err := client.Me(ctx, tokens.AccessToken)

Manager owns a credential pair and the timer that refreshes it:

	m, err := authsdk.NewManager(authsdk.ManagerConfig{
		Auth:  client,
		Store: authsdk.NewMemoryStore(),
	})
	defer m.Close()

	m.OnLogout(func(reason error) {
		// reason is nil after Logout, wraps ErrRefreshFailed otherwise
	})
	if err := m.Login(ctx, "sam", "password"); err != nil {
		return err
	}

# Refresh Policy

Every Interval (default 60s) the manager reads exp from the stored access
token. When less than Threshold (default 70s) remains, or the token cannot
be read at all, it exchanges the refresh token for a new pair and saves
both tokens in one write. If the refresh fails for any reason the stored
credentials are cleared, the manager becomes Unauthenticated and the
logout listeners run. There is no retry.

# Storage

Credentials are persisted through the Store interface. MemoryStore is
provided here; package redisstore keeps them in Redis, optionally
encrypted.

# Thread Safety

Client and Manager are safe for concurrent use. Manager serializes state
transitions; a refresh that races with Login or Logout loses.
*/
package authsdk
