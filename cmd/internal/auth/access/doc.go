// Package access turns credentials into tokens and tokens back into users.
//
// Authenticator handles login: it resolves an identifier (username first,
// then email), checks the password, and issues an access token. Guard is
// called explicitly by every protected handler to resolve a bearer token to an
// active user and, where needed, to require superuser rights.
//
// Tokens are stateless and never persisted; there is no revocation list.
package access
