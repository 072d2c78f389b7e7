// Package token issues and verifies TaskFlow access tokens.
//
// Tokens are HS256 JWTs carrying only the subject (user id), issued-at and
// expiry. The signing secret is fixed when the Codec is built; rotating it
// invalidates every outstanding token. Verification has no leeway: a token is
// rejected once the verifier's clock reaches its expiry.
package token
