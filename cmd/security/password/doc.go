// Package password hashes and verifies user credentials with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
//
// Stored hashes are treated as untrusted input: Verify decodes them strictly and
// refuses parameters far above the configured cost. Matches collapses every
// failure into false so callers cannot tell a corrupt hash from a wrong password.
package password
