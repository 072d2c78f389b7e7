// Package identity owns TaskFlow user accounts: the User record, its
// persistence boundary (Store) with PostgreSQL and in-memory implementations,
// and the Service that registers, updates and administers accounts.
//
// Usernames and emails are unique case-insensitively; stores compare the
// normalized forms produced by NormalizeUsername and NormalizeEmail.
package identity
