// Package tasks implements personal tasks and global tags.
//
// Every task operation is scoped to an owner: stores filter on (id, owner_id)
// together, so a task owned by someone else is indistinguishable from a
// missing one. Tags are shared by all users and unique by name. Task reads
// load tags eagerly in the same query.
package tasks
