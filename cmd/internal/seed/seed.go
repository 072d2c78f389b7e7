// Package seed loads the demo accounts, tags, and tasks used for local
// development. Every step is idempotent: existing rows are reused.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"taskflow/cmd/identity"
	"taskflow/cmd/internal/dbx"
	"taskflow/cmd/internal/tasks"
)

// Account is a user the seeder ensures exists.
type Account struct {
	Email       string
	Username    string
	Password    string
	FullName    string
	IsSuperuser bool
}

// TaskSpec is a task owned by Owner, tagged by tag name.
type TaskSpec struct {
	Owner       string
	Title       string
	Description string
	Priority    int
	IsCompleted bool
	Tags        []string
}

// Dataset is everything a seed run creates.
type Dataset struct {
	Accounts []Account
	Tags     []tasks.NewTag
	Tasks    []TaskSpec
}

// Report counts what a run created versus found already present.
type Report struct {
	UsersCreated, UsersExisting int
	TagsCreated, TagsExisting   int
	TasksCreated, TasksExisting int
}

// Default returns the demo dataset: an admin and a demo account, five tags,
// and a handful of tasks for each account.
func Default() Dataset {
	return Dataset{
		Accounts: []Account{
			{Email: "admin@taskflow.com", Username: "admin", Password: "admin123", FullName: "Administrador", IsSuperuser: true},
			{Email: "demo@taskflow.com", Username: "demo", Password: "demo123", FullName: "Usuario Demo"},
		},
		Tags: []tasks.NewTag{
			{Name: "Urgente", Color: "#FF0000"},
			{Name: "Importante", Color: "#FFA500"},
			{Name: "Personal", Color: "#00FF00"},
			{Name: "Trabajo", Color: "#0000FF"},
			{Name: "Ideas", Color: "#FF00FF"},
		},
		Tasks: []TaskSpec{
			{Owner: "admin", Title: "Configurar el proyecto", Description: "Instalar dependencias y configurar el entorno de desarrollo", Priority: tasks.PriorityHigh, IsCompleted: true, Tags: []string{"Urgente", "Trabajo"}},
			{Owner: "admin", Title: "Implementar autenticación", Description: "Crear endpoints de login y registro con JWT", Priority: tasks.PriorityHigh, IsCompleted: true, Tags: []string{"Urgente", "Trabajo"}},
			{Owner: "admin", Title: "Crear API de tareas", Description: "Implementar CRUD completo para tareas", Priority: tasks.PriorityMedium, Tags: []string{"Importante", "Trabajo"}},
			{Owner: "admin", Title: "Escribir tests", Description: "Crear tests unitarios y de integración", Priority: tasks.PriorityMedium, Tags: []string{"Importante"}},
			{Owner: "admin", Title: "Documentar la API", Description: "Completar la documentación de la API", Priority: tasks.PriorityLow, Tags: []string{"Trabajo"}},
			{Owner: "demo", Title: "Aprender Go", Description: "Completar el tour oficial de Go", Priority: tasks.PriorityMedium, Tags: []string{"Importante", "Trabajo"}},
			{Owner: "demo", Title: "Estudiar PostgreSQL", Description: "Leer la documentación de transacciones", Priority: tasks.PriorityMedium, Tags: []string{"Trabajo"}},
			{Owner: "demo", Title: "Hacer ejercicio", Description: "30 minutos de cardio", Priority: tasks.PriorityLow, Tags: []string{"Personal"}},
		},
	}
}

// Run ensures every row of ds exists.
func Run(ctx context.Context, log *slog.Logger, users *identity.Service, svc *tasks.Service, ds Dataset) (Report, error) {
	if log == nil {
		log = slog.Default()
	}
	var rep Report

	owners := make(map[string]int64, len(ds.Accounts))
	for _, acc := range ds.Accounts {
		u, created, err := ensureUser(ctx, users, acc)
		if err != nil {
			return rep, fmt.Errorf("seed user %s: %w", acc.Username, err)
		}
		owners[acc.Username] = u.ID
		if created {
			rep.UsersCreated++
			log.Info("seed.user.created", "username", u.Username, "superuser", u.IsSuperuser)
		} else {
			rep.UsersExisting++
		}
	}

	tagIDs := make(map[string]int64, len(ds.Tags))
	for _, nt := range ds.Tags {
		g, created, err := ensureTag(ctx, svc, nt)
		if err != nil {
			return rep, fmt.Errorf("seed tag %s: %w", nt.Name, err)
		}
		tagIDs[g.Name] = g.ID
		if created {
			rep.TagsCreated++
		} else {
			rep.TagsExisting++
		}
	}
	log.Info("seed.tags", "created", rep.TagsCreated, "existing", rep.TagsExisting)

	existing := make(map[int64]map[string]bool)
	for _, ts := range ds.Tasks {
		owner, ok := owners[ts.Owner]
		if !ok {
			return rep, fmt.Errorf("seed task %q: unknown owner %q", ts.Title, ts.Owner)
		}
		if existing[owner] == nil {
			titles, err := ownedTitles(ctx, svc, owner)
			if err != nil {
				return rep, fmt.Errorf("seed tasks for %s: %w", ts.Owner, err)
			}
			existing[owner] = titles
		}
		if existing[owner][ts.Title] {
			rep.TasksExisting++
			continue
		}

		in := tasks.NewTask{
			Title:       ts.Title,
			Priority:    ts.Priority,
			IsCompleted: ts.IsCompleted,
		}
		if ts.Description != "" {
			d := ts.Description
			in.Description = &d
		}
		for _, name := range ts.Tags {
			if id, ok := tagIDs[name]; ok {
				in.TagIDs = append(in.TagIDs, id)
			}
		}
		if _, err := svc.CreateTask(ctx, owner, in); err != nil {
			return rep, fmt.Errorf("seed task %q: %w", ts.Title, err)
		}
		existing[owner][ts.Title] = true
		rep.TasksCreated++
	}
	log.Info("seed.tasks", "created", rep.TasksCreated, "existing", rep.TasksExisting)

	return rep, nil
}

func ensureUser(ctx context.Context, users *identity.Service, acc Account) (identity.User, bool, error) {
	u, err := users.Store().GetByUsername(ctx, acc.Username)
	if err == nil {
		return u, false, nil
	}
	if !identity.IsNotFound(err) {
		return identity.User{}, false, err
	}

	in := identity.RegisterInput{
		Email:       acc.Email,
		Username:    acc.Username,
		Password:    acc.Password,
		IsSuperuser: acc.IsSuperuser,
	}
	if acc.FullName != "" {
		name := acc.FullName
		in.FullName = &name
	}
	u, err = users.Register(ctx, in)
	if err != nil {
		return identity.User{}, false, err
	}
	return u, true, nil
}

func ensureTag(ctx context.Context, svc *tasks.Service, nt tasks.NewTag) (tasks.Tag, bool, error) {
	g, err := svc.TagByName(ctx, nt.Name)
	if err == nil {
		return g, false, nil
	}
	if !tasks.IsNotFound(err) {
		return tasks.Tag{}, false, err
	}

	g, err = svc.CreateTag(ctx, nt)
	if errors.Is(err, tasks.ErrConflict) {
		// Lost a race with a concurrent seeder.
		g, err = svc.TagByName(ctx, nt.Name)
		return g, false, err
	}
	return g, err == nil, err
}

func ownedTitles(ctx context.Context, svc *tasks.Service, owner int64) (map[string]bool, error) {
	titles := make(map[string]bool)
	page := dbx.Page{Limit: dbx.MaxLimit}
	for {
		batch, err := svc.ListTasks(ctx, owner, page)
		if err != nil {
			return nil, err
		}
		for _, t := range batch {
			titles[t.Title] = true
		}
		if len(batch) < page.Limit {
			return titles, nil
		}
		page.Skip += len(batch)
	}
}
