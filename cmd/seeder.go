package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/membership"
	"github.com/frahmantamala/timetrack/internal/project"
	"github.com/frahmantamala/timetrack/internal/user"
)

var (
	clearData    bool
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with an administrator and a small project tree for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies()
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer deps.Close()

		if err := seed(context.Background(), deps); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password123", "password given to every seeded account")
}

// clearedTables are emptied child-first so foreign keys never block the delete.
var clearedTables = []string{
	"time_entry_custom_values",
	"time_entries",
	"member_roles",
	"members",
	"projects",
	"settings",
	"users",
}

func seed(ctx context.Context, deps *Dependencies) error {
	if clearData {
		for _, table := range clearedTables {
			if err := deps.DB.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		fmt.Println("Cleared existing data")
	}

	accounts := []user.CreateUserDTO{
		{Login: "admin", Firstname: "Site", Lastname: "Admin", Admin: true},
		{Login: "alice", Firstname: "Alice", Lastname: "Manager"},
		{Login: "bob", Firstname: "Bob", Lastname: "Lead"},
		{Login: "erin", Firstname: "Erin", Lastname: "Engineer"},
	}
	ids := make(map[string]int64, len(accounts))
	for _, dto := range accounts {
		dto.Password = seedPassword
		u, created, err := deps.Users.Ensure(ctx, dto)
		if err != nil {
			return fmt.Errorf("ensure user %s: %w", dto.Login, err)
		}
		ids[u.Login] = u.ID
		if created {
			fmt.Println("Seeded user:", u.Login)
		}
	}

	admin := &auth.Actor{ID: ids["admin"], Login: "admin", Admin: true}

	// company > engineering > {backend, frontend}
	tree := []struct {
		Identifier string
		Name       string
		Parent     string
	}{
		{"company", "Company", ""},
		{"engineering", "Engineering", "company"},
		{"backend", "Backend", "engineering"},
		{"frontend", "Frontend", "engineering"},
	}

	existing, err := deps.Projects.List(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	projectIDs := make(map[string]int64, len(tree))
	for _, p := range existing {
		projectIDs[p.Identifier] = p.ID
	}

	for _, node := range tree {
		if _, ok := projectIDs[node.Identifier]; ok {
			continue
		}
		dto := project.CreateProjectDTO{Identifier: node.Identifier, Name: node.Name}
		if node.Parent != "" {
			parentID := projectIDs[node.Parent]
			dto.ParentID = &parentID
		}
		p, err := deps.Projects.Create(ctx, admin, dto)
		if err != nil {
			return fmt.Errorf("create project %s: %w", node.Identifier, err)
		}
		projectIDs[p.Identifier] = p.ID
		fmt.Println("Seeded project:", p.Identifier)
	}

	// Manager memberships propagate roles through the tree via the event bus.
	memberships := []struct {
		Project string
		Login   string
		Roles   []int64
	}{
		{"engineering", "alice", []int64{auth.RoleManager}},
		{"backend", "bob", []int64{auth.RoleManager}},
		{"backend", "erin", []int64{auth.RoleEmployee}},
		{"frontend", "erin", []int64{auth.RoleEmployee}},
	}
	for _, m := range memberships {
		_, err := deps.Memberships.Upsert(ctx, admin, projectIDs[m.Project], membership.UpsertMembershipDTO{
			UserID:  ids[m.Login],
			RoleIDs: m.Roles,
		})
		if err != nil {
			return fmt.Errorf("add %s to %s: %w", m.Login, m.Project, err)
		}
	}
	fmt.Println("Seeded memberships; manager roles propagated")

	return nil
}
