// labctl is the operator CLI for the lab portal: bootstrap an administrator,
// inspect accounts and run schema migrations without going through the web UI.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/labforge/labportal/internal/config"
	"github.com/labforge/labportal/internal/database"
	"github.com/labforge/labportal/internal/logger"
	"github.com/labforge/labportal/internal/models"
	"github.com/labforge/labportal/internal/services"
	"gorm.io/gorm"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [args]

Commands:
  create-admin <username> <email> <first-name> <last-name> <password>
  list-users
  deactivate-user <username>
  init-schema
`, os.Args[0])
	os.Exit(2)
}

func main() {
	logger.Init(false, os.Stderr)

	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		fatal("open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		fatal("migrate: %v", err)
	}

	users := services.NewUserService(db, cfg)
	audit := services.NewAuditService(db)

	switch os.Args[1] {
	case "create-admin":
		createAdmin(users, audit, os.Args[2:])
	case "list-users":
		listUsers(users)
	case "deactivate-user":
		deactivateUser(db, users, audit, os.Args[2:])
	case "init-schema":
		// Migration already ran above; reaching here means it succeeded.
		fmt.Println("schema up to date")
	default:
		usage()
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func createAdmin(users *services.UserService, audit *services.AuditService, args []string) {
	if len(args) != 5 {
		usage()
	}

	user, err := users.CreateAdmin(services.RegisterInput{
		Username:  args[0],
		Email:     args[1],
		FirstName: args[2],
		LastName:  args[3],
		Password:  args[4],
	})
	if err != nil {
		fatal("create admin: %v", err)
	}

	uid := user.ID
	if _, err := audit.Record(services.AuditEntry{
		UserID:       &uid,
		Action:       models.ActionAdminCreated,
		ResourceType: "user",
		ResourceID:   strconv.FormatUint(uint64(user.ID), 10),
		Details:      "administrator " + user.Username + " created via cli",
		UserAgent:    "cli",
	}); err != nil {
		fatal("audit: %v", err)
	}

	fmt.Printf("administrator %s (%s) created\n", user.Username, user.Email)
}

func listUsers(users *services.UserService) {
	all, err := users.List()
	if err != nil {
		fatal("list users: %v", err)
	}

	fmt.Printf("%-20s %-30s %-6s %-6s %-6s %s\n", "USERNAME", "EMAIL", "ADMIN", "ACTIVE", "PAM", "LAST LOGIN")
	for _, u := range all {
		lastLogin := "never"
		if u.LastLoginAt != nil {
			lastLogin = u.LastLoginAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-20s %-30s %-6t %-6t %-6t %s\n",
			u.Username, u.Email, u.IsAdmin, u.Active, u.UsePAMAuth, lastLogin)
	}
}

func deactivateUser(db *gorm.DB, users *services.UserService, audit *services.AuditService, args []string) {
	if len(args) != 1 {
		usage()
	}

	user, err := users.GetByUsername(args[0])
	if err != nil {
		fatal("user %q not found", args[0])
	}
	if !user.Active {
		fmt.Printf("user %s is already inactive\n", user.Username)
		return
	}

	if err := db.Model(user).Update("active", false).Error; err != nil {
		fatal("deactivate: %v", err)
	}

	if _, err := audit.Record(services.AuditEntry{
		Action:       models.ActionUserDeactivated,
		ResourceType: "user",
		ResourceID:   strconv.FormatUint(uint64(user.ID), 10),
		Details:      "user " + user.Username + " deactivated via cli",
		UserAgent:    "cli",
	}); err != nil {
		fatal("audit: %v", err)
	}

	fmt.Printf("user %s deactivated\n", user.Username)
}
