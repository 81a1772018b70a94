package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tasklog/core/internal/adapters/repository"
	"github.com/tasklog/core/internal/application/services"
	"github.com/tasklog/core/internal/infrastructure/config"
	"github.com/tasklog/core/internal/infrastructure/database"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/infrastructure/server"
	"github.com/tasklog/core/internal/ports"
)

// Version is set at build time
var Version = "dev"

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Tasklog API server",
		Long:  "Start the Tasklog API server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			migrateFirst, _ := cmd.Flags().GetBool("migrate")
			runServer(migrateFirst)
		},
	}

	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long:  "Create users and issue development tokens",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		Run: func(cmd *cobra.Command, args []string) {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")

			if name == "" || email == "" {
				log.Fatal("Name and email are required")
			}

			createUser(name, email)
		},
	}
	createUserCmd.Flags().String("name", "", "User name (required)")
	createUserCmd.Flags().String("email", "", "User email (required)")

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Run: func(cmd *cobra.Command, args []string) {
			id, _ := cmd.Flags().GetString("id")
			email, _ := cmd.Flags().GetString("email")

			if id == "" && email == "" {
				log.Fatal("Either --id or --email is required")
			}

			issueToken(id, email)
		},
	}
	tokenCmd.Flags().String("id", "", "User id")
	tokenCmd.Flags().String("email", "", "User email")

	userCmd.AddCommand(createUserCmd, tokenCmd, &cobra.Command{
		Use:   "list",
		Short: "List users",
		Run: func(cmd *cobra.Command, args []string) {
			listUsers()
		},
	})
	return userCmd
}

// NewSeedCommand creates the command that fills the database with random data
func NewSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create random tasks and time logs for existing users",
		Run: func(cmd *cobra.Command, args []string) {
			tasks, _ := cmd.Flags().GetInt("tasks")
			logs, _ := cmd.Flags().GetInt("logs-per-task")
			seedDatabase(SeedOptions{Tasks: tasks, LogsPerTask: logs})
		},
	}

	cmd.Flags().Int("tasks", 1000, "Number of tasks to create")
	cmd.Flags().Int("logs-per-task", 2, "Closed time logs per task")
	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Tasklog version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Tasklog %s\n", Version)
		},
	}
}

// bootstrap loads configuration and opens the database
func bootstrap() (*config.Config, *logger.Logger, *database.DB) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	return cfg, appLogger, db
}

func runServer(migrateFirst bool) {
	cfg, appLogger, db := bootstrap()
	defer appLogger.Close()
	defer db.Close()

	if migrateFirst {
		if _, err := db.MigrateUp(); err != nil {
			appLogger.Fatalw("Failed to apply migrations", "error", err)
		}
	}

	srv, err := server.New(cfg, db, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting Tasklog API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"driver", cfg.Database.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Fatalw("Server failed to start", "error", err)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorw("Graceful shutdown failed", "error", err)
	}
}

func runMigration(direction string) {
	_, _, db := bootstrap()
	defer db.Close()

	var (
		changed bool
		err     error
	)
	switch direction {
	case "up":
		changed, err = db.MigrateUp()
	case "down":
		changed, err = db.MigrateDown()
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if !changed {
		fmt.Println("No migrations to run")
	} else {
		fmt.Printf("Migration %s completed successfully\n", direction)
	}
}

func showMigrationVersion() {
	_, _, db := bootstrap()
	defer db.Close()

	status, err := db.MigrationVersion()
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}

	fmt.Printf("Current migration version: %d\n", status.Version)
	fmt.Printf("Dirty: %t\n", status.Dirty)
}

func createUser(name, email string) {
	_, appLogger, db := bootstrap()
	defer db.Close()

	userService := services.NewUserService(repository.NewUserRepository(db.DB), appLogger)

	user, err := userService.CreateUser(context.Background(), ports.CreateUserRequest{Name: name, Email: email})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User created successfully:\n")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  Email: %s\n", user.Email)
}

func listUsers() {
	_, appLogger, db := bootstrap()
	defer db.Close()

	userService := services.NewUserService(repository.NewUserRepository(db.DB), appLogger)

	users, err := userService.ListUsers(context.Background())
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
	}
	w.Flush()
}

func issueToken(id, email string) {
	cfg, appLogger, db := bootstrap()
	defer db.Close()

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db.DB)

	var userID uuid.UUID
	if id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			log.Fatalf("Invalid user id: %v", err)
		}
		userID = parsed
	} else {
		user, err := userRepo.GetByEmail(ctx, email)
		if err != nil {
			log.Fatalf("Failed to find user: %v", err)
		}
		userID = user.ID
	}

	authService := services.NewAuthService(userRepo, cfg.JWT, appLogger)
	token, err := authService.IssueToken(ctx, userID)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println(token)
}

func seedDatabase(opts SeedOptions) {
	_, appLogger, db := bootstrap()
	defer db.Close()

	result, err := Seed(context.Background(), repository.NewStore(db), opts)
	if err != nil {
		if errors.Is(err, ErrNoUsers) {
			log.Fatal("Create at least one user before seeding")
		}
		log.Fatalf("Seeding failed: %v", err)
	}

	appLogger.Infow("Seeded random data", "tasks", result.Tasks, "time_logs", result.TimeLogs)
	fmt.Printf("Successfully created %d tasks and %d time logs\n", result.Tasks, result.TimeLogs)
}
