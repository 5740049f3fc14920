package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iuliaszarics/WhiskersWonderland/internal/auth"
	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/database"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
	"github.com/iuliaszarics/WhiskersWonderland/internal/repository"
	"github.com/iuliaszarics/WhiskersWonderland/internal/service"
)

var (
	username string
	email    string
	password string
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Account administration for WhiskersWonderland",
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an account with the admin role",
	RunE:  runCreateAdmin,
}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant the admin role to an existing account",
	RunE:  runPromote,
}

var demoteCmd = &cobra.Command{
	Use:   "demote",
	Short: "Revoke the admin role from an account",
	RunE:  runDemote,
}

func init() {
	createAdminCmd.Flags().StringVar(&username, "username", "", "display name")
	createAdminCmd.Flags().StringVar(&email, "email", "", "login email")
	createAdminCmd.Flags().StringVar(&password, "password", "", "initial password")
	for _, f := range []string{"username", "email", "password"} {
		createAdminCmd.MarkFlagRequired(f)
	}

	for _, c := range []*cobra.Command{promoteCmd, demoteCmd} {
		c.Flags().StringVar(&email, "email", "", "login email")
		c.MarkFlagRequired("email")
	}

	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(demoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type services struct {
	auth  *service.AuthService
	admin *service.AdminService
	close func() error
}

func connect() (*services, error) {
	cfg, err := config.LoadValidated()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("admin commands need the postgres driver, got %q", cfg.Database.Driver)
	}
	log := logger.New(cfg.Log.Level, "text")

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Security.Tokens)
	if err != nil {
		db.Close()
		return nil, err
	}

	users := repository.NewUserRepository(db)
	activities := repository.NewActivityRepository(db)
	hasher := auth.NewPasswordHasher(cfg.Security.Password.BcryptCost)

	return &services{
		auth:  service.NewAuthService(users, activities, hasher, tokens, auth.NewTOTP(cfg.TwoFactor), nil, cfg, log),
		admin: service.NewAdminService(users, activities, repository.NewCatalogRepository(db), log),
		close: db.Close,
	}, nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	svc, err := connect()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	user, err := svc.auth.CreateUser(ctx, service.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, model.RoleAdmin)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (id %d)\n", user.Email, user.ID)
	return nil
}

func runPromote(cmd *cobra.Command, args []string) error {
	return setRole(cmd, model.RoleAdmin)
}

func runDemote(cmd *cobra.Command, args []string) error {
	return setRole(cmd, model.RoleUser)
}

func setRole(cmd *cobra.Command, role model.Role) error {
	svc, err := connect()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	user, err := svc.admin.SetRoleByEmail(ctx, email, role)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
	return nil
}
