package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/civil360/civil360-api/internal/core/ports"
	"github.com/civil360/civil360-api/internal/core/service"
	"github.com/civil360/civil360-api/internal/infrastructure/db/mongo"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateFlags struct {
	username    string
	password    string
	displayName string
	email       string
	role        string
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long:  `Creates an active account directly in MongoDB. Useful for bootstrapping the first director.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		cfg, log, err := bootstrap(ctx)
		if err != nil {
			return err
		}

		connector := newMongoConnector(cfg)
		db, err := connector.Connect(ctx)
		if err != nil {
			return err
		}
		defer connector.Close(context.Background())

		users := mongo.NewUserRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure users indexes: %w", err)
		}

		// Token issuing is never reached from Register.
		svc := service.NewAuthService(users, nil, nil, nil, log)
		user, err := svc.Register(ctx, ports.RegisterInput{
			Username:    userCreateFlags.username,
			Password:    userCreateFlags.password,
			DisplayName: userCreateFlags.displayName,
			Email:       userCreateFlags.email,
			Role:        userCreateFlags.role,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s) with role %s\n", user.Username, user.ID, user.Role)
		return nil
	},
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&userCreateFlags.username, "username", "", "login name (required)")
	f.StringVar(&userCreateFlags.password, "password", "", "initial password, at least 6 characters (required)")
	f.StringVar(&userCreateFlags.displayName, "display-name", "", "name shown in the UI")
	f.StringVar(&userCreateFlags.email, "email", "", "contact email")
	f.StringVar(&userCreateFlags.role, "role", "general_director", "one of the CIVIL360 roles")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}
