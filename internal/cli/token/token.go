package token

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"novelhub/internal/auth"
	"novelhub/internal/cli"
	"novelhub/pkg/models"
)

// TokenCmd mints a token signed with jwt.secret, for local testing
// without the identity service
var TokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development token",
	Long:  "Sign a bearer token for a user id and role with the configured jwt.secret and jwt.issuer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}

		userID, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		id, err := identity(userID, role)
		if err != nil {
			return err
		}

		tok, err := auth.NewJWTAuthenticator(cfg.JWT.Secret, cfg.JWT.Issuer).IssueToken(id, ttl)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func identity(userID, role string) (models.Identity, error) {
	if userID == "" {
		return models.Identity{}, fmt.Errorf("--user is required")
	}
	r := models.UserRole(role)
	if !r.Valid() {
		return models.Identity{}, fmt.Errorf("unknown role %q (user, moderator, admin)", role)
	}
	return models.Identity{UserID: userID, Role: r}, nil
}

func init() {
	TokenCmd.Flags().String("user", "", "User id placed in the token")
	TokenCmd.Flags().String("role", string(models.UserRoleUser), "Role: user, moderator or admin")
	TokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
