package cli

import (
	"fmt"

	"filmrental/internal/domain"
	jwtsvc "filmrental/internal/pkg/jwt"

	"github.com/spf13/cobra"
)

// NewTokenCommand creates the token command, which mints a bearer token signed
// with JWT_SECRET for local testing.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var sub, name, email, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a local user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sub == "" {
				return fmt.Errorf("--sub is required")
			}
			if r := domain.Role(role); r != domain.RoleAdmin && r != domain.RoleStudent {
				return fmt.Errorf("invalid --role %q: must be admin or student", role)
			}
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			token, err := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL).GenerateToken(sub, name, email, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&sub, "sub", "", "user id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "admin or student")
	return cmd
}
