package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/auth"
	"github.com/Shivanand-hulikatti/event-checkin/internal/config"
	"github.com/spf13/cobra"
)

// NewStaffTokenCommand creates the staff-token command.
func NewStaffTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		role  string
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "staff-token <subject>",
		Short: "Mint a bearer token for door staff or an administrator",
		Long: `Mint a bearer token signed with JWT_SECRET. Door devices use a staff
token; payment review and overrides need an admin token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != auth.RoleStaff && role != auth.RoleAdmin {
				return fmt.Errorf("invalid role %q: must be %s or %s", role, auth.RoleStaff, auth.RoleAdmin)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			tok, err := auth.NewSigner(cfg.JWTSecret).Issue(args[0], role, email, ttl)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"token": tok, "role": role})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&role, "role", auth.RoleStaff, "role claim (staff|admin)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
