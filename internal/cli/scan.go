package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/Shivanand-hulikatti/event-checkin/internal/scan"
	"github.com/Shivanand-hulikatti/event-checkin/internal/token"
	"github.com/spf13/cobra"
)

type scanOptions struct {
	api      string
	eventID  string
	bearer   string
	interval time.Duration
	food     bool
}

// NewScanCommand creates the scan command: a door station that reads tokens
// from a keyboard-wedge scanner on stdin and checks each one in.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read scanned tokens from stdin and check them in",
		Long: `Read scanned tokens from stdin (one per line, as a keyboard-wedge
barcode scanner types them) and submit each distinct token once to the
check-in API. The staff bearer token is read from --bearer or CHECKIN_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !token.ValidID(opts.eventID) {
				return errors.New("--event must be a valid event id")
			}
			bearer := opts.bearer
			if bearer == "" {
				bearer = os.Getenv("CHECKIN_TOKEN")
			}
			client := &scan.Client{BaseURL: opts.api, Bearer: bearer}
			out := cmd.OutOrStdout()

			st := &scan.Station{
				EventID:  opts.eventID,
				Source:   scan.NewLineSource(cmd.Context(), cmd.InOrStdin()),
				Interval: opts.interval,
				Decode: func(s string) error {
					_, err := token.Decode(s)
					return err
				},
				Submit:         client.Submit,
				FoodTokenGiven: opts.food,
				Logger:         slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)),
				OnResult: func(_ string, res *model.ScanResult, status int) {
					if rootOpts.Format == "json" {
						_ = json.NewEncoder(out).Encode(res)
						return
					}
					fmt.Fprintln(out, describe(res, status))
				},
			}
			return st.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&opts.api, "api", "http://localhost:8080", "check-in API base URL")
	cmd.Flags().StringVar(&opts.eventID, "event", "", "event being scanned for")
	cmd.Flags().StringVar(&opts.bearer, "bearer", "", "staff bearer token")
	cmd.Flags().DurationVar(&opts.interval, "interval", 100*time.Millisecond, "polling interval")
	cmd.Flags().BoolVar(&opts.food, "food", false, "mark food coupons as handed over")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func describe(res *model.ScanResult, status int) string {
	switch {
	case !res.Success:
		return fmt.Sprintf("REFUSED (%d) %s", status, res.Error)
	case res.AlreadyCheckedIn:
		return fmt.Sprintf("ALREADY IN  %s, coupons owed %d, food given %t", res.Registrant.Name, res.CouponsOwed, res.FoodTokenGiven)
	default:
		return fmt.Sprintf("CHECKED IN  %s, hand over %d coupons", res.Registrant.Name, res.CouponsOwed)
	}
}
