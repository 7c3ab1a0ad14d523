package commands

import (
	"errors"
	"fmt"

	"github.com/moolen/usersim/internal/config"
	"github.com/moolen/usersim/internal/domain"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <domain.yaml>...",
		Short: "Validate one or more domain files",
		Long: `Load each domain file and report every configuration problem found.
Exits non-zero if any file is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0

			for _, path := range args {
				s, err := domain.LoadFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: invalid\n", path)
					var cerr *config.ConfigError
					if errors.As(err, &cerr) {
						for _, p := range cerr.Problems() {
							fmt.Fprintf(out, "  - %s\n", p)
						}
					} else {
						fmt.Fprintf(out, "  - %v\n", err)
					}
					continue
				}
				fmt.Fprintf(out, "%s: ok (%d slots, %d elicitation, %d inquiry)\n",
					path, len(s.SlotNames()), len(s.SlotNamesElicitation()), len(s.SlotNamesInquiry()))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d domain files invalid", failed, len(args))
			}
			return nil
		},
	}
}
