package commands

import (
	"fmt"
	"strings"

	"github.com/moolen/usersim/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	kindAll         = "all"
	kindElicitation = "elicitation"
	kindInquiry     = "inquiry"
)

// slotsReport is the yaml output of the slots command. Unselected lists are
// nil and omitted; a selected empty list is still written as [].
type slotsReport struct {
	Name        string    `yaml:"name,omitempty"`
	Slots       *[]string `yaml:"slots,omitempty"`
	Elicitation *[]string `yaml:"elicitation,omitempty"`
	Inquiry     *[]string `yaml:"inquiry,omitempty"`
}

func newSlotsCmd() *cobra.Command {
	var (
		kind   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "slots <domain.yaml>",
		Short: "List the slots of a domain",
		Long: `List slot names of a domain file.

  --kind all          every slot under slot_names (default); with -o yaml
                      the elicitation and inquiry lists are included too
  --kind elicitation  slots without the no_elicitation modifier
  --kind inquiry      inquire_slots as configured`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := domain.LoadFile(args[0])
			if err != nil {
				return err
			}

			var names []string
			report := slotsReport{Name: s.Name()}
			switch kind {
			case kindAll:
				names = s.SlotNames()
				elicitation, inquiry := s.SlotNamesElicitation(), s.SlotNamesInquiry()
				report.Slots, report.Elicitation, report.Inquiry = &names, &elicitation, &inquiry
			case kindElicitation:
				names = s.SlotNamesElicitation()
				report.Elicitation = &names
			case kindInquiry:
				names = s.SlotNamesInquiry()
				report.Inquiry = &names
			default:
				return fmt.Errorf("invalid --kind %q (must be one of: %s)", kind,
					strings.Join([]string{kindAll, kindElicitation, kindInquiry}, ", "))
			}

			out := cmd.OutOrStdout()
			switch output {
			case "text":
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("failed to encode slots: %w", err)
				}
				return enc.Close()
			default:
				return fmt.Errorf("invalid --output %q (must be text or yaml)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", kindAll, "Which slots to list: all, elicitation or inquiry")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text or yaml")

	return cmd
}
