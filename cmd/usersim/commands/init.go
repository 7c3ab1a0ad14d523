package commands

import (
	"fmt"
	"os"

	"github.com/moolen/usersim/internal/config"
	"github.com/moolen/usersim/internal/domain"
	"github.com/spf13/cobra"
)

const exampleComment = `# Simulation domain.
#
# slot_names maps each slot to a list of modifier tags. Slots tagged
# no_elicitation are never asked for during preference elicitation.
# inquire_slots lists the slots the simulated user may ask about.`

func exampleDomain() (*domain.Schema, error) {
	return domain.New("MovieDomain", []domain.Slot{
		{Name: "title", Modifiers: []string{domain.NoElicitation}},
		{Name: "genre"},
		{Name: "keywords"},
	}, []string{"plot", "year", "actors"})
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init <domain.yaml>",
		Short: "Write an example domain file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			example, err := exampleDomain()
			if err != nil {
				return err
			}
			doc := example.Node()
			doc.HeadComment = exampleComment
			if err := config.WriteFile(path, doc); err != nil {
				return err
			}

			// Fail loudly if the scaffold itself ever stops validating.
			if _, err := domain.LoadFile(path); err != nil {
				return fmt.Errorf("written example is invalid: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
