// ABOUTME: Field projection commands
// ABOUTME: Shows and toggles which fields of a synced capability are written to the cache
package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/harperreed/deskhand/db"
	"github.com/harperreed/deskhand/models"
)

func newFieldsCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Choose which fields sync writes to the cache",
	}
	cmd.AddCommand(newFieldsListCommand(st), newFieldsSetCommand(st))
	return cmd
}

func newFieldsListCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list <capability>",
		Short: "List a capability's fields and whether each is cached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := models.ParseCapability(args[0])
			if err != nil {
				return err
			}
			tbl, err := db.TableFor(c)
			if err != nil {
				return err
			}
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			settings, err := a.Store().FieldSettings(cmd.Context(), st.userID, c)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(tbl.Columns))
			for _, col := range tbl.Columns {
				included, set := settings[col]
				status := check(true) + " included"
				if set && !included {
					status = check(false) + " excluded"
				}
				rows = append(rows, []string{col, status})
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), table([]string{"FIELD", "STATE"}, rows))
			return nil
		},
	}
}

func newFieldsSetCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "set <capability> <field> <on|off>",
		Short: "Include or exclude a field on the next sync",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := models.ParseCapability(args[0])
			if err != nil {
				return err
			}
			included, err := parseToggle(args[2])
			if err != nil {
				return err
			}
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			if err := a.Store().SetFieldIncluded(cmd.Context(), st.userID, c, args[1], included); err != nil {
				return err
			}

			verb := "included in"
			if !included {
				verb = "excluded from"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s.%s %s the cache\n", c, args[1], verb)
			return nil
		},
	}
}

func parseToggle(s string) (bool, error) {
	switch s {
	case "on", "yes", "include":
		return true, nil
	case "off", "no", "exclude":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return b, nil
}
