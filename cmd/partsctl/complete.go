package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/partflow/internal/core"
)

var completeCmd = &cobra.Command{
	Use:   "complete <designation-code>",
	Short: "Mark the next stage of a part's route as completed",
	Long: `Complete records that the part passed the next stage of its route, in
route order, on behalf of --user.

Example:
  partsctl complete АСЦБ-000475 --user ivanov`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		p, err := a.service.CompleteNextStage(cmd.Context(), args[0], actingUser())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, p)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.DesignationCode, routeProgress(p.RouteStages))
		return nil
	},
}

// routeProgress renders stages as "[x] Ток -> [>] Фр -> [ ] Св".
func routeProgress(stages []core.RouteStage) string {
	if len(stages) == 0 {
		return "-"
	}
	marks := map[core.StageStatus]string{core.StageCompleted: "[x] ", core.StageNext: "[>] "}
	steps := make([]string, len(stages))
	for i, st := range stages {
		mark, ok := marks[st.Status]
		if !ok {
			mark = "[ ] "
		}
		steps[i] = mark + st.Name
	}
	return strings.Join(steps, " -> ")
}

// nextStage names the part's next stage, "done" for a finished route, "-" without one.
func nextStage(stages []core.RouteStage) string {
	if len(stages) == 0 {
		return "-"
	}
	for _, st := range stages {
		if st.Status == core.StageNext {
			return st.Name
		}
	}
	return "done"
}
