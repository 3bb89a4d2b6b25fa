package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/partflow/internal/core"
)

var partCmd = &cobra.Command{
	Use:   "part <designation-code>",
	Short: "Show one part with its route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		p, err := a.service.GetPart(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, p)
		}

		w := newTable(cmd)
		fmt.Fprintf(w, "Code\t%s\n", p.DesignationCode)
		fmt.Fprintf(w, "Group\t%s\n", p.ProductDesignation)
		fmt.Fprintf(w, "Name\t%s\n", p.Name)
		fmt.Fprintf(w, "Quantity\t%d/%d\n", p.QuantityCompleted, p.QuantityTotal)
		fmt.Fprintf(w, "Size\t%s\n", p.Size)
		fmt.Fprintf(w, "Material\t%s\n", p.Material)
		fmt.Fprintf(w, "Route\t%s\n", routeName(p.RouteTemplate))
		fmt.Fprintf(w, "Progress\t%s\n", routeProgress(p.RouteStages))
		fmt.Fprintf(w, "Drawing\t%s\n", p.DrawingFilename)
		fmt.Fprintf(w, "Created\t%s by %s\n", p.CreatedAt.Format("2006-01-02 15:04"), p.CreatedBy)
		return w.Flush()
	},
}

var partsCmd = &cobra.Command{
	Use:   "parts <group>",
	Short: "List the parts of a product group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		parts, err := a.service.ListPartsByGroup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, parts)
		}

		w := newTable(cmd)
		fmt.Fprintln(w, "CODE\tNAME\tQTY\tROUTE\tNEXT")
		for _, p := range parts {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				p.DesignationCode, p.Name, p.QuantityTotal, routeName(p.RouteTemplate), nextStage(p.RouteStages))
		}
		return w.Flush()
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List product groups with part counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		groups, err := a.service.ListGroups(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, groups)
		}

		w := newTable(cmd)
		fmt.Fprintln(w, "GROUP\tPARTS")
		for _, g := range groups {
			fmt.Fprintf(w, "%s\t%d\n", g.Designation, g.PartCount)
		}
		return w.Flush()
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates [id]",
	Short: "List route templates, or show one by id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}

		var tmpls []core.RouteTemplate
		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid template id %q", args[0])
			}
			t, err := a.service.GetRouteTemplate(cmd.Context(), id)
			if err != nil {
				return err
			}
			tmpls = []core.RouteTemplate{*t}
		} else if tmpls, err = a.service.ListRouteTemplates(cmd.Context()); err != nil {
			return err
		}

		if flagJSON {
			return printJSON(cmd, tmpls)
		}
		w := newTable(cmd)
		fmt.Fprintln(w, "ID\tNAME\tSTAGES")
		for _, t := range tmpls {
			fmt.Fprintf(w, "%d\t%s\t%d\n", t.ID, t.Name, len(t.Stages))
		}
		return w.Flush()
	},
}

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List production stages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		stages, err := a.service.ListStages(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, stages)
		}

		w := newTable(cmd)
		fmt.Fprintln(w, "ID\tNAME")
		for _, st := range stages {
			fmt.Fprintf(w, "%d\t%s\n", st.ID, st.Name)
		}
		return w.Flush()
	},
}

func routeName(t *core.RouteTemplate) string {
	if t == nil {
		return "-"
	}
	names := make([]string, len(t.Stages))
	for i, st := range t.Stages {
		names[i] = st.Name
	}
	return strings.Join(names, " -> ")
}

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
