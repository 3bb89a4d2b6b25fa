package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/partflow/internal/core"
)

var createFlags struct {
	in      core.PartInput
	routeID int64
	drawing string
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a single part",
	Long: `Create adds one part. Unlike import, an existing designation code is an
error and nothing is changed.

Example:
  partsctl create --code РУЧ-001 --group "Наборка №3" --name Кронштейн --qty 2`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func init() {
	f := createCmd.Flags()
	f.StringVar(&createFlags.in.DesignationCode, "code", "", "designation code (required)")
	f.StringVar(&createFlags.in.ProductDesignation, "group", "", "product designation the part belongs to (required)")
	f.StringVar(&createFlags.in.Name, "name", "", "part name (required)")
	f.IntVar(&createFlags.in.QuantityTotal, "qty", 1, "total quantity")
	f.StringVar(&createFlags.in.Size, "size", "", "size")
	f.StringVar(&createFlags.in.Material, "material", "", "material")
	f.Int64Var(&createFlags.routeID, "route-template", 0, "route template id")
	f.StringVar(&createFlags.drawing, "drawing", "", "drawing file to attach")

	_ = createCmd.MarkFlagRequired("code")
	_ = createCmd.MarkFlagRequired("group")
	_ = createCmd.MarkFlagRequired("name")
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}

	in := createFlags.in
	if createFlags.routeID != 0 {
		id := createFlags.routeID
		in.RouteTemplateID = &id
	}

	var opts core.CreateOptions
	if createFlags.drawing != "" {
		f, err := os.Open(createFlags.drawing)
		if err != nil {
			return err
		}
		defer f.Close()
		opts.Drawing = &core.Attachment{FileName: filepath.Base(createFlags.drawing), Content: f}
	}

	part, err := a.service.CreatePart(cmd.Context(), in, actingUser(), opts)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd, part)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s in %s\n", part.DesignationCode, part.ProductDesignation)
	return nil
}
