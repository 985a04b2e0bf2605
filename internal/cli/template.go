package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danpasecinic/rpod/internal/manager"
	"github.com/danpasecinic/rpod/internal/spec"
	"github.com/danpasecinic/rpod/internal/types"
)

var (
	templateContainerDisk string
	templateImage         string
	templateConfig        []string
	templateForce         bool
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage pod templates",
}

var templateCreateCmd = &cobra.Command{
	Use:   "create <identifier> <alias-pattern> <gpu> <storage>",
	Short: "Create a pod template",
	Long: `Create a reusable creation profile. The alias pattern must contain
exactly one {i} placeholder; pods created from the template get the
lowest free number, e.g. train-{i} -> train-1, train-2, ...

A template with the same identifier as a built-in shadows it.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := spec.ParseConfigFlags(templateConfig)
		if err != nil {
			return err
		}

		tmpl := types.Template{
			Identifier:        args[0],
			AliasPattern:      args[1],
			GPUSpec:           args[2],
			StorageSpec:       args[3],
			ContainerDiskSpec: templateContainerDisk,
			Image:             templateImage,
			Config:            cfg,
		}

		mgr, _, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.AddTemplate(tmpl, templateForce); err != nil {
			return err
		}
		fmt.Printf("Created template '%s' (%s, %s, %s)\n", tmpl.Identifier, tmpl.AliasPattern, tmpl.GPUSpec, tmpl.StorageSpec)
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pod templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}

		templates, err := mgr.Templates()
		if err != nil {
			return err
		}
		if len(templates) == 0 {
			fmt.Println("No templates found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintf(w, "IDENTIFIER\tPATTERN\tGPU\tSTORAGE\tIMAGE\tSOURCE\n")
		for _, tmpl := range templates {
			image := tmpl.Image
			if image == "" {
				image = "(default)"
			}
			source := "user"
			if manager.IsBuiltinTemplate(tmpl.Identifier) {
				source = "built-in"
			}
			_, _ = fmt.Fprintf(
				w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				tmpl.Identifier,
				tmpl.AliasPattern,
				tmpl.GPUSpec,
				tmpl.StorageSpec,
				image,
				source,
			)
		}
		_ = w.Flush()
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <identifier>",
	Short: "Delete a pod template",
	Long:  `Delete a user template. Deleting a template that shadows a built-in restores the built-in; bare built-ins cannot be deleted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}

		if _, err := mgr.DeleteTemplate(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted template '%s'\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateCreateCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateDeleteCmd)

	templateCreateCmd.Flags().StringVar(&templateContainerDisk, "container-disk", "", "container disk size, e.g. 20GB")
	templateCreateCmd.Flags().StringVarP(&templateImage, "image", "i", "", "container image (default from config)")
	templateCreateCmd.Flags().StringArrayVarP(&templateConfig, "config", "c", []string{}, "default pod config values (key=value)")
	templateCreateCmd.Flags().BoolVarP(&templateForce, "force", "f", false, "overwrite an existing template")
}
