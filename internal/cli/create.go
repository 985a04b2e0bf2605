package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danpasecinic/rpod/internal/manager"
	"github.com/danpasecinic/rpod/internal/spec"
)

var (
	createAlias         string
	createGPU           string
	createStorage       string
	createContainerDisk string
	createImage         string
	createConfig        []string
	createForce         bool
	createDryRun        bool
)

var createCmd = &cobra.Command{
	Use:   "create [template]",
	Short: "Create a new pod",
	Long: `Create a new pod, either from a template (positional argument) or from an
explicit --alias/--gpu/--storage specification. Template-created pods get
an auto-numbered alias from the template's pattern unless --alias is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		template := ""
		if len(args) == 1 {
			template = args[0]
		}
		if template == "" && (createAlias == "" || createGPU == "" || createStorage == "") {
			return fmt.Errorf("specify either a template or all of --alias, --gpu, --storage")
		}

		extra, err := spec.ParseConfigFlags(createConfig)
		if err != nil {
			return err
		}

		mgr, store, err := newManager()
		if err != nil {
			return err
		}

		if template != "" {
			if createDryRun {
				return createDryRunTemplate(mgr, template)
			}

			pod, err := mgr.CreateFromTemplate(context.Background(), template, createAlias, extra, createForce)
			if err != nil {
				return err
			}
			printCreated(pod.Alias, pod.ID, pod.IPAddress, pod.SSHPort)
			autoClean(mgr, store)
			return nil
		}

		if createDryRun {
			gpu, err := spec.ParseGPU(createGPU)
			if err != nil {
				return err
			}
			volumeGB, err := spec.ParseStorage(createStorage)
			if err != nil {
				return err
			}
			fmt.Printf("DRY RUN: would create '%s' with %s and %dGB storage\n", createAlias, gpu, volumeGB)
			return nil
		}

		pod, err := mgr.Create(context.Background(), manager.CreateOptions{
			Alias:         createAlias,
			GPU:           createGPU,
			Storage:       createStorage,
			ContainerDisk: createContainerDisk,
			Image:         createImage,
			Config:        extra,
			Force:         createForce,
		})
		if err != nil {
			return err
		}
		printCreated(pod.Alias, pod.ID, pod.IPAddress, pod.SSHPort)
		autoClean(mgr, store)
		return nil
	},
}

func createDryRunTemplate(mgr *manager.Manager, identifier string) error {
	tmpl, err := mgr.Template(identifier)
	if err != nil {
		return err
	}
	fmt.Printf("DRY RUN: would create from template '%s'\n", identifier)
	fmt.Printf("  Alias pattern: %s\n", tmpl.AliasPattern)
	fmt.Printf("  GPU:           %s\n", tmpl.GPUSpec)
	fmt.Printf("  Storage:       %s\n", tmpl.StorageSpec)
	return nil
}

func printCreated(alias, podID, ip string, port int) {
	fmt.Printf("Created pod '%s' -> %s\n", alias, podID)
	if ip != "" && port > 0 {
		fmt.Printf("SSH ready: ssh %s (%s:%d)\n", alias, ip, port)
	} else {
		fmt.Println("Pod has no network info yet; run 'rpod start' later to refresh SSH config.")
	}
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVarP(&createAlias, "alias", "a", "", "alias for the new pod")
	createCmd.Flags().StringVarP(&createGPU, "gpu", "g", "", "GPU spec, e.g. 2xA100")
	createCmd.Flags().StringVarP(&createStorage, "storage", "s", "", "volume size, e.g. 500GB")
	createCmd.Flags().StringVar(&createContainerDisk, "container-disk", "", "container disk size, e.g. 20GB")
	createCmd.Flags().StringVarP(&createImage, "image", "i", "", "container image (default from config)")
	createCmd.Flags().StringArrayVarP(&createConfig, "config", "c", []string{}, "pod config values (key=value)")
	createCmd.Flags().BoolVarP(&createForce, "force", "f", false, "overwrite an existing alias")
	createCmd.Flags().BoolVar(&createDryRun, "dry-run", false, "show what would be created without doing it")
}
