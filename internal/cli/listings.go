package cli

import (
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"maskd/internal/common/fsutil"
	"maskd/internal/imaging"
	"maskd/internal/masks"
	"maskd/internal/store"
	"maskd/internal/system"
)

func buildImagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List images discovered under the image folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := imaging.ListImages(a.cfg.Application.ImageFolder, a.cfg.Application.ImageExtensions)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Printf("no images found in %s\n", a.cfg.Application.ImageFolder)
				return nil
			}
			for _, r := range records {
				fmt.Printf("%4d  %-40s  %s\n", r.Index, r.Name, units.HumanSize(float64(r.Size)))
			}
			return nil
		},
	}
}

func buildMasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "masks",
		Short: "List and inspect stored mask containers",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List containers in the mask folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := fsutil.ExpandHome(a.cfg.Application.MaskFolder)
			if err != nil {
				return err
			}
			paths, err := store.List(folder)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Printf("no containers found in %s\n", folder)
				return nil
			}
			for _, p := range paths {
				sum, err := store.ReadSummary(p)
				if err != nil {
					fmt.Printf("%-50s  (unreadable: %v)\n", filepath.Base(p), err)
					continue
				}
				fmt.Printf("%-50s  %4d masks  %s/%s\n",
					filepath.Base(p), sum.MaskCount, sum.Model.ModelKey, sum.Model.Preset)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <container-name>",
		Short: "Print a container's metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := containerArg(a, args[0])
			if err != nil {
				return err
			}
			sum, err := store.ReadSummary(path)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		},
	}

	var overlayOut string
	overlay := &cobra.Command{
		Use:   "overlay <container-name>",
		Short: "Render the mask overlay to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := containerArg(a, args[0])
			if err != nil {
				return err
			}
			c, err := store.Read(path)
			if err != nil {
				return err
			}
			frame, _, err := imaging.DecodeFrame(c.SourceBytes)
			if err != nil {
				return err
			}
			img, err := masks.RenderOverlay(frame, c.Masks)
			if err != nil {
				return err
			}
			out := overlayOut
			if out == "" {
				out = strings.TrimSuffix(path, store.Ext) + ".overlay.png"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := png.Encode(f, img); err != nil {
				return err
			}
			fmt.Printf("overlay written to %s\n", out)
			return nil
		},
	}
	overlay.Flags().StringVarP(&overlayOut, "out", "o", "", "Output PNG path (defaults next to the container)")

	cmd.AddCommand(list, show, overlay)
	return cmd
}

// containerArg resolves a container name or path against the mask folder.
func containerArg(a *app, arg string) (string, error) {
	if fsutil.PathExists(arg) {
		return arg, nil
	}
	folder, err := fsutil.ExpandHome(a.cfg.Application.MaskFolder)
	if err != nil {
		return "", err
	}
	name := arg
	if !strings.HasSuffix(strings.ToLower(name), store.Ext) {
		name += store.Ext
	}
	path := filepath.Join(folder, name)
	if !fsutil.PathExists(path) {
		return "", fmt.Errorf("no container %q in %s", arg, folder)
	}
	return path, nil
}

func buildModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := a.run.Registry()
			keys := reg.Keys()
			if len(keys) == 0 {
				fmt.Println("no models configured")
				return nil
			}
			for _, key := range keys {
				entry, _ := reg.Entry(key)
				marker := " "
				if key == reg.DefaultModel() {
					marker = "*"
				}
				fmt.Printf("%s %-20s  family=%-7s  checkpoint=%s\n", marker, key, entry.Family, entry.Checkpoint)
			}
			return nil
		},
	}
}

func buildSystemCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "system",
		Short: "Print the host capability report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(system.Summarize())
		},
	}
}
