package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"maskd/internal/common/fsutil"
	"maskd/internal/imaging"
	"maskd/internal/runner"
)

func buildGenerateCmd(a *app) *cobra.Command {
	var (
		modelKey  string
		preset    string
		overwrite bool
		inProcess bool
	)
	cmd := &cobra.Command{
		Use:   "generate <image-index|image-name>",
		Short: "Generate segmentation masks for one image and persist the container",
		Example: "  maskd generate 0\n" +
			"  maskd generate sample_001.tif --model sam2_base --preset fine --overwrite",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := findImage(a, args[0])
			if err != nil {
				return err
			}

			key := modelKey
			if key == "" {
				key = a.run.Registry().DefaultModel()
			}
			presetName := preset
			if presetName == "" {
				if entry, ok := a.run.Registry().Entry(key); ok {
					presetName = entry.Preset
				}
			}
			outPath, err := a.run.OutputPath(rec.Path, key, presetName)
			if err != nil {
				return err
			}
			if fsutil.PathExists(outPath) && !overwrite {
				fmt.Printf("masks already exist at %s (use --overwrite to regenerate)\n", outPath)
				return nil
			}

			frame, info, err := imaging.LoadFrame(rec.Path)
			if err != nil {
				return err
			}
			sourceBytes, err := os.ReadFile(rec.Path)
			if err != nil {
				return err
			}

			a.run.Isolated = !inProcess
			container, err := a.run.Run(cmd.Context(), key, presetName, runner.Input{
				Path:        rec.Path,
				Frame:       frame,
				Info:        info,
				SourceBytes: sourceBytes,
			})
			if err != nil {
				return err
			}
			path, err := a.run.Save(container)
			if err != nil {
				return err
			}

			st, _ := os.Stat(path)
			size := "?"
			if st != nil {
				size = units.HumanSize(float64(st.Size()))
			}
			fmt.Printf("%d masks in %.2fs (%.2f masks/s) -> %s (%s)\n",
				len(container.Masks),
				container.Run.ElapsedSeconds,
				container.Run.MasksPerSecond,
				path, size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&modelKey, "model", "m", "", "Model key (defaults to the configured default model)")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "Preset name (defaults to the model's default preset)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Regenerate even when a container already exists")
	cmd.Flags().BoolVar(&inProcess, "in-process", false, "Run generation in-process instead of a supervised worker")
	return cmd
}

// findImage resolves an argument as a listing index first, then as a
// base file name.
func findImage(a *app, arg string) (imaging.Record, error) {
	records, err := imaging.ListImages(a.cfg.Application.ImageFolder, a.cfg.Application.ImageExtensions)
	if err != nil {
		return imaging.Record{}, err
	}
	if idx, err := strconv.Atoi(arg); err == nil {
		if rec, ok := imaging.FindByIndex(records, idx); ok {
			return rec, nil
		}
		return imaging.Record{}, fmt.Errorf("image index %d out of range (%d images found)", idx, len(records))
	}
	if rec, ok := imaging.FindByName(records, arg); ok {
		return rec, nil
	}
	return imaging.Record{}, fmt.Errorf("no image named %q in %s", arg, a.cfg.Application.ImageFolder)
}
