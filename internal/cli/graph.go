package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/mfriedrich/forgedeps/pkg/errors"
	"github.com/mfriedrich/forgedeps/pkg/manifest"
	"github.com/mfriedrich/forgedeps/pkg/render"
)

// Graph output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPNG = "png"
)

// graphCommand creates the graph command: export the resolved
// dependency graph as DOT, SVG, or PNG.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output   string
		format   string
		detailed bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "graph [Puppetfile]",
		Short: "Export the dependency graph as DOT, SVG, or PNG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			format = strings.ToLower(format)
			switch format {
			case formatDOT, formatSVG, formatPNG:
			default:
				return fmt.Errorf("unknown format %q (want dot, svg, or png)", format)
			}
			if output == "" && format != formatDOT {
				return fmt.Errorf("--output is required for %s export", format)
			}
			if output != "" {
				if err := apperrors.ValidatePath(output); err != nil {
					return err
				}
			}

			arg := ""
			if len(args) > 0 {
				arg = args[0]
			}
			path := manifestPath(arg)
			if err := apperrors.ValidatePath(path); err != nil {
				return err
			}
			f, err := manifest.ParseFile(path)
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			if len(f.Declarations) == 0 {
				return fmt.Errorf("no module declarations in manifest")
			}

			r, store, err := c.newResolver(noCache)
			if err != nil {
				return err
			}
			defer store.Close()

			sp := newSpinnerWithContext(ctx, "Resolving dependency graph...")
			sp.Start()
			result, err := r.Resolve(ctx, f.Declarations)
			sp.Stop()
			if err != nil {
				return err
			}
			logger.Debug("resolved graph", "modules", len(result.Modules))

			dot := render.ToDOT(result, render.DOTOptions{Detailed: detailed})

			var data []byte
			switch format {
			case formatDOT:
				data = []byte(dot)
			case formatSVG:
				data, err = render.RenderSVG(dot)
			case formatPNG:
				data, err = render.RenderPNG(dot)
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}

			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Exported dependency graph")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout for dot)")
	cmd.Flags().StringVarP(&format, "format", "f", formatDOT, "output format: dot, svg, or png")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label edges with version requirements")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the metadata cache")

	return cmd
}
