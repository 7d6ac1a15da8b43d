package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	apperrors "github.com/mfriedrich/forgedeps/pkg/errors"
	"github.com/mfriedrich/forgedeps/pkg/manifest"
	"github.com/mfriedrich/forgedeps/pkg/observability"
	"github.com/mfriedrich/forgedeps/pkg/render"
	"github.com/mfriedrich/forgedeps/pkg/resolver"
)

// checkCommand creates the check command: parse the manifest, resolve
// every module's dependency tree, and report conflicts.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		jsonOut       bool
		conflictsOnly bool
		requirements  bool
		noCache       bool
		interactive   bool
	)

	cmd := &cobra.Command{
		Use:   "check [Puppetfile]",
		Short: "Resolve Puppetfile dependencies and report conflicts",
		Long: `Check parses a Puppetfile, expands every declared module's transitive
dependencies against the Forge, and prints the dependency tree with any
version conflicts and suggested fixes.

The command exits non-zero when conflicts are found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

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
			logger.Debug("parsed manifest", "path", path, "declarations", len(f.Declarations), "errors", len(f.Errors))

			if !jsonOut {
				for _, pe := range f.Errors {
					printWarning("%s: %s", path, pe.Error())
				}
			}
			if len(f.Declarations) == 0 {
				return apperrors.New(apperrors.ErrCodeInvalidManifest, "no module declarations in %s", path)
			}

			r, store, err := c.newResolver(noCache)
			if err != nil {
				return err
			}
			defer store.Close()

			var sp *Spinner
			if !jsonOut {
				sp = newSpinnerWithContext(ctx, fmt.Sprintf("Resolving %d modules...", len(f.Declarations)))
				sp.Start()
				observability.SetResolverHooks(spinnerStatus{sp: sp})
				defer observability.Reset()
			}

			prog := newProgress(logger)
			result, err := r.Resolve(ctx, f.Declarations)
			if sp != nil {
				sp.Stop()
			}
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Resolved %d modules", len(result.Modules)))

			conflicts := result.Conflicts()

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), result, f.Errors)
			}

			if !conflictsOnly {
				fmt.Fprint(cmd.OutOrStdout(), render.Tree(result, render.TreeOptions{
					Color:        true,
					Requirements: requirements,
				}))
				fmt.Fprintln(cmd.OutOrStdout())
			}

			if report := render.Report(result, true); report != "" {
				fmt.Fprint(cmd.OutOrStdout(), report)
			}

			if interactive && len(conflicts) > 0 {
				if err := runConflictBrowser(result); err != nil && !errors.Is(err, errBrowserQuit) {
					return err
				}
			}

			if len(conflicts) > 0 {
				if !interactive {
					printNextStep("Inspect conflicts interactively", appName+" check --interactive")
				}
				return fmt.Errorf("%d dependency conflict(s) found", len(conflicts))
			}
			printSuccess("No conflicts in %d modules", len(result.Modules))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output the result as JSON")
	cmd.Flags().BoolVar(&conflictsOnly, "conflicts-only", false, "print only the conflict report")
	cmd.Flags().BoolVar(&requirements, "requirements", false, "show inherited version requirements in the tree")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the metadata cache")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse conflicts interactively")

	return cmd
}

// spinnerStatus feeds module-fetch events into the spinner message so
// the user sees which module is currently being resolved.
type spinnerStatus struct {
	observability.NoopResolverHooks
	sp *Spinner
}

func (h spinnerStatus) OnModuleFetch(_ context.Context, module string, _ int, _ error) {
	h.sp.Update("Resolving " + module + "...")
}

// checkResponse is the JSON shape shared by check --json and the
// serve API.
type checkResponse struct {
	Roots       []*resolver.Node                    `json:"roots"`
	Modules     map[string]*resolver.DependencyInfo `json:"modules"`
	Conflicts   []*resolver.Conflict                `json:"conflicts"`
	ParseErrors []string                            `json:"parse_errors,omitempty"`
}

func newCheckResponse(result *resolver.Result, parseErrs []manifest.ParseError) checkResponse {
	resp := checkResponse{
		Roots:     result.Roots,
		Modules:   result.Modules,
		Conflicts: result.Conflicts(),
	}
	for _, pe := range parseErrs {
		resp.ParseErrors = append(resp.ParseErrors, pe.Error())
	}
	return resp
}

func writeJSON(w io.Writer, result *resolver.Result, parseErrs []manifest.ParseError) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newCheckResponse(result, parseErrs))
}
