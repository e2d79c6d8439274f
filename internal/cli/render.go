package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-xview/internal/app"
	"github.com/goliatone/go-xview/pkg/render"
)

type renderOptions struct {
	controller string
	modelPath  string
	output     string
	viewData   map[string]string
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render [controller/view]",
		Short: "Render a view to standard output or a file",
		Long: `Render a view once. The model is read from a YAML or JSON file.
Without a view argument on a terminal, the view is chosen from a list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := ""
			if len(args) > 0 {
				view = args[0]
			}
			return runRender(cmd, rootOpts, opts, view)
		},
	}
	cmd.Flags().StringVar(&opts.controller, "controller", "", "controller used to locate views without one")
	cmd.Flags().StringVarP(&opts.modelPath, "model", "m", "", "model file (yaml or json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the output to a file")
	cmd.Flags().StringToStringVar(&opts.viewData, "set", nil, "view data entries (key=value)")
	return cmd
}

func runRender(cmd *cobra.Command, rootOpts *RootOptions, opts *renderOptions, view string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := rootOpts.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg.Views.Watch = false

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if view == "" {
		if view, err = chooseView(ctx, rootOpts, a.Engine); err != nil {
			return err
		}
	}

	model, err := readModel(opts.modelPath)
	if err != nil {
		return err
	}
	controller, name := splitView(view, opts.controller)
	found, err := a.Engine.FindView(controller, name)
	if err != nil {
		return err
	}

	vc := render.NewViewContext(model)
	vc.Route.Controller = controller
	vc.Route.Action = name
	for key, value := range opts.viewData {
		vc.ViewData.Set(key, value)
	}

	out, err := found.Execute(ctx, vc)
	if err != nil {
		return err
	}
	logger.V(1).Info("rendered", "view", found.Path(), "contentType", out.ContentType, "chain", out.Chain)
	return writeOutput(cmd.OutOrStdout(), opts.output, out.Body)
}

func chooseView(ctx context.Context, rootOpts *RootOptions, engine *render.Engine) (string, error) {
	if !rootOpts.interactive() {
		return "", errors.New("render: a view is required when not on a terminal")
	}
	views, err := engine.Views()
	if err != nil {
		return "", fmt.Errorf("render: list views: %w", err)
	}
	if len(views) == 0 {
		return "", errors.New("render: no views found")
	}
	return rootOpts.promptDriver().Select(ctx, SelectConfig{
		Message:  "View",
		Options:  views,
		Default:  "Home/index",
		PageSize: 15,
	})
}

// readModel decodes a YAML or JSON model file. No path means no model.
func readModel(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("render: read model: %w", err)
	}
	var model any
	if err := yaml.Unmarshal(b, &model); err != nil {
		return nil, fmt.Errorf("render: decode model %s: %w", path, err)
	}
	return model, nil
}

func writeOutput(stdout io.Writer, path, body string) error {
	if path == "" {
		_, err := io.WriteString(stdout, body)
		return err
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("render: write %s: %w", path, err)
	}
	return nil
}
