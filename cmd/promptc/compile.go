package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l2laihub/portrait-prompt-engine/internal/engine"
	"github.com/l2laihub/portrait-prompt-engine/internal/store"
	"github.com/l2laihub/portrait-prompt-engine/internal/template"
	"github.com/l2laihub/portrait-prompt-engine/internal/validation"
)

type compileOptions struct {
	TemplateID   string
	Style        string
	CustomPrompt string
	PhotoType    string
	Members      int
	Values       []string
	NoCache      bool
	CacheFile    string
	Unsafe       bool
	Level        string
	JSON         bool
}

func newCompileCmd(root *rootFlags) *cobra.Command {
	opts := compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a template into a final prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.TemplateID, "id", "i", "", "Template id (defaults to the portrait type's default template)")
	cmd.Flags().StringVarP(&opts.Style, "style", "s", "", "Style name, e.g. \"Rustic Barn Wedding\"")
	cmd.Flags().StringVarP(&opts.CustomPrompt, "prompt", "p", "", "Free-text custom prompt")
	cmd.Flags().StringVar(&opts.PhotoType, "type", "couple", "Portrait type: single, couple or family")
	cmd.Flags().IntVar(&opts.Members, "members", 0, "Family member count")
	cmd.Flags().StringArrayVar(&opts.Values, "value", nil, "Variable value as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "Bypass the compilation cache")
	cmd.Flags().StringVar(&opts.CacheFile, "cache-file", "", "Cache snapshot to reuse across invocations")
	cmd.Flags().BoolVar(&opts.Unsafe, "unsafe", false, "Keep script-like content in resolved variables")
	cmd.Flags().StringVar(&opts.Level, "level", "normal", "Validation level: strict, normal or permissive")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the full result as JSON")

	return cmd
}

func runCompile(cmd *cobra.Command, root *rootFlags, opts compileOptions) error {
	src, err := root.openStore()
	if err != nil {
		return err
	}
	defer src.Close()

	ctx := context.Background()

	def, err := loadDefinition(ctx, src, opts.TemplateID, template.PortraitType(opts.PhotoType))
	if err != nil {
		return err
	}

	values, err := parseValues(opts.Values)
	if err != nil {
		return err
	}

	compiler := engine.New(engine.Config{Logger: root.log})
	if opts.CacheFile != "" && !opts.NoCache {
		// Best effort: a missing snapshot just means a cold cache.
		_ = compiler.Cache().Load(opts.CacheFile)
	}

	engineOpts := engine.DefaultOptions()
	engineOpts.EnableCaching = !opts.NoCache
	engineOpts.AllowUnsafeVariables = opts.Unsafe
	engineOpts.ValidationLevel = validation.Level(opts.Level)

	result, err := compiler.Compile(ctx, def, &template.RuntimeContext{
		Style:             opts.Style,
		CustomPrompt:      opts.CustomPrompt,
		PhotoType:         template.PortraitType(opts.PhotoType),
		FamilyMemberCount: opts.Members,
		Values:            values,
	}, &engineOpts)
	if err != nil {
		return err
	}

	if opts.CacheFile != "" && !opts.NoCache {
		if err := compiler.Cache().Save(opts.CacheFile); err != nil {
			return fmt.Errorf("saving cache snapshot: %w", err)
		}
	}

	if opts.JSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Prompt)
	for _, warning := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
	}
	return nil
}

func loadDefinition(ctx context.Context, src store.Store, id string, portraitType template.PortraitType) (*template.Definition, error) {
	if id != "" {
		return src.Get(ctx, id)
	}
	def, err := src.GetDefault(ctx, portraitType)
	if err != nil {
		return nil, fmt.Errorf("no default template for type %q: %w", portraitType, err)
	}
	return def, nil
}

func parseValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --value %q, expected key=value", pair)
		}
		values[key] = value
	}
	return values, nil
}
