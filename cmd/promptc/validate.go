package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
	"github.com/l2laihub/portrait-prompt-engine/internal/validation"
)

type validateOptions struct {
	TemplateID string
	Level      string
}

func newValidateCmd(root *rootFlags) *cobra.Command {
	opts := validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate template definitions and report quality scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.TemplateID, "id", "i", "", "Validate a single template id (default: all)")
	cmd.Flags().StringVar(&opts.Level, "level", "normal", "Validation level: strict, normal or permissive")

	return cmd
}

func runValidate(cmd *cobra.Command, root *rootFlags, opts validateOptions) error {
	src, err := root.openStore()
	if err != nil {
		return err
	}
	defer src.Close()

	ctx := context.Background()

	var defs []*template.Definition
	if opts.TemplateID != "" {
		def, err := src.Get(ctx, opts.TemplateID)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	} else {
		defs, err = src.List(ctx, "")
		if err != nil {
			return err
		}
	}
	if len(defs) == 0 {
		return fmt.Errorf("no templates to validate")
	}

	v := validation.New(validation.Options{
		Level:  validation.Level(opts.Level),
		Logger: root.log,
	})

	out := cmd.OutOrStdout()
	var failed int
	for _, def := range defs {
		result := v.Validate(def)

		status := "ok"
		if !result.Valid {
			status = "INVALID"
			failed++
		}
		fmt.Fprintf(out, "%s: %s (score %d)\n", def.ID, status, result.Score)
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  error [%s]: %s\n", e.Field, e.Message)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "  warning [%s]: %s\n", w.Field, w.Message)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed validation", failed, len(defs))
	}
	return nil
}
