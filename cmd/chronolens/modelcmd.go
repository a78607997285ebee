package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chronolens/internal/codec"
	"chronolens/internal/errors"
	"chronolens/internal/model"
	"chronolens/internal/repository"
)

var (
	modelID       string
	modelRevision string
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Print the model of a source node",
	Long: `Print the model of a source file, type, function or variable at a revision.

Ids join the file path and the nested names with ':' before types and '#'
before functions and variables.

Examples:
  chronolens model --id src/Main.java
  chronolens model --id 'src/Main.java:Main#run()' --rev 3f2c9e1d...
  chronolens model --id internal/app.go:Server --format yaml`,
	Args: cobra.NoArgs,
	RunE: runModel,
}

func init() {
	modelCmd.Flags().StringVar(&modelID, "id", "", "Node id")
	modelCmd.Flags().StringVar(&modelRevision, "rev", "", "Revision id (default: head)")
	_ = modelCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(modelCmd)
}

// nodeResponse prints a node in the store's tagged JSON form.
type nodeResponse struct {
	node model.SourceNode
}

func (r *nodeResponse) MarshalJSON() ([]byte, error) {
	return codec.MarshalNode(r.node)
}

func (r *nodeResponse) MarshalYAML() (interface{}, error) {
	return codec.NodeView(r.node)
}

func (r *nodeResponse) formatHuman(b *strings.Builder) {
	printNode(b, r.node, "")
}

func printNode(b *strings.Builder, node model.SourceNode, indent string) {
	modifiers := func(set model.Set) string {
		if len(set) == 0 {
			return ""
		}
		return " [" + strings.Join(set, " ") + "]"
	}
	block := func(lines []string) {
		for _, line := range lines {
			fmt.Fprintf(b, "%s    | %s\n", indent, line)
		}
	}

	switch n := node.(type) {
	case *model.SourceFile:
		fmt.Fprintf(b, "%sfile %s\n", indent, n.Path)
	case *model.Type:
		supertypes := ""
		if len(n.Supertypes) > 0 {
			supertypes = " : " + strings.Join(n.Supertypes, ", ")
		}
		fmt.Fprintf(b, "%stype %s%s%s\n", indent, n.Name(), modifiers(n.Modifiers), supertypes)
	case *model.Function:
		params := ""
		if len(n.Parameters) > 0 {
			params = " (" + strings.Join(n.Parameters, ", ") + ")"
		}
		fmt.Fprintf(b, "%sfunction %s%s%s\n", indent, n.Signature(), modifiers(n.Modifiers), params)
		block(n.Body)
	case *model.Variable:
		fmt.Fprintf(b, "%svariable %s%s\n", indent, n.Name(), modifiers(n.Modifiers))
		block(n.Initializer)
	default:
		panic(fmt.Sprintf("unknown node %T", node))
	}
	for _, child := range model.Children(node) {
		printNode(b, child, indent+"  ")
	}
}

func runModel(cmd *cobra.Command, args []string) error {
	if !model.IsValidID(modelID) {
		return errors.Newf(errors.InvalidArgument, "Invalid id '%s'", modelID)
	}
	if err := repository.CheckRevision(modelRevision); err != nil {
		return err
	}
	return withApp(cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
		repo, closer, err := a.repository(ctx)
		if err != nil {
			return err
		}
		defer closer.Close()

		path := model.SourcePath(modelID)
		source, err := repo.GetSource(ctx, path, modelRevision)
		if err != nil {
			return err
		}
		if source == nil {
			return errors.Newf(errors.NotFound, "File '%s' couldn't be interpreted or doesn't exist", path)
		}
		node, ok := model.Find(source, modelID)
		if !ok {
			return errors.Newf(errors.NotFound, "Node '%s' doesn't exist", modelID)
		}
		return printResponse(cmd.OutOrStdout(), &nodeResponse{node: node})
	})
}
