package tools

import (
	"context"
	"fmt"

	"github.com/lexandro/fileorganizer-mcp/category"
	"github.com/lexandro/fileorganizer-mcp/config"
	"github.com/lexandro/fileorganizer-mcp/extension"
	"github.com/lexandro/fileorganizer-mcp/organizer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// CategoriesArgs defines the input parameters for the organizer_categories tool (none required).
type CategoriesArgs struct{}

// CategoryAddArgs defines the input parameters for the organizer_category_add tool.
type CategoryAddArgs struct {
	Name       string `json:"name" jsonschema:"Category name, unique ignoring case"`
	Extensions string `json:"extensions" jsonschema:"Extensions separated by spaces or commas (e.g. 'png jpg .gif')"`
}

// CategoryRemoveArgs defines the input parameters for the organizer_category_remove tool.
type CategoryRemoveArgs struct {
	Name string `json:"name" jsonschema:"Name of the category to remove"`
}

// CategoryUpdateArgs defines the input parameters for the organizer_category_update tool.
type CategoryUpdateArgs struct {
	Name   string `json:"name" jsonschema:"Name of the category to change"`
	Add    string `json:"add,omitempty" jsonschema:"Extensions to add, separated by spaces or commas"`
	Remove string `json:"remove,omitempty" jsonschema:"Extensions to remove, separated by spaces or commas"`
}

// CategoriesHandler holds the dependencies for the category tools.
type CategoriesHandler struct {
	Organizer *organizer.Organizer
	// SavePath, if set, receives the category list after every change.
	SavePath string
	Logger   *logrus.Entry
}

// HandleList processes an organizer_categories request.
func (h *CategoriesHandler) HandleList(ctx context.Context, req *mcp.CallToolRequest, args CategoriesArgs) (*mcp.CallToolResult, any, error) {
	cats := h.Organizer.Registry().List()
	h.Logger.WithField("categories", len(cats)).Info("organizer_categories")
	return textResult(FormatCategories(cats)), nil, nil
}

// HandleAdd processes an organizer_category_add request.
func (h *CategoriesHandler) HandleAdd(ctx context.Context, req *mcp.CallToolRequest, args CategoryAddArgs) (*mcp.CallToolResult, any, error) {
	if args.Name == "" {
		return errorResult("Error: name parameter is required"), nil, nil
	}

	exts := extension.ParseList(args.Extensions)
	if err := h.Organizer.AddCategory(args.Name, exts); err != nil {
		h.Logger.WithError(err).WithField("category", args.Name).Warn("organizer_category_add rejected")
		return errorResult("Cannot add category %q: %v", args.Name, err), nil, nil
	}

	h.save()
	return textResult(h.describe(args.Name, "added")), nil, nil
}

// HandleRemove processes an organizer_category_remove request.
func (h *CategoriesHandler) HandleRemove(ctx context.Context, req *mcp.CallToolRequest, args CategoryRemoveArgs) (*mcp.CallToolResult, any, error) {
	if args.Name == "" {
		return errorResult("Error: name parameter is required"), nil, nil
	}

	if err := h.Organizer.RemoveCategory(args.Name); err != nil {
		h.Logger.WithError(err).WithField("category", args.Name).Warn("organizer_category_remove rejected")
		return errorResult("Cannot remove category %q: %v", args.Name, err), nil, nil
	}

	h.save()
	return textResult(fmt.Sprintf("Category %q removed. Its files are now %s.", args.Name, category.Uncategorized)), nil, nil
}

// HandleUpdate processes an organizer_category_update request.
func (h *CategoriesHandler) HandleUpdate(ctx context.Context, req *mcp.CallToolRequest, args CategoryUpdateArgs) (*mcp.CallToolResult, any, error) {
	if args.Name == "" {
		return errorResult("Error: name parameter is required"), nil, nil
	}

	add := extension.ParseList(args.Add)
	remove := extension.ParseList(args.Remove)
	if err := h.Organizer.UpdateExtensions(args.Name, add, remove); err != nil {
		h.Logger.WithError(err).WithField("category", args.Name).Warn("organizer_category_update rejected")
		return errorResult("Cannot update category %q: %v", args.Name, err), nil, nil
	}

	h.save()
	return textResult(h.describe(args.Name, "updated")), nil, nil
}

func (h *CategoriesHandler) describe(name string, verb string) string {
	cat, ok := h.Organizer.Registry().Get(name)
	if !ok {
		return fmt.Sprintf("Category %q %s.", name, verb)
	}
	exts := make([]string, len(cat.Extensions))
	for i, ext := range cat.Extensions {
		exts[i] = extension.Display(ext)
	}
	counts := h.Organizer.Store().CategoryCounts()
	return fmt.Sprintf("Category %q %s: %v (%d files)", cat.Name, verb, exts, counts[cat.Name])
}

func (h *CategoriesHandler) save() {
	if h.SavePath == "" {
		return
	}
	if err := config.SaveCategories(h.SavePath, h.Organizer.Registry().List()); err != nil {
		h.Logger.WithError(err).WithField("path", h.SavePath).Error("failed to save categories")
	}
}
