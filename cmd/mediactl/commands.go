package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tendant/media-content/pkg/mediacontent"
)

// NewSyncCommand creates the sync command
func NewSyncCommand(env *commandEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the media directory with the asset catalogue",
		Long: `Walk the media directory and run every registered files synchronizer on
each eligible image. Files that fail are listed and the command exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := env.components(cmd)
			if err != nil {
				return err
			}
			defer components.Close()

			err = components.Synchronizer.Execute(cmd.Context())
			var runErr *mediacontent.SyncRunError
			if errors.As(err, &runErr) {
				fmt.Fprintf(out(cmd), "Synchronization finished with %d failure(s):\n", len(runErr.Failures))
				for _, f := range runErr.Failures {
					fmt.Fprintf(out(cmd), "  %s [%s]: %v\n", f.Path, f.Synchronizer, f.Err)
				}
				return err
			}
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			fmt.Fprintln(out(cmd), "Synchronization finished")
			return nil
		},
	}

	return cmd
}

// NewReconcileCommand creates the reconcile command
func NewReconcileCommand(env *commandEnv) *cobra.Command {
	var contentType string
	var entityID string
	var fields []string
	var cleared []string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile asset relations for a content entity",
		Long: `Recompute the asset relations of the given content fields.

  mediactl reconcile --type cms_block --id 7 --field 'content=<img src="/media/a.jpg">'
  mediactl reconcile --type cms_block --id 7 --clear content`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := parseSnapshot(fields, cleared)
			if err != nil {
				return err
			}

			components, err := env.components(cmd)
			if err != nil {
				return err
			}
			defer components.Close()

			ct := mediacontent.ContentType(contentType)
			if err := components.Service.ProcessContent(cmd.Context(), entityID, snapshot, ct); err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}

			for _, field := range sortedFields(snapshot) {
				relations, err := components.Service.GetAssetsUsedInContent(cmd.Context(), mediacontent.ContentIdentity{
					Type:     ct,
					EntityID: entityID,
					Field:    field,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "%s: %d asset(s)\n", field, len(relations))
				for _, rel := range relations {
					fmt.Fprintf(out(cmd), "  %s\n", rel.AssetID)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contentType, "type", "", "Content type of the entity")
	cmd.Flags().StringVar(&entityID, "id", "", "Entity identifier")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Field content as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&cleared, "clear", nil, "Field whose content was cleared (repeatable)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

// NewSearchCommand creates the search command
func NewSearchCommand(env *commandEnv) *cobra.Command {
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search assets by title or keyword",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			}

			components, err := env.components(cmd)
			if err != nil {
				return err
			}
			defer components.Close()

			assets, err := components.Service.SearchAssets(cmd.Context(), mediacontent.AssetSearch{
				Query:  query,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			fmt.Fprintf(out(cmd), "Found: %d\n", len(assets))
			for i, asset := range assets {
				fmt.Fprintf(out(cmd), "%d. %s %s\n", i+1, asset.ID, asset.Path)
				if asset.Title != "" {
					fmt.Fprintf(out(cmd), "   Title: %s\n", asset.Title)
				}
				if asset.Width > 0 {
					fmt.Fprintf(out(cmd), "   Size:  %dx%d, %d bytes\n", asset.Width, asset.Height, asset.Size)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of results to skip")

	return cmd
}

// NewUsageCommand creates the usage command
func NewUsageCommand(env *commandEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage <asset-id>",
		Short: "List content fields referencing an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid asset id %q: %w", args[0], err)
			}

			components, err := env.components(cmd)
			if err != nil {
				return err
			}
			defer components.Close()

			relations, err := components.Service.GetContentUsingAsset(cmd.Context(), assetID)
			if err != nil {
				return fmt.Errorf("usage lookup failed: %w", err)
			}

			if len(relations) == 0 {
				fmt.Fprintln(out(cmd), "Asset is not used by any content")
				return nil
			}
			for _, rel := range relations {
				fmt.Fprintf(out(cmd), "%s %s %s\n", rel.Content.Type, rel.Content.EntityID, rel.Content.Field)
			}
			return nil
		},
	}

	return cmd
}

// NewRemoveCommand creates the remove command
func NewRemoveCommand(env *commandEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove an asset record by its media-relative path",
		Long: `Remove the asset record stored for a media-relative path, together with its
keywords and content relations. The media file itself is not touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimLeft(args[0], "/")

			components, err := env.components(cmd)
			if err != nil {
				return err
			}
			defer components.Close()

			if err := components.Service.DeleteAsset(cmd.Context(), path); err != nil {
				return fmt.Errorf("remove failed: %w", err)
			}
			fmt.Fprintf(out(cmd), "Removed %s\n", path)
			return nil
		},
	}

	return cmd
}

// parseSnapshot turns --field name=value and --clear name flags into a snapshot.
func parseSnapshot(fields, cleared []string) (mediacontent.ContentSnapshot, error) {
	snapshot := make(mediacontent.ContentSnapshot, len(fields)+len(cleared))
	for _, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q, expected name=value", f)
		}
		snapshot[name] = mediacontent.StringPtr(value)
	}
	for _, name := range cleared {
		if _, ok := snapshot[name]; ok {
			return nil, fmt.Errorf("field %q is both set and cleared", name)
		}
		snapshot[name] = nil
	}
	if len(snapshot) == 0 {
		return nil, errors.New("at least one --field or --clear is required")
	}
	return snapshot, nil
}

func sortedFields(snapshot mediacontent.ContentSnapshot) []string {
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
