package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/berlinzms"
	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/termin-watch/internal/app"
)

var resourceName string

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Gère les services surveillés (pris en compte au prochain démarrage du serveur)",
}

var resourcesAddCmd = &cobra.Command{
	Use:   "add <service-url>",
	Short: "Ajoute un service, ex: https://service.berlin.de/dienstleistung/120686/",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withResources(cmd, func(ctx context.Context, svc *app.ResourceService) error {
			res, err := svc.Add(ctx, args[0], resourceName)
			if errors.Is(err, app.ErrConflict) {
				return fmt.Errorf("service %s is already watched", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", res.ID, res.Name)
			return nil
		})
	},
}

var resourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Liste les services surveillés",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withResources(cmd, func(ctx context.Context, svc *app.ResourceService) error {
			list, err := svc.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSERVICE URL")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Name, r.ServiceURL)
			}
			return tw.Flush()
		})
	},
}

var resourcesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Retire un service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withResources(cmd, func(ctx context.Context, svc *app.ResourceService) error {
			if err := svc.Remove(ctx, args[0]); errors.Is(err, app.ErrNotFound) {
				return fmt.Errorf("unknown resource %s", args[0])
			} else if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		})
	},
}

func init() {
	resourcesAddCmd.Flags().StringVar(&resourceName, "name", "", "Nom affiché (défaut: service <id>)")
	resourcesCmd.AddCommand(resourcesAddCmd, resourcesListCmd, resourcesRemoveCmd)
}

func withResources(cmd *cobra.Command, fn func(ctx context.Context, svc *app.ResourceService) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	fetcher := berlinzms.New(berlinzms.Options{BaseURL: cfg.BaseURL})
	return fn(ctx, app.NewResourceService(sqlite.NewResourcesRepository(db.SQL), fetcher.AppointmentsURL))
}
