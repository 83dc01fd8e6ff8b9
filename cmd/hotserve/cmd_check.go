package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/hotserve/config"
	"github.com/shashiranjanraj/hotserve/internal/kernel"
)

// hotserve check
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := config.Load(configFiles...)
		if err != nil {
			return err
		}
		if _, err := kernel.New(snap, kernel.Deps{}); err != nil {
			return err
		}

		grpcAddr := snap.Server.GRPCAddr
		if grpcAddr == "" {
			grpcAddr = "disabled"
		}
		db := snap.Database.Driver
		if db == "" {
			db = "none"
		}
		rdb := snap.Redis.Addr
		if rdb == "" {
			rdb = "none"
		}
		gql := "disabled"
		if snap.GraphQL.Enabled {
			fields := make([]string, 0, len(snap.GraphQL.Fields))
			for name := range snap.GraphQL.Fields {
				fields = append(fields, name)
			}
			sort.Strings(fields)
			gql = fmt.Sprintf("%s (%s)", snap.GraphQL.Path, strings.Join(fields, ", "))
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "app\t%s (%s)\n", snap.App.Name, snap.App.Env)
		fmt.Fprintf(w, "http\t%s\n", snap.Server.HTTPAddr)
		fmt.Fprintf(w, "grpc\t%s\n", grpcAddr)
		fmt.Fprintf(w, "routes\t%d\n", len(snap.Routes))
		fmt.Fprintf(w, "graphql\t%s\n", gql)
		fmt.Fprintf(w, "database\t%s\n", db)
		fmt.Fprintf(w, "redis\t%s\n", rdb)
		fmt.Fprintf(w, "debounce\t%s\n", snap.Watch.Debounce)
		fmt.Fprintf(w, "files\t%s\n", strings.Join(snap.Files(), ", "))
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
		return nil
	},
}
