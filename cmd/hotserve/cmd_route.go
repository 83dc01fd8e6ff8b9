package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/hotserve/config"
	"github.com/shashiranjanraj/hotserve/internal/kernel"
)

// hotserve route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List every route the configuration serves",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := config.Load(configFiles...)
		if err != nil {
			return err
		}
		r, err := kernel.New(snap, kernel.Deps{})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range r.Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}
