package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/akshayaggarwal99/podbox"
)

var listProject string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List podbox-managed containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := podbox.List(context.Background(), socket, listProject)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATE\tIMAGE\tPROJECT\tPERSIST\tCREATED")
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
				item.Name, item.State, item.Image, item.Project, item.Persist, item.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().StringVar(&listProject, "project", "", "filter to one project label")
	RootCmd.AddCommand(listCmd)
}
