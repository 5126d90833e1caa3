// ABOUTME: The status command
// ABOUTME: Prints recent sync runs from the local run log
package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// StatusCommand prints recent runs, newest first. An optional entity argument
// filters the history.
func StatusCommand(app *App, args []string) error {
	entity := ""
	if len(args) > 0 {
		entity = args[0]
	}

	runs, err := app.RunLog.Recent(entity, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No sync runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tENTITY\tMODE\tSTATUS\tWRITTEN\tSKIPPED\tPARTITIONS\tERROR")
	for _, r := range runs {
		errMsg := r.Error
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.StartedAt.UTC().Format(time.RFC3339), r.Entity, r.Mode, r.Status,
			r.Written, r.Skipped, r.Partitions, errMsg)
	}
	return w.Flush()
}
