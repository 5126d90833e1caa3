// ABOUTME: The sync command
// ABOUTME: Runs one entity or all of them concurrently via errgroup
package cli

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harperreed/hublake/models"
)

// maxConcurrentEntities bounds parallel entity syncs. The API limiter is
// shared, so concurrency overlaps normalize/write work without adding request
// throughput.
const maxConcurrentEntities = 3

// SyncCommand runs a sync for the named entity, or for every entity when the
// selector is "all".
func SyncCommand(ctx context.Context, app *App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("sync requires an entity (%v) or all", models.AllEntityTypes())
	}

	if args[0] == "all" {
		return syncAll(ctx, app)
	}

	entity, err := models.ParseEntityType(args[0])
	if err != nil {
		return err
	}
	res, err := app.Runner.Sync(ctx, entity)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func syncAll(ctx context.Context, app *App) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEntities)

	entities := models.AllEntityTypes()
	results := make([]models.RunResult, len(entities))
	for i, entity := range entities {
		i, entity := i, entity
		g.Go(func() error {
			res, err := app.Runner.Sync(ctx, entity)
			if err != nil {
				return fmt.Errorf("%s: %w", entity, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	for _, res := range results {
		printResult(res)
	}
	return nil
}

func printResult(res models.RunResult) {
	fmt.Printf("%-12s %-13s written=%-6d skipped=%-4d partitions=%-4d %s\n",
		res.Entity, res.Mode, res.Written, res.Skipped, res.Partitions,
		res.Duration.Round(time.Millisecond))
}
