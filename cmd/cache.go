package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synclify/internal/matching"
	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/repositories"
	"github.com/desertthunder/synclify/internal/shared"
)

// withStore opens the configured resolution store for the duration of fn.
func (r *Runner) withStore(fn func(store repositories.Store) error) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("%w: the memory cache backend keeps nothing between runs", shared.ErrInvalidArgument)
	}
	defer store.Close()
	return fn(store)
}

// serviceFilter validates an optional --service value.
func (r *Runner) serviceFilter(cmd *cli.Command) (string, error) {
	name := cmd.String("service")
	if name == "" {
		return "", nil
	}
	service, err := models.ParseService(name)
	if err != nil {
		return "", fmt.Errorf("%w: --service: %v", shared.ErrInvalidArgument, err)
	}
	return service.String(), nil
}

// CacheGet prints the cached identifier for a track.
func (r *Runner) CacheGet(ctx context.Context, cmd *cli.Command) error {
	service, err := r.serviceFlag(cmd, "service")
	if err != nil {
		return err
	}
	key := matching.CacheKey(service, cmd.String("title"), cmd.StringSlice("artist"))

	return r.withStore(func(store repositories.Store) error {
		id, err := store.Lookup(key)
		if repositories.IsNotFound(err) {
			return r.writePlain("%s no cached resolution for %q\n", r.palette.Warn("!"), key)
		}
		if err != nil {
			return err
		}
		return r.writePlain("%s\t%s\n", key, id)
	})
}

type resolutionView struct {
	Key        string    `json:"key"`
	Service    string    `json:"service"`
	Identifier string    `json:"identifier"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CacheList prints cached resolutions.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	service, err := r.serviceFilter(cmd)
	if err != nil {
		return err
	}

	return r.withStore(func(store repositories.Store) error {
		entries, err := store.Entries(service)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			views := make([]resolutionView, len(entries))
			for i, e := range entries {
				views[i] = resolutionView{Key: e.Key, Service: e.Service, Identifier: e.Identifier, UpdatedAt: e.UpdatedAt()}
			}
			return r.writeJSON(views, true)
		}

		rows := make([][]string, len(entries))
		for i, e := range entries {
			rows[i] = []string{e.Key, e.Identifier, e.UpdatedAt().Format(time.DateTime)}
		}
		return r.prompt.PresentTable(fmt.Sprintf("%d cached resolutions", len(entries)), []string{"Key", "Identifier", "Updated"}, rows)
	})
}

// CacheDelete removes one resolution by its key.
func (r *Runner) CacheDelete(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: cache key", shared.ErrMissingArgument)
	}

	return r.withStore(func(store repositories.Store) error {
		if err := store.Remove(key); err != nil {
			return err
		}
		r.logger.Info("resolution deleted", "key", key)
		return r.writePlain("%s Deleted %s\n", r.palette.OK("✓"), key)
	})
}

// CacheClear removes every resolution, or those of one service.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	service, err := r.serviceFilter(cmd)
	if err != nil {
		return err
	}

	return r.withStore(func(store repositories.Store) error {
		n, err := store.Clear(service)
		if err != nil {
			return err
		}
		r.logger.Info("resolution cache cleared", "service", service, "deleted", n)
		return r.writePlain("%s Deleted %d cached resolutions\n", r.palette.OK("✓"), n)
	})
}

// CacheStats prints the number of resolutions per service.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	return r.withStore(func(store repositories.Store) error {
		counts, err := store.Count()
		if err != nil {
			return err
		}

		services := make([]string, 0, len(counts))
		for s := range counts {
			services = append(services, s)
		}
		sort.Strings(services)

		rows := make([][]string, 0, len(services))
		for _, s := range services {
			rows = append(rows, []string{s, strconv.Itoa(counts[s])})
		}
		title := fmt.Sprintf("Resolution cache (%s)", r.config.Cache.Backend)
		return r.prompt.PresentTable(title, []string{"Service", "Entries"}, rows)
	})
}
