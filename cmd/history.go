package main

import (
	"context"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synclify/internal/repositories"
)

type runView struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	SourceService  string    `json:"source_service"`
	SourcePlaylist string    `json:"source_playlist"`
	DestService    string    `json:"dest_service"`
	DestPlaylist   string    `json:"dest_playlist"`
	Missing        int       `json:"missing"`
	Resolved       int       `json:"resolved"`
	Unresolved     int       `json:"unresolved"`
	Pending        int       `json:"pending"`
	Mode           string    `json:"mode"`
	ExportPath     string    `json:"export_path,omitempty"`
}

// History lists recent sync runs.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(map[string]any{"limit": cmd.Int("limit")})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, len(runs))
		for i, run := range runs {
			views[i] = runView{
				ID:             run.ID(),
				CreatedAt:      run.CreatedAt(),
				SourceService:  run.SourceService,
				SourcePlaylist: run.SourcePlaylist,
				DestService:    run.DestService,
				DestPlaylist:   run.DestPlaylist,
				Missing:        run.Missing,
				Resolved:       run.Resolved,
				Unresolved:     run.Unresolved,
				Pending:        run.Pending,
				Mode:           run.Mode,
				ExportPath:     run.ExportPath,
			}
		}
		return r.writeJSON(views, true)
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			run.CreatedAt().Local().Format(time.DateTime),
			run.SourceService + ":" + run.SourcePlaylist,
			run.DestService + ":" + run.DestPlaylist,
			strconv.Itoa(run.Missing),
			strconv.Itoa(run.Resolved),
			strconv.Itoa(run.Pending),
			run.Mode,
		}
	}
	headers := []string{"When", "Source", "Destination", "Missing", "Resolved", "Pending", "Mode"}
	return r.prompt.PresentTable("Sync history", headers, rows)
}
