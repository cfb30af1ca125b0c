package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/AdamBeresnev/op-field-scheduler/internal/planfile"
	"github.com/AdamBeresnev/op-field-scheduler/internal/schedule"
	"github.com/AdamBeresnev/op-field-scheduler/internal/service"
	"github.com/google/uuid"
)

func main() {
	file := flag.String("file", "tournament.hcl", "tournament definition")
	nowFlag := flag.String("now", "", "reference time (RFC3339), defaults to the current time")
	horizon := flag.Duration("horizon", schedule.DefaultHorizon, "how far a match may be pushed back before giving up")
	verbose := flag.Bool("v", false, "log every scheduling decision")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(os.Stdout, logger, *file, *nowFlag, *horizon); err != nil {
		logger.Error("plan failed", "error", err)
		os.Exit(1)
	}
}

func run(w io.Writer, logger *slog.Logger, file, nowFlag string, horizon time.Duration) error {
	now := time.Now()
	if nowFlag != "" {
		t, err := time.Parse(time.RFC3339, nowFlag)
		if err != nil {
			return fmt.Errorf("%w: %v", service.ErrInvalidTime, err)
		}
		now = t
	}

	plan, err := planfile.Load(file)
	if err != nil {
		return err
	}

	g := plan.Graph()
	scheduler := schedule.New(g, now, schedule.WithHorizon(horizon), schedule.WithLogger(logger))
	if err := service.NewBracketGeneration(g, scheduler, logger).Build(); err != nil {
		return err
	}

	return printSchedule(w, g)
}

func printSchedule(w io.Writer, g *bracket.Graph) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDIVISION\tBRACKET\tFIELD\tSTART\tEND\tTEAM 1\tTEAM 2\tREFEREE")
	for _, m := range g.MatchList() {
		side := "winners"
		if m.LosersBracket {
			side = "losers"
		}
		field := "-"
		if f := g.Field(m.FieldID); f != nil {
			field = fmt.Sprint(f.FieldNumber)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.MatchNumber,
			m.Division,
			side,
			field,
			m.Start.Format("Jan 02 15:04"),
			m.End.Format("15:04"),
			teamName(g, m.Team1ID, "TBD"),
			teamName(g, m.Team2ID, "TBD"),
			teamName(g, m.RefereeID, "-"),
		)
	}
	return tw.Flush()
}

func teamName(g *bracket.Graph, id *uuid.UUID, fallback string) string {
	if t := g.Team(id); t != nil {
		return t.Name
	}
	return fallback
}
