package main

import (
	"context"
	"fmt"

	"github.com/jobblixor/autoapply/internal/shared"
	"github.com/urfave/cli/v3"
)

func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "discover job postings",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "search for job postings via SerpAPI",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true, Usage: "job title to search for"},
					&cli.StringFlag{Name: "location", Usage: "location to search in"},
					&cli.IntFlag{Name: "limit", Value: 5, Usage: "maximum number of postings"},
					&cli.BoolFlag{Name: "json", Usage: "output as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.SearchJobs(ctx, cmd.String("title"), cmd.String("location"),
						int(cmd.Int("limit")), cmd.Bool("json"))
				},
			},
		},
	}
}

// SearchJobs queries the job discovery service and prints the results.
func (r *Runner) SearchJobs(ctx context.Context, title, location string, limit int, asJSON bool) error {
	if r.searcher == nil {
		return fmt.Errorf("%w: job search not initialized", shared.ErrServiceUnavailable)
	}

	postings, err := r.searcher.Search(ctx, title, location, limit)
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(postings, true)
	}

	if len(postings) == 0 {
		r.writePlain("No postings found\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Found %d postings", len(postings)))
	for i, posting := range postings {
		link := posting.ApplyURL
		if link == "" {
			link = "(no apply link)"
		}
		r.writePlain("%d. %s at %s\n   %s\n", i+1, posting.Title, posting.Company, link)
	}
	return nil
}
