package main

import (
	"context"
	"fmt"

	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/repositories"
	"github.com/urfave/cli/v3"
)

func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "manage candidate profiles",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create a candidate profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true, Usage: "email address, used as the user ID"},
					&cli.StringFlag{Name: "first", Required: true, Usage: "first name"},
					&cli.StringFlag{Name: "last", Required: true, Usage: "last name"},
					&cli.StringFlag{Name: "phone", Usage: "phone number"},
					&cli.StringFlag{Name: "title", Usage: "desired job title"},
					&cli.StringFlag{Name: "location", Usage: "preferred location"},
					&cli.StringFlag{Name: "salary", Usage: "preferred salary"},
					&cli.StringFlag{Name: "resume", Usage: "path to the resume file"},
					&cli.StringFlag{Name: "photo", Usage: "path to the profile photo"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					profile := models.NewProfile(cmd.String("email"), cmd.String("first"), cmd.String("last"))
					profile.Phone = cmd.String("phone")
					profile.JobTitle = cmd.String("title")
					profile.Location = cmd.String("location")
					profile.Salary = cmd.String("salary")
					profile.ResumeRef = cmd.String("resume")
					profile.PhotoRef = cmd.String("photo")
					profile.FreeUsesLeft = r.config.Engine.DefaultFreeUses
					return r.CreateProfile(ctx, profile)
				},
			},
			{
				Name:  "show",
				Usage: "show a candidate profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true, Usage: "email address of the profile"},
					&cli.BoolFlag{Name: "json", Usage: "output as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.ShowProfile(ctx, cmd.String("email"), cmd.Bool("json"))
				},
			},
			{
				Name:  "topup",
				Usage: "add free application credits to a profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true, Usage: "email address of the profile"},
					&cli.IntFlag{Name: "uses", Value: 5, Usage: "number of credits to add"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.TopUpProfile(ctx, cmd.String("email"), int(cmd.Int("uses")))
				},
			},
		},
	}
}

// CreateProfile persists a new candidate profile.
func (r *Runner) CreateProfile(ctx context.Context, profile *models.Profile) error {
	db, opened, err := r.database()
	if err != nil {
		return err
	}
	if opened {
		defer db.Close()
	}

	repo := repositories.NewProfileRepository(db)
	if err := repo.Create(ctx, profile); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	r.logger.Info("profile created", "user", profile.UserID)
	r.writePlain("Created profile for %s with %d free applications\n",
		profile.UserID, profile.FreeUsesLeft)
	return nil
}

// ShowProfile prints a candidate profile.
func (r *Runner) ShowProfile(ctx context.Context, email string, asJSON bool) error {
	db, opened, err := r.database()
	if err != nil {
		return err
	}
	if opened {
		defer db.Close()
	}

	repo := repositories.NewProfileRepository(db)
	profile, err := repo.GetProfile(ctx, email)
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(profile, true)
	}

	r.writePlainHeader(profile.FullName())
	r.writePlain("Email:        %s\n", profile.UserID)
	r.writePlain("Phone:        %s\n", profile.Phone)
	r.writePlain("Job title:    %s\n", profile.JobTitle)
	r.writePlain("Location:     %s\n", profile.Location)
	r.writePlain("Salary:       %s\n", profile.Salary)
	r.writePlain("Plan:         %s (%s)\n", profile.PlanID, profile.SubscriptionStatus)
	r.writePlain("Free uses:    %d\n", profile.FreeUsesLeft)
	r.writePlain("Applications: %d\n", profile.ApplicationCount)
	return nil
}

// TopUpProfile adds free application credits to an existing profile.
func (r *Runner) TopUpProfile(ctx context.Context, email string, uses int) error {
	if uses <= 0 {
		return fmt.Errorf("credits to add must be positive, got %d", uses)
	}

	db, opened, err := r.database()
	if err != nil {
		return err
	}
	if opened {
		defer db.Close()
	}

	repo := repositories.NewProfileRepository(db)
	profile, err := repo.GetProfile(ctx, email)
	if err != nil {
		return err
	}

	free := profile.FreeUsesLeft + uses
	if err := repo.UpdateCounters(ctx, email, free, profile.ApplicationCount); err != nil {
		return fmt.Errorf("failed to top up: %w", err)
	}

	r.logger.Info("profile topped up", "user", email, "added", uses, "free_uses_left", free)
	r.writePlain("%s now has %d free applications\n", email, free)
	return nil
}
