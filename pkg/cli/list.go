package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/cli/config"
	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
	"github.com/plaza-hq/rostersync/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

var errUnknownJobTitle = goerr.New("job title not found")

func cmdList() *cli.Command {
	var repoCfg config.Repository
	var jobTitle string

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "job-title",
			Aliases:     []string{"j"},
			Usage:       "Only list users holding the job title with this label",
			Destination: &jobTitle,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Print the job titles and users stored in the repository",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			var (
				titles []*model.JobTitle
				users  []*model.User
			)
			err = repo.RunTx(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
				var err error
				if jobTitle == "" {
					if titles, err = tx.ListJobTitles(ctx); err != nil {
						return err
					}
					users, err = tx.ListUsers(ctx)
					return err
				}

				title, err := tx.FindJobTitleByLabel(ctx, jobTitle)
				if err != nil {
					return err
				}
				if title == nil {
					return goerr.Wrap(errUnknownJobTitle, "failed to list users", goerr.V("label", jobTitle))
				}
				titles = []*model.JobTitle{title}
				users, err = tx.ListUsersByJobTitle(ctx, title.ID)
				return err
			})
			if err != nil {
				return goerr.Wrap(err, "failed to read repository")
			}

			printRoster(c.Root().Writer, titles, users)
			return nil
		},
	}
}

func printRoster(w io.Writer, titles []*model.JobTitle, users []*model.User) {
	heading := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)
	warn := color.New(color.FgYellow)

	labels := make(map[model.JobTitleID]string, len(titles))

	heading.Fprintf(w, "Job titles (%d)\n", len(titles))
	for _, t := range titles {
		labels[t.ID] = t.Label
		name := ""
		if t.Name != nil {
			name = dim.Sprintf(" (%s)", *t.Name)
		}
		fmt.Fprintf(w, "  %4d  %s%s\n", t.ID, t.Label, name)
	}

	fmt.Fprintln(w)
	heading.Fprintf(w, "Users (%d)\n", len(users))
	for _, u := range users {
		external := warn.Sprint("local")
		if u.ExternalID != nil {
			external = fmt.Sprintf("%d", *u.ExternalID)
		}
		email := ""
		if u.Email != nil {
			email = *u.Email
		}
		label, ok := labels[u.JobTitleID]
		if !ok {
			label = fmt.Sprintf("#%d", u.JobTitleID)
		}
		fmt.Fprintf(w, "  %4d  %-8s  %-30s  %-32s  %s\n", u.ID, external, u.FullName, email, dim.Sprint(label))
	}
}
