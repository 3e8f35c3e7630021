// Command contact submits the contact form from a terminal. The challenge
// token has to be obtained beforehand, e.g. one of Turnstile's test tokens
// against a test site key.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/contactform/backend/internal/config"
	"github.com/contactform/backend/internal/contact"
	"github.com/contactform/backend/internal/form"
	"github.com/contactform/backend/internal/logging"
)

func main() {
	config.LoadDotEnv()
	logging.Setup()

	app := &cli.App{
		Name:  "contact",
		Usage: "send a message through the contact API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Usage: "contact API base URL", Value: "http://localhost:8080", EnvVars: []string{"CONTACT_API_URL"}},
			&cli.StringFlag{Name: "name", Usage: "your name (optional)"},
			&cli.StringFlag{Name: "email", Usage: "reply address", Required: true},
			&cli.StringFlag{Name: "subject", Usage: "message subject", Required: true},
			&cli.StringFlag{Name: "message", Usage: "message body, or - to read stdin", Required: true},
			&cli.StringFlag{Name: "token", Usage: "challenge token", EnvVars: []string{"CONTACT_CHALLENGE_TOKEN"}},
			&cli.DurationFlag{Name: "timeout", Usage: "overall deadline", Value: 30 * time.Second},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()

	body := c.String("message")
	if body == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		body = string(raw)
	}

	controller := form.NewController(form.NewAPIClient(c.String("api")))
	controller.SetFields(form.Fields{
		Name:    c.String("name"),
		Email:   c.String("email"),
		Subject: c.String("subject"),
		Message: body,
	})

	mount := form.MountWidget(ctx, &form.StaticWidget{Token: c.String("token")}, controller.Callbacks(), form.PollOptions{
		MaxAttempts: 1,
		Delay:       form.DefaultPollOptions.Delay,
	})
	defer mount.Close()
	<-mount.Done()
	controller.AttachWidget(mount)

	err := controller.Submit(ctx)
	if errors.Is(err, form.ErrInvalid) {
		printFieldErrors(c.App.ErrWriter, controller.Errors())
		return cli.Exit("", 2)
	}
	if err != nil {
		return cli.Exit(controller.StatusMessage(), 1)
	}

	fmt.Fprintln(c.App.Writer, controller.StatusMessage())
	return nil
}

func printFieldErrors(w io.Writer, errs contact.Errors) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "%s: %s\n", f, errs[contact.Field(f)])
	}
}
