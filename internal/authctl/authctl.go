// Package authctl implements the operator CLI of the auth core: schema
// migration, seeding and user management against the configured store.
package authctl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/coursesms/courses/internal/common"
	"github.com/coursesms/courses/internal/flagx"
	"github.com/coursesms/courses/internal/logging"
	"github.com/coursesms/courses/internal/server"
	"github.com/coursesms/courses/internal/server/config"
	"github.com/coursesms/courses/internal/server/models"
	"github.com/coursesms/courses/internal/server/seed"
	"github.com/coursesms/courses/internal/server/services"
)

const usage = `usage: authctl <command> [flags]

commands:
  migrate       apply pending schema migrations
  seed          insert the default accounts into an empty store
  create-user   create a user, prompting for the password
  list-users    print every user as JSON

config flags (-c, -driver, -d, -s, -rs, ...) and the environment apply to
every command.`

// ErrUsage is returned for an unknown or missing command.
var ErrUsage = errors.New(usage)

// openCore is a seam for tests.
var openCore = server.OpenCore

// CLI runs one authctl command.
type CLI struct {
	in     *bufio.Reader
	out    io.Writer
	logger logging.Logger
}

func New(in io.Reader, out io.Writer, l logging.Logger) *CLI {
	return &CLI{in: bufio.NewReader(in), out: out, logger: l}
}

// Run executes args[0] with the remaining args as flags.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]

	var run func(context.Context, *server.Core, []string) error
	switch cmd {
	case "migrate":
		run = c.migrate
	case "seed":
		run = c.seed
	case "create-user":
		run = c.createUser
	case "list-users":
		run = c.listUsers
	default:
		return ErrUsage
	}

	cfg, err := config.LoadConfig(rest)
	if err != nil {
		return err
	}
	core, err := openCore(ctx, cfg, c.logger, nil)
	if err != nil {
		return err
	}
	defer core.Close()

	return run(ctx, core, rest)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// Migrations already ran when the store was opened.
func (c *CLI) migrate(ctx context.Context, _ *server.Core, _ []string) error {
	_, err := fmt.Fprintln(c.out, "migrations applied")
	return err
}

func (c *CLI) seed(ctx context.Context, core *server.Core, args []string) error {
	fs := newFlagSet("seed")
	pw := fs.String("password", os.Getenv("SEED_PASSWORD"), "password of the seeded accounts")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-password"})); err != nil {
		return err
	}

	password := *pw
	if password == "" {
		b, err := getPassword(c.out, "Seed accounts password")
		if err != nil {
			return err
		}
		password = string(b)
		common.WipeByteArray(b)
	}

	n, err := seed.Seed(ctx, core.Repos.Users(), core.Hasher, seed.DefaultAccounts(password), c.logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "seeded %d users\n", n)
	return err
}

func (c *CLI) createUser(ctx context.Context, core *server.Core, args []string) error {
	fs := newFlagSet("create-user")
	var in services.RegisterInput
	fs.StringVar(&in.FirstName, "first", "", "first name")
	fs.StringVar(&in.LastName, "last", "", "last name")
	fs.StringVar(&in.Email, "email", "", "email")
	role := fs.String("role", string(models.RoleUser), "role: admin or user")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-first", "-last", "-email", "-role"})); err != nil {
		return err
	}

	var err error
	if in.Email == "" {
		if in.Email, err = getSimpleText(c.in, "Email", c.out); err != nil {
			return err
		}
	}
	if in.FirstName == "" {
		if in.FirstName, err = getSimpleText(c.in, "First name", c.out); err != nil {
			return err
		}
	}
	if in.LastName == "" {
		if in.LastName, err = getSimpleText(c.in, "Last name", c.out); err != nil {
			return err
		}
	}

	pw, err := getPassword(c.out, "Password")
	if err != nil {
		return err
	}
	in.Password = string(pw)
	common.WipeByteArray(pw)

	u, err := core.Auth.CreateUser(ctx, in, models.Role(*role))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "created user %d (%s, %s)\n", u.ID, u.Email, u.Role)
	return err
}

func (c *CLI) listUsers(ctx context.Context, core *server.Core, _ []string) error {
	all, err := core.Auth.ListUsers(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		_, err = fmt.Fprintln(c.out, "no users")
		return err
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(all)
}
