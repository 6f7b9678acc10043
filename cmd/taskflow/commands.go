package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/taskflow-client/api"
	"github.com/jrsteele09/taskflow-client/internal/utils"
	"github.com/jrsteele09/taskflow-client/oauthmodel"
	"github.com/jrsteele09/taskflow-client/token"
	"github.com/jrsteele09/taskflow-client/users"
	"github.com/rs/zerolog/log"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commandOrder = []string{
	"login", "register", "logout", "logout-all", "whoami", "status",
	"projects", "tasks", "board", "stats", "sessions",
}

var commands = map[string]command{
	"login":      {"Sign in with email and password", cmdLogin},
	"register":   {"Create a developer account and sign in", cmdRegister},
	"logout":     {"Sign out of this device", cmdLogout},
	"logout-all": {"Sign out of every device", cmdLogoutAll},
	"whoami":     {"Show the signed-in user", cmdWhoami},
	"status":     {"Show local session state without contacting the server", cmdStatus},
	"projects":   {"List projects", cmdProjects},
	"tasks":      {"List tasks", cmdTasks},
	"board":      {"Show a project's task board", cmdBoard},
	"stats":      {"Show dashboard statistics (admin)", cmdStats},
	"sessions":   {"List signed-in devices", cmdSessions},
}

func flags(name string, a *app) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func table(out io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flags("login", a)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	session, err := a.svc.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", session.User.DisplayName(), session.User.Role)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := flags("register", a)
	var req oauthmodel.RegisterRequest
	fs.StringVar(&req.FullName, "name", "", "full name")
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Password, "password", "", "password (at least 8 characters)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	session, err := a.svc.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and signed in as %s\n", session.User.DisplayName())
	return nil
}

// cmdLogout restores an access token first so the server-side session can
// be ended; a fresh process only holds the refresh state.
func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if _, ok := a.svc.Store().AccessToken(); !ok {
		if err := a.svc.Rehydrate(ctx); err != nil {
			log.Debug().Err(err).Msg("Could not restore session before logout")
		}
	}
	if err := a.svc.Logout(ctx); err != nil {
		fmt.Fprintf(a.out, "Signed out locally (server reported: %v)\n", err)
		return nil
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func cmdLogoutAll(ctx context.Context, a *app, _ []string) error {
	if _, err := a.svc.RequireUser(ctx); err != nil {
		return err
	}
	if err := a.svc.LogoutAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out of every device")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	user, err := a.svc.RequireUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\nrole: %s\nid:   %s\n", user.DisplayName(), user.Email, user.Role, user.ID)
	printAccessToken(a.out, a.svc.Store())
	return nil
}

// printAccessToken describes the in-memory access token, if any.
func printAccessToken(out io.Writer, store *token.Store) {
	tok, err := store.Token()
	if err != nil {
		return
	}
	switch {
	case tok.Expiry.IsZero():
		fmt.Fprintln(out, "access token valid (expiry unknown)")
	case tok.Valid():
		fmt.Fprintf(out, "access token valid until %s\n", tok.Expiry.Local().Format(time.RFC1123))
	default:
		fmt.Fprintf(out, "access token expired at %s\n", tok.Expiry.Local().Format(time.RFC1123))
	}
}

// cmdStatus reports only what is held locally. A new process never has an
// access token in memory, so "signed in" means refresh state is stored.
func cmdStatus(_ context.Context, a *app, _ []string) error {
	store := a.svc.Store()
	_, hasRefresh := store.RefreshToken()
	sid, hasSession := store.SessionID()
	switch {
	case hasRefresh && hasSession:
		fmt.Fprintf(a.out, "Session %s stored (storage: %s)\n", sid, a.cfg.GetStorageKind())
	default:
		fmt.Fprintln(a.out, "Signed out")
		return nil
	}
	if user, ok := store.StoredUser(); ok {
		fmt.Fprintf(a.out, "Cached profile: %s (%s)\n", user.DisplayName(), user.Role)
	}
	printAccessToken(a.out, store)
	return nil
}

func cmdProjects(ctx context.Context, a *app, args []string) error {
	fs := flags("projects", a)
	status := fs.String("status", "", "filter by status (planning, active, on_hold, completed)")
	search := fs.String("search", "", "filter by name")
	page := fs.Int("page", 0, "page number")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	filter := api.ProjectFilter{Search: *search, PageOptions: api.PageOptions{Page: *page}}
	if *status != "" {
		s, err := api.ParseProjectStatus(*status)
		if err != nil {
			return err
		}
		filter.Status = s
	}
	if _, err := a.svc.RequireCapability(ctx, users.CapViewProjects); err != nil {
		return err
	}

	result, err := a.api.Projects.List(ctx, filter)
	if err != nil {
		return err
	}
	tw := table(a.out, "ID", "NAME", "STATUS")
	for _, p := range result.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printPagination(a.out, result.Pagination)
	return nil
}

func cmdTasks(ctx context.Context, a *app, args []string) error {
	fs := flags("tasks", a)
	status := fs.String("status", "", "filter by status (todo, in_progress, review, done)")
	project := fs.String("project", "", "filter by project id")
	mine := fs.Bool("mine", false, "only tasks assigned to me")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	user, err := a.svc.RequireUser(ctx)
	if err != nil {
		return err
	}
	var filter api.TaskFilter
	if *status != "" {
		if filter.Status, err = api.ParseTaskStatus(*status); err != nil {
			return err
		}
	}
	if *project != "" {
		id, err := uuid.Parse(*project)
		if err != nil {
			return fmt.Errorf("invalid project id: %w", err)
		}
		filter.ProjectID = &id
	}
	if *mine {
		id, err := uuid.Parse(user.ID)
		if err != nil {
			return fmt.Errorf("cached profile has an invalid id: %w", err)
		}
		filter.AssignedTo = &id
	}

	result, err := a.api.Tasks.List(ctx, filter)
	if err != nil {
		return err
	}
	tw := table(a.out, "ID", "TITLE", "STATUS", "PRIORITY")
	for _, t := range result.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printPagination(a.out, result.Pagination)
	return nil
}

func cmdBoard(ctx context.Context, a *app, args []string) error {
	fs := flags("board", a)
	project := fs.String("project", "", "project id (required)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := uuid.Parse(*project)
	if err != nil {
		fs.Usage()
		return errUsage
	}

	columns, err := a.api.Tasks.Board(ctx, id, nil)
	if err != nil {
		return err
	}
	for _, col := range columns {
		fmt.Fprintf(a.out, "%s (%d)\n", strings.ToUpper(string(col.Status)), len(col.Tasks))
		for _, t := range col.Tasks {
			fmt.Fprintf(a.out, "  - [%s] %s\n", t.Priority, t.Title)
		}
	}
	return nil
}

func cmdStats(ctx context.Context, a *app, _ []string) error {
	if _, err := a.svc.RequireCapability(ctx, users.CapViewStats); err != nil {
		return err
	}
	stats, err := a.api.Stats.Dashboard(ctx)
	if err != nil {
		return err
	}
	tw := table(a.out, "METRIC", "VALUE")
	fmt.Fprintf(tw, "users\t%d\n", stats.TotalUsers)
	fmt.Fprintf(tw, "projects\t%d\n", stats.TotalProjects)
	fmt.Fprintf(tw, "tasks\t%d\n", stats.TotalTasks)
	fmt.Fprintf(tw, "todo\t%d\n", stats.TasksTodo)
	fmt.Fprintf(tw, "in progress\t%d\n", stats.TasksInProgress)
	fmt.Fprintf(tw, "review\t%d\n", stats.TasksReview)
	fmt.Fprintf(tw, "done\t%d\n", stats.TasksDone)
	return tw.Flush()
}

func cmdSessions(ctx context.Context, a *app, args []string) error {
	fs := flags("sessions", a)
	all := fs.Bool("all", false, "include inactive sessions")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if _, err := a.svc.RequireUser(ctx); err != nil {
		return err
	}
	current, _ := a.svc.Store().SessionID()
	result, err := a.api.Sessions.List(ctx, api.SessionFilter{IncludeInactive: *all})
	if err != nil {
		return err
	}

	tw := table(a.out, "", "ID", "DEVICE", "OS", "ACTIVE", "LAST USED")
	for _, d := range result.Items {
		marker := ""
		if d.IsCurrent(current) {
			marker = "*"
		}
		lastUsed := "-"
		if d.LastUsedAt != nil {
			lastUsed = d.LastUsedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", marker, d.ID, deref(d.DeviceName), deref(d.DeviceOS), d.IsActive, lastUsed)
	}
	return tw.Flush()
}

func deref(s *string) string {
	return utils.ValueOr(utils.NonEmpty(utils.Value(s)), "-")
}

func printPagination(out io.Writer, p *oauthmodel.Pagination) {
	if p == nil || p.Pages <= 1 {
		return
	}
	fmt.Fprintf(out, "page %d of %d (%d total)\n", p.Page, p.Pages, p.Total)
}
