package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"sync"
	"time"

	"inspectsync/application"
	"inspectsync/domain/inspections"
	"inspectsync/infrastructure/session"
)

func (a *App) flags(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: inspectctl %s %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and checks the positional argument count.
func parse(fs *flag.FlagSet, args []string, minArgs int) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < minArgs {
		fs.Usage()
		return errUsage
	}
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login", "-token TOKEN [flags]")
	token := fs.String("token", "", "Access token")
	refresh := fs.String("refresh-token", "", "Refresh token, used when OAuth2 refresh is configured")
	subject := fs.String("subject", "", "Account the token belongs to")
	expiresIn := fs.Duration("expires-in", 0, "Token lifetime; 0 means it does not expire")
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	if strings.TrimSpace(*token) == "" {
		fs.Usage()
		return errUsage
	}

	sess := session.Session{
		AccessToken:  strings.TrimSpace(*token),
		RefreshToken: *refresh,
		TokenType:    "Bearer",
		Subject:      *subject,
		APIURL:       a.cfg.APIURL,
	}
	if *expiresIn > 0 {
		exp := time.Now().Add(*expiresIn).UTC()
		sess.ExpiresAt = &exp
	}
	if err := a.sessions.Save(ctx, sess); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in to %s\n", a.cfg.APIURL)
	return nil
}

func (a *App) logout(ctx context.Context, args []string) error {
	if err := parse(a.flags("logout", ""), args, 0); err != nil {
		return err
	}
	if err := a.sessions.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *App) list(ctx context.Context, args []string) error {
	if err := parse(a.flags("list", ""), args, 0); err != nil {
		return err
	}
	list, err := a.inspections.List(ctx)
	if err != nil {
		return err
	}
	printInspections(a.stdout, list)
	return nil
}

func (a *App) create(ctx context.Context, args []string) error {
	fs := a.flags("create", "[-name NAME] [-location LOC] [-address ADDR]")
	name := fs.String("name", "", "Inspection name")
	location := fs.String("location", "", "Site location")
	address := fs.String("address", "", "Site address")
	if err := parse(fs, args, 0); err != nil {
		return err
	}

	insp, err := a.inspections.Create(ctx, inspections.InspectionCreate{
		Name:         *name,
		SiteLocation: location,
		SiteAddress:  address,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Created %s (%s)\n", insp.Name, insp.ID)
	return nil
}

func (a *App) show(ctx context.Context, args []string) error {
	fs := a.flags("show", "INSPECTION_ID")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	report, err := a.inspections.LoadReport(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	printReport(a.stdout, report)
	return nil
}

func (a *App) files(ctx context.Context, args []string) error {
	fs := a.flags("files", "INSPECTION_ID")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	files, err := a.inspections.ListFiles(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	printFiles(a.stdout, files, time.Now())
	return nil
}

func (a *App) file(ctx context.Context, args []string) error {
	fs := a.flags("file", "FILE_ID")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	detail, err := a.inspections.GetFile(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	printFileDetail(a.stdout, detail)
	return nil
}

func (a *App) upload(ctx context.Context, args []string) error {
	fs := a.flags("upload", "INSPECTION_ID FILE...")
	quiet := fs.Bool("q", false, "Do not print progress")
	if err := parse(fs, args, 2); err != nil {
		return err
	}

	var progress func(sent, total int64)
	if !*quiet {
		last := -1
		progress = func(sent, total int64) {
			if pct := application.ProgressPercent(sent, total); pct != last {
				last = pct
				fmt.Fprintf(a.stderr, "\rUploading... %3d%%", pct)
			}
		}
	}

	created, err := a.uploads.UploadPaths(ctx, fs.Arg(0), fs.Args()[1:], progress)
	if !*quiet {
		fmt.Fprintln(a.stderr)
	}
	if err != nil {
		return err
	}
	printUploaded(a.stdout, created)
	return nil
}

func (a *App) watch(ctx context.Context, args []string) error {
	fs := a.flags("watch", "[-files=false] INSPECTION_ID")
	withFiles := fs.Bool("files", true, "Also follow per-file processing")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	id := fs.Arg(0)

	var (
		out         sync.Mutex
		reportDone  = make(chan struct{})
		filesDone   = make(chan struct{})
		reportOnce  sync.Once
		filesOnce   sync.Once
		lastStatus  inspections.InspectionStatus
		lastSummary string
	)

	reports, err := application.NewReportWatcher(a.inspections, id,
		application.WatcherOptions{Interval: a.cfg.Polling.ReportInterval}, a.bus, a.logger,
		func(s application.ReportState) {
			out.Lock()
			defer out.Unlock()
			switch {
			case s.Err != nil:
				fmt.Fprintf(a.stderr, "Report: %s\n", errorText(s.Err))
			case s.Report != nil && s.Report.Inspection.Status != lastStatus:
				lastStatus = s.Report.Inspection.Status
				fmt.Fprintf(a.stdout, "Report: %s, %d findings\n", lastStatus, len(s.Report.Findings))
			}
			if s.Final {
				reportOnce.Do(func() { close(reportDone) })
			}
		})
	if err != nil {
		return err
	}

	files, err := application.NewFileStatusWatcher(a.inspections, id,
		application.WatcherOptions{Interval: a.cfg.Polling.FilesInterval}, a.bus, a.logger,
		func(s application.FileListState) {
			out.Lock()
			defer out.Unlock()
			if s.Err != nil {
				fmt.Fprintf(a.stderr, "Files: %s\n", errorText(s.Err))
				return
			}
			if summary := countsSummary(s.Counts); summary != lastSummary {
				lastSummary = summary
				fmt.Fprintf(a.stdout, "Files: %s\n", summary)
			}
			if s.Final {
				filesOnce.Do(func() { close(filesDone) })
			}
		})
	if err != nil {
		return err
	}

	reports.Start()
	defer reports.Stop()
	if *withFiles {
		files.Start()
		defer files.Stop()
	} else {
		filesDone = nil
	}

	for reportDone != nil || filesDone != nil {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.stderr, "Stopped watching")
			return nil
		case <-reportDone:
			reportDone = nil
		case <-filesDone:
			filesDone = nil
		}
	}

	report := reports.State().Report
	if report != nil {
		printReport(a.stdout, report)
	}
	return nil
}

func (a *App) dashboard(ctx context.Context, args []string) error {
	if err := parse(a.flags("dashboard", ""), args, 0); err != nil {
		return err
	}
	dash, err := a.inspections.LoadDashboard(ctx)
	if err != nil {
		return err
	}
	categories, err := a.inspections.FindingsByCategory(ctx)
	if err != nil {
		return err
	}
	printDashboard(a.stdout, dash, categories)
	return nil
}

func (a *App) review(ctx context.Context, args []string) error {
	if err := parse(a.flags("review", ""), args, 0); err != nil {
		return err
	}
	queue, err := a.inspections.ReviewQueue(ctx)
	if err != nil {
		return err
	}
	printReviewQueue(a.stdout, queue)
	return nil
}
