package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ayudas-panel/api/swagger"
	"github.com/noah-isme/ayudas-panel/internal/dto"
	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/service"
	"github.com/noah-isme/ayudas-panel/pkg/config"
)

// @title Ayudas Panel API
// @version 1.0.0
// @description Operator panel for municipal social aid records.
// @BasePath /api/v1
// @schemes http

func main() {
	root := &cli.Command{
		Name:  "ayudas-panel",
		Usage: "Municipal social aid panel server and operator CLI",
		Commands: []*cli.Command{
			serveCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			recordsCommand(),
			reportCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, "")
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the panel HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "export-dir", Usage: "directory where report exports are kept"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, c.String("export-dir"))
		},
	}
}

func runServer(ctx context.Context, exportDir string) error {
	a, err := buildApp(ctx, exportDir)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	bg, cancel := context.WithCancel(ctx)
	defer cancel()
	a.webhook.Start(bg)
	if err := a.dashboard.Start(bg); err != nil {
		a.logger.Warn("initial record load failed", zap.Error(err))
	}
	if a.sectorial != nil {
		if err := a.sectorial.Start(bg); err != nil {
			a.logger.Warn("initial sectorial load failed", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           a.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", a.cfg.Env))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in against the remote API and persist the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := buildApp(ctx, "")
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.auth.Login(ctx, service.LoginRequest{
				Username: c.String("username"),
				Password: c.String("password"),
			})
			if err != nil {
				return err
			}
			if a.cfg.Store.Backend == config.StoreMemory {
				fmt.Fprintln(os.Stderr, "warning: STORE_BACKEND=memory, the session ends with this process")
			}
			printSession(*snap)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Clear the stored session",
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := buildApp(ctx, "")
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.auth.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("signed out")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the stored session",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := buildApp(ctx, "")
			if err != nil {
				return err
			}
			defer a.close()
			snap := a.auth.Snapshot(ctx)
			if c.Bool("json") {
				return printJSON(snap)
			}
			printSession(snap)
			return nil
		},
	}
}

func recordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "Inspect the aid record table",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print one page of the record table",
				Flags: listFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := requireSession(ctx, "")
					if err != nil {
						return err
					}
					defer a.close()

					records, err := loadRecords(ctx, a)
					if err != nil {
						return err
					}
					page := service.TableView(records, recordQuery(c))
					if c.Bool("json") {
						return printJSON(page)
					}
					printRecords(page.Records)
					printPagination(page.Pagination)
					return nil
				},
			},
			{
				Name:  "reconcile",
				Usage: "Compare the cached snapshot with the remote and refresh it",
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := requireSession(ctx, "")
					if err != nil {
						return err
					}
					defer a.close()

					outcome, err := a.dashboard.Reconcile(ctx)
					if err != nil {
						return err
					}
					fmt.Println(outcome)
					return nil
				},
			},
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Aid reports",
		Commands: []*cli.Command{
			{
				Name:  "summary",
				Usage: "Print report totals",
				Flags: reportFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := requireSession(ctx, "")
					if err != nil {
						return err
					}
					defer a.close()

					if _, err := loadRecords(ctx, a); err != nil {
						return err
					}
					summary, err := a.reports.Summary(ctx, reportFilter(c))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(summary)
					}
					printSummary(*summary)
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "Write the filtered records to a file",
				Flags: append(reportFlags(),
					&cli.StringFlag{Name: "format", Value: "csv", Usage: "csv, pdf or excel"},
					&cli.StringFlag{Name: "dir", Value: ".", Usage: "output directory"},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := requireSession(ctx, c.String("dir"))
					if err != nil {
						return err
					}
					defer a.close()

					if _, err := loadRecords(ctx, a); err != nil {
						return err
					}
					path, err := a.exports.Save(ctx, reportFilter(c), c.String("format"))
					if err != nil {
						return err
					}
					fmt.Println(path)
					return nil
				},
			},
		},
	}
}

func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "codigo", Usage: "code filter, e.g. 12 or AYU-012"},
		&cli.StringFlag{Name: "q", Usage: "free text search"},
		&cli.StringFlag{Name: "sort", Value: "codigo"},
		&cli.StringFlag{Name: "dir", Value: "desc"},
		&cli.IntFlag{Name: "page", Value: 1},
		&cli.IntFlag{Name: "page-size", Value: 10, Usage: "10, 25, 50 or 100"},
		&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
	}
}

func recordQuery(c *cli.Command) dto.RecordQuery {
	return dto.RecordQuery{
		Code:     c.String("codigo"),
		Search:   c.String("q"),
		SortBy:   c.String("sort"),
		SortDir:  c.String("dir"),
		Page:     int(c.Int("page")),
		PageSize: int(c.Int("page-size")),
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "desde", Usage: "start date YYYY-MM-DD"},
		&cli.StringFlag{Name: "hasta", Usage: "end date YYYY-MM-DD"},
		&cli.StringFlag{Name: "estructura"},
		&cli.StringFlag{Name: "tipo-ayuda"},
		&cli.StringFlag{Name: "estatus"},
		&cli.StringFlag{Name: "institucion"},
		&cli.StringFlag{Name: "q"},
		&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
	}
}

func reportFilter(c *cli.Command) dto.ReportFilter {
	return dto.ReportFilter{
		From:        c.String("desde"),
		To:          c.String("hasta"),
		Estructura:  c.String("estructura"),
		TipoAyuda:   c.String("tipo-ayuda"),
		Estatus:     c.String("estatus"),
		Institucion: c.String("institucion"),
		Search:      c.String("q"),
	}
}

// loadRecords fetches the records synchronously. A command exits right after
// it runs, so it must not leave a background reconciliation writing the cache.
func loadRecords(ctx context.Context, a *app) ([]models.AidRecord, error) {
	return a.dashboard.Load(ctx, true)
}

// requireSession builds the app and fails unless a stored session exists.
func requireSession(ctx context.Context, exportDir string) (*app, error) {
	a, err := buildApp(ctx, exportDir)
	if err != nil {
		return nil, err
	}
	if a.auth.State() != models.SessionAuthenticated {
		a.close()
		return nil, errors.New("not signed in, run login first")
	}
	return a, nil
}
