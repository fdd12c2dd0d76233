package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/shankar379/medivoice/internal/console"
	"github.com/shankar379/medivoice/internal/httpapi"
	"github.com/shankar379/medivoice/internal/reminder"
	"github.com/shankar379/medivoice/internal/report"
	"github.com/shankar379/medivoice/internal/ui"
	"github.com/shankar379/medivoice/internal/voice"
)

type loader func() (*app, error)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func colored() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func serveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and, if enabled, the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(a)
		},
	}
}

func runServer(a *app) error {
	ctx, stop := signalContext()
	defer stop()

	gateway := a.newGateway()
	defer gateway.Stop()

	h := httpapi.NewHandler(a.svc, a.announcer, gateway, a.loc, a.logger.Named("http"))
	e := httpapi.NewServer(h)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(a.logger.Named("http")))

	errCh := make(chan error, 2)

	if a.cfg.Scheduler.Enabled {
		sched, closeNotifiers, err := a.newScheduler(gateway)
		if err != nil {
			return err
		}
		defer closeNotifiers()
		go func() {
			if err := sched.Run(ctx); err != nil {
				errCh <- fmt.Errorf("scheduler: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", zap.String("addr", a.cfg.HTTP.Addr))
		if err := e.Start(a.cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case runErr = <-errCh:
		a.logger.Error("component failed", zap.Error(runErr))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown failed", zap.Error(err))
	}
	return runErr
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID))
			return nil
		},
	})
}

func schedulerCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the reminder scheduler in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			gateway := a.newGateway()
			sched, closeNotifiers, err := a.newScheduler(gateway)
			if err != nil {
				return err
			}
			defer closeNotifiers()

			return sched.Run(ctx)
		},
	}
}

func todayCmd(load loader) *cobra.Command {
	var patientID string
	var plain bool

	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show a patient's pending reminders for today",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			reminders, err := a.svc.TodayReminders(ctx, patientID)
			if err != nil {
				return err
			}

			assignments := make(map[string]reminder.Assignment)
			list, err := a.svc.ListAssignments(ctx, patientID)
			if err != nil {
				return err
			}
			for _, as := range list {
				assignments[as.ID] = as
			}

			md := ui.TodayMarkdown(patientID, reminder.DateOf(a.svc.Now()), reminders, assignments, a.loc)
			if plain || !colored() {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMarkdown(md, 100))
			return nil
		},
	}
	cmd.Flags().StringVarP(&patientID, "patient", "p", "", "Patient id")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print raw markdown")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func consoleCmd(load loader) *cobra.Command {
	var patientID string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Open the interactive reminder console for a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			c := console.New(a.svc, a.announcer, a.newGateway(), console.Options{
				PatientID: patientID,
				Colored:   colored(),
				Location:  a.loc,
				Out:       cmd.OutOrStdout(),
			}, a.logger.Named("console"))
			return c.Start(ctx)
		},
	}
	cmd.Flags().StringVarP(&patientID, "patient", "p", "", "Patient id")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func exportCmd(load loader) *cobra.Command {
	var patientID, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a patient's reminders and adherence summary to an xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			assignments, err := a.svc.ListAssignments(ctx, patientID)
			if err != nil {
				return err
			}
			reminders, err := a.svc.ListReminders(ctx, patientID)
			if err != nil {
				return err
			}

			data, err := report.Workbook(assignments, reminders, a.svc.Now(), a.loc)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("reminders-%s.xlsx", patientID)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}

			s := report.Summarize(patientID, reminders, a.svc.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d reminders, adherence %.1f%%)\n", out, len(reminders), s.Adherence)
			return nil
		},
	}
	cmd.Flags().StringVarP(&patientID, "patient", "p", "", "Patient id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default reminders-<patient>.xlsx)")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func voiceTestCmd(load loader) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "voice-test",
		Short: "Speak the test phrase for a language",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !voice.Supported(lang) {
				return fmt.Errorf("unsupported language %q (available: %s)", lang, strings.Join(voice.Languages(), ", "))
			}
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			settings := voice.DefaultSettings()
			settings.Language = lang
			text := voice.TestMessage(lang)
			fmt.Fprintln(cmd.OutOrStdout(), text)

			spinner := ui.NewSpinner(cmd.OutOrStdout(), colored())
			spinner.Start("Speaking...")

			done := make(chan error, 1)
			gateway := a.newGateway()
			gateway.Speak(text, settings, func(err error) { done <- err })

			ctx, stop := signalContext()
			defer stop()
			select {
			case err := <-done:
				if err != nil {
					spinner.StopWithError(err.Error())
					return err
				}
				spinner.StopWithMessage("Done")
				return nil
			case <-ctx.Done():
				gateway.Stop()
				spinner.Stop()
				return ctx.Err()
			}
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", voice.DefaultLanguage, "Language code")
	return cmd
}

func languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported voice languages",
		Run: func(cmd *cobra.Command, args []string) {
			for _, l := range voice.Languages() {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
		},
	}
}
