package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/haruplan/haruplan/internal/profile"
	"github.com/haruplan/haruplan/plugin/ai"
	"github.com/haruplan/haruplan/server/middleware"
	"github.com/haruplan/haruplan/server/notify"
	apiv1 "github.com/haruplan/haruplan/server/router/api/v1"
	"github.com/haruplan/haruplan/server/service/digest"
	"github.com/haruplan/haruplan/server/service/schedule"
	"github.com/haruplan/haruplan/server/timezone"
	"github.com/haruplan/haruplan/store"
	"github.com/haruplan/haruplan/store/db"
)

const greetingBanner = `
하루플랜 haruplan - 한국어 일정 비서
`

var (
	instanceProfile *profile.Profile

	rootCmd = &cobra.Command{
		Use:   "haruplan",
		Short: "Korean natural-language scheduling assistant",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := instanceProfile.Validate(); err != nil {
				return fmt.Errorf("invalid profile: %w", err)
			}

			location, err := timezone.ParseTimezone(instanceProfile.Timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", instanceProfile.Timezone, err)
			}

			driver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				return fmt.Errorf("failed to create db driver: %w", err)
			}
			st := store.New(driver, instanceProfile)
			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			notifier := notify.NewTimerScheduler(nil, location)
			schedules := schedule.NewService(st, notifier, location)
			digests := digest.NewService(st, schedules, location)

			remote := buildRemoteParser(instanceProfile)
			api := apiv1.NewAPIV1Service(instanceProfile, st, schedules, digests, remote)

			e := echo.New()
			e.HideBanner = true
			e.Use(echomw.Recover())
			e.Use(echomw.CORS())
			e.Use(middleware.RequestLogger())
			api.Register(e)

			// Catch up recurring schedules that came due while the server
			// was down, then keep them current once a day.
			if advanced, err := schedules.RescheduleOverdueRecurring(ctx, schedule.DefaultOwnerID); err != nil {
				slog.Warn("startup reschedule sweep failed", "error", err)
			} else if advanced > 0 {
				slog.Info("startup reschedule sweep done", "advanced", advanced)
			}

			c := cron.New(cron.WithLocation(location))
			briefingSpec := fmt.Sprintf("%d %d * * *", instanceProfile.BriefingMinute, instanceProfile.BriefingHour)
			if _, err := c.AddFunc(briefingSpec, func() {
				jobCtx, jobCancel := context.WithTimeout(context.Background(), time.Minute)
				defer jobCancel()
				if _, err := schedules.RescheduleOverdueRecurring(jobCtx, schedule.DefaultOwnerID); err != nil {
					slog.Warn("daily reschedule sweep failed", "error", err)
				}
				if _, err := digests.BuildToday(jobCtx, schedule.DefaultOwnerID); err != nil {
					slog.Warn("failed to build daily briefing", "error", err)
				}
			}); err != nil {
				return fmt.Errorf("failed to schedule daily briefing: %w", err)
			}
			if _, err := c.AddFunc("@every 10m", func() {
				api.RunHousekeeping(apiv1.DefaultSessionRetention)
			}); err != nil {
				return fmt.Errorf("failed to schedule housekeeping: %w", err)
			}
			c.Start()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				addr := fmt.Sprintf("%s:%d", instanceProfile.Addr, instanceProfile.Port)
				slog.Info("server started", "addr", addr, "version", instanceProfile.Version, "driver", instanceProfile.Driver)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			})
			g.Go(func() error {
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
				select {
				case <-sig:
					slog.Info("shutting down")
				case <-gctx.Done():
				}

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				<-c.Stop().Done()
				notifier.Stop()
				if err := e.Shutdown(shutdownCtx); err != nil {
					slog.Error("failed to shut down server", "error", err)
				}
				if err := st.Close(); err != nil {
					slog.Error("failed to close store", "error", err)
				}
				cancel()
				return nil
			})

			fmt.Print(greetingBanner, "\n")
			return g.Wait()
		},
	}
)

// buildRemoteParser picks the AI escalation path: an external parse endpoint
// when configured, a direct model call when an API key is present, nil when
// AI is disabled.
func buildRemoteParser(p *profile.Profile) ai.RemoteParser {
	if !p.IsAIEnabled() {
		slog.Info("AI parsing disabled; rule-based parsing only")
		return nil
	}
	if p.ParseEndpoint != "" {
		slog.Info("using external parse endpoint", "endpoint", p.ParseEndpoint)
		return ai.NewHTTPParser(p.ParseEndpoint, nil)
	}

	cfg := ai.DefaultLLMConfig()
	cfg.APIKey = p.AIAPIKey
	cfg.BaseURL = p.AIBaseURL
	cfg.Model = p.AIModel
	llm, err := ai.NewLLMService(cfg)
	if err != nil {
		slog.Warn("failed to initialize LLM service; AI parsing disabled", "error", err)
		return nil
	}
	return ai.NewModelParser(llm)
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8081)
	viper.SetDefault("driver", "sqlite")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("haruplan")
	viper.AutomaticEnv()

	cobra.OnInitialize(func() {
		instanceProfile = &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: "0.1.0",
		}
		instanceProfile.FromEnv()
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
