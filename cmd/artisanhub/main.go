package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artisanhub/artisanhub/config"
	"github.com/artisanhub/artisanhub/internal/app"
	"github.com/artisanhub/artisanhub/internal/webapi"
	"github.com/artisanhub/artisanhub/internal/webserver"
)

var (
	BuildVersion = "dev"
	BuildTime    = ""
)

var (
	conffile string
	trackSQL bool
)

var rootCmd = &cobra.Command{
	Use:           "artisanhub",
	Short:         "Handmade goods marketplace API server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := initApplication()
		if err != nil {
			return err
		}
		defer application.Release()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		webserver.Init(application)
		webapi.Init()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return webserver.Listen(gctx)
		})
		err = g.Wait()
		zap.S().Info("artisanhub stopped")
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and seed defaults, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := initApplication()
		if err != nil {
			return err
		}
		defer application.Release()
		return application.MigrateDB(trackSQL)
	},
}

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Drop and recreate every table (destroys data)",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := initApplication()
		if err != nil {
			return err
		}
		defer application.Release()
		application.InitDb()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("artisanhub %s (built %s, %s %s/%s)\n",
			BuildVersion, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func initApplication() (*app.Application, error) {
	cfg := config.MustLoadConfig(conffile)
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		return nil, err
	}
	return application, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&conffile, "config", "c", "", "config file (default artisanhub.yml or /etc/artisanhub.yml)")
	migrateCmd.Flags().BoolVar(&trackSQL, "track", false, "log migration SQL")
	rootCmd.AddCommand(serveCmd, migrateCmd, initdbCmd, versionCmd)
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
