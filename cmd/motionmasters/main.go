// Package main is the Motion Masters command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/motionmasters/internal/app"
	"github.com/ayusman/motionmasters/internal/config"
	"github.com/ayusman/motionmasters/internal/render"
	"github.com/ayusman/motionmasters/internal/server"
	"github.com/ayusman/motionmasters/internal/store"
	"github.com/ayusman/motionmasters/internal/tray"
)

const (
	// Flags.
	flagConfig = "config"
	flagCamera = "camera"
	flagAddr   = "addr"
	flagWindow = "window"
	flagTray   = "tray"
	flagDebug  = "debug"
)

func main() {
	var logger *zap.SugaredLogger

	cliApp := &cli.App{
		Name:  "motionmasters",
		Usage: "classify body and hand gestures from a webcam",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   config.DefaultPath(),
				Usage:   "load configuration from `FILE`",
			},
			&cli.IntFlag{
				Name:  flagCamera,
				Usage: "camera device `ID`",
			},
			&cli.StringFlag{
				Name:  flagAddr,
				Usage: "serve the browser page on `ADDR`, empty to disable",
			},
			&cli.BoolFlag{
				Name:  flagWindow,
				Usage: "show the camera view in a desktop window",
			},
			&cli.BoolFlag{
				Name:  flagTray,
				Usage: "show the current gesture in the system tray",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var (
				l   *zap.Logger
				err error
			)
			if c.Bool(flagDebug) {
				l, err = zap.NewDevelopment()
			} else {
				l, err = zap.NewProduction()
			}
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			logger = l.Sugar()
			return nil
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				logger.Sync()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return run(c, logger)
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return cfg, err
	}

	if c.IsSet(flagCamera) {
		cfg.Camera.DeviceID = c.Int(flagCamera)
	}
	if c.IsSet(flagAddr) {
		cfg.Server.Addr = c.String(flagAddr)
		cfg.Server.Enabled = cfg.Server.Addr != ""
	}
	if c.IsSet(flagWindow) {
		cfg.Window.Enabled = c.Bool(flagWindow)
	}
	if c.IsSet(flagTray) {
		cfg.Tray = c.Bool(flagTray)
	}
	if c.IsSet(flagDebug) {
		cfg.Debug = c.Bool(flagDebug)
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = findWebDir()
	}

	return cfg, nil
}

func run(c *cli.Context, logger *zap.SugaredLogger) (err error) {
	fmt.Println("Motion Masters - Gesture Classification Demo")

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Initialize the store
	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer func() {
		err = multierr.Append(err, st.Close())
	}()

	// Display surfaces
	hub := server.NewStatusHub(logger.Named("status"))
	preview := server.NewPreview(server.DefaultJPEGQuality)
	surfaces := render.Surfaces{preview}
	statuses := render.Statuses{hub}

	if cfg.Window.Enabled {
		window := render.NewWindowSurface(cfg.Window.Title)
		defer func() {
			err = multierr.Append(err, window.Close())
		}()
		surfaces = append(surfaces, window)
		statuses = append(statuses, window)
	}

	var tr *tray.Tray
	if cfg.Tray {
		tr = tray.New()
		statuses = append(statuses, tr)
	}

	appConfig := cfg.AppConfig()
	appConfig.Surfaces = surfaces
	appConfig.Status = statuses
	appConfig.Store = st
	appConfig.Logger = logger.Named("app")

	application := app.New(appConfig)
	defer func() {
		err = multierr.Append(err, application.Close())
	}()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return application.Run(ctx)
	})

	if cfg.Server.Enabled {
		if cfg.Server.StaticDir != "" {
			logger.Infof("Serving static files from: %s", cfg.Server.StaticDir)
		}
		srv := server.New(server.Config{
			StaticDir: cfg.Server.StaticDir,
			Settings:  application,
			Preview:   preview,
			Status:    hub,

			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         logger.Named("server"),
		})
		g.Go(func() error {
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		})
	}

	// The tray event loop owns the main goroutine until quit
	if tr != nil {
		tr.OnPause(application.SetPaused)
		tr.OnQuit(cancel)
		if cfg.Server.Enabled {
			url := browserURL(cfg.Server.Addr)
			tr.OnOpen(func() {
				if err := openBrowser(url); err != nil {
					logger.Warnf("Failed to open browser: %v", err)
				}
			})
		}
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		tr.Run()
		cancel()
	}

	return g.Wait()
}

// browserURL turns a listen address into a local URL.
func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.motionmasters/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.Dir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
