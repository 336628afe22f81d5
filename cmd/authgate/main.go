// Command authgate runs a demo host: a Gin server whose every route sits
// behind the auth gate. Paths not covered by a registered route land on a
// catch-all handler that reports the authenticated principal, so any rule
// in the configuration can be poked at with a browser or curl.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authgate/authctx"
	"github.com/kbukum/authgate/config"
	"github.com/kbukum/authgate/credential"
	"github.com/kbukum/authgate/gate"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/server"
	"github.com/kbukum/authgate/version"
)

func main() {
	configFile := flag.String("config", "", "path to the YAML config file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		os.Stdout.WriteString(version.Short() + "\n")
		return
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		logger.NewDefault().Fatal("Configuration error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log := logger.New(&cfg.Logging)
	log.Info("Starting authgate", map[string]interface{}{
		"version":     version.Short(),
		"environment": cfg.Environment,
	})

	g, err := gate.New(cfg.Gate, log)
	if err != nil {
		log.Fatal("Gate initialization failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	srv := server.New(cfg.Server, log)
	srv.Use(g)
	registerRoutes(srv.GinEngine())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g.StartSweeper(ctx)
	go reloadOnSIGHUP(ctx, cfg, g, log)

	if err := srv.Start(ctx); err != nil {
		log.Fatal("Server start failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	<-ctx.Done()
	if err := srv.Stop(context.Background()); err != nil {
		log.Error("Shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

func registerRoutes(engine *gin.Engine) {
	engine.GET("/whoami", func(c *gin.Context) {
		p, ok := authctx.From(c.Request.Context())
		if !ok {
			c.JSON(http.StatusOK, gin.H{"principal": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"principal": p.Username,
			"method":    string(p.Method),
		})
	})

	engine.NoRoute(func(c *gin.Context) {
		body := gin.H{"path": c.Request.URL.Path}
		if p, ok := authctx.From(c.Request.Context()); ok {
			body["principal"] = p.Username
		}
		c.JSON(http.StatusOK, body)
	})
}

// reloadOnSIGHUP swaps in a fresh credential snapshot when the process
// receives SIGHUP, picking up edits to the credential file without a
// restart. In-flight verifications keep the snapshot they started with.
func reloadOnSIGHUP(ctx context.Context, cfg *config.Config, g *gate.Gate, log *logger.Logger) {
	if cfg.Gate.Credentials.File == "" {
		return
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			fileEntries, err := credential.ParseFile(cfg.Gate.Credentials.File)
			if err != nil {
				log.Error("Credential reload failed", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			entries := append(append([]credential.Entry{}, cfg.Gate.Credentials.Users...), fileEntries...)
			if err := g.Store().Swap(entries); err != nil {
				log.Error("Credential reload rejected", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			log.Info("Credentials reloaded", map[string]interface{}{
				"entries": g.Store().Len(),
			})
		}
	}
}
