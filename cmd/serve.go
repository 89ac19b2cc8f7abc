package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jobblixor/autoapply/internal/repositories"
	"github.com/jobblixor/autoapply/internal/server"
	"github.com/jobblixor/autoapply/internal/storage"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the auto-apply HTTP service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "host to bind, defaults to the config value"},
			&cli.IntFlag{Name: "port", Usage: "port to bind, defaults to the config value"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return r.Serve(ctx, cmd.String("host"), int(cmd.Int("port")))
		},
	}
}

// Serve runs the HTTP service exposing POST /submit.
func (r *Runner) Serve(ctx context.Context, host string, port int) error {
	if host == "" {
		host = r.config.Server.Host
	}
	if port == 0 {
		port = r.config.Server.Port
	}

	db, opened, err := r.database()
	if err != nil {
		return err
	}
	if opened {
		defer db.Close()
	}

	eng, err := r.newEngine(db)
	if err != nil {
		return err
	}

	uploads, err := storage.NewUploads(r.config.Engine.UploadDir)
	if err != nil {
		return err
	}

	handler := server.NewSubmitHandler(server.SubmitHandlerOpts{
		Profiles:    repositories.NewProfileRepository(db),
		Searcher:    r.searcher,
		Batches:     eng,
		Uploads:     uploads,
		DefaultUses: r.config.Engine.DefaultFreeUses,
		Logger:      r.logger,
	})

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	r.logger.Info("starting server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
