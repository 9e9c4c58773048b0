package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/erazemk/stash/internal/backup"
	"github.com/erazemk/stash/internal/manager"
)

func cmdBackup(args []string) error {
	flags := newFlagSet("backup")
	courseID := flags.fs.Int64("course", 0, "")
	var out string
	flags.fs.StringVar(&out, "out", "", "")
	flags.fs.StringVar(&out, "o", "", "")
	users := flags.fs.Bool("users", false, "")

	cfg, err := flags.load(args)
	if err != nil {
		return err
	}
	if *courseID <= 0 {
		return errors.New("-course is required")
	}

	closeLog, err := setupLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	m, err := (&manager.Resolver{DB: database}).ForCourse(ctx, *courseID)
	if err != nil {
		return fmt.Errorf("course %d: %w", *courseID, err)
	}
	doc, err := backup.Export(ctx, database, m.Stash().ID, *users)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}
	if err := backup.Write(w, doc, strings.HasSuffix(out, ".zst")); err != nil {
		return err
	}

	if out == "" {
		return nil
	}
	slog.Info("stash exported", "course", *courseID, "items", len(doc.Items), "trades", len(doc.Trades), "users", *users)
	return nil
}

func cmdRestore(args []string) error {
	flags := newFlagSet("restore")
	courseID := flags.fs.Int64("course", 0, "")
	var in string
	flags.fs.StringVar(&in, "in", "", "")
	flags.fs.StringVar(&in, "i", "", "")

	cfg, err := flags.load(args)
	if err != nil {
		return err
	}
	if *courseID <= 0 || in == "" {
		return errors.New("-course and -in are required")
	}

	closeLog, err := setupLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("opening %s: %w", in, err)
	}
	defer f.Close()

	doc, err := backup.Read(f)
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	res, err := backup.Restore(context.Background(), database, *courseID, doc)
	if err != nil {
		return err
	}

	slog.Info("stash restored", "course", *courseID, "stash", res.Stash.ID, "drops", len(res.Drops))
	return nil
}
