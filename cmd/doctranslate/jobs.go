package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/doctranslate/internal/artifact"
	"github.com/dharsanguruparan/doctranslate/internal/bootstrap"
	"github.com/dharsanguruparan/doctranslate/internal/config"
	"github.com/dharsanguruparan/doctranslate/internal/extract"
	"github.com/dharsanguruparan/doctranslate/internal/logging"
	"github.com/dharsanguruparan/doctranslate/internal/model"
	"github.com/dharsanguruparan/doctranslate/internal/processing"
	"github.com/dharsanguruparan/doctranslate/internal/worker"
)

func newTranslateCmd() *cobra.Command {
	var lang, outDir string
	cmd := &cobra.Command{
		Use:   "translate <file>",
		Short: "Translate one document or archive without queueing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if lang == "" {
				lang = cfg.DefaultLanguage
			}
			path := args[0]
			job := model.Job{OriginalName: filepath.Base(path), TargetLanguage: lang}
			if job.Kind() == model.KindSingleFile && !extract.Supported(path) {
				return fmt.Errorf("%s: %w", path, extract.ErrUnsupportedFormat)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			outputs, err := artifact.NewDir(outDir)
			if err != nil {
				return err
			}
			tr, err := bootstrap.NewTranslator(cfg.Translator)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, os.Stderr)
			var proc worker.Processor
			if job.Kind() == model.KindArchive {
				proc = processing.NewArchive(tr, outputs, logger).SetMaxEntryBytes(cfg.MaxEntryBytes)
			} else {
				proc = processing.NewSingleFile(tr, outputs, logger)
			}
			out, err := proc.Process(cmd.Context(), data, job.OriginalName, lang)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", out, humanize.Bytes(uint64(len(data))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Target language code (default from DOCTRANSLATE_DEFAULT_LANGUAGE)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the translated output")
	return cmd
}

func newEnqueueCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "enqueue <file>",
		Short: "Store a document and queue it for the workers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.QueueBackend != config.BackendRedis {
				return fmt.Errorf("enqueue requires DOCTRANSLATE_QUEUE=redis (got %q)", cfg.QueueBackend)
			}
			if lang == "" {
				lang = cfg.DefaultLanguage
			}
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withApp(ctx, cfg, func(app *bootstrap.App) error {
				id := uuid.NewString()
				name := filepath.Base(path)
				loc, err := app.Inputs.Put(ctx, id+"-"+name, f, info.Size())
				if err != nil {
					return err
				}
				if err := app.Statuses.Set(ctx, id, model.Processing()); err != nil {
					return err
				}
				q, _ := app.Queue()
				job := model.Job{ID: id, InputPath: loc, TargetLanguage: lang, OriginalName: name}
				if err := q.Enqueue(ctx, job); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Target language code (default from DOCTRANSLATE_DEFAULT_LANGUAGE)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Print the status of a job from the shared status store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StatusBackend == config.BackendMemory {
				return fmt.Errorf("status requires a shared status store (DOCTRANSLATE_STATUS_STORE=redis|postgres)")
			}
			ctx := cmd.Context()
			return withApp(ctx, cfg, func(app *bootstrap.App) error {
				st, err := app.Statuses.Get(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"fileId": args[0], "status": st})
			})
		},
	}
}
