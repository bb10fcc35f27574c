package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/gradesheet/internal/models"
	"github.com/noah-isme/gradesheet/internal/service"
	"github.com/noah-isme/gradesheet/pkg/config"
	"github.com/noah-isme/gradesheet/pkg/importer"
	"github.com/noah-isme/gradesheet/pkg/logger"
)

type computeOptions struct {
	exportPath string
	verbose    bool
}

func newComputeCommand() *cobra.Command {
	opts := &computeOptions{}
	cmd := &cobra.Command{
		Use:   "compute <grades.csv|grades.xlsx>",
		Short: "Validate the grades in a file and print the statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.exportPath, "export", "e", "", "also write the sheet to a .csv, .pdf or .xlsx file")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	return cmd
}

func runCompute(cmd *cobra.Command, input string, opts *computeOptions) error {
	logr := logger.NewCLI(opts.verbose)
	defer logr.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	catalog := models.NewSubjectCatalog(cfg.Sheets.Subjects, cfg.Sheets.DefaultSubject)

	records, err := importer.ReadFile(input)
	if err != nil {
		return err
	}
	logr.Debug("records loaded", zap.String("input", input), zap.Int("records", len(records)))

	rows := make([]models.SheetRow, 0, len(records))
	for _, rec := range records {
		subject := rec.Subject
		if !catalog.Contains(subject) {
			fmt.Fprintf(cmd.ErrOrStderr(), "line %d: unknown subject %q, using %s\n", rec.Line, subject, catalog.Default)
			subject = catalog.Default
		}
		rows = append(rows, models.SheetRow{ID: uuid.NewString(), Subject: subject, GradeText: rec.Grade})
	}

	surface := newTerminalSurface(cmd.ErrOrStderr())
	manager := service.RestoreRowManager(surface, service.RowManagerOptions{Catalog: catalog}, rows)
	ws := service.NewWorkspace(manager, service.NewStatisticsEngine(), surface)
	ws.Init()
	result := ws.Calculate()
	surface.report(cmd.OutOrStdout(), ws.Rows())

	if opts.exportPath == "" {
		return nil
	}
	format, err := service.ParseExportFormat(strings.TrimPrefix(filepath.Ext(opts.exportPath), "."))
	if err != nil {
		return err
	}
	file, err := service.NewExportService(nil, cfg.Export.Title, nil, logr, nil, nil, nil).Render(ws.Rows(), result, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.exportPath, file.Body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.exportPath, err)
	}
	logr.Info("export written", zap.String("path", opts.exportPath), zap.Int("bytes", len(file.Body)))
	return nil
}
