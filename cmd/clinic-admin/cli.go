package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/internal/domain/records"
	"github.com/clinicadmin/clinicadmin/internal/platform/export"
	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

type exportFlags struct {
	format string
	out    string
	lang   string
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "tsv", "output format: tsv or xlsx")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file (default <name>-<date>.<format>)")
	cmd.Flags().StringVar(&f.lang, "lang", "", "header language (default DEFAULT_LANGUAGE)")
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export record tables to TSV or XLSX files",
	}

	var pf exportFlags
	var query string
	patientsCmd := &cobra.Command{
		Use:   "patients",
		Short: "Export the patient table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, pf, "patients", func(ctx context.Context, svc *records.Service) (records.Table, error) {
				return svc.PatientTable(ctx, query, pf.lang)
			})
		},
	}
	pf.register(patientsCmd)
	patientsCmd.Flags().StringVarP(&query, "query", "q", "", "only patients matching this search")

	var ef exportFlags
	var q records.EventQuery
	eventsCmd := &cobra.Command{
		Use:   "events <form-id>",
		Short: "Export the events recorded with one event form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.FormID = args[0]
			return runExport(cmd, ef, "events-"+q.FormID, func(ctx context.Context, svc *records.Service) (records.Table, error) {
				return svc.EventTable(ctx, q, ef.lang)
			})
		},
	}
	ef.register(eventsCmd)
	eventsCmd.Flags().StringVar(&q.StartDate, "start-date", "", "first day to include (YYYY-MM-DD)")
	eventsCmd.Flags().StringVar(&q.EndDate, "end-date", "", "last day to include (YYYY-MM-DD)")
	eventsCmd.Flags().StringVar(&q.ClinicID, "clinic", "", "only events from this clinic")

	cmd.AddCommand(patientsCmd, eventsCmd)
	return cmd
}

func runExport(cmd *cobra.Command, f exportFlags, base string, build func(context.Context, *records.Service) (records.Table, error)) error {
	if f.format != "tsv" && f.format != "xlsx" {
		return fmt.Errorf("--format must be tsv or xlsx, got %q", f.format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.ExportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ExportTimeout)
		defer cancel()
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	_, svc := newServices(cfg, be.source, logger)
	t, err := build(ctx, svc)
	if err != nil {
		return err
	}

	out := f.out
	if out == "" {
		out = export.Filename(base+"-"+time.Now().Format("2006-01-02"), "."+f.format)
	}
	if err := writeTable(out, f.format, base, t.Export(), cfg.ExportDelimiter); err != nil {
		return err
	}

	logger.Info().
		Str("file", out).
		Int("rows", len(t.Rows)).
		Int("columns", len(t.ColumnIDs)).
		Msg("export written")
	return nil
}

func writeTable(path, format, sheet string, t export.Table, delim string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()

	if format == "xlsx" {
		return export.WriteXLSX(fh, sheet, t)
	}
	return export.WriteDelimited(fh, t, delim)
}

func formCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Work with form definitions",
	}

	var kind string
	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a form definition file the way saving would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read form: %w", err)
			}
			return validateForm(cmd.OutOrStdout(), data, formschema.FormKind(kind))
		},
	}
	validateCmd.Flags().StringVar(&kind, "kind", string(formschema.KindRegistration), "form kind: registration or event")

	cmd.AddCommand(validateCmd)
	return cmd
}

var errFormInvalid = errors.New("form has blocking issues")

// validateForm prints every issue found in the form document and fails when
// any issue would block a save.
func validateForm(w io.Writer, data []byte, kind formschema.FormKind) error {
	if kind != formschema.KindRegistration && kind != formschema.KindEvent {
		return fmt.Errorf("--kind must be %q or %q", formschema.KindRegistration, formschema.KindEvent)
	}
	obj, err := ordered.DecodeObject(data)
	if err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	form, err := formschema.DecodeForm(obj, kind)
	if err != nil {
		return err
	}

	err = formschema.NewValidator().Validate(form)
	if err == nil {
		fmt.Fprintf(w, "%s form %q is valid (%d fields)\n", kind, form.Name, len(form.Fields))
		return nil
	}
	var verr *formschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	for _, is := range verr.Issues {
		marker := "warning"
		if is.Option {
			marker = "error"
		}
		fmt.Fprintf(w, "%s\t%s: %s\n", marker, is.Path, is.Message)
	}
	if verr.HasOptionIssues() {
		return errFormInvalid
	}
	fmt.Fprintf(w, "%d issue(s); saving requires force\n", len(verr.Issues))
	return nil
}
