// Package prep runs the preparation of one ocean analysis cycle: staging,
// background repair and generation of the analysis configuration.
package prep

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"marineprep/internal/config"
	"marineprep/internal/manifest"
	"marineprep/internal/metrics"
	"marineprep/internal/namelist"
	"marineprep/internal/ncrepair"
	"marineprep/internal/notify"
	"marineprep/internal/runlog"
	"marineprep/internal/stage"
	"marineprep/internal/templating"
)

// Preparer prepares one cycle. Recorder and Notifier are optional.
type Preparer struct {
	Config   *config.Config
	Cycle    *config.Cycle
	Log      *zap.SugaredLogger
	Editor   ncrepair.Editor
	Recorder runlog.Recorder
	Notifier notify.Notifier
}

// Summary describes what a run produced.
type Summary struct {
	Cycle        string           `json:"cycle"`
	WindowBegin  time.Time        `json:"window_begin"`
	AnalysisDir  string           `json:"analysis_dir"`
	StageDir     string           `json:"stage_dir"`
	Observations []string         `json:"observations"`
	Backgrounds  []string         `json:"backgrounds"`
	FixFiles     []string         `json:"fix_files"`
	Repair       *ncrepair.Report `json:"-"`
	ManifestPath string           `json:"manifest_path"`
	States       int              `json:"states"`
	Documents    []string         `json:"documents"`
	Links        []string         `json:"links"`
	Namelist     string           `json:"namelist"`
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// run holds the state shared between the steps of one preparation.
type run struct {
	p        *Preparer
	cy       *config.Cycle
	cfg      *config.Config
	tctx     templating.Context
	stageCfg *stage.Config
	stager   *stage.Stager
	files    []string
	summary  *Summary
}

// Run executes every step in order and stops at the first failure.
func (p *Preparer) Run(ctx context.Context) (*Summary, error) {
	started := time.Now().UTC()
	r := &run{
		p:      p,
		cy:     p.Cycle,
		cfg:    p.Config,
		tctx:   templating.NewContext(p.Cycle.TemplateValues(), nil),
		stager: &stage.Stager{Log: p.Log},
		summary: &Summary{
			Cycle:       p.Cycle.CDate,
			WindowBegin: p.Cycle.WindowBegin,
			AnalysisDir: p.Cycle.AnalysisDir(),
		},
	}

	p.Log.Infow("Preparing marine analysis",
		"cycle", p.Cycle.CDate,
		"window_begin", p.Cycle.WindowBegin.Format(manifest.DateLayout),
		"window_length", p.Cycle.WindowLength(),
		"vars", p.Cycle.Vars,
	)

	err := p.runSteps(ctx, r.steps())
	metrics.ObserveRun(err)
	p.finish(ctx, r.summary, started, err)
	if err != nil {
		return r.summary, err
	}
	p.Log.Info("All preparation steps completed successfully!")
	return r.summary, nil
}

func (p *Preparer) runSteps(ctx context.Context, steps []step) error {
	for i, s := range steps {
		stepNum := i + 1
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("canceled before step %d (%s): %w", stepNum, s.name, err)
		}

		p.Log.Infof("STEP %d: Running '%s'...", stepNum, s.name)
		start := time.Now()
		err := s.run(ctx)
		metrics.ObserveStep(s.name, time.Since(start), err)
		if err != nil {
			return fmt.Errorf("failed at step %d (%s): %w", stepNum, s.name, err)
		}
		p.Log.Infof("STEP %d: '%s' completed successfully.", stepNum, s.name)
	}
	return nil
}

// finish records the run and sends a notification on failure. Errors here
// are logged only.
func (p *Preparer) finish(ctx context.Context, s *Summary, started time.Time, runErr error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	rec := &runlog.Run{
		Cycle:       s.Cycle,
		WindowBegin: s.WindowBegin,
		Status:      runlog.StatusSucceeded,
		States:      s.States,
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
	}
	if s.Repair != nil {
		rec.RepairFailures = s.Repair.Failed
	}
	if runErr != nil {
		rec.Status = runlog.StatusFailed
		rec.Error = runErr.Error()
	}

	if p.Recorder != nil {
		if err := p.Recorder.Record(ctx, rec); err != nil {
			p.Log.Errorw("Failed to record run", "cycle", s.Cycle, "error", err)
		}
	}
	if runErr != nil && p.Notifier != nil {
		msg := fmt.Sprintf("marineprep %s failed: %v", s.Cycle, runErr)
		if err := p.Notifier.Notify(ctx, msg); err != nil {
			p.Log.Errorw("Failed to send failure notification", "cycle", s.Cycle, "error", err)
		}
	}
}

func (r *run) steps() []step {
	return []step{
		{"Create Analysis Directories", r.createDirs},
		{"Setup Observation Database", r.setupR2D2},
		{"Stage Observations", r.stageObservations},
		{"Stage Backgrounds", r.stageBackgrounds},
		{"Stage Static Files", r.stageFix},
		{"Repair Background Attributes", r.repairBackgrounds},
		{"Generate Background Manifest", r.writeManifest},
		{"Link Grid Documents", r.linkGridDocuments},
		{"Render Covariance Documents", r.renderCovariance},
		{"Render Variational Document", r.renderVariational},
		{"Link Restart", r.linkRestart},
		{"Write MOM Namelist", r.writeNamelist},
	}
}

func (r *run) createDirs(context.Context) error {
	return stage.EnsureDirs(r.cy.AnalysisDir(), r.cy.DiagsDir(), r.cy.DataDir(), r.cy.InputDir())
}

func (r *run) setupR2D2(context.Context) error {
	path := filepath.Join(r.cy.AnalysisDir(), "r2d2_config.yaml")
	local := filepath.Join(r.cy.AnalysisDir(), "r2d2_local")
	if err := stage.NewR2D2Config(local, r.cy.ComInObs).Write(path); err != nil {
		return err
	}
	r.summary.Documents = append(r.summary.Documents, path)
	return nil
}

func (r *run) stageObservations(context.Context) error {
	cfg, err := stage.LoadConfig(r.cfg.StageTemplate(r.cy), r.tctx)
	if err != nil {
		return err
	}
	r.stageCfg = cfg
	r.summary.StageDir = cfg.StageDir

	staged, err := r.stager.Observations(cfg)
	r.summary.Observations = staged
	return err
}

func (r *run) stageBackgrounds(context.Context) error {
	r.stageCfg.BackgroundDir = r.cy.ComInGes
	if r.stageCfg.BackgroundPattern == "" {
		r.stageCfg.BackgroundPattern = r.cfg.Manifest.Pattern
	}
	linked, err := r.stager.Backgrounds(r.stageCfg)
	r.summary.Backgrounds = linked
	return err
}

func (r *run) stageFix(context.Context) error {
	if r.stageCfg.FixDir == "" {
		r.stageCfg.FixDir = r.cy.FixDir
	}
	linked, err := r.stager.Fix(r.stageCfg)
	r.summary.FixFiles = linked
	return err
}

func (r *run) repairBackgrounds(ctx context.Context) error {
	files, err := manifest.Match(r.cy.ComInGes, r.cfg.Manifest.Pattern)
	if err != nil {
		return err
	}
	r.files = files

	rc := r.cfg.Repair
	repairer := &ncrepair.Repairer{Editor: r.p.Editor, Log: r.p.Log}
	report := repairer.Repair(ctx, files, ncrepair.Plan(rc.Variables, rc.Attributes, rc.Sentinel))
	r.summary.Repair = report

	if report.Failed > 0 {
		if rc.Strict {
			return fmt.Errorf("%d attribute edits failed: %w", report.Failed, report.Err())
		}
		r.p.Log.Warnw("Some attribute edits failed, continuing", "failed", report.Failed, "error", report.Err())
	}
	return nil
}

func (r *run) writeManifest(context.Context) error {
	if r.cfg.Manifest.ValidateTimes {
		if err := manifest.ValidateWindow(r.cy.WindowBegin, r.files); err != nil {
			return fmt.Errorf("background times do not match the window: %w", err)
		}
	}
	m := manifest.Build(r.cy.WindowBegin, r.cy.ComInGes, r.files)
	path := filepath.Join(r.cy.AnalysisDir(), r.cfg.Manifest.FileName)
	if err := m.Write(path); err != nil {
		return err
	}
	if len(m.States) == 0 {
		r.p.Log.Warnw("No backgrounds matched, manifest is empty", "dir", r.cy.ComInGes, "pattern", r.cfg.Manifest.Pattern)
	}
	r.summary.ManifestPath = path
	r.summary.States = len(m.States)
	return nil
}

func (r *run) linkGridDocuments(context.Context) error {
	links := []struct{ src, dst string }{
		{r.cfg.GridgenTemplate(r.cy), filepath.Join(r.stageCfg.StageDir, "gridgen.yaml")},
		{r.cfg.CorscalesTemplate(r.cy), filepath.Join(r.stageCfg.StageDir, "soca_setcorscales.yaml")},
	}
	for _, l := range links {
		if err := stage.Symlink(l.src, l.dst); err != nil {
			return err
		}
		r.summary.Links = append(r.summary.Links, l.dst)
	}
	return nil
}

func (r *run) renderCovariance(context.Context) error {
	anl := r.cy.AnalysisDir()

	stddev := filepath.Join(anl, "parametric_stddev_b.yaml")
	if err := templating.RenderFile(r.cfg.ParametricStddevTemplate(r.cy), stddev, r.tctx); err != nil {
		return err
	}
	r.summary.Documents = append(r.summary.Documents, stddev)

	for _, v := range r.cy.Vars {
		if err := stage.EnsureDirs(filepath.Join(anl, BumpDir(v))); err != nil {
			return err
		}
		out := filepath.Join(anl, BumpConfigName(v))
		ctx := r.tctx.With(map[string]string{"datadir": BumpDir(v), "CVAR": v})
		if err := templating.RenderFile(r.cfg.BumpCTemplate(r.cy), out, ctx); err != nil {
			return fmt.Errorf("variable %s: %w", v, err)
		}
		r.p.Log.Infow("Rendered BUMP correlation config", "var", v, "dim", Dimension(v), "file", out)
		r.summary.Documents = append(r.summary.Documents, out)
	}
	return nil
}

// VariationalOverlay returns the values var.yaml is rendered with on top of the cycle.
func VariationalOverlay(cfg *config.Config, cy *config.Cycle) map[string]string {
	return map[string]string{
		"OBS_DATE":          cy.PDY + cy.Cyc,
		"BKG_LIST":          cfg.Manifest.FileName,
		"COVARIANCE_MODEL":  "SABER",
		"NINNER":            cy.NInner,
		"SABER_BLOCKS_YAML": cfg.SaberBlocksPath(cy),
	}
}

func (r *run) renderVariational(context.Context) error {
	overlay := VariationalOverlay(r.cfg, r.cy)
	r.p.Log.Infow("Variational overlay", "values", overlay)

	out := filepath.Join(r.cy.AnalysisDir(), "var.yaml")
	if err := templating.RenderFile(r.cfg.VariationalTemplate(r.cy), out, r.tctx.With(overlay)); err != nil {
		return err
	}
	r.summary.Documents = append(r.summary.Documents, out)
	return nil
}

// RestartName is the MOM6 restart written at t.
func RestartName(t time.Time) string {
	return "MOM.res." + t.Format("2006-01-02-15-04-05") + ".nc"
}

func (r *run) linkRestart(context.Context) error {
	src := filepath.Join(r.stageCfg.BackgroundDir, "RESTART", RestartName(r.cy.WindowBegin))
	dst := filepath.Join(r.cy.InputDir(), "MOM.res.nc")
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		r.p.Log.Warnw("Restart at window begin not found, linking anyway", "file", src)
	}
	if err := stage.Symlink(src, dst); err != nil {
		return err
	}
	r.summary.Links = append(r.summary.Links, dst)
	return nil
}

// DateInit splits t into the ocean_solo_nml date_init fields.
func DateInit(t time.Time) namelist.Ints {
	return namelist.Ints{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()}
}

func (r *run) writeNamelist(context.Context) error {
	tmpl := filepath.Join(r.stageCfg.StageDir, "mom_input.nml.tmpl")
	out := filepath.Join(r.stageCfg.StageDir, "mom_input.nml")

	if err := stage.CopyFile(r.cfg.InputNMLTemplate(r.cy), tmpl); err != nil {
		return err
	}
	nml, err := namelist.ParseFile(tmpl)
	if err != nil {
		return err
	}
	if err := nml.Set("ocean_solo_nml", "date_init", DateInit(r.cy.WindowBegin)); err != nil {
		return err
	}
	if err := nml.Set("fms_nml", "domains_stack_size", namelist.Int(r.cy.DomainStackSize)); err != nil {
		return err
	}
	if err := stage.RemoveFile(out); err != nil {
		return err
	}
	if err := nml.WriteFile(out); err != nil {
		return err
	}
	r.summary.Namelist = out
	return nil
}
