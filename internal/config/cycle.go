package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// CycleDateLayout is the layout of CDATE.
const CycleDateLayout = "2006010215"

// Cycle is the per-invocation context read from the workflow environment.
// It is built once by LoadCycle and never modified afterwards.
type Cycle struct {
	HomeGFS         string   `env:"HOMEgfs,required,notEmpty"`
	ComOut          string   `env:"COMOUT,required,notEmpty"`
	ComInObs        string   `env:"COMIN_OBS,required,notEmpty"`
	ComInGes        string   `env:"COMIN_GES,required,notEmpty"`
	FixDir          string   `env:"SOCA_INPUT_FIX_DIR,required,notEmpty"`
	CDate           string   `env:"CDATE,required,notEmpty"`
	PDY             string   `env:"PDY,required,notEmpty"`
	Cyc             string   `env:"cyc,required,notEmpty"`
	AssimFreq       int      `env:"assim_freq,required,notEmpty"`
	Vars            []string `env:"SOCA_VARS,required,notEmpty" envSeparator:","`
	NInner          string   `env:"SOCA_NINNER,required,notEmpty"`
	DomainStackSize int      `env:"DOMAIN_STACK_SIZE,required,notEmpty"`
	CDump           string   `env:"CDUMP" envDefault:"gdas"`

	Date        time.Time
	WindowBegin time.Time
}

// LoadCycle parses the cycle context from environ. Every missing key is
// reported in a single error.
func LoadCycle(environ map[string]string) (*Cycle, error) {
	var c Cycle
	if err := env.ParseWithOptions(&c, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("invalid cycle environment: %w", err)
	}
	if err := c.derive(); err != nil {
		return nil, fmt.Errorf("invalid cycle environment: %w", err)
	}
	return &c, nil
}

func (c *Cycle) derive() error {
	var errs []error

	date, err := time.Parse(CycleDateLayout, c.CDate)
	if err != nil {
		errs = append(errs, fmt.Errorf("CDATE %q is not YYYYMMDDHH: %w", c.CDate, err))
	}
	if c.AssimFreq <= 0 {
		errs = append(errs, fmt.Errorf("assim_freq must be positive, got %d", c.AssimFreq))
	}
	if c.DomainStackSize <= 0 {
		errs = append(errs, fmt.Errorf("DOMAIN_STACK_SIZE must be positive, got %d", c.DomainStackSize))
	}
	if len(c.PDY) != 8 {
		errs = append(errs, fmt.Errorf("PDY %q is not YYYYMMDD", c.PDY))
	}
	if len(c.Cyc) != 2 {
		errs = append(errs, fmt.Errorf("cyc %q is not HH", c.Cyc))
	}
	var vars []string
	for _, v := range c.Vars {
		if v != "" {
			vars = append(vars, v)
		}
	}
	if len(vars) == 0 {
		errs = append(errs, errors.New("SOCA_VARS lists no variables"))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.Vars = vars
	c.Date = date
	c.WindowBegin = date.Add(-c.HalfWindow())
	return nil
}

// HalfWindow is half the assimilation window. Odd window lengths keep the
// fractional hour.
func (c *Cycle) HalfWindow() time.Duration {
	return time.Duration(c.AssimFreq) * time.Hour / 2
}

// WindowLength is the window as an ISO 8601 duration.
func (c *Cycle) WindowLength() string {
	return fmt.Sprintf("PT%dH", c.AssimFreq)
}

func (c *Cycle) GDASHome() string    { return filepath.Join(c.HomeGFS, "sorc", "gdas.cd") }
func (c *Cycle) AnalysisDir() string { return filepath.Join(c.ComOut, "analysis") }
func (c *Cycle) DiagsDir() string    { return filepath.Join(c.AnalysisDir(), "diags") }
func (c *Cycle) DataDir() string     { return filepath.Join(c.AnalysisDir(), "Data") }
func (c *Cycle) InputDir() string    { return filepath.Join(c.AnalysisDir(), "INPUT") }

// ObsDate is the observation date stamp used in observation file names.
func (c *Cycle) ObsDate() string { return c.CDate }

// ObsDir is the observation directory, relative to the stage directory.
func (c *Cycle) ObsDir() string { return "obs" }

// ObsPrefix is the prefix of observation file names, e.g. "gdas.t00z.".
func (c *Cycle) ObsPrefix() string { return fmt.Sprintf("%s.t%sz.", c.CDump, c.Cyc) }

// TemplateValues returns the cycle values templates may reference.
func (c *Cycle) TemplateValues() map[string]string {
	return map[string]string{
		"HOMEgfs":            c.HomeGFS,
		"GDAS_HOME":          c.GDASHome(),
		"COMOUT":             c.ComOut,
		"COMIN_OBS":          c.ComInObs,
		"COMIN_GES":          c.ComInGes,
		"SOCA_INPUT_FIX_DIR": c.FixDir,
		"CDATE":              c.CDate,
		"PDY":                c.PDY,
		"cyc":                c.Cyc,
		"CDUMP":              c.CDump,
		"assim_freq":         strconv.Itoa(c.AssimFreq),
		"SOCA_NINNER":        c.NInner,
		"DOMAIN_STACK_SIZE":  strconv.Itoa(c.DomainStackSize),
		"OBS_DATE":           c.ObsDate(),
		"OBS_DIR":            c.ObsDir(),
		"OBS_PREFIX":         c.ObsPrefix(),
		"DIAG_DIR":           c.DiagsDir(),
		"ANL_DIR":            c.AnalysisDir(),
		"WINDOW_BEGIN":       c.WindowBegin.Format("2006-01-02T15:04:05Z"),
		"WINDOW_LENGTH":      c.WindowLength(),
	}
}
