package config

import (
	"path/filepath"
	"time"
)

// Resolve returns a template path, joined to gdasHome unless already absolute.
func (t TemplatesConfig) Resolve(gdasHome, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(gdasHome, p)
}

// StageTemplate returns the staging template for the cycle.
func (c *Config) StageTemplate(cy *Cycle) string {
	return c.Templates.Resolve(cy.GDASHome(), c.Templates.Stage)
}

// GridgenTemplate returns the grid generation document.
func (c *Config) GridgenTemplate(cy *Cycle) string {
	return c.Templates.Resolve(cy.GDASHome(), c.Templates.Gridgen)
}

// ParametricStddevTemplate returns the parametric B standard deviation template.
func (c *Config) ParametricStddevTemplate(cy *Cycle) string {
	return c.Templates.Resolve(cy.GDASHome(), c.Templates.ParametricStddev)
}

// CorscalesTemplate returns the decorrelation length scale document.
func (c *Config) CorscalesTemplate(cy *Cycle) string {
	return c.Templates.Resolve(cy.GDASHome(), c.Templates.Corscales)
}

// BumpCTemplate returns the per-variable BUMP correlation template.
func (c *Config) BumpCTemplate(cy *Cycle) string {
	return c.Templates.Resolve(cy.GDASHome(), c.Templates.BumpC)
}

// SaberBlocksPath returns the SABER blocks document referenced by var.yaml.
func (c *Config) SaberBlocksPath(cy *Cycle) string {
	return c.Templates.Resolve(cy.GDASHome(), c.Templates.SaberBlocks)
}

// VariationalTemplate returns the 3DVAR-FGAT template.
func (c *Config) VariationalTemplate(cy *Cycle) string {
	return c.Templates.Resolve(cy.GDASHome(), c.Templates.Variational)
}

// InputNMLTemplate returns the MOM6 solo driver namelist.
func (c *Config) InputNMLTemplate(cy *Cycle) string {
	return c.Templates.Resolve(cy.GDASHome(), c.Templates.InputNML)
}

// RunTimeout returns the timeout for prep runs started by the server.
func (s ServerConfig) RunTimeout() time.Duration {
	if s.RunTimeoutMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(s.RunTimeoutMinutes) * time.Minute
}
