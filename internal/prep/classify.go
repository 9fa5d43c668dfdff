package prep

// Analysis variables by dimensionality.
var (
	Vars3D = []string{"tocn", "socn", "uocn", "vocn", "chl", "biop"}
	Vars2D = []string{"ssh", "cicen", "hicen", "hsnon", "swh", "sw", "lw", "lw_rad", "lhf", "shf", "us"}
)

// Dimension returns "2d" for surface variables and "3d" for everything else,
// names outside both lists included.
func Dimension(v string) string {
	for _, s := range Vars2D {
		if s == v {
			return "2d"
		}
	}
	return "3d"
}

// BumpDir is the BUMP working directory name of v, relative to the analysis directory.
func BumpDir(v string) string {
	return "bump" + Dimension(v) + "_" + v
}

// BumpConfigName is the file name of the BUMP correlation document of v.
func BumpConfigName(v string) string {
	return "soca_bump" + Dimension(v) + "_C_" + v + ".yaml"
}
