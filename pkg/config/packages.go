package config

import (
	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
)

// LatestAgentPackage returns the newest agent package built for the given
// platform. Packages whose version can't be parsed are only picked if
// nothing else matches.
func LatestAgentPackage(pkgs []AgentPackage, goos, arch string) (AgentPackage, bool) {
	var best AgentPackage
	var bestVersion *goversion.Version
	found := false
	for _, pkg := range pkgs {
		if pkg.OS != goos || pkg.Arch != arch {
			continue
		}

		v, err := goversion.NewVersion(pkg.Version)
		if err != nil {
			log.WithError(err).WithField("version", pkg.Version).Debug(
				"Ignoring version of agent package")
		}

		switch {
		case !found:
		case v == nil:
			continue
		case bestVersion != nil && !v.GreaterThan(bestVersion):
			continue
		}
		best, bestVersion, found = pkg, v, true
	}
	return best, found
}
