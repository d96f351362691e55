package cmd

import (
	"github.com/spf13/pflag"
)

const (
	flagTargetOrg       = "target-org"
	flagNoConflictCheck = "no-conflict-check"
	flagManifest        = "manifest"
)

// addTargetOrgFlag registers --target-org on fs.
func addTargetOrgFlag(fs *pflag.FlagSet) {
	fs.StringP(flagTargetOrg, "o", "", "Username or alias of the target org (overrides target_org)")
}

// addConflictFlags registers the flags shared by deploy and retrieve.
func addConflictFlags(fs *pflag.FlagSet) {
	addTargetOrgFlag(fs)
	fs.Bool(flagNoConflictCheck, false, "Skip conflict detection for this run")
	fs.StringP(flagManifest, "x", "", "Path to a package.xml manifest")
}

// checksDisabled reports whether --no-conflict-check was given.
func checksDisabled(fs *pflag.FlagSet) bool {
	off, _ := fs.GetBool(flagNoConflictCheck)
	return off
}
