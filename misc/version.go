// Package misc holds build time information.
package misc

// Values are set with -ldflags "-X cssfire/misc.version=..." at build time.
var (
	appName = "cssfire"
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
