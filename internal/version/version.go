package version

// Tag holds the build version for the courier binaries. Override at build time via:
// go build -ldflags "-X github.com/corvusHold/courier/internal/version.Tag=v1.2.3".
var Tag = "dev"

// String returns the current version, "dev" when Tag is unset.
func String() string {
	if Tag == "" {
		return "dev"
	}
	return Tag
}
